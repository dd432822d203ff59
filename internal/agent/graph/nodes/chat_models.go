package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/neurosync-os/server/internal/agent/model"
	logx "github.com/neurosync-os/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation.
type ChatModelConfig struct {
	APIKey       string
	BaseURL      string
	RouterConfig *model.RouterModelConfig
	RespConfig   *model.ResponseModelConfig
}

// ChatModels holds the classifier and response chat models. Fields are the
// Eino BaseChatModel interface so tests can substitute fakes.
type ChatModels struct {
	Router            einomodel.BaseChatModel
	Response          einomodel.BaseChatModel
	RouterModelName   string
	ResponseModelName string
}

// NewChatModels creates both router and response chat models against the
// Gemini API.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	// Router model: single-word classification, thinking disabled.
	routerModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.RouterConfig.Model,
		Temperature: &config.RouterConfig.Temperature,
		MaxTokens:   &config.RouterConfig.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(0)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating router model")
		return nil, fmt.Errorf("error creating router model: %w", err)
	}

	responseModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.RespConfig.Model,
		Temperature: &config.RespConfig.Temperature,
		MaxTokens:   &config.RespConfig.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  genai.Ptr(int32(2000)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating response model")
		return nil, fmt.Errorf("error creating response model: %w", err)
	}

	return &ChatModels{
		Router:            routerModel,
		Response:          responseModel,
		RouterModelName:   config.RouterConfig.Model,
		ResponseModelName: config.RespConfig.Model,
	}, nil
}
