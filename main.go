package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/neurosync-os/server/internal/agent/graph"
	"github.com/neurosync-os/server/internal/agent/graph/conversations"
	"github.com/neurosync-os/server/internal/agent/model"
	"github.com/neurosync-os/server/internal/agent/repo"
	"github.com/neurosync-os/server/internal/auth"
	"github.com/neurosync-os/server/internal/core"
	"github.com/neurosync-os/server/internal/profile"
	"github.com/neurosync-os/server/internal/server"
	"github.com/neurosync-os/server/internal/storage"
	logx "github.com/neurosync-os/server/pkg/logger"
	pkgpostgres "github.com/neurosync-os/server/pkg/postgres"
	pkgredis "github.com/neurosync-os/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the service, sourced from
// environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`

	// Infrastructure
	Server   server.Config
	Redis    pkgredis.Config
	Postgres pkgpostgres.Config
	JWT      auth.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Router       model.RouterModelConfig
	Response     model.ResponseModelConfig
	Persona      model.PersonaPromptConfig
	Conversation model.ConversationConfig
	Document     model.DocumentConfig
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		logx.Warn().Err(err).Msg("could not load .env file")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("failed to process environment config")
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Environment)})

	rdb := cfg.Redis.MustNew()
	defer rdb.Close()

	db := cfg.Postgres.MustNew()
	if err := storage.Migrate(db); err != nil {
		logx.Fatal().Err(err).Msg("failed to run migrations")
	}

	ttl, err := time.ParseDuration(cfg.Conversation.TTL)
	if err != nil {
		logx.Fatal().Err(err).Str("ttl", cfg.Conversation.TTL).Msg("invalid conversation TTL")
	}

	conversationRepo := repo.NewRedisConversationRepository(rdb, ttl)
	documentRepo := repo.NewRedisDocumentRepository(rdb)

	userRepo := storage.NewUserRepository(db)
	studentRepo := storage.NewStudentRepository(db)
	chatLogRepo := storage.NewChatLogRepository(db)

	runner, cms, err := graph.BuildRoutingGraph(ctx, graph.Config{
		APIKey:           cfg.APIKey,
		BaseURL:          cfg.BaseURL,
		RouterModel:      cfg.Router,
		ResponseModel:    cfg.Response,
		Persona:          cfg.Persona,
		Conversation:     cfg.Conversation,
		Document:         cfg.Document,
		ConversationRepo: conversationRepo,
		DocumentRepo:     documentRepo,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to build routing graph")
	}

	// The router model doubles as the thin extraction model: same client, low
	// token budget, no conversation state.
	extractor := profile.NewExtractor(cms.Router, cfg.Document.ProfileChars)

	authService, err := auth.NewService(userRepo, cfg.JWT)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to initialise auth service")
	}

	sessions := conversations.NewMessagesManager(conversationRepo, cfg.Conversation)

	srv := server.New(cfg.Server, server.Deps{
		AuthService:       authService,
		AuthController:    server.NewAuthController(authService),
		StudentController: server.NewStudentController(studentRepo, documentRepo, extractor, cfg.Document),
		ChatController:    server.NewChatController(runner, studentRepo, chatLogRepo, sessions),
	})

	if err := srv.Run(); err != nil {
		logx.Fatal().Err(err).Msg("server stopped")
	}
}
