package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/neurosync-os/server/internal/agent/graph/conversations"
	"github.com/neurosync-os/server/internal/agent/graph/nodes"
	"github.com/neurosync-os/server/internal/agent/graph/observers"
	"github.com/neurosync-os/server/internal/agent/model"
	logx "github.com/neurosync-os/server/pkg/logger"
)

// Runner executes the compiled routing graph for one user turn.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (model.AgentResult, error)
}

// Config holds everything needed to compose the full routing graph
// end-to-end. This is a convenience layer over GraphConfig that also
// constructs ChatModels and the MessagesManager.
type Config struct {
	APIKey           string
	BaseURL          string
	RouterModel      model.RouterModelConfig
	ResponseModel    model.ResponseModelConfig
	Persona          model.PersonaPromptConfig
	Conversation     model.ConversationConfig
	Document         model.DocumentConfig
	ConversationRepo model.ConversationRepository
	DocumentRepo     model.DocumentRepository
}

// GraphConfig holds all configuration needed to build the graph.
type GraphConfig struct {
	ChatModels      *nodes.ChatModels
	MessagesManager *conversations.MessagesManager
	DocumentRepo    model.DocumentRepository
	Persona         model.PersonaPromptConfig
	Document        model.DocumentConfig
}

// GraphBuilder handles the construction of the routing graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.QueryInput, *schema.Message]
}

type graphRunner struct {
	runnable compose.Runnable[model.QueryInput, *schema.Message]
}

func (r *graphRunner) Invoke(ctx context.Context, in model.QueryInput) (model.AgentResult, error) {
	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return model.AgentResult{}, err
	}
	if out == nil {
		return model.AgentResult{}, fmt.Errorf("graph produced no output")
	}
	return resultFromMessage(out), nil
}

// resultFromMessage shapes the final graph message into an AgentResult using
// the metadata the node post-handlers attached.
func resultFromMessage(out *schema.Message) model.AgentResult {
	result := model.AgentResult{
		Text:  out.Content,
		Agent: model.FallbackLabel.AgentName(),
		Label: model.FallbackLabel,
	}
	if agent, ok := out.Extra[model.ExtraAgent].(string); ok && agent != "" {
		result.Agent = agent
	}
	if label, ok := out.Extra[model.ExtraLabel].(string); ok && label != "" {
		result.Label = model.RoutingLabel(label)
	}
	if fb, ok := out.Extra[model.ExtraFallback].(bool); ok {
		result.Fallback = fb
	}
	if cost, ok := out.Extra[model.ExtraCostUSD].(float64); ok {
		result.CostUSD = cost
	}
	return result
}

// BuildRoutingGraph composes ChatModels and the MessagesManager, builds the
// graph, and returns a Runner. The constructed ChatModels are returned too so
// callers can reuse the router model for other thin calls (profile
// extraction) without a second client.
func BuildRoutingGraph(ctx context.Context, cfg Config) (Runner, *nodes.ChatModels, error) {
	if cfg.ConversationRepo == nil {
		return nil, nil, fmt.Errorf("conversation repo is nil")
	}
	if cfg.DocumentRepo == nil {
		return nil, nil, fmt.Errorf("document repo is nil")
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		RouterConfig: &cfg.RouterModel,
		RespConfig:   &cfg.ResponseModel,
	})
	if err != nil {
		return nil, nil, err
	}

	mm := conversations.NewMessagesManager(cfg.ConversationRepo, cfg.Conversation)

	runnable, err := BuildGraph(ctx, &GraphConfig{
		ChatModels:      cms,
		MessagesManager: mm,
		DocumentRepo:    cfg.DocumentRepo,
		Persona:         cfg.Persona,
		Document:        cfg.Document,
	})
	if err != nil {
		return nil, nil, err
	}

	logx.Debug().Msg("Routing graph built successfully")
	return &graphRunner{runnable: runnable}, cms, nil
}

// BuildGraph constructs and returns the compiled routing graph.
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.Router == nil || config.ChatModels.Response == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}
	if config.DocumentRepo == nil {
		return nil, fmt.Errorf("document repo is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.QueryInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	builder.addNodes()
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph.
func (b *GraphBuilder) addNodes() {
	mm := b.config.MessagesManager
	cms := b.config.ChatModels

	b.graph.AddLambdaNode(nodes.NodeInputConverter,
		nodes.NewInputConverterNode(mm),
		compose.WithStatePreHandler(nodes.NewInputConverterPreHandler(b.config.DocumentRepo)),
	)

	b.graph.AddLambdaNode(nodes.NodeRouterChatModel,
		nodes.NewRouterModelNode(cms.Router),
		compose.WithStatePostHandler(nodes.NewRouterModelPostHandler(cms.RouterModelName)),
	)

	b.graph.AddLambdaNode(nodes.NodeRouteParser,
		nodes.NewRouteParserNode(),
		compose.WithStatePostHandler(nodes.NewRouteParserPostHandler()),
	)

	b.graph.AddLambdaNode(nodes.NodeComplianceAssembler,
		nodes.NewComplianceAssemblerNode(mm, b.config.Persona),
	)

	b.graph.AddLambdaNode(nodes.NodeStrategyAssembler,
		nodes.NewStrategyAssemblerNode(mm, b.config.Persona),
	)

	b.graph.AddLambdaNode(nodes.NodeHistoryAssembler,
		nodes.NewHistoryAssemblerNode(mm, b.config.Document),
	)

	b.graph.AddLambdaNode(nodes.NodeHistoryGuidance,
		nodes.NewHistoryGuidanceNode(mm),
	)

	b.graph.AddChatModelNode(nodes.NodeResponseChatModel,
		cms.Response,
		compose.WithStatePostHandler(nodes.NewResponseChatModelPostHandler(mm, cms.ResponseModelName)),
	)
}

// addEdges creates the main flow connections between nodes.
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, nodes.NodeInputConverter},
		{nodes.NodeInputConverter, nodes.NodeRouterChatModel},
		{nodes.NodeRouterChatModel, nodes.NodeRouteParser},
		{nodes.NodeComplianceAssembler, nodes.NodeResponseChatModel},
		{nodes.NodeStrategyAssembler, nodes.NodeResponseChatModel},
		{nodes.NodeHistoryAssembler, nodes.NodeResponseChatModel},
		{nodes.NodeHistoryGuidance, compose.END},
		{nodes.NodeResponseChatModel, compose.END},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches creates the persona dispatch branch.
func (b *GraphBuilder) addBranches() error {
	targets := map[string]bool{
		nodes.NodeHistoryGuidance: true,
	}
	for _, target := range nodes.RouteTargets {
		targets[target] = true
	}

	dispatchBranch := compose.NewGraphBranch(nodes.NewRouteCondition(), targets)
	if err := b.graph.AddBranch(nodes.NodeRouteParser, dispatchBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding dispatch branch")
		return fmt.Errorf("error adding dispatch branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph. The flow is linear (no loops, no
// tool cycles), so a small step budget is enough.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(10))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

// ValidateQuery is the single input check the graph expects callers to apply.
func ValidateQuery(q string) error {
	if strings.TrimSpace(q) == "" {
		return fmt.Errorf("query must not be empty")
	}
	return nil
}
