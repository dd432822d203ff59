package nodes

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/neurosync-os/server/internal/agent/graph/conversations"
	"github.com/neurosync-os/server/internal/agent/graph/parsers"
	"github.com/neurosync-os/server/internal/agent/graph/prompts"
	"github.com/neurosync-os/server/internal/agent/model"
	logx "github.com/neurosync-os/server/pkg/logger"
)

// Graph node names.
const (
	NodeInputConverter      = "input_converter"
	NodeRouterChatModel     = "router_chat_model"
	NodeRouteParser         = "route_parser"
	NodeComplianceAssembler = "compliance_assembler"
	NodeStrategyAssembler   = "strategy_assembler"
	NodeHistoryAssembler    = "history_assembler"
	NodeHistoryGuidance     = "history_guidance"
	NodeResponseChatModel   = "response_chat_model"
)

// RouteTargets is the dispatch table from routing label to assembler node.
// Total over the closed label set; analytics is deliberately folded into the
// strategy persona. History additionally diverts to the guidance node when no
// document is on file (see NewRouteCondition).
var RouteTargets = map[model.RoutingLabel]string{
	model.LabelCompliance: NodeComplianceAssembler,
	model.LabelHistory:    NodeHistoryAssembler,
	model.LabelAnalytics:  NodeStrategyAssembler,
	model.LabelStrategy:   NodeStrategyAssembler,
}

// NewInputConverterPreHandler seeds per-turn state: identifiers, a fresh cost
// counter, and the student's document text loaded from the store so the
// branch condition and history assembler can consult it.
func NewInputConverterPreHandler(docRepo model.DocumentRepository) func(context.Context, model.QueryInput, *model.AppState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.AppState) (model.QueryInput, error) {
		s.UserID = in.UserID
		s.StudentID = in.StudentID
		s.Query = in.Query
		s.Route = nil
		s.TotalCostUSD = 0

		text, err := docRepo.LoadDocument(ctx, in.StudentID)
		if err != nil {
			// A failing document store must not kill the turn; the history
			// branch simply behaves as if nothing was uploaded.
			logx.Warn().Err(err).Str("student_id", in.StudentID).Msg("failed to load document context")
			text = ""
		}
		s.DocumentText = text
		return in, nil
	}
}

// NewInputConverterNode persists the user turn and emits the router messages.
func NewInputConverterNode(mm *conversations.MessagesManager) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.QueryInput) ([]*schema.Message, error) {
		conversationCtx, err := mm.ProcessUserMessage(ctx, input.ConversationKey(), input.Query)
		if err != nil {
			return nil, fmt.Errorf("error getting conversation context: %w", err)
		}

		systemPrompt, err := prompts.RenderRouterSystem(ctx)
		if err != nil {
			return nil, fmt.Errorf("render router system prompt: %w", err)
		}

		messages := []*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(conversationCtx),
		}

		return messages, nil
	})
}

// NewRouterModelNode calls the classifier model. A failed call is absorbed:
// an empty assistant message falls through the parser to the fallback label,
// so a router outage degrades to the strategy persona instead of erroring the
// turn. No retry is attempted.
func NewRouterModelNode(cm einomodel.BaseChatModel) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, messages []*schema.Message) (*schema.Message, error) {
		out, err := cm.Generate(ctx, messages)
		if err != nil {
			logx.Warn().Err(err).Msg("router model call failed, treating as ambiguous classification")
			return schema.AssistantMessage("", nil), nil
		}
		if out == nil {
			return schema.AssistantMessage("", nil), nil
		}
		return out, nil
	})
}

// NewRouterModelPostHandler computes and logs usage cost for the router model.
func NewRouterModelPostHandler(modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		accumulateUsageCost(out, state, modelName, NodeRouterChatModel)
		return out, nil
	}
}

// NewRouteParserNode maps classifier output to a RouteDecision. It never
// fails; unrecognized output becomes the fallback decision.
func NewRouteParserNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, resp *schema.Message) (model.RouteDecision, error) {
		content := ""
		if resp != nil {
			content = resp.Content
		}
		return parsers.ParseRouteDecision(content), nil
	})
}

// NewRouteParserPostHandler stores the decision in state for the assemblers
// and the response post-handler.
func NewRouteParserPostHandler() func(context.Context, model.RouteDecision, *model.AppState) (model.RouteDecision, error) {
	return func(ctx context.Context, out model.RouteDecision, state *model.AppState) (model.RouteDecision, error) {
		decision := out
		state.Route = &decision

		logx.Debug().
			Str("conversation_key", state.ConversationKey()).
			Str("label", string(out.Label)).
			Bool("fallback", out.Fallback).
			Msg("Route decided")
		return out, nil
	}
}

// NewRouteCondition dispatches a RouteDecision to its assembler node. History
// without an uploaded document short-circuits to the guidance node so no
// generation call happens for that turn.
func NewRouteCondition() func(context.Context, model.RouteDecision) (string, error) {
	return func(ctx context.Context, input model.RouteDecision) (string, error) {
		var hasDocument bool
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			hasDocument = strings.TrimSpace(state.DocumentText) != ""
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("failed to access state: %w", err)
		}

		if input.Label == model.LabelHistory && !hasDocument {
			logx.Debug().Msg("History requested with no document on file - routing to guidance")
			return NodeHistoryGuidance, nil
		}

		target, ok := RouteTargets[input.Label]
		if !ok {
			// Unreachable given the parser's closed set; kept as a guard.
			target = NodeStrategyAssembler
		}
		logx.Debug().Str("label", string(input.Label)).Str("target", target).Msg("Dispatching to persona")
		return target, nil
	}
}

// NewComplianceAssemblerNode builds the generation messages under the
// education-law persona.
func NewComplianceAssemblerNode(mm *conversations.MessagesManager, personaCfg model.PersonaPromptConfig) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.RouteDecision) ([]*schema.Message, error) {
		sysPrompt, err := prompts.RenderComplianceSystem(ctx, personaCfg)
		if err != nil {
			return nil, fmt.Errorf("render compliance prompt: %w", err)
		}
		return assembleResponseContext(ctx, mm, sysPrompt)
	})
}

// NewStrategyAssemblerNode builds the generation messages under the teacher
// persona. Analytics-labelled turns land here too.
func NewStrategyAssemblerNode(mm *conversations.MessagesManager, personaCfg model.PersonaPromptConfig) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.RouteDecision) ([]*schema.Message, error) {
		sysPrompt, err := prompts.RenderStrategySystem(ctx, personaCfg)
		if err != nil {
			return nil, fmt.Errorf("render strategy prompt: %w", err)
		}
		return assembleResponseContext(ctx, mm, sysPrompt)
	})
}

// NewHistoryAssemblerNode builds the generation messages restricted to the
// uploaded record, truncated to the configured prefix budget.
func NewHistoryAssemblerNode(mm *conversations.MessagesManager, docCfg model.DocumentConfig) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.RouteDecision) ([]*schema.Message, error) {
		var docText string
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			docText = state.DocumentText
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		sysPrompt, err := prompts.RenderHistorySystem(ctx, docText, docCfg.MaxContextChars)
		if err != nil {
			return nil, fmt.Errorf("render history prompt: %w", err)
		}
		return assembleResponseContext(ctx, mm, sysPrompt)
	})
}

// NewHistoryGuidanceNode returns the fixed guidance message when the history
// persona was selected but no document is on file. Zero model calls; the
// result is tagged with the System identity and still recorded in working
// memory so the exchange reads naturally on the next turn.
func NewHistoryGuidanceNode(mm *conversations.MessagesManager) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.RouteDecision) (*schema.Message, error) {
		var (
			conversationKey string
			totalCost       float64
		)
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			conversationKey = state.ConversationKey()
			totalCost = state.TotalCostUSD
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		if err := mm.SaveResponse(ctx, conversationKey, prompts.GuidanceNoDocument); err != nil {
			logx.Error().Err(err).Str("conversation_key", conversationKey).Msg("Error saving guidance message")
		}

		out := schema.SystemMessage(prompts.GuidanceNoDocument)
		out.Extra = map[string]any{
			model.ExtraAgent:    model.AgentSystem,
			model.ExtraLabel:    string(input.Label),
			model.ExtraFallback: input.Fallback,
			model.ExtraCostUSD:  totalCost,
		}
		return out, nil
	})
}

// NewResponseChatModelPostHandler computes usage cost, tags the producing
// agent on the outgoing message, and persists the assistant turn to working
// memory.
func NewResponseChatModelPostHandler(mm *conversations.MessagesManager, modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		accumulateUsageCost(out, state, modelName, NodeResponseChatModel)

		if out == nil {
			return nil, fmt.Errorf("response model returned nil message")
		}

		label := model.FallbackLabel
		fallback := true
		if state.Route != nil {
			label = state.Route.Label
			fallback = state.Route.Fallback
		}

		if out.Extra == nil {
			out.Extra = map[string]any{}
		}
		out.Extra[model.ExtraAgent] = label.AgentName()
		out.Extra[model.ExtraLabel] = string(label)
		out.Extra[model.ExtraFallback] = fallback
		out.Extra[model.ExtraCostUSD] = state.TotalCostUSD

		if strings.TrimSpace(out.Content) != "" {
			if err := mm.SaveResponse(ctx, state.ConversationKey(), out.Content); err != nil {
				logx.Error().
					Str("conversation_key", state.ConversationKey()).
					Err(err).
					Msg("Error saving assistant response")
			}
		}

		logx.Debug().
			Str("conversation_key", state.ConversationKey()).
			Str("agent", label.AgentName()).
			Msg("AI response ready")

		return out, nil
	}
}

// accumulateUsageCost converts token usage on the message into USD, records
// it on the message Extra, and adds it to the per-turn running total.
func accumulateUsageCost(out *schema.Message, state *model.AppState, modelName, node string) {
	if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}

	pricing := model.ResolvePricing(modelName)
	inC, outC, totalC := model.ComputeCost(out.ResponseMeta.Usage, pricing)
	if out.Extra == nil {
		out.Extra = map[string]any{}
	}
	out.Extra["usage_cost"] = map[string]any{
		"currency":          "USD",
		"model":             modelName,
		"prompt_tokens":     out.ResponseMeta.Usage.PromptTokens,
		"completion_tokens": out.ResponseMeta.Usage.CompletionTokens,
		"total_tokens":      out.ResponseMeta.Usage.TotalTokens,
		"input_cost":        inC,
		"output_cost":       outC,
		"total_cost":        totalC,
	}

	state.TotalCostUSD += totalC
	out.Extra[model.ExtraCostUSD] = state.TotalCostUSD

	logx.Debug().
		Str("conversation_key", state.ConversationKey()).
		Str("node", node).
		Str("model", modelName).
		Int("prompt_tokens", out.ResponseMeta.Usage.PromptTokens).
		Int("completion_tokens", out.ResponseMeta.Usage.CompletionTokens).
		Int("total_tokens", out.ResponseMeta.Usage.TotalTokens).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")
}

// assembleResponseContext prefixes the persona system prompt onto the
// working-memory history for the turn held in state.
func assembleResponseContext(ctx context.Context, mm *conversations.MessagesManager, sysPrompt string) ([]*schema.Message, error) {
	var conversationKey string
	err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
		conversationKey = state.ConversationKey()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access state: %w", err)
	}

	messages, err := mm.BuildResponseContext(ctx, conversationKey, sysPrompt)
	if err != nil {
		return nil, fmt.Errorf("build response context: %w", err)
	}
	return messages, nil
}
