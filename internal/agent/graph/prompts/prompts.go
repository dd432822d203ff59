package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/neurosync-os/server/internal/agent/model"
)

//go:embed template/router_prompt.txt
var routerSystemPrompt string

//go:embed template/compliance_prompt.txt
var complianceSystemPrompt string

//go:embed template/strategy_prompt.txt
var strategySystemPrompt string

//go:embed template/history_prompt.txt
var historySystemPrompt string

// GuidanceNoDocument is the fixed message returned when the history handler
// runs without an uploaded student record. It is produced without a model call
// and tagged with the System agent identity.
const GuidanceNoDocument = "No student record is on file for this case yet. " +
	"Upload the student's IEP or evaluation document first, then ask your history question again."

// RenderRouterSystem renders the classifier system prompt via the Eino prompt
// component so prompt callbacks fire.
func RenderRouterSystem(ctx context.Context) (string, error) {
	return renderStatic(ctx, routerSystemPrompt)
}

// RenderComplianceSystem renders the education-law persona prompt.
func RenderComplianceSystem(ctx context.Context, cfg model.PersonaPromptConfig) (string, error) {
	return renderPersona(ctx, complianceSystemPrompt, cfg)
}

// RenderStrategySystem renders the teacher persona prompt. The analytics
// label also lands here.
func RenderStrategySystem(ctx context.Context, cfg model.PersonaPromptConfig) (string, error) {
	return renderPersona(ctx, strategySystemPrompt, cfg)
}

// RenderHistorySystem renders the document-grounded persona prompt. The
// record text is truncated to maxContextChars before interpolation; nothing
// past that prefix ever reaches the model. Token replacement (not template
// rendering) is used for the document so free text cannot break the template.
func RenderHistorySystem(ctx context.Context, docText string, maxContextChars int) (string, error) {
	truncated := model.TruncateRunes(docText, maxContextChars)
	content := strings.NewReplacer(
		"{document_text}", truncated,
	).Replace(historySystemPrompt)
	return renderStatic(ctx, content)
}

func renderPersona(ctx context.Context, tmpl string, cfg model.PersonaPromptConfig) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(tmpl),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"ProgramName":  cfg.ProgramName,
		"Jurisdiction": cfg.Jurisdiction,
	})
	if err != nil {
		return "", fmt.Errorf("persona prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("persona prompt render: empty result")
	}
	return msgs[0].Content, nil
}

// renderStatic wraps pre-rendered content in the Eino prompt component using a
// messages placeholder, so callbacks still fire without re-templating text
// that may contain braces.
func renderStatic(ctx context.Context, content string) (string, error) {
	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(content)},
	})
	if err != nil {
		return "", fmt.Errorf("prompt callbacks: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("prompt callbacks: empty result")
	}
	return msgs[0].Content, nil
}
