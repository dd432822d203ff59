package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurosync-os/server/internal/agent/model"
)

func TestRenderRouterSystem_ContainsAllLabels(t *testing.T) {
	out, err := RenderRouterSystem(context.Background())
	require.NoError(t, err)
	for _, label := range model.RoutingPriority {
		assert.Contains(t, out, string(label))
	}
	assert.Contains(t, out, "lowercase")
}

func TestRenderPersonaPrompts_InterpolateConfig(t *testing.T) {
	cfg := model.PersonaPromptConfig{
		ProgramName:  "TestProgram",
		Jurisdiction: "Test Jurisdiction",
	}

	out, err := RenderComplianceSystem(context.Background(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "TestProgram")
	assert.Contains(t, out, "Test Jurisdiction")

	out, err = RenderStrategySystem(context.Background(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "TestProgram")
}

func TestRenderHistorySystem_TruncatesDocument(t *testing.T) {
	const limit = 100
	prefix := strings.Repeat("a", limit)
	suffix := "NEVER-IN-PROMPT"
	doc := prefix + suffix

	out, err := RenderHistorySystem(context.Background(), doc, limit)
	require.NoError(t, err)

	assert.Contains(t, out, prefix)
	assert.NotContains(t, out, suffix)
}

func TestRenderHistorySystem_ShortDocumentKeptWhole(t *testing.T) {
	doc := "Student has ADHD, diagnosed 2023."
	out, err := RenderHistorySystem(context.Background(), doc, 12000)
	require.NoError(t, err)
	assert.Contains(t, out, doc)
}

func TestRenderHistorySystem_BracesInDocumentAreSafe(t *testing.T) {
	doc := `{"name": "Alex {Doe}", "grade": "5"}`
	out, err := RenderHistorySystem(context.Background(), doc, 12000)
	require.NoError(t, err)
	assert.Contains(t, out, doc)
}
