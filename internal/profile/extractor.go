// Package profile extracts a fixed-shape student profile from ingested
// record text with a single model call.
package profile

import (
	"context"
	_ "embed"
	"encoding/json"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/neurosync-os/server/internal/agent/model"
	logx "github.com/neurosync-os/server/pkg/logger"
)

//go:embed template/profile_prompt.txt
var profileSystemPrompt string

// Profile is the fixed-shape record pulled from a student document.
type Profile struct {
	Name      string `json:"name"`
	Diagnosis string `json:"diagnosis"`
	Grade     string `json:"grade"`
	IEPDate   string `json:"iep_date"`
}

// Placeholder is returned whenever extraction fails, for any reason.
var Placeholder = Profile{
	Name:      "Unknown",
	Diagnosis: "Not Found",
	Grade:     "N/A",
	IEPDate:   "N/A",
}

// Extractor performs the thin LLM call of §profile extraction: prefix of the
// document in, strict JSON out, placeholder on any failure. No retry.
type Extractor struct {
	cm       einomodel.BaseChatModel
	maxChars int
}

func NewExtractor(cm einomodel.BaseChatModel, maxChars int) *Extractor {
	return &Extractor{cm: cm, maxChars: maxChars}
}

// Extract never fails: call errors, malformed JSON, and empty responses all
// degrade to the Placeholder record.
func (e *Extractor) Extract(ctx context.Context, documentText string) Profile {
	prefix := model.TruncateRunes(documentText, e.maxChars)

	messages := []*schema.Message{
		schema.SystemMessage(profileSystemPrompt),
		schema.UserMessage(prefix),
	}

	out, err := e.cm.Generate(ctx, messages)
	if err != nil {
		logx.Warn().Err(err).Msg("profile extraction call failed, using placeholder")
		return Placeholder
	}
	if out == nil {
		return Placeholder
	}

	return parseProfile(out.Content)
}

func parseProfile(content string) Profile {
	cleaned := stripCodeFence(content)

	var p Profile
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		logx.Warn().Err(err).Msg("profile extraction returned malformed JSON, using placeholder")
		return Placeholder
	}

	// Empty fields fall back individually so a partial object stays useful.
	if strings.TrimSpace(p.Name) == "" {
		p.Name = Placeholder.Name
	}
	if strings.TrimSpace(p.Diagnosis) == "" {
		p.Diagnosis = Placeholder.Diagnosis
	}
	if strings.TrimSpace(p.Grade) == "" {
		p.Grade = Placeholder.Grade
	}
	if strings.TrimSpace(p.IEPDate) == "" {
		p.IEPDate = Placeholder.IEPDate
	}
	return p
}

// stripCodeFence removes a common ```json ... ``` wrapping the model adds
// despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
