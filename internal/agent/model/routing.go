package model

import "strings"

// RoutingLabel is the classifier's closed-set output steering which persona
// handler runs. Values outside this set are structurally impossible: anything
// the classifier cannot match falls back to LabelStrategy.
type RoutingLabel string

const (
	LabelCompliance RoutingLabel = "compliance"
	LabelHistory    RoutingLabel = "history"
	LabelAnalytics  RoutingLabel = "analytics"
	LabelStrategy   RoutingLabel = "strategy"
)

// FallbackLabel is returned whenever classification fails or is ambiguous.
const FallbackLabel = LabelStrategy

// Agent identities attached to results so the UI can show which persona
// produced a reply.
const (
	AgentCompliance = "Compliance Agent"
	AgentHistory    = "History Agent"
	AgentStrategy   = "Strategy Agent"
	AgentSystem     = "System"
)

// RoutingPriority is the ordered (label, matcher) table evaluated against the
// classifier's raw output. Earlier entries win, so a response containing both
// "compliance" and "history" resolves to compliance. Strategy is last and
// doubles as the explicit fallthrough.
var RoutingPriority = []RoutingLabel{
	LabelCompliance,
	LabelHistory,
	LabelAnalytics,
	LabelStrategy,
}

// RouteDecision is the classifier's result. Fallback distinguishes "the model
// said strategy" from "classification failed and we defaulted to strategy".
type RouteDecision struct {
	Label    RoutingLabel
	Fallback bool
	Raw      string
}

// Matches reports whether the raw classifier output contains this label,
// case-insensitively. Substring containment is the whole contract; no
// semantic interpretation happens here.
func (l RoutingLabel) Matches(raw string) bool {
	return strings.Contains(strings.ToLower(raw), string(l))
}

// AgentName maps a label to the persona identity attached to its results.
// Analytics is folded into the strategy persona; the mapping stays explicit
// here so splitting it back out is a one-line change.
func (l RoutingLabel) AgentName() string {
	switch l {
	case LabelCompliance:
		return AgentCompliance
	case LabelHistory:
		return AgentHistory
	default:
		return AgentStrategy
	}
}
