package model

import "fmt"

// AppState stores per-invocation state for the Eino Graph.
// Concurrency model:
//   - This struct is registered as Graph Local State via compose.WithGenLocalState.
//   - All reads/writes happen only inside Eino state handlers
//     (WithStatePreHandler, WithStatePostHandler, compose.ProcessState), which
//     Eino serializes, so no additional locking is required.
//   - Do not touch AppState outside handlers; persistence goes through the
//     repositories (MessagesManager, document store).
type AppState struct {
	UserID    string
	StudentID string
	Query     string

	// DocumentText is the student's ingested record text, loaded once per
	// turn by the input converter. Empty when nothing has been uploaded.
	DocumentText string

	// Route is set by the route parser post-handler and read by the
	// assemblers and the response post-handler.
	Route *RouteDecision

	// Accumulated total LLM cost (USD) across model invocations for this turn.
	TotalCostUSD float64
}

// ConversationKey identifies the working-memory stream for the turn held in
// state.
func (s *AppState) ConversationKey() string {
	return fmt.Sprintf("%s:%s", s.UserID, s.StudentID)
}

// QueryInput represents one user turn entering the routing graph.
type QueryInput struct {
	UserID    string `json:"user_id"`
	StudentID string `json:"student_id"`
	Query     string `json:"query"`
}

// ConversationKey identifies the working-memory stream for this user/student
// pair.
func (in QueryInput) ConversationKey() string {
	return fmt.Sprintf("%s:%s", in.UserID, in.StudentID)
}

// AgentResult is the immutable outcome of one routed turn.
type AgentResult struct {
	Text     string       `json:"text"`
	Agent    string       `json:"agent"`
	Label    RoutingLabel `json:"label"`
	Fallback bool         `json:"fallback"`
	CostUSD  float64      `json:"cost_usd"`
}

// Keys under which node post-handlers expose per-turn metadata on the final
// message's Extra map, consumed by the Runner when shaping AgentResult.
const (
	ExtraAgent    = "agent"
	ExtraLabel    = "label"
	ExtraFallback = "fallback"
	ExtraCostUSD  = "usage_cost_total_usd"
)
