package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatches_CaseInsensitiveContainment(t *testing.T) {
	assert.True(t, LabelCompliance.Matches("compliance"))
	assert.True(t, LabelCompliance.Matches("  COMPLIANCE question  "))
	assert.True(t, LabelHistory.Matches("this is a history lookup"))
	assert.False(t, LabelAnalytics.Matches("strategy"))
	assert.False(t, LabelStrategy.Matches(""))
}

func TestRoutingPriority_CoversEveryLabel(t *testing.T) {
	seen := map[RoutingLabel]bool{}
	for _, l := range RoutingPriority {
		seen[l] = true
	}
	for _, l := range []RoutingLabel{LabelCompliance, LabelHistory, LabelAnalytics, LabelStrategy} {
		assert.True(t, seen[l], "label %q missing from priority order", l)
	}
	assert.Equal(t, LabelStrategy, RoutingPriority[len(RoutingPriority)-1],
		"strategy must be the final fallthrough entry")
}

func TestAgentName_AnalyticsFoldsIntoStrategy(t *testing.T) {
	assert.Equal(t, AgentCompliance, LabelCompliance.AgentName())
	assert.Equal(t, AgentHistory, LabelHistory.AgentName())
	assert.Equal(t, AgentStrategy, LabelAnalytics.AgentName())
	assert.Equal(t, AgentStrategy, LabelStrategy.AgentName())
}

func TestConversationKey_Format(t *testing.T) {
	in := QueryInput{UserID: "u1", StudentID: "s1"}
	assert.Equal(t, "u1:s1", in.ConversationKey())

	state := AppState{UserID: "u1", StudentID: "s1"}
	assert.Equal(t, in.ConversationKey(), state.ConversationKey())
}

func TestTruncateRunes_PrefixCut(t *testing.T) {
	assert.Equal(t, "héll", TruncateRunes("héllo", 4))
	assert.Equal(t, "short", TruncateRunes("short", 100))
	assert.Equal(t, "", TruncateRunes("anything", 0))
}
