package parsers

import (
	"strings"

	"github.com/neurosync-os/server/internal/agent/model"
	logx "github.com/neurosync-os/server/pkg/logger"
)

// maxContentLen guards against pathological classifier output.
const maxContentLen = 8 * 1024

// ParseRouteDecision turns raw classifier output into a RouteDecision.
// Matching is case-insensitive substring containment against each label in
// model.RoutingPriority, earliest match wins. Anything unrecognized (or
// empty, as produced when the router call itself failed) degrades to the
// fallback label with Fallback set. This function never fails and never
// returns a label outside the closed set.
func ParseRouteDecision(content string) model.RouteDecision {
	raw := content
	if len(raw) > maxContentLen {
		logx.Warn().
			Str("component", "route_parser").
			Int("orig_len", len(content)).
			Int("max_len", maxContentLen).
			Msg("classifier output truncated due to size limit")
		raw = raw[:maxContentLen]
	}
	raw = strings.TrimSpace(raw)

	for _, label := range model.RoutingPriority {
		if label.Matches(raw) {
			return model.RouteDecision{Label: label, Raw: raw}
		}
	}

	logx.Debug().
		Str("component", "route_parser").
		Str("raw", model.TruncateRunes(raw, 120)).
		Msg("no label matched, defaulting to fallback")
	return model.RouteDecision{Label: model.FallbackLabel, Fallback: true, Raw: raw}
}
