package model

// TruncateRunes returns at most max runes of s. This is the context-window
// budgeting policy for ingested documents: a plain prefix cut, by contract
// not token-aware.
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
