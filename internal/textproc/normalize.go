package textproc

import (
	"regexp"
	"strings"
)

var (
	separatorRuns  = regexp.MustCompile(`-{2,}\s*`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// Clean collapses runs of dash separators to a single space, collapses all
// whitespace runs to single spaces, and trims both ends. Models frequently
// emit markdown rules and ragged line breaks that would otherwise distort
// length and keyword checks.
func Clean(raw string) string {
	out := separatorRuns.ReplaceAllString(raw, " ")
	out = whitespaceRuns.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// Truncate cuts s to at most maxLen runes. When a cut lands mid-word it
// backtracks to the last complete word so output never ends in a fragment.
// If the first maxLen runes contain no space the hard cut stands.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	cut := string(runes[:maxLen])
	if idx := strings.LastIndex(cut, " "); idx >= 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}

// Normalize is Clean followed by Truncate. It is total over any input and
// idempotent for a fixed maxLen.
func Normalize(raw string, maxLen int) string {
	return Truncate(Clean(raw), maxLen)
}
