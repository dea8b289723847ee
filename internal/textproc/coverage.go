package textproc

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

var alphaRuns = regexp.MustCompile(`[A-Za-z]+`)

// Keywords extracts the scoreable keywords from a topic: alphabetic runs
// longer than three characters, case-folded and deduplicated. The result is
// sorted so callers get a stable order for notes and reports.
func Keywords(topic string) []string {
	folder := cases.Fold()
	seen := make(map[string]struct{})
	var out []string
	for _, term := range alphaRuns.FindAllString(topic, -1) {
		if len(term) <= 3 {
			continue
		}
		folded := folder.String(term)
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}
		out = append(out, folded)
	}
	sort.Strings(out)
	return out
}

// MatchKeywords splits keywords into those present in output (as
// case-insensitive substrings) and those missing. Keywords must already be
// folded, as produced by Keywords.
func MatchKeywords(output string, keywords []string) (matched, missing []string) {
	folded := cases.Fold().String(output)
	for _, kw := range keywords {
		if strings.Contains(folded, kw) {
			matched = append(matched, kw)
		} else {
			missing = append(missing, kw)
		}
	}
	return matched, missing
}

// Coverage returns the fraction of topic keywords present in output, in
// [0,1]. A topic contributing no keywords imposes no constraint and scores
// a vacuous 1.0.
func Coverage(output, topic string) float64 {
	keywords := Keywords(topic)
	if len(keywords) == 0 {
		return 1.0
	}
	matched, _ := MatchKeywords(output, keywords)
	return float64(len(matched)) / float64(len(keywords))
}

// RequiredMatches is the acceptance threshold used by the attempt loop:
// two matches once a topic offers more than one keyword, one match for a
// single-keyword topic, none when there is nothing to match.
func RequiredMatches(total int) int {
	switch {
	case total <= 0:
		return 0
	case total == 1:
		return 1
	default:
		return 2
	}
}
