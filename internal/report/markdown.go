package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/model-eval/internal/eval"
)

// Markdown renders an audit report as a markdown document. Models appear in
// report order; failure reasons are sorted by occurrence count descending,
// then alphabetically for stable output.
func Markdown(r *eval.AuditReport) string {
	lines := []string{"# LLM Quality Audit Report\n"}
	lines = append(lines,
		fmt.Sprintf("**Iterations per scenario**: %d", r.Iterations),
		fmt.Sprintf("**Total scenarios**: %d", r.Scenarios),
		fmt.Sprintf("**Models tested**: %d\n", len(r.Models)),
	)

	for _, model := range r.Models {
		s := r.Summaries[model]
		if s == nil {
			continue
		}

		lines = append(lines,
			fmt.Sprintf("\n## %s\n", model),
			fmt.Sprintf("- **Success Rate**: %.1f%% (%d/%d)", s.SuccessRate*100, s.SuccessfulRuns, s.TotalRuns),
		)
		if s.SuccessfulRuns == 0 {
			lines = append(lines, "- ⚠️ No passing runs detected")
		} else {
			lines = append(lines, fmt.Sprintf("- **Recommendation**: %s\n", s.Recommendation))
		}

		if len(s.FailuresByReason) > 0 {
			lines = append(lines, "### Failure Breakdown:")
			for _, fc := range sortedFailures(s.FailuresByReason) {
				lines = append(lines, fmt.Sprintf("  - %s: %d occurrences", fc.reason, fc.count))
			}
		} else {
			lines = append(lines, "✅ No failures detected")
		}
	}

	return strings.Join(lines, "\n")
}

// Cautionary renders the low-success-rate advisory for models below minRate.
// Returns "" when no model qualifies.
func Cautionary(r *eval.AuditReport, minRate float64) string {
	models := r.CautionaryModels(minRate)
	if len(models) == 0 {
		return ""
	}

	lines := []string{fmt.Sprintf("Models trending low (<%.0f%% success rate). Investigate if time permits:\n", minRate*100)}
	for _, model := range models {
		s := r.Summaries[model]
		lines = append(lines, fmt.Sprintf("- %s: %.1f%% (%d/%d)",
			model, s.SuccessRate*100, s.SuccessfulRuns, s.TotalRuns))
	}
	return strings.Join(lines, "\n")
}

type failureCount struct {
	reason eval.FailureReason
	count  int
}

func sortedFailures(m map[eval.FailureReason]int) []failureCount {
	out := make([]failureCount, 0, len(m))
	for reason, count := range m {
		out = append(out, failureCount{reason, count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].reason < out[j].reason
	})
	return out
}
