package eval

import (
	"context"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/model-eval/internal/textproc"
)

// FailureReason classifies why a single audit iteration was rejected.
type FailureReason string

const (
	FailureTooShort      FailureReason = "too_short"
	FailureTooLong       FailureReason = "too_long"
	FailureOffTopic      FailureReason = "off_topic"
	FailureJudgeRejected FailureReason = "judge_rejected"
)

// Recommendation tiers, a pure function of success rate.
const (
	TierReplaceImmediately  = "replace immediately"
	TierConsiderReplacement = "consider replacement"
	TierAcceptable          = "acceptable"
	TierPerformingWell      = "performing well"
)

// Recommendation maps a success rate onto an action tier.
func Recommendation(rate float64) string {
	switch {
	case rate < 0.4:
		return TierReplaceImmediately
	case rate < 0.6:
		return TierConsiderReplacement
	case rate < 0.8:
		return TierAcceptable
	default:
		return TierPerformingWell
	}
}

// ClassifyFailure applies the fixed failure precedence: too short, too long,
// off topic, judge rejected. Length is the cleaned pre-truncation length so
// overlong generations stay observable. An empty reason means the iteration
// passed.
func ClassifyFailure(length int, coverage float64, judgePass bool, minLen, maxLen int, minCoverage float64) FailureReason {
	switch {
	case length < minLen:
		return FailureTooShort
	case length > maxLen:
		return FailureTooLong
	case coverage < minCoverage:
		return FailureOffTopic
	case !judgePass:
		return FailureJudgeRejected
	}
	return ""
}

// AuditConfig tunes the single-pass statistical audit.
type AuditConfig struct {
	JudgeModel string
	Iterations int
	Options    AttemptConfig
	MinLength  int
	MaxLength  int
	// MinCoverage is the off-topic threshold for audit classification.
	MinCoverage float64
	// MinSuccessRate separates cautionary models from acceptable ones.
	// Models below it are reported, not failed.
	MinSuccessRate float64
}

// AuditResult is one row: a single iteration of one scenario on one model.
type AuditResult struct {
	Model          string        `json:"model"`
	ScenarioID     string        `json:"scenario_id"`
	Iteration      int           `json:"iteration"`
	Seed           int64         `json:"seed"`
	Output         string        `json:"output"`
	Length         int           `json:"length"`
	RawLength      int           `json:"raw_length"`
	Coverage       float64       `json:"coverage"`
	JudgePass      bool          `json:"judge_pass"`
	JudgeReasoning string        `json:"judge_reasoning"`
	FailureReason  FailureReason `json:"failure_reason,omitempty"`
}

// ModelAuditSummary aggregates a model's audit rows.
type ModelAuditSummary struct {
	Model            string                `json:"model"`
	TotalRuns        int                   `json:"total_runs"`
	SuccessfulRuns   int                   `json:"successful_runs"`
	FailedRuns       int                   `json:"failed_runs"`
	SuccessRate      float64               `json:"success_rate"`
	FailuresByReason map[FailureReason]int `json:"failures_by_reason,omitempty"`
	Recommendation   string                `json:"recommendation"`
	Results          []AuditResult         `json:"-"`
}

// AuditReport is the audit outcome across all models.
type AuditReport struct {
	Iterations int                           `json:"iterations"`
	Scenarios  int                           `json:"scenarios"`
	Models     []string                      `json:"models"`
	Summaries  map[string]*ModelAuditSummary `json:"summaries"`
}

// FailingModels lists models with zero successful runs. Any entry makes the
// whole audit a hard failure.
func (r *AuditReport) FailingModels() []string {
	var out []string
	for _, model := range r.Models {
		if s := r.Summaries[model]; s != nil && s.SuccessfulRuns == 0 {
			out = append(out, model)
		}
	}
	return out
}

// CautionaryModels lists models with a positive but sub-threshold success
// rate. They are surfaced for investigation, never failed.
func (r *AuditReport) CautionaryModels(minRate float64) []string {
	var out []string
	for _, model := range r.Models {
		s := r.Summaries[model]
		if s != nil && s.SuccessfulRuns > 0 && s.SuccessRate < minRate {
			out = append(out, model)
		}
	}
	return out
}

// Auditor runs the no-retry sampling audit: fixed options, one generation
// and one judge call per iteration, no stabilization.
type Auditor struct {
	gen   Generator
	judge Judge
	cfg   AuditConfig
}

// NewAuditor builds an Auditor, defaulting unset thresholds to the article
// window (300..500 chars), 0.5 coverage, and 0.4 minimum success rate.
func NewAuditor(gen Generator, judge Judge, cfg AuditConfig) *Auditor {
	if cfg.Iterations <= 0 {
		cfg.Iterations = 2
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = 300
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 500
	}
	if cfg.MinCoverage <= 0 {
		cfg.MinCoverage = 0.5
	}
	if cfg.MinSuccessRate <= 0 {
		cfg.MinSuccessRate = 0.4
	}
	return &Auditor{gen: gen, judge: judge, cfg: cfg}
}

// Audit samples every (model, scenario) pair cfg.Iterations times and
// aggregates per-model summaries. Iteration seeds derive from
// (scenarioID, model, "audit") so audit runs reproduce independently of the
// attempt loop.
func (a *Auditor) Audit(ctx context.Context, tasks []Task, models []string) (*AuditReport, error) {
	report := &AuditReport{
		Iterations: a.cfg.Iterations,
		Scenarios:  len(tasks),
		Models:     models,
		Summaries:  make(map[string]*ModelAuditSummary, len(models)),
	}

	for _, model := range models {
		log := zap.L().With(zap.String("model", model))
		log.Info("starting quality audit", zap.Int("iterations", a.cfg.Iterations))

		summary := &ModelAuditSummary{
			Model:            model,
			FailuresByReason: make(map[FailureReason]int),
		}

		for _, task := range tasks {
			seedBase := SeedBase(task.ScenarioID, model, auditSeedTag)

			for iteration := 1; iteration <= a.cfg.Iterations; iteration++ {
				seed := seedBase + int64(iteration)

				row, err := a.sample(ctx, task, model, iteration, seed)
				if err != nil {
					return nil, err
				}

				summary.Results = append(summary.Results, *row)
				summary.TotalRuns++
				if row.FailureReason == "" {
					summary.SuccessfulRuns++
				} else {
					summary.FailedRuns++
					summary.FailuresByReason[row.FailureReason]++
				}

				log.Debug("audit iteration",
					zap.String("scenario", task.ScenarioID),
					zap.Int("iteration", iteration),
					zap.Int("length", row.Length),
					zap.Float64("coverage", row.Coverage),
					zap.String("failure_reason", string(row.FailureReason)),
				)
			}
		}

		if summary.TotalRuns > 0 {
			summary.SuccessRate = float64(summary.SuccessfulRuns) / float64(summary.TotalRuns)
		}
		summary.Recommendation = Recommendation(summary.SuccessRate)
		report.Summaries[model] = summary

		log.Info("audit complete",
			zap.Int("successful", summary.SuccessfulRuns),
			zap.Int("total", summary.TotalRuns),
			zap.Float64("success_rate", summary.SuccessRate),
		)
	}

	return report, nil
}

func (a *Auditor) sample(ctx context.Context, task Task, model string, iteration int, seed int64) (*AuditResult, error) {
	result, err := a.gen.Generate(ctx, GenRequest{
		Model:  model,
		Prompt: task.Prompt,
		Kind:   task.Kind,
		Topic:  task.Topic,
		Options: GenOptions{
			Temperature: a.cfg.Options.Temperature,
			MaxTokens:   a.cfg.Options.MaxTokens,
			Seed:        seed,
		},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "eval: audit generate %s/%s iteration %d", task.ScenarioID, model, iteration)
	}

	cleaned := textproc.Clean(result.Output)
	output := textproc.Truncate(cleaned, a.cfg.MaxLength)
	coverage := textproc.Coverage(output, task.Topic)

	verdict, err := a.judge.Judge(ctx, a.cfg.JudgeModel, output, task.Topic, seed+auditJudgeSeedOffset)
	if err != nil {
		return nil, eris.Wrapf(err, "eval: audit judge %s/%s iteration %d", task.ScenarioID, model, iteration)
	}

	row := &AuditResult{
		Model:          model,
		ScenarioID:     task.ScenarioID,
		Iteration:      iteration,
		Seed:           seed,
		Output:         output,
		Length:         utf8.RuneCountInString(output),
		RawLength:      utf8.RuneCountInString(cleaned),
		Coverage:       coverage,
		JudgePass:      verdict.Pass,
		JudgeReasoning: verdict.Reasoning,
	}
	row.FailureReason = ClassifyFailure(row.RawLength, coverage, verdict.Pass, a.cfg.MinLength, a.cfg.MaxLength, a.cfg.MinCoverage)

	return row, nil
}
