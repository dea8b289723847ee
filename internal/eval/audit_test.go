package eval

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedGenerator returns the same output for every call.
type fixedGenerator struct {
	output string
	calls  int
	seeds  []int64
}

func (g *fixedGenerator) Generate(_ context.Context, req GenRequest) (*GenResult, error) {
	g.calls++
	g.seeds = append(g.seeds, req.Options.Seed)
	return &GenResult{Model: req.Model, Output: g.output}, nil
}

// fixedJudge returns the same verdict for every call.
type fixedJudge struct {
	pass  bool
	calls int
}

func (j *fixedJudge) Judge(_ context.Context, _, _, _ string, _ int64) (JudgeVerdict, error) {
	j.calls++
	if j.pass {
		return JudgeVerdict{Pass: true, Reasoning: "PASS"}, nil
	}
	return JudgeVerdict{Pass: false, Reasoning: "FAIL incoherent"}, nil
}

func TestClassifyFailurePrecedence(t *testing.T) {
	tests := []struct {
		name      string
		length    int
		coverage  float64
		judgePass bool
		want      FailureReason
	}{
		{name: "pass", length: 400, coverage: 1.0, judgePass: true, want: ""},
		{name: "too_short", length: 120, coverage: 1.0, judgePass: true, want: FailureTooShort},
		{name: "too_long", length: 900, coverage: 1.0, judgePass: true, want: FailureTooLong},
		{name: "off_topic", length: 400, coverage: 0.2, judgePass: true, want: FailureOffTopic},
		{name: "judge_rejected", length: 400, coverage: 0.8, judgePass: false, want: FailureJudgeRejected},
		// Fixed precedence: a short, off-topic, judge-rejected output is too_short.
		{name: "short_beats_off_topic", length: 50, coverage: 0.0, judgePass: false, want: FailureTooShort},
		{name: "long_beats_off_topic", length: 700, coverage: 0.0, judgePass: false, want: FailureTooLong},
		{name: "off_topic_beats_judge", length: 400, coverage: 0.1, judgePass: false, want: FailureOffTopic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyFailure(tt.length, tt.coverage, tt.judgePass, 300, 500, 0.5)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecommendationTiers(t *testing.T) {
	assert.Equal(t, TierReplaceImmediately, Recommendation(0.0))
	assert.Equal(t, TierReplaceImmediately, Recommendation(0.39))
	assert.Equal(t, TierConsiderReplacement, Recommendation(0.4))
	assert.Equal(t, TierConsiderReplacement, Recommendation(0.59))
	assert.Equal(t, TierAcceptable, Recommendation(0.6))
	assert.Equal(t, TierAcceptable, Recommendation(0.79))
	assert.Equal(t, TierPerformingWell, Recommendation(0.8))
	assert.Equal(t, TierPerformingWell, Recommendation(1.0))
}

func TestAuditAllPass(t *testing.T) {
	gen := &fixedGenerator{output: onTopicArticle()}
	judge := &fixedJudge{pass: true}
	auditor := NewAuditor(gen, judge, AuditConfig{
		JudgeModel: "judge:test",
		Iterations: 2,
		Options:    AttemptConfig{MaxTokens: 180, Temperature: 0.25},
	})

	report, err := auditor.Audit(context.Background(), []Task{testTask}, []string{"gen:test"})
	require.NoError(t, err)

	summary := report.Summaries["gen:test"]
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.TotalRuns)
	assert.Equal(t, 2, summary.SuccessfulRuns)
	assert.Zero(t, summary.FailedRuns)
	assert.Equal(t, 1.0, summary.SuccessRate)
	assert.Equal(t, TierPerformingWell, summary.Recommendation)
	assert.Empty(t, summary.FailuresByReason)

	assert.Empty(t, report.FailingModels())
	assert.Empty(t, report.CautionaryModels(0.4))
}

func TestAuditZeroSuccessIsHardFailure(t *testing.T) {
	gen := &fixedGenerator{output: "way too short"}
	judge := &fixedJudge{pass: true}
	auditor := NewAuditor(gen, judge, AuditConfig{
		JudgeModel: "judge:test",
		Iterations: 2,
	})

	report, err := auditor.Audit(context.Background(), []Task{testTask, {
		ScenarioID: "second",
		Topic:      "Docker layer caching",
		Prompt:     "Topic: Docker layer caching",
		Kind:       KindArticle,
	}}, []string{"bad:model"})
	require.NoError(t, err)

	summary := report.Summaries["bad:model"]
	require.NotNil(t, summary)
	assert.Equal(t, 4, summary.TotalRuns)
	assert.Zero(t, summary.SuccessfulRuns)
	assert.Equal(t, 4, summary.FailuresByReason[FailureTooShort])

	assert.Equal(t, []string{"bad:model"}, report.FailingModels())
	// Zero-success models are failures, never merely cautionary.
	assert.Empty(t, report.CautionaryModels(0.4))
}

func TestAuditFailureBreakdown(t *testing.T) {
	gen := &fixedGenerator{output: onTopicArticle()}
	judge := &fixedJudge{pass: false}
	auditor := NewAuditor(gen, judge, AuditConfig{
		JudgeModel: "judge:test",
		Iterations: 3,
	})

	report, err := auditor.Audit(context.Background(), []Task{testTask}, []string{"gen:test"})
	require.NoError(t, err)

	summary := report.Summaries["gen:test"]
	assert.Equal(t, 3, summary.FailuresByReason[FailureJudgeRejected])
	assert.Equal(t, TierReplaceImmediately, summary.Recommendation)
	// Single pass per iteration: no stabilization retries in audit mode.
	assert.Equal(t, 3, judge.calls)
}

func TestAuditSeedsDeterministicAndAuditTagged(t *testing.T) {
	gen := &fixedGenerator{output: onTopicArticle()}
	judge := &fixedJudge{pass: true}
	auditor := NewAuditor(gen, judge, AuditConfig{JudgeModel: "judge:test", Iterations: 2})

	_, err := auditor.Audit(context.Background(), []Task{testTask}, []string{"gen:test"})
	require.NoError(t, err)

	base := SeedBase(testTask.ScenarioID, "gen:test", auditSeedTag)
	assert.Equal(t, []int64{base + 1, base + 2}, gen.seeds)
	assert.NotEqual(t, SeedBase(testTask.ScenarioID, "gen:test"), base)
}

func TestAuditOffTopicClassification(t *testing.T) {
	filler := strings.Repeat("generic filler sentence about nothing in particular with ample words. ", 6)
	gen := &fixedGenerator{output: filler}
	judge := &fixedJudge{pass: true}
	auditor := NewAuditor(gen, judge, AuditConfig{JudgeModel: "judge:test", Iterations: 1})

	report, err := auditor.Audit(context.Background(), []Task{testTask}, []string{"gen:test"})
	require.NoError(t, err)

	summary := report.Summaries["gen:test"]
	assert.Equal(t, 1, summary.FailuresByReason[FailureOffTopic])
}

func TestAuditCautionaryModels(t *testing.T) {
	report := &AuditReport{
		Models: []string{"low", "healthy"},
		Summaries: map[string]*ModelAuditSummary{
			"low":     {Model: "low", TotalRuns: 4, SuccessfulRuns: 1, SuccessRate: 0.25},
			"healthy": {Model: "healthy", TotalRuns: 4, SuccessfulRuns: 4, SuccessRate: 1.0},
		},
	}

	assert.Equal(t, []string{"low"}, report.CautionaryModels(0.4))
	assert.Empty(t, report.FailingModels())
}
