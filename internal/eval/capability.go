package eval

import "context"

// Prompt kinds tag a generation request with the shape of output it expects.
// Offline stub strategies key off these instead of sniffing prompt text.
const (
	KindArticle     = "article"
	KindRankJSON    = "rank_json"
	KindMinimalJSON = "minimal_json"
	KindSQL         = "sql"
	KindJudge       = "judge"
)

// GenOptions are the per-attempt sampling parameters.
type GenOptions struct {
	Temperature float64
	MaxTokens   int
	Seed        int64
}

// GenRequest asks a backend for one completion. Topic and Kind are metadata
// carried alongside the prompt so deterministic stub backends can produce
// plausible output without parsing the prompt itself.
type GenRequest struct {
	Model   string
	Prompt  string
	Kind    string
	Topic   string
	Options GenOptions
}

// TokenUsage reports prompt/completion token counts when the backend
// provides them. Zero values mean "not reported".
type TokenUsage struct {
	Prompt     int
	Completion int
}

// GenResult is the raw output of one generation call.
type GenResult struct {
	Model  string
	Output string
	Tokens TokenUsage
}

// Generator produces text for a prompt. Implementations are expected to be
// blocking request-response calls; any transport retry or rate limiting is
// their concern, not the caller's.
type Generator interface {
	Generate(ctx context.Context, req GenRequest) (*GenResult, error)
}

// JudgeVerdict is a pass/fail decision with the judge's free-text reasoning.
type JudgeVerdict struct {
	Pass      bool
	Reasoning string
}

// Judge renders a verdict on a candidate text for a topic. The seed pins the
// judge's own sampling for reproducibility.
type Judge interface {
	Judge(ctx context.Context, model, text, topic string, seed int64) (JudgeVerdict, error)
}

// Prober answers whether a model is available on the backend. A false answer
// is a precondition failure: the caller skips the run rather than failing it.
type Prober interface {
	EnsureModel(ctx context.Context, model string) bool
}

// Task is one rendered generation assignment: a scenario's topic plus its
// fully rendered prompt.
type Task struct {
	ScenarioID string
	Topic      string
	Prompt     string
	Kind       string
}
