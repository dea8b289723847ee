package backend

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/model-eval/internal/eval"
	"github.com/sells-group/model-eval/pkg/anthropic"
)

// AnthropicBackend generates through the Anthropic Messages API. The API has
// no sampling seed, so seeded attempts are reproducible in parameters but not
// in output; temperature and token caps still apply.
type AnthropicBackend struct {
	client anthropic.Client
}

func NewAnthropicBackend(client anthropic.Client) *AnthropicBackend {
	return &AnthropicBackend{client: client}
}

func (b *AnthropicBackend) Generate(ctx context.Context, req eval.GenRequest) (*eval.GenResult, error) {
	maxTokens := int64(req.Options.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	temp := req.Options.Temperature

	resp, err := b.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "backend: anthropic generate")
	}
	resp.Usage.LogCost(req.Model, req.Kind)

	return &eval.GenResult{
		Model:  req.Model,
		Output: resp.Text(),
		Tokens: eval.TokenUsage{
			Prompt:     int(resp.Usage.InputTokens),
			Completion: int(resp.Usage.OutputTokens),
		},
	}, nil
}

// EnsureModel for the hosted API is optimistic: there is no cheap existence
// probe, so availability surfaces as a generation error instead.
func (b *AnthropicBackend) EnsureModel(context.Context, string) bool {
	return true
}
