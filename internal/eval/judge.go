package eval

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

const judgeTemperature = 0.1

const judgePreamble = "You are a critical reviewer. Decide if the article below stays on topic, " +
	"is coherent, and avoids hallucinations. Respond with PASS if it meets all criteria, " +
	"otherwise respond with FAIL followed by a short explanation."

// PromptJudge implements Judge on top of any Generator by asking a critic
// model for a PASS/FAIL verdict. The verdict is the first whitespace token
// of the response; everything else is kept as reasoning.
type PromptJudge struct {
	gen Generator
}

// NewPromptJudge wraps a Generator as a Judge.
func NewPromptJudge(gen Generator) *PromptJudge {
	return &PromptJudge{gen: gen}
}

func (j *PromptJudge) Judge(ctx context.Context, model, text, topic string, seed int64) (JudgeVerdict, error) {
	if seed == 0 {
		seed = SeedBase("judge", topic)
	}

	prompt := fmt.Sprintf("%s\nTopic: %s\nArticle:\n%s", judgePreamble, topic, strings.TrimSpace(text))

	result, err := j.gen.Generate(ctx, GenRequest{
		Model:  model,
		Prompt: prompt,
		Kind:   KindJudge,
		Topic:  topic,
		Options: GenOptions{
			Temperature: judgeTemperature,
			Seed:        seed,
		},
	})
	if err != nil {
		return JudgeVerdict{}, eris.Wrapf(err, "eval: judge %s", model)
	}

	reasoning := strings.TrimSpace(result.Output)
	fields := strings.Fields(reasoning)
	pass := len(fields) > 0 && strings.EqualFold(fields[0], "PASS")

	return JudgeVerdict{Pass: pass, Reasoning: reasoning}, nil
}
