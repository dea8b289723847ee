package backend

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/model-eval/internal/eval"
	"github.com/sells-group/model-eval/pkg/ollama"
)

// OllamaBackend generates through a local Ollama server. Each model resolves
// to a call strategy (completion or chat) once at construction.
type OllamaBackend struct {
	client ollama.Client
	chat   map[string]bool
}

// NewOllamaBackend wraps an Ollama client. chatModels lists the model ids
// routed through the chat endpoint instead of plain completion.
func NewOllamaBackend(client ollama.Client, chatModels []string) *OllamaBackend {
	chat := make(map[string]bool, len(chatModels))
	for _, m := range chatModels {
		chat[m] = true
	}
	return &OllamaBackend{client: client, chat: chat}
}

func (b *OllamaBackend) Generate(ctx context.Context, req eval.GenRequest) (*eval.GenResult, error) {
	if b.chat[req.Model] {
		return b.generateChat(ctx, req)
	}

	resp, err := b.client.Generate(ctx, ollama.GenerateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Options: &ollama.Options{
			Temperature: req.Options.Temperature,
			NumPredict:  req.Options.MaxTokens,
			Seed:        req.Options.Seed,
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "backend: ollama generate")
	}

	return &eval.GenResult{
		Model:  req.Model,
		Output: resp.Response,
		Tokens: eval.TokenUsage{Prompt: resp.PromptEvalCount, Completion: resp.EvalCount},
	}, nil
}

// generateChat calls the chat endpoint. The token cap is dropped: chat-routed
// reasoning models spend output tokens thinking, and a cap can cut the
// answer off before it starts.
func (b *OllamaBackend) generateChat(ctx context.Context, req eval.GenRequest) (*eval.GenResult, error) {
	resp, err := b.client.Chat(ctx, ollama.ChatRequest{
		Model:    req.Model,
		Messages: []ollama.Message{{Role: "user", Content: req.Prompt}},
		Options: &ollama.Options{
			Temperature: req.Options.Temperature,
			Seed:        req.Options.Seed,
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "backend: ollama chat")
	}

	return &eval.GenResult{
		Model:  req.Model,
		Output: resp.Message.Content,
		Tokens: eval.TokenUsage{Prompt: resp.PromptEvalCount, Completion: resp.EvalCount},
	}, nil
}

func (b *OllamaBackend) EnsureModel(ctx context.Context, model string) bool {
	if err := b.client.Show(ctx, model); err != nil {
		zap.L().Warn("model unavailable",
			zap.String("model", model),
			zap.Error(err),
		)
		return false
	}
	return true
}
