package backend

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/model-eval/internal/eval"
	"github.com/sells-group/model-eval/pkg/ollama"
)

// fakeOllama records calls and returns canned responses.
type fakeOllama struct {
	generateReqs []ollama.GenerateRequest
	chatReqs     []ollama.ChatRequest
	shown        []string
	showErr      error
}

func (f *fakeOllama) Generate(_ context.Context, req ollama.GenerateRequest) (*ollama.GenerateResponse, error) {
	f.generateReqs = append(f.generateReqs, req)
	return &ollama.GenerateResponse{
		Model: req.Model, Response: "completion output", Done: true,
		PromptEvalCount: 10, EvalCount: 50,
	}, nil
}

func (f *fakeOllama) Chat(_ context.Context, req ollama.ChatRequest) (*ollama.ChatResponse, error) {
	f.chatReqs = append(f.chatReqs, req)
	return &ollama.ChatResponse{
		Model: req.Model, Message: ollama.Message{Role: "assistant", Content: "chat output"},
		Done: true, PromptEvalCount: 12, EvalCount: 60,
	}, nil
}

func (f *fakeOllama) Show(_ context.Context, model string) error {
	f.shown = append(f.shown, model)
	return f.showErr
}

func TestOllamaBackendCompletionPath(t *testing.T) {
	client := &fakeOllama{}
	b := NewOllamaBackend(client, []string{"deepseek-r1:8b"})

	res, err := b.Generate(context.Background(), eval.GenRequest{
		Model:  "gemma3:4b",
		Prompt: "write something",
		Options: eval.GenOptions{
			Temperature: 0.25,
			MaxTokens:   180,
			Seed:        42,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "completion output", res.Output)
	assert.Equal(t, 10, res.Tokens.Prompt)
	assert.Equal(t, 50, res.Tokens.Completion)

	require.Len(t, client.generateReqs, 1)
	assert.Empty(t, client.chatReqs)
	opts := client.generateReqs[0].Options
	require.NotNil(t, opts)
	assert.Equal(t, 180, opts.NumPredict)
	assert.Equal(t, int64(42), opts.Seed)
}

func TestOllamaBackendChatPathDropsTokenCap(t *testing.T) {
	client := &fakeOllama{}
	b := NewOllamaBackend(client, []string{"deepseek-r1:8b"})

	res, err := b.Generate(context.Background(), eval.GenRequest{
		Model:  "deepseek-r1:8b",
		Prompt: "write something",
		Options: eval.GenOptions{
			Temperature: 0.2,
			MaxTokens:   160,
			Seed:        7,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "chat output", res.Output)

	require.Len(t, client.chatReqs, 1)
	assert.Empty(t, client.generateReqs)

	req := client.chatReqs[0]
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	require.NotNil(t, req.Options)
	assert.Zero(t, req.Options.NumPredict)
	assert.Equal(t, int64(7), req.Options.Seed)
	assert.Equal(t, 0.2, req.Options.Temperature)
}

func TestOllamaBackendEnsureModel(t *testing.T) {
	client := &fakeOllama{}
	b := NewOllamaBackend(client, nil)

	assert.True(t, b.EnsureModel(context.Background(), "gemma3:4b"))

	client.showErr = eris.New("model not found")
	assert.False(t, b.EnsureModel(context.Background(), "missing:1b"))
	assert.Equal(t, []string{"gemma3:4b", "missing:1b"}, client.shown)
}
