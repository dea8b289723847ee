// Package backend selects and constructs the generation backend: offline
// deterministic stubs, a local Ollama server, or the Anthropic API.
package backend

import (
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/model-eval/internal/config"
	"github.com/sells-group/model-eval/internal/eval"
	"github.com/sells-group/model-eval/pkg/anthropic"
	"github.com/sells-group/model-eval/pkg/ollama"
)

// Backend bundles everything the evaluation loop needs from a model provider.
type Backend struct {
	Generator eval.Generator
	Judge     eval.Judge
	Prober    eval.Prober
	Offline   bool
}

// New builds the backend the configuration selects. Offline mode wins over
// any live backend choice.
func New(cfg *config.Config) (*Backend, error) {
	if cfg.Eval.Offline {
		zap.L().Info("using offline stub backend")
		stub := eval.NewStubBackend()
		return &Backend{Generator: stub, Judge: stub, Prober: stub, Offline: true}, nil
	}

	switch cfg.Eval.Backend {
	case "", "ollama":
		client := ollama.NewClient(
			ollama.WithBaseURL(cfg.Ollama.BaseURL),
			ollama.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Ollama.TimeoutSecs) * time.Second,
			}),
			ollama.WithRateLimit(cfg.Ollama.RequestsPerSecond, cfg.Ollama.Burst),
		)
		gen := NewOllamaBackend(client, cfg.Ollama.ChatModels)
		return &Backend{
			Generator: gen,
			Judge:     eval.NewPromptJudge(gen),
			Prober:    gen,
		}, nil

	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("backend: anthropic selected but no API key configured")
		}
		gen := NewAnthropicBackend(anthropic.NewClient(cfg.Anthropic.Key))
		return &Backend{
			Generator: gen,
			Judge:     eval.NewPromptJudge(gen),
			Prober:    gen,
		}, nil

	default:
		return nil, eris.Errorf("backend: unknown backend %q", cfg.Eval.Backend)
	}
}
