package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/model-eval/internal/eval"
)

// Config holds the full application configuration.
type Config struct {
	Ollama    OllamaConfig    `yaml:"ollama" mapstructure:"ollama"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Eval      EvalConfig      `yaml:"eval" mapstructure:"eval"`
	Audit     AuditConfig     `yaml:"audit" mapstructure:"audit"`
	Scenarios ScenariosConfig `yaml:"scenarios" mapstructure:"scenarios"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// OllamaConfig holds Ollama server settings.
type OllamaConfig struct {
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
	// ChatModels lists model ids that must be called through the chat
	// endpoint rather than plain completion. Resolved into a call-strategy
	// table at backend construction.
	ChatModels []string `yaml:"chat_models" mapstructure:"chat_models"`
}

// AnthropicConfig holds settings for the optional Anthropic backend.
type AnthropicConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// EvalConfig tunes the attempt-loop evaluation.
type EvalConfig struct {
	// Backend selects the live generation backend: "ollama" or "anthropic".
	Backend         string               `yaml:"backend" mapstructure:"backend"`
	GeneratorModels []string             `yaml:"generator_models" mapstructure:"generator_models"`
	JudgeModel      string               `yaml:"judge_model" mapstructure:"judge_model"`
	Offline         bool                 `yaml:"offline" mapstructure:"offline"`
	MinLength       int                  `yaml:"min_length" mapstructure:"min_length"`
	MaxLength       int                  `yaml:"max_length" mapstructure:"max_length"`
	LiveSchedule    []eval.AttemptConfig `yaml:"live_schedule" mapstructure:"live_schedule"`
	OfflineSchedule []eval.AttemptConfig `yaml:"offline_schedule" mapstructure:"offline_schedule"`
}

// Schedule returns the attempt schedule for the configured mode.
func (c EvalConfig) Schedule() []eval.AttemptConfig {
	if c.Offline {
		return c.OfflineSchedule
	}
	return c.LiveSchedule
}

// AuditConfig tunes the statistical quality audit.
type AuditConfig struct {
	Iterations     int     `yaml:"iterations" mapstructure:"iterations"`
	MaxTokens      int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature    float64 `yaml:"temperature" mapstructure:"temperature"`
	MinCoverage    float64 `yaml:"min_coverage" mapstructure:"min_coverage"`
	MinSuccessRate float64 `yaml:"min_success_rate" mapstructure:"min_success_rate"`
}

// ScenariosConfig locates the scenario/prompt definition file.
type ScenariosConfig struct {
	Path   string `yaml:"path" mapstructure:"path"`
	Prompt string `yaml:"prompt" mapstructure:"prompt"`
}

// StoreConfig configures the local results database. An empty path disables
// persistence.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the report server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MODELEVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.timeout_secs", 120)
	v.SetDefault("ollama.requests_per_second", 2.0)
	v.SetDefault("ollama.burst", 1)
	v.SetDefault("ollama.chat_models", []string{"deepseek-r1:8b"})
	v.SetDefault("eval.backend", "ollama")
	v.SetDefault("eval.generator_models", []string{"gemma3:4b", "deepseek-r1:8b"})
	v.SetDefault("eval.judge_model", "gpt-oss:20b")
	// CI runs default to the deterministic offline stubs; the flag is
	// injected here once, never re-read from the environment per call.
	v.SetDefault("eval.offline", runningInCI())
	v.SetDefault("eval.min_length", 300)
	v.SetDefault("eval.max_length", 500)
	v.SetDefault("eval.live_schedule", []map[string]any{
		{"max_tokens": 180, "temperature": 0.25},
		{"max_tokens": 160, "temperature": 0.2},
		{"max_tokens": 200, "temperature": 0.15},
		{"max_tokens": 140, "temperature": 0.1},
	})
	v.SetDefault("eval.offline_schedule", []map[string]any{
		{"max_tokens": 120, "temperature": 0.0},
	})
	v.SetDefault("audit.iterations", 2)
	v.SetDefault("audit.max_tokens", 180)
	v.SetDefault("audit.temperature", 0.25)
	v.SetDefault("audit.min_coverage", 0.5)
	v.SetDefault("audit.min_success_rate", 0.4)
	v.SetDefault("scenarios.path", "scenarios/articles.yaml")
	v.SetDefault("scenarios.prompt", "")
	v.SetDefault("store.path", "model-eval.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func runningInCI() bool {
	switch strings.ToLower(os.Getenv("CI")) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
