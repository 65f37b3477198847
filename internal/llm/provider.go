// Package llm selects and instruments the configured generation backend
// and exposes its configuration over HTTP.
package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/HerbHall/plangen/internal/llm/anthropic"
	"github.com/HerbHall/plangen/internal/llm/gemini"
	"github.com/HerbHall/plangen/internal/llm/mock"
	"github.com/HerbHall/plangen/internal/llm/ollama"
	"github.com/HerbHall/plangen/internal/llm/openai"
	pkgllm "github.com/HerbHall/plangen/pkg/llm"
	"go.uber.org/zap"
)

// Provider names accepted in ModuleConfig.Provider.
const (
	ProviderMock      = "mock"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// MockConfig configures the deterministic provider used for offline runs.
type MockConfig struct {
	Response       string        `mapstructure:"response"`
	StreamResponse string        `mapstructure:"stream_response"`
	InvokeDelay    time.Duration `mapstructure:"invoke_delay"`
	StreamDelay    time.Duration `mapstructure:"stream_delay"`
}

// ModuleConfig holds the provider selection with per-provider sub-configs.
type ModuleConfig struct {
	Provider  string           `mapstructure:"provider" validate:"oneof=mock openai ollama anthropic gemini"`
	OpenAI    openai.Config    `mapstructure:"openai"`
	Ollama    ollama.Config    `mapstructure:"ollama"`
	Anthropic anthropic.Config `mapstructure:"anthropic"`
	Gemini    gemini.Config    `mapstructure:"gemini"`
	Mock      MockConfig       `mapstructure:"mock"`
}

// DefaultModuleConfig selects the resilient OpenAI-compatible backend.
func DefaultModuleConfig() ModuleConfig {
	return ModuleConfig{
		Provider:  ProviderOpenAI,
		OpenAI:    openai.DefaultConfig(),
		Ollama:    ollama.DefaultConfig(),
		Anthropic: anthropic.DefaultConfig(),
		Gemini:    gemini.DefaultConfig(),
		Mock: MockConfig{
			Response:       mock.DefaultResponse,
			StreamResponse: mock.DefaultStreamResponse,
			InvokeDelay:    mock.DefaultInvokeDelay,
			StreamDelay:    mock.DefaultStreamDelay,
		},
	}
}

// Model returns the configured model of the selected provider.
func (c ModuleConfig) Model() string {
	switch c.Provider {
	case ProviderMock:
		return mock.DefaultModel
	case ProviderOpenAI:
		return c.OpenAI.Model
	case ProviderOllama:
		return c.Ollama.Model
	case ProviderAnthropic:
		return c.Anthropic.Model
	case ProviderGemini:
		return c.Gemini.Model
	default:
		return ""
	}
}

// NewProvider creates the configured provider wrapped with call metrics.
// An unknown provider name is an error.
func NewProvider(ctx context.Context, cfg ModuleConfig, logger *zap.Logger) (pkgllm.Provider, error) {
	p, err := newProvider(ctx, cfg, logger.Named(cfg.Provider))
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", cfg.Provider, err)
	}

	logger.Info("llm provider configured",
		zap.String("provider", cfg.Provider),
		zap.String("model", p.Model()),
	)
	return Instrument(p), nil
}

func newProvider(ctx context.Context, cfg ModuleConfig, logger *zap.Logger) (pkgllm.Provider, error) {
	switch cfg.Provider {
	case ProviderMock:
		return mock.New(
			mock.WithResponse(cfg.Mock.Response),
			mock.WithStreamResponse(cfg.Mock.StreamResponse),
			mock.WithInvokeDelay(cfg.Mock.InvokeDelay),
			mock.WithStreamDelay(cfg.Mock.StreamDelay),
		), nil

	case ProviderOpenAI, "":
		return openai.New(cfg.OpenAI, resolveAPIKey(cfg.OpenAI.APIKey, "SILICONFLOW_API_KEY", "OPENAI_API_KEY"), logger)

	case ProviderOllama:
		return ollama.New(cfg.Ollama, logger)

	case ProviderAnthropic:
		return anthropic.New(cfg.Anthropic, resolveAPIKey(cfg.Anthropic.APIKey, "ANTHROPIC_API_KEY"), logger)

	case ProviderGemini:
		return gemini.New(ctx, cfg.Gemini, resolveAPIKey(cfg.Gemini.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY"), logger)

	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// resolveAPIKey prefers the configured key and falls back to the
// conventional environment variables of each vendor.
func resolveAPIKey(configured string, envVars ...string) string {
	if configured != "" {
		return configured
	}
	for _, name := range envVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
