// Package llm defines the contract between plangen and the text generation
// backends. Adapters for the mock, OpenAI-compatible, Ollama, Anthropic and
// Gemini backends live under internal/llm.
package llm

import (
	"context"
	"iter"
)

// DefaultTemperature is used when a call does not set one.
const DefaultTemperature = 0.7

// Provider is a text generation backend.
type Provider interface {
	// Invoke returns the complete reply to messages.
	Invoke(ctx context.Context, messages []Message, opts ...CallOption) (*Response, error)

	// Stream yields reply fragments in order. Each range over the sequence
	// makes a fresh backend call. An error, if any, is the final element.
	Stream(ctx context.Context, messages []Message, opts ...CallOption) iter.Seq2[string, error]

	// Name is the backend's short name, e.g. "openai".
	Name() string

	// Model is the model used when a call has no WithModel option.
	Model() string
}

// HealthReporter is implemented by backends that can be probed without
// spending tokens. Callers discover it with a type assertion.
type HealthReporter interface {
	Heartbeat(ctx context.Context) error
	ListModels(ctx context.Context) ([]string, error)
}

// CallOption adjusts one Invoke or Stream call.
type CallOption func(*CallConfig)

// CallConfig is the result of applying a call's options. Adapters read it;
// callers use the With* constructors.
type CallConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

func WithModel(model string) CallOption {
	return func(c *CallConfig) { c.Model = model }
}

// WithTemperature sets sampling randomness.
func WithTemperature(temp float64) CallOption {
	return func(c *CallConfig) { c.Temperature = temp }
}

// WithMaxTokens caps the reply length. Zero defers to the backend.
func WithMaxTokens(n int) CallOption {
	return func(c *CallConfig) { c.MaxTokens = n }
}

// ApplyOptions resolves opts over the defaults.
func ApplyOptions(opts ...CallOption) CallConfig {
	cfg := CallConfig{Temperature: DefaultTemperature}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// ModelOr returns the call's model, or fallback when none was set.
func (c CallConfig) ModelOr(fallback string) string {
	if c.Model != "" {
		return c.Model
	}
	return fallback
}
