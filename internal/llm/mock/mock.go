// Package mock provides a deterministic llm.Provider for tests and offline runs.
package mock

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/HerbHall/plangen/pkg/llm"
)

// Built-in defaults restored by Reset.
const (
	DefaultResponse       = "This is a mock response."
	DefaultStreamResponse = "This is a mock stream response."
	DefaultModel          = "mock-model"
	DefaultName           = "Mock"
	DefaultStreamDelay    = 10 * time.Millisecond
	DefaultInvokeDelay    = 100 * time.Millisecond
)

var _ llm.Provider = (*Provider)(nil)

// settings is the mutable configuration of a Provider.
type settings struct {
	response       string
	streamResponse string
	model          string
	name           string
	streamDelay    time.Duration
	invokeDelay    time.Duration
	streamEnabled  bool
}

func defaults() settings {
	return settings{
		response:       DefaultResponse,
		streamResponse: DefaultStreamResponse,
		model:          DefaultModel,
		name:           DefaultName,
		streamDelay:    DefaultStreamDelay,
		invokeDelay:    DefaultInvokeDelay,
		streamEnabled:  true,
	}
}

// Option overrides one setting at construction time.
type Option func(*settings)

// WithResponse sets the text returned by Invoke.
func WithResponse(s string) Option { return func(c *settings) { c.response = s } }

// WithStreamResponse sets the text Stream yields one rune at a time.
func WithStreamResponse(s string) Option { return func(c *settings) { c.streamResponse = s } }

// WithModel sets the reported model name.
func WithModel(m string) Option { return func(c *settings) { c.model = m } }

// WithStreamDelay sets the pause before each streamed fragment. Zero disables it.
func WithStreamDelay(d time.Duration) Option { return func(c *settings) { c.streamDelay = d } }

// WithInvokeDelay sets the simulated latency of Invoke. Zero disables it.
func WithInvokeDelay(d time.Duration) Option { return func(c *settings) { c.invokeDelay = d } }

// WithStreamEnabled toggles streaming; a disabled provider streams nothing.
func WithStreamEnabled(enabled bool) Option { return func(c *settings) { c.streamEnabled = enabled } }

// Provider returns configured text without contacting any backend.
type Provider struct {
	mu   sync.Mutex
	cfg  settings
	last []llm.Message
}

// New creates a mock provider. Options are applied on top of the built-in
// defaults.
func New(opts ...Option) *Provider {
	cfg := defaults()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Provider{cfg: cfg}
}

// Name implements llm.Provider.
func (p *Provider) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.name
}

// Model implements llm.Provider.
func (p *Provider) Model() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.model
}

// Invoke returns the configured response after the configured delay.
func (p *Provider) Invoke(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (*llm.Response, error) {
	if len(messages) == 0 {
		return nil, llm.NewProviderError(llm.ErrCodeInvalidRequest, "messages must not be empty", nil)
	}

	cfg := p.snapshot(messages)
	if err := sleep(ctx, cfg.invokeDelay); err != nil {
		return nil, err
	}

	return &llm.Response{
		Content: cfg.response,
		Model:   llm.ApplyOptions(opts...).ModelOr(cfg.model),
		Done:    true,
	}, nil
}

// Stream yields the configured stream response one rune at a time.
func (p *Provider) Stream(ctx context.Context, messages []llm.Message, _ ...llm.CallOption) iter.Seq2[string, error] {
	if len(messages) == 0 {
		return llm.StreamError(llm.NewProviderError(llm.ErrCodeInvalidRequest, "messages must not be empty", nil))
	}

	return func(yield func(string, error) bool) {
		cfg := p.snapshot(messages)
		if !cfg.streamEnabled {
			return
		}
		for _, r := range cfg.streamResponse {
			if err := sleep(ctx, cfg.streamDelay); err != nil {
				yield("", err)
				return
			}
			if !yield(string(r), nil) {
				return
			}
		}
	}
}

// SetResponse changes the text returned by Invoke.
func (p *Provider) SetResponse(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.response = s
}

// SetStreamResponse changes the text yielded by Stream.
func (p *Provider) SetStreamResponse(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.streamResponse = s
}

// SetStreamDelay changes the pause before each streamed fragment.
func (p *Provider) SetStreamDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.streamDelay = d
}

// SetStreamEnabled turns streaming on or off.
func (p *Provider) SetStreamEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.streamEnabled = enabled
}

// Reset restores the built-in defaults, discarding construction options,
// and forgets recorded messages.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = defaults()
	p.last = nil
}

// LastMessages returns a copy of the messages from the most recent call.
func (p *Provider) LastMessages() []llm.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.Message(nil), p.last...)
}

func (p *Provider) snapshot(messages []llm.Message) settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = append([]llm.Message(nil), messages...)
	return p.cfg
}

// sleep waits for d or until ctx is done. A non-positive d only checks ctx.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
