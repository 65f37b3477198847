// Package openai implements the resilient generation backend for any
// OpenAI-compatible chat completions endpoint (SiliconFlow, OpenAI, vLLM).
// Every network attempt runs under a timeout and transport failures are
// retried with capped exponential backoff.
package openai

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"time"

	"github.com/HerbHall/plangen/internal/llm/retry"
	"github.com/HerbHall/plangen/internal/llm/sse"
	"github.com/HerbHall/plangen/internal/llm/wire"
	"github.com/HerbHall/plangen/pkg/llm"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const Name = "openai"

var retriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "plangen_provider_retries_total",
		Help: "Generation attempts retried after a timeout or transport failure.",
	},
	[]string{"provider"},
)

func init() {
	prometheus.MustRegister(retriesTotal)
}

var (
	_ llm.Provider       = (*Provider)(nil)
	_ llm.HealthReporter = (*Provider)(nil)
)

var errNoMessages = llm.NewProviderError(llm.ErrCodeInvalidRequest, "messages must not be empty", nil)

// Provider talks to /chat/completions with retries around each attempt.
type Provider struct {
	api    *wire.Client
	cfg    Config
	policy retry.Policy
	logger *zap.Logger
}

// New creates an OpenAI-compatible provider. The HTTP client has no
// overall timeout because a streamed body outlives the per-attempt
// deadline; the retry policy bounds each attempt instead.
func New(cfg Config, apiKey string, logger *zap.Logger) (*Provider, error) {
	switch {
	case apiKey == "":
		return nil, errors.New("openai: api key is required")
	case cfg.BaseURL == "":
		return nil, errors.New("openai: base url is required")
	}

	p := &Provider{
		api: wire.New(Name, cfg.BaseURL, &http.Client{},
			http.Header{"Authorization": {"Bearer " + apiKey}}, nil),
		cfg:    cfg,
		policy: retry.DefaultPolicy(),
		logger: logger,
	}
	if cfg.Timeout > 0 {
		p.policy.Timeout = cfg.Timeout
	}
	if cfg.MaxAttempts > 0 {
		p.policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.RequestsPerSecond > 0 {
		p.policy.Limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1))
	}
	p.policy.OnRetry = p.onRetry
	return p, nil
}

func (p *Provider) Name() string  { return Name }
func (p *Provider) Model() string { return p.cfg.Model }

// Invoke returns the first choice of a non-streamed completion.
func (p *Provider) Invoke(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (*llm.Response, error) {
	if len(messages) == 0 {
		return nil, errNoMessages
	}

	call := llm.ApplyOptions(opts...)
	body, err := p.encode(messages, call, false)
	if err != nil {
		return nil, err
	}

	out, release, err := retry.Do(ctx, p.policy, func(ctx context.Context) (*chatResponse, error) {
		var resp chatResponse
		if err := p.api.Call(ctx, http.MethodPost, "/chat/completions", body, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}
	release()

	res := &llm.Response{
		Model: cmp.Or(out.Model, call.ModelOr(p.cfg.Model)),
		Usage: llm.Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		},
		Done: true,
	}
	if len(out.Choices) > 0 {
		res.Content = out.Choices[0].Message.Content
		res.Done = out.Choices[0].FinishReason != "length"
	}
	return res, nil
}

// Stream yields each delta's content. Only opening the stream is retried;
// once fragments have been yielded a failure ends the stream with that
// error.
func (p *Provider) Stream(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) iter.Seq2[string, error] {
	if len(messages) == 0 {
		return llm.StreamError(errNoMessages)
	}

	return func(yield func(string, error) bool) {
		body, err := p.encode(messages, llm.ApplyOptions(opts...), true)
		if err != nil {
			yield("", err)
			return
		}

		resp, release, err := retry.Do(ctx, p.policy, func(ctx context.Context) (*http.Response, error) {
			return p.api.Send(ctx, http.MethodPost, "/chat/completions", body)
		})
		if err != nil {
			yield("", err)
			return
		}
		defer release()
		defer resp.Body.Close()

		for data, err := range sse.Data(resp.Body) {
			if err != nil {
				yield("", p.api.MapError(err))
				return
			}

			var chunk streamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				p.logger.Debug("skipping malformed stream line", zap.String("line", data), zap.Error(err))
				continue
			}
			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" && !yield(choice.Delta.Content, nil) {
					return
				}
			}
		}
	}
}

// Heartbeat checks that the endpoint answers and accepts the key.
func (p *Provider) Heartbeat(ctx context.Context) error {
	_, err := p.ListModels(ctx)
	return err
}

func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	var list listResponse
	if err := p.api.Call(ctx, http.MethodGet, "/models", nil, &list); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// encode marshals the request once so every retry sends identical bytes.
func (p *Provider) encode(messages []llm.Message, call llm.CallConfig, stream bool) ([]byte, error) {
	req := chatRequest{
		Model:       call.ModelOr(p.cfg.Model),
		Messages:    make([]chatMessage, 0, len(messages)),
		Temperature: call.Temperature,
		MaxTokens:   call.MaxTokens,
		Stream:      stream,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, chatMessage(m))
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, llm.NewProviderError(llm.ErrCodeInvalidRequest, "openai: encode request", err)
	}
	return body, nil
}

func (p *Provider) onRetry(attempt int, delay time.Duration, err error) {
	retriesTotal.WithLabelValues(Name).Inc()
	p.logger.Warn("generation attempt failed, retrying",
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", p.policy.MaxAttempts),
		zap.Duration("backoff", delay),
		zap.Error(err),
	)
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type listResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}
