// Package ollama talks to a local Ollama server. Calls are not retried; the
// configured timeout bounds each call.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/url"

	"github.com/HerbHall/plangen/pkg/llm"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// Name is the provider name reported by Name().
const Name = "ollama"

// maxLineBytes caps a single NDJSON line of a streamed reply.
const maxLineBytes = 1 << 20

var (
	_ llm.Provider       = (*Provider)(nil)
	_ llm.HealthReporter = (*Provider)(nil)
)

// Provider generates text through Ollama's /api/chat endpoint.
//
// Model listing and heartbeats go through the official api.Client. Chat
// requests are posted directly so that HTTP status codes survive into
// llm.ProviderError and a corrupt stream line does not end the stream.
type Provider struct {
	cfg     Config
	chatURL string
	http    *http.Client
	client  *api.Client
	logger  *zap.Logger
}

// New creates an Ollama provider without contacting the server.
func New(cfg Config, logger *zap.Logger) (*Provider, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama url %q: %w", cfg.URL, err)
	}

	hc := &http.Client{Timeout: cfg.Timeout}
	return &Provider{
		cfg:     cfg,
		chatURL: base.JoinPath("api", "chat").String(),
		http:    hc,
		client:  api.NewClient(base, hc),
		logger:  logger,
	}, nil
}

func (p *Provider) Name() string  { return Name }
func (p *Provider) Model() string { return p.cfg.Model }

// Invoke asks for a single, non-streamed reply.
func (p *Provider) Invoke(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (*llm.Response, error) {
	if len(messages) == 0 {
		return nil, errNoMessages
	}

	call := llm.ApplyOptions(opts...)
	resp, err := p.post(ctx, p.chatRequest(messages, call, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var reply api.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, mapError(err)
	}

	prompt, completion := reply.PromptEvalCount, reply.EvalCount
	return &llm.Response{
		Content: reply.Message.Content,
		Model:   call.ModelOr(p.cfg.Model),
		Usage: llm.Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
		Done: reply.Done,
	}, nil
}

// Stream yields message content from the NDJSON reply. Lines that do not
// decode are logged and skipped.
func (p *Provider) Stream(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) iter.Seq2[string, error] {
	if len(messages) == 0 {
		return llm.StreamError(errNoMessages)
	}

	req := p.chatRequest(messages, llm.ApplyOptions(opts...), true)
	return func(yield func(string, error) bool) {
		resp, err := p.post(ctx, req)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		lines := bufio.NewScanner(resp.Body)
		lines.Buffer(nil, maxLineBytes)
		for lines.Scan() {
			raw := bytes.TrimSpace(lines.Bytes())
			if len(raw) == 0 {
				continue
			}

			var part api.ChatResponse
			if err := json.Unmarshal(raw, &part); err != nil {
				p.logger.Debug("skipping malformed stream line", zap.ByteString("line", raw), zap.Error(err))
				continue
			}
			if text := part.Message.Content; text != "" && !yield(text, nil) {
				return
			}
			if part.Done {
				return
			}
		}
		if err := lines.Err(); err != nil {
			yield("", mapError(err))
		}
	}
}

// Heartbeat checks whether the Ollama server answers.
func (p *Provider) Heartbeat(ctx context.Context) error {
	return mapError(p.client.Heartbeat(ctx))
}

// ListModels returns the names of locally pulled models.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	list, err := p.client.List(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (p *Provider) chatRequest(messages []llm.Message, call llm.CallConfig, stream bool) *api.ChatRequest {
	req := &api.ChatRequest{
		Model:    call.ModelOr(p.cfg.Model),
		Messages: make([]api.Message, 0, len(messages)),
		Stream:   &stream,
		Options:  p.options(call),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, api.Message{Role: m.Role, Content: m.Content})
	}
	if p.cfg.KeepAlive > 0 {
		req.KeepAlive = &api.Duration{Duration: p.cfg.KeepAlive}
	}
	return req
}

// options maps call settings onto Ollama's model option names.
func (p *Provider) options(call llm.CallConfig) map[string]any {
	opts := map[string]any{}
	if call.Temperature > 0 {
		opts["temperature"] = call.Temperature
	}
	if call.MaxTokens > 0 {
		opts["num_predict"] = call.MaxTokens
	}
	if p.cfg.NumCtx > 0 {
		opts["num_ctx"] = p.cfg.NumCtx
	}
	return opts
}

// post sends a chat request and returns the response when its status is
// 2xx. The caller closes the body.
func (p *Provider) post(ctx context.Context, chat *api.ChatRequest) (*http.Response, error) {
	body, err := json.Marshal(chat)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.chatURL, bytes.NewReader(body))
	if err != nil {
		return nil, mapError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, mapError(err)
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		return nil, mapError(statusError(resp))
	}
	return resp, nil
}
