// Package anthropic implements a simple generation backend for the
// Anthropic Messages API.
package anthropic

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"strings"

	"github.com/HerbHall/plangen/internal/llm/sse"
	"github.com/HerbHall/plangen/internal/llm/wire"
	"github.com/HerbHall/plangen/pkg/llm"
	"go.uber.org/zap"
)

const (
	Name       = "anthropic"
	apiVersion = "2023-06-01"
)

var (
	_ llm.Provider       = (*Provider)(nil)
	_ llm.HealthReporter = (*Provider)(nil)
)

var errNoMessages = llm.NewProviderError(llm.ErrCodeInvalidRequest, "messages must not be empty", nil)

type Provider struct {
	api    *wire.Client
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, apiKey string, logger *zap.Logger) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	cfg.BaseURL = cmp.Or(cfg.BaseURL, DefaultConfig().BaseURL)
	cfg.MaxTokens = cmp.Or(cfg.MaxTokens, DefaultConfig().MaxTokens)

	header := http.Header{}
	header.Set("x-api-key", apiKey)
	header.Set("anthropic-version", apiVersion)

	return &Provider{
		api:    wire.New(Name, cfg.BaseURL, &http.Client{Timeout: cfg.Timeout}, header, decodeStatus),
		cfg:    cfg,
		logger: logger,
	}, nil
}

func (p *Provider) Name() string  { return Name }
func (p *Provider) Model() string { return p.cfg.Model }

// Invoke concatenates the text blocks of a single Messages reply.
func (p *Provider) Invoke(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (*llm.Response, error) {
	if len(messages) == 0 {
		return nil, errNoMessages
	}

	call := llm.ApplyOptions(opts...)
	var out messagesResponse
	if err := p.api.Call(ctx, http.MethodPost, "/v1/messages", p.request(messages, call, false), &out); err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	in, gen := out.Usage.InputTokens, out.Usage.OutputTokens
	return &llm.Response{
		Content: text.String(),
		Model:   cmp.Or(out.Model, call.ModelOr(p.cfg.Model)),
		Usage:   llm.Usage{PromptTokens: in, CompletionTokens: gen, TotalTokens: in + gen},
		Done:    out.StopReason != "max_tokens",
	}, nil
}

// Stream yields text deltas until message_stop. Other events are ignored;
// an error event ends the stream with a server error.
func (p *Provider) Stream(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) iter.Seq2[string, error] {
	if len(messages) == 0 {
		return llm.StreamError(errNoMessages)
	}

	req := p.request(messages, llm.ApplyOptions(opts...), true)
	return func(yield func(string, error) bool) {
		resp, err := p.api.Send(ctx, http.MethodPost, "/v1/messages", req)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		for data, err := range sse.Data(resp.Body) {
			if err != nil {
				yield("", p.api.MapError(err))
				return
			}

			var ev streamEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				p.logger.Debug("skipping malformed stream event", zap.String("data", data), zap.Error(err))
				continue
			}

			switch ev.Type {
			case "content_block_delta":
				if ev.Delta.Text != "" && !yield(ev.Delta.Text, nil) {
					return
				}
			case "message_stop":
				return
			case "error":
				yield("", llm.NewProviderError(llm.ErrCodeServerError, "anthropic: "+ev.Error.Message, nil))
				return
			}
		}
	}
}

// Heartbeat lists models, which checks reachability and the key at once.
func (p *Provider) Heartbeat(ctx context.Context) error {
	_, err := p.ListModels(ctx)
	return err
}

func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	var list struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := p.api.Call(ctx, http.MethodGet, "/v1/models", nil, &list); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// request hoists system messages into the top-level system field, which
// is where the Messages API expects them.
func (p *Provider) request(messages []llm.Message, call llm.CallConfig, stream bool) messagesRequest {
	req := messagesRequest{
		Model:       call.ModelOr(p.cfg.Model),
		MaxTokens:   cmp.Or(call.MaxTokens, p.cfg.MaxTokens),
		Temperature: call.Temperature,
		Stream:      stream,
	}

	var system []string
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		req.Messages = append(req.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	req.System = strings.Join(system, "\n\n")
	return req
}

type messagesRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
