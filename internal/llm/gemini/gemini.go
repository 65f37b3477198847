// Package gemini implements a simple generation backend for Google's
// Gemini API through the genai SDK.
package gemini

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"strings"

	"github.com/HerbHall/plangen/pkg/llm"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Name is the provider name reported by Name().
const Name = "gemini"

// Compile-time interface guards.
var (
	_ llm.Provider       = (*Provider)(nil)
	_ llm.HealthReporter = (*Provider)(nil)
)

// Provider implements llm.Provider over genai.Client.
type Provider struct {
	client *genai.Client
	cfg    Config
	logger *zap.Logger
}

// New creates a Gemini provider. The API key is required; the SDK would
// otherwise fall back to environment variables.
func New(ctx context.Context, cfg Config, apiKey string, logger *zap.Logger) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Provider{client: client, cfg: cfg, logger: logger}, nil
}

// Name implements llm.Provider.
func (p *Provider) Name() string { return Name }

// Model implements llm.Provider.
func (p *Provider) Model() string { return p.cfg.Model }

// Invoke generates a single completion.
func (p *Provider) Invoke(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (*llm.Response, error) {
	if len(messages) == 0 {
		return nil, llm.NewProviderError(llm.ErrCodeInvalidRequest, "messages must not be empty", nil)
	}

	cfg := llm.ApplyOptions(opts...)
	contents, config := buildRequest(messages, cfg)

	model := cfg.ModelOr(p.cfg.Model)
	resp, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, mapError(err)
	}

	out := &llm.Response{
		Content: responseText(resp),
		Model:   model,
		Done:    true,
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = llm.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

// Stream yields the text of each streamed response chunk.
func (p *Provider) Stream(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) iter.Seq2[string, error] {
	if len(messages) == 0 {
		return llm.StreamError(llm.NewProviderError(llm.ErrCodeInvalidRequest, "messages must not be empty", nil))
	}

	return func(yield func(string, error) bool) {
		cfg := llm.ApplyOptions(opts...)
		contents, config := buildRequest(messages, cfg)

		for resp, err := range p.client.Models.GenerateContentStream(ctx, cfg.ModelOr(p.cfg.Model), contents, config) {
			if err != nil {
				yield("", mapError(err))
				return
			}
			text := responseText(resp)
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}

// Heartbeat checks that the API answers a model listing.
func (p *Provider) Heartbeat(ctx context.Context) error {
	_, err := p.client.Models.List(ctx, &genai.ListModelsConfig{PageSize: 1})
	return mapError(err)
}

// ListModels returns the names of the first page of available models.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	page, err := p.client.Models.List(ctx, nil)
	if err != nil {
		return nil, mapError(err)
	}

	names := make([]string, 0, len(page.Items))
	for _, m := range page.Items {
		names = append(names, strings.TrimPrefix(m.Name, "models/"))
	}
	return names, nil
}

// buildRequest maps system messages to the system instruction and the
// assistant role to Gemini's "model" role.
func buildRequest(messages []llm.Message, cfg llm.CallConfig) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(cfg.Temperature)),
	}
	if cfg.MaxTokens > 0 {
		config.MaxOutputTokens = int32(cfg.MaxTokens)
	}

	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, m.Content)
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return contents, config
}

// responseText concatenates the non-thought text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}
