package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	pkgllm "github.com/HerbHall/plangen/pkg/llm"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// probeTimeout bounds POST /llm/test.
const probeTimeout = 30 * time.Second

var probeMessages = []pkgllm.Message{{Role: pkgllm.RoleUser, Content: "ping"}}

// Handler serves the provider configuration endpoints.
type Handler struct {
	provider pkgllm.Provider
	cfg      ModuleConfig
	logger   *zap.Logger
}

// NewHandler creates a Handler for the given provider.
func NewHandler(provider pkgllm.Provider, cfg ModuleConfig, logger *zap.Logger) *Handler {
	return &Handler{provider: provider, cfg: cfg, logger: logger}
}

// RegisterRoutes mounts the handler under the versioned API router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/llm/config", h.handleGetConfig)
	r.Post("/llm/test", h.handleTestConnection)
}

// baseURL is the endpoint the active backend talks to. The mock has none.
func (h *Handler) baseURL() string {
	switch h.cfg.Provider {
	case ProviderOpenAI:
		return h.cfg.OpenAI.BaseURL
	case ProviderOllama:
		return h.cfg.Ollama.URL
	case ProviderAnthropic:
		return h.cfg.Anthropic.BaseURL
	case ProviderGemini:
		return h.cfg.Gemini.BaseURL
	}
	return ""
}

// handleGetConfig returns the current LLM provider configuration.
//
//	@Summary		Get LLM config
//	@Description	Returns the active generation provider and model.
//	@Tags			llm
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200 {object} LLMConfigResponse
//	@Router			/llm/config [get]
func (h *Handler) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, LLMConfigResponse{
		Provider: h.cfg.Provider,
		Model:    h.provider.Model(),
		URL:      h.baseURL(),
	})
}

// handleTestConnection probes the configured provider. A failed probe is
// still a 200: the request succeeded, the backend did not.
//
//	@Summary		Test LLM connection
//	@Description	Checks connectivity to the configured provider. Providers without a health check are sent a one-message conversation instead.
//	@Tags			llm
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200 {object} LLMTestResponse
//	@Router			/llm/test [post]
func (h *Handler) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	start := time.Now()
	models, err := h.probe(ctx)
	resp := LLMTestResponse{
		Success:   err == nil,
		Message:   "connected",
		Model:     h.provider.Model(),
		Models:    models,
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		h.logger.Warn("llm connection test failed",
			zap.String("provider", h.provider.Name()),
			zap.Error(err),
		)
		resp.Message = "connection failed: " + err.Error()
		resp.Model = ""
		var pe *pkgllm.ProviderError
		if errors.As(err, &pe) {
			resp.Code = pe.Code
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// probe checks the backend without spending tokens when it can. The model
// list is best effort.
func (h *Handler) probe(ctx context.Context) ([]string, error) {
	hr, ok := h.provider.(pkgllm.HealthReporter)
	if !ok {
		_, err := h.provider.Invoke(ctx, probeMessages, pkgllm.WithMaxTokens(1))
		return nil, err
	}
	if err := hr.Heartbeat(ctx); err != nil {
		return nil, err
	}
	models, err := hr.ListModels(ctx)
	if err != nil {
		h.logger.Debug("list models failed", zap.Error(err))
		return nil, nil
	}
	return models, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
