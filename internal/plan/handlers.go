package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/HerbHall/plangen/internal/limiter"
	"github.com/HerbHall/plangen/internal/prompt"
	"github.com/HerbHall/plangen/internal/repair"
	"github.com/HerbHall/plangen/internal/store"
	"github.com/HerbHall/plangen/pkg/llm"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	maxBodyBytes        = 1 << 20
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// History lists recorded generations.
type History interface {
	Recent(ctx context.Context, limit int) ([]store.Generation, error)
}

// WeeklyResponse is the body of POST /plans/weekly.
type WeeklyResponse struct {
	Data FillPayload `json:"data"`
	URL  string      `json:"url,omitempty"`
}

// DailyResponse is the body of POST /plans/daily. Errors is keyed by date.
type DailyResponse struct {
	Data   []DailyResult     `json:"data"`
	Errors map[string]string `json:"errors,omitempty"`
	Total  int               `json:"total"`
}

// StreamChunk is one SSE event of POST /plans/weekly/stream.
type StreamChunk struct {
	Content     string `json:"content"`
	FullContent string `json:"fullContent"`
}

// Handler serves the plan generation endpoints. Every generation runs
// inside the admission limiter.
type Handler struct {
	service  *Service
	limiter  *limiter.Limiter
	history  History
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandler creates a plan Handler. history may be nil, in which case the
// generations route is not mounted.
func NewHandler(service *Service, lim *limiter.Limiter, history History, logger *zap.Logger) *Handler {
	return &Handler{
		service:  service,
		limiter:  lim,
		history:  history,
		validate: NewValidator(),
		logger:   logger,
	}
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// RegisterRoutes mounts the plan routes under the versioned API router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/plans/weekly", h.handleWeekly)
	r.Post("/plans/weekly/stream", h.handleWeeklyStream)
	r.Post("/plans/daily", h.handleDaily)
	if h.history != nil {
		r.Get("/generations", h.handleGenerations)
	}
}

// handleWeekly generates a weekly plan.
//
//	@Summary		Generate weekly plan
//	@Description	Generates, repairs and validates a weekly plan and returns the fill payload.
//	@Tags			plans
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		WeeklyRequest	true	"Weekly plan request"
//	@Success		200		{object}	WeeklyResponse
//	@Failure		400		{object}	server.Problem
//	@Failure		422		{object}	server.Problem
//	@Failure		502		{object}	server.Problem
//	@Failure		504		{object}	server.Problem
//	@Router			/plans/weekly [post]
func (h *Handler) handleWeekly(w http.ResponseWriter, r *http.Request) {
	var req WeeklyRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := limiter.Do(r.Context(), h.limiter, func(ctx context.Context) (WeeklyResponse, error) {
		payload, err := h.service.WeeklyPlan(ctx, req)
		if err != nil {
			return WeeklyResponse{}, err
		}
		resp := WeeklyResponse{Data: payload}
		if h.service.CanPublish() {
			resp.URL, err = h.service.Publish(ctx, WeeklyDocument, WeeklyKey(req), payload)
		}
		return resp, err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleWeeklyStream streams a weekly plan as Server-Sent Events.
//
//	@Summary		Stream weekly plan
//	@Description	Streams the raw weekly plan reply. Each event carries the fragment and the text so far; the stream ends with [DONE], or with an error event.
//	@Tags			plans
//	@Accept			json
//	@Produce		text/event-stream
//	@Security		BearerAuth
//	@Param			request	body		WeeklyRequest	true	"Weekly plan request"
//	@Success		200		{object}	StreamChunk
//	@Failure		400		{object}	server.Problem
//	@Router			/plans/weekly/stream [post]
func (h *Handler) handleWeeklyStream(w http.ResponseWriter, r *http.Request) {
	var req WeeklyRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.limiter.Run(r.Context(), func(ctx context.Context) error {
		rc := http.NewResponseController(w)
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache, no-transform")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		var full strings.Builder
		for fragment, err := range h.service.StreamWeeklyPlan(ctx, req) {
			if err != nil {
				h.logger.Warn("weekly plan stream failed", zap.Error(err))
				writeEvent(w, map[string]string{"error": err.Error()})
				_ = rc.Flush()
				return nil
			}
			full.WriteString(fragment)
			writeEvent(w, StreamChunk{Content: fragment, FullContent: full.String()})
			_ = rc.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		_ = rc.Flush()
		return nil
	})
	if err != nil {
		h.fail(w, r, err)
	}
}

func writeEvent(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// handleDaily generates up to five daily plans.
//
//	@Summary		Generate daily plans
//	@Description	Generates one daily plan per activity on consecutive days. Failed days are listed in errors.
//	@Tags			plans
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		DailyRequest	true	"Daily plan request"
//	@Success		200		{object}	DailyResponse
//	@Failure		400		{object}	server.Problem
//	@Router			/plans/daily [post]
func (h *Handler) handleDaily(w http.ResponseWriter, r *http.Request) {
	var req DailyRequest
	if !h.decode(w, r, &req) {
		return
	}

	results, err := limiter.Do(r.Context(), h.limiter, func(ctx context.Context) ([]DailyResult, error) {
		results, err := h.service.DailyPlans(ctx, req)
		if err != nil {
			return nil, err
		}
		if h.service.CanPublish() {
			for i := range results {
				if results[i].Err != nil {
					continue
				}
				url, err := h.service.Publish(ctx, DailyDocument, DailyKey(req.WeekNumber, results[i].Date), results[i].Fields)
				if err != nil {
					results[i].Err = err
					continue
				}
				results[i].URL = url
			}
		}
		return results, nil
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := DailyResponse{Data: results}
	for _, res := range results {
		if res.Err != nil {
			if resp.Errors == nil {
				resp.Errors = make(map[string]string)
			}
			resp.Errors[res.Date] = res.Err.Error()
			continue
		}
		resp.Total++
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGenerations lists recent generation records.
//
//	@Summary		List generations
//	@Description	Returns the most recent generation records, newest first.
//	@Tags			plans
//	@Produce		json
//	@Security		BearerAuth
//	@Param			limit	query		int	false	"Maximum records"	default(50)
//	@Success		200		{array}		store.Generation
//	@Failure		400		{object}	server.Problem
//	@Router			/generations [get]
func (h *Handler) handleGenerations(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit))
			return
		}
		limit = n
	}

	gens, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("list generations failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to list generations")
		return
	}
	writeJSON(w, http.StatusOK, gens)
}

// decode reads and validates the JSON body into dst. It writes the 400
// response and returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, validationDetail(err))
		return false
	}
	return true
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		if fe.Param() != "" {
			parts[i] = fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
		} else {
			parts[i] = fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag())
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	switch {
	case status >= http.StatusInternalServerError:
		h.logger.Error("plan generation failed", zap.Int("status", status), zap.Error(err))
	case status != StatusClientClosed:
		h.logger.Warn("plan generation rejected", zap.Int("status", status), zap.Error(err))
	}
	writeError(w, r, status, err.Error())
}

// StatusClientClosed is reported when the caller went away before the
// plan was ready.
const StatusClientClosed = 499

// StatusFor maps a generation error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, prompt.ErrTemplateNotFound), errors.Is(err, prompt.ErrTemplateMalformed):
		return http.StatusInternalServerError
	case llm.IsRateLimitError(err):
		return http.StatusTooManyRequests
	case llm.IsTimeoutError(err), llm.IsExhaustedRetries(err), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case llm.IsHTTPError(err), llm.IsTransportError(err):
		return http.StatusBadGateway
	case errors.Is(err, repair.ErrRepairExhausted), errors.Is(err, ErrShapeInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		return StatusClientClosed
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	title := http.StatusText(status)
	if title == "" {
		title = "Client Closed Request"
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":     "https://plangen.dev/problems/plan-error",
		"title":    title,
		"status":   status,
		"detail":   detail,
		"instance": r.URL.Path,
	})
}
