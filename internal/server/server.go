// Package server provides the main HTTP server for plangen.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/HerbHall/plangen/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// ReadinessChecker verifies that the server is ready to serve traffic.
// Returns nil if ready, an error describing why not otherwise.
type ReadinessChecker func(ctx context.Context) error

// RouteRegistrar mounts a component's routes on the versioned API router.
// Defined here (consumer-side) so that components need not import server.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// AuthRegistrar is a RouteRegistrar that also guards the API.
type AuthRegistrar interface {
	RouteRegistrar
	Middleware() func(http.Handler) http.Handler
}

// operationalPaths skip request logging and rate limiting.
var operationalPaths = []string{"/healthz", "/readyz", "/metrics"}

// Server is the main plangen HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	router     chi.Router
	ready      ReadinessChecker
	started    time.Time
}

// New creates a new Server with middleware and routes.
// The auth parameter is optional; pass nil to disable authentication.
// When cfg.DevMode is true, Swagger UI is served at /swagger/.
func New(cfg Config, logger *zap.Logger, ready ReadinessChecker, auth AuthRegistrar, routes ...RouteRegistrar) *Server {
	r := chi.NewRouter()

	s := &Server{
		logger:  logger,
		router:  r,
		ready:   ready,
		started: time.Now(),
	}

	// Middleware chain: outermost listed first.
	r.Use(
		RecoveryMiddleware(logger),
		RequestIDMiddleware,
		LoggingMiddleware(logger, operationalPaths),
		SecurityHeadersMiddleware,
		VersionHeaderMiddleware,
		RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst, operationalPaths),
	)
	if auth != nil {
		r.Use(auth.Middleware())
	}

	// Unversioned operational endpoints.
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/health", s.handleHealth)
		if auth != nil {
			auth.RegisterRoutes(api)
		}
		for _, reg := range routes {
			reg.RegisterRoutes(api)
		}
	})

	if cfg.DevMode {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
		logger.Info("swagger UI enabled (dev_mode)", zap.String("path", "/swagger/"))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFound(w, "no route for "+r.URL.Path, r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowed(w, r.Method+" is not allowed on "+r.URL.Path, r.URL.Path)
	})

	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("HTTP server: %w", err)
}

// Shutdown stops accepting connections and waits for in-flight requests,
// including long generations, until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// readinessTimeout bounds a single readiness check.
const readinessTimeout = 2 * time.Second

type probeBody struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// handleHealthz is the liveness probe: answering at all is the signal.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, probeBody{Status: "alive"})
}

// handleReadyz runs the readiness check, typically a database ping.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready == nil {
		writeJSON(w, http.StatusOK, probeBody{Status: "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()
	if err := s.ready(ctx); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, probeBody{Status: "not ready", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, probeBody{Status: "ready"})
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status  string            `json:"status" example:"ok"`
	Service string            `json:"service" example:"plangen"`
	Uptime  string            `json:"uptime" example:"3h12m5s"`
	Version map[string]string `json:"version"`
}

// handleHealth returns detailed health information (versioned API endpoint).
//
//	@Summary		Health check
//	@Description	Returns service health status with version information.
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: "plangen",
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Version: version.Map(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
