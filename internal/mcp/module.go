// Package mcp exposes plan generation to AI tools over the Model Context
// Protocol, both as a streamable HTTP endpoint and over stdio.
package mcp

import (
	"context"
	"net/http"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/HerbHall/plangen/internal/limiter"
	"github.com/HerbHall/plangen/internal/plan"
	"github.com/HerbHall/plangen/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Server wraps an MCP server whose tools call the plan service.
type Server struct {
	server   *sdkmcp.Server
	service  *plan.Service
	limiter  *limiter.Limiter
	history  plan.History
	validate *validator.Validate
	logger   *zap.Logger
}

// New creates the MCP server and registers its tools. history may be nil,
// in which case list_generations reports that no history is kept.
func New(service *plan.Service, lim *limiter.Limiter, history plan.History, logger *zap.Logger) *Server {
	s := &Server{
		server: sdkmcp.NewServer(
			&sdkmcp.Implementation{
				Name:    "plangen",
				Version: version.Short(),
			},
			nil,
		),
		service:  service,
		limiter:  lim,
		history:  history,
		validate: plan.NewValidator(),
		logger:   logger,
	}
	s.registerTools()
	return s
}

// RegisterRoutes mounts the streamable HTTP transport at /mcp. Requests
// pass through the API's bearer authentication like every other route.
func (s *Server) RegisterRoutes(r chi.Router) {
	handler := sdkmcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *sdkmcp.Server { return s.server },
		nil,
	)
	r.Method(http.MethodPost, "/mcp", handler)
	r.Method(http.MethodGet, "/mcp", handler)
	r.Method(http.MethodDelete, "/mcp", handler)
}

// RunStdio serves the tools over stdin/stdout until ctx ends or the client
// disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	s.logger.Info("mcp stdio server starting")
	return s.server.Run(ctx, &sdkmcp.StdioTransport{})
}
