// Package ws serves plangen's WebSocket endpoints: a per-connection weekly
// plan stream and a shared feed of recorded generations.
package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/HerbHall/plangen/internal/auth"
	"github.com/HerbHall/plangen/internal/limiter"
	"github.com/HerbHall/plangen/internal/plan"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxRequestBytes = 1 << 20
	writeTimeout    = 10 * time.Second
	anonymousUser   = "anonymous"
)

// Handler provides the WebSocket routes.
type Handler struct {
	hub      *Hub
	service  *plan.Service
	limiter  *limiter.Limiter
	tokens   *auth.TokenService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandler creates a WebSocket handler. A nil tokens service accepts
// every connection, matching a server running without authentication.
func NewHandler(hub *Hub, service *plan.Service, lim *limiter.Limiter, tokens *auth.TokenService, logger *zap.Logger) *Handler {
	return &Handler{
		hub:      hub,
		service:  service,
		limiter:  lim,
		tokens:   tokens,
		validate: plan.NewValidator(),
		logger:   logger,
	}
}

// RegisterRoutes mounts the WebSocket routes on the versioned API router.
// Browsers cannot set headers on the upgrade, so the access token travels
// in the token query parameter.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/plan", h.handlePlanStream)
	r.Get("/ws/generations", h.handleGenerationFeed)
}

// authenticate returns the caller's user ID, or writes 401 and returns false.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.tokens == nil {
		return anonymousUser, true
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token parameter", http.StatusUnauthorized)
		return "", false
	}
	claims, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return "", false
	}
	return claims.UserID, true
}

// handlePlanStream reads weekly plan requests from the client one at a time
// and answers each with plan.chunk messages followed by plan.done, or by a
// single plan.error.
func (h *Handler) handlePlanStream(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The token check above stands in for an origin check.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxRequestBytes)

	ctx := r.Context()
	logger := h.logger.With(zap.String("user_id", userID))

	for {
		var req plan.WeeklyRequest
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				logger.Debug("plan stream read ended", zap.Error(err))
			}
			return
		}

		id := uuid.NewString()
		if err := h.validate.Struct(&req); err != nil {
			if send(ctx, conn, errorMessage(id, err.Error(), http.StatusBadRequest)) != nil {
				return
			}
			continue
		}

		if err := h.streamPlan(ctx, conn, id, req); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("weekly plan stream failed", zap.String("id", id), zap.Error(err))
			if send(ctx, conn, errorMessage(id, err.Error(), plan.StatusFor(err))) != nil {
				return
			}
		}
	}
}

// streamPlan runs one weekly plan stream inside the generation limiter.
func (h *Handler) streamPlan(ctx context.Context, conn *websocket.Conn, id string, req plan.WeeklyRequest) error {
	return h.limiter.Run(ctx, func(ctx context.Context) error {
		var full strings.Builder
		for fragment, err := range h.service.StreamWeeklyPlan(ctx, req) {
			if err != nil {
				return err
			}
			full.WriteString(fragment)
			if err := send(ctx, conn, Message{
				Type:      MessagePlanChunk,
				ID:        id,
				Timestamp: time.Now(),
				Data:      ChunkData{Content: fragment},
			}); err != nil {
				return err
			}
		}
		return send(ctx, conn, Message{
			Type:      MessagePlanDone,
			ID:        id,
			Timestamp: time.Now(),
			Data:      DoneData{FullContent: full.String()},
		})
	})
}

// handleGenerationFeed subscribes the client to generation.recorded
// messages until it disconnects. The optional kind query parameter
// narrows the feed to one generation kind.
func (h *Handler) handleGenerationFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	kind := r.URL.Query().Get("kind")
	switch kind {
	case "", plan.KindWeekly, plan.KindWeeklyStream, plan.KindDaily:
	default:
		http.Error(w, "unknown generation kind "+kind, http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		userID: userID,
		kind:   kind,
		send:   make(chan Message, feedBuffer),
		logger: h.logger,
	}
	h.hub.Register(client)

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	client.readPump(ctx)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

func send(ctx context.Context, conn *websocket.Conn, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

func errorMessage(id, detail string, status int) Message {
	return Message{
		Type:      MessagePlanError,
		ID:        id,
		Timestamp: time.Now(),
		Data:      ErrorData{Error: detail, Status: status},
	}
}
