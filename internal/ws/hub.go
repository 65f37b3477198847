package ws

import (
	"context"
	"sync"
	"time"

	"github.com/HerbHall/plangen/internal/plan"
	"github.com/HerbHall/plangen/internal/store"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	feedBuffer   = 64
	pingInterval = 30 * time.Second
)

var (
	feedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "plangen_ws_feed_clients",
		Help: "Connected generation feed clients.",
	})
	feedDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "plangen_ws_feed_dropped_total",
		Help: "Feed messages dropped because a client fell behind.",
	})
)

func init() {
	prometheus.MustRegister(feedClients, feedDropped)
}

// Client is one subscriber of the generation feed. A non-empty kind limits
// it to generations of that kind.
type Client struct {
	conn   *websocket.Conn
	userID string
	kind   string
	send   chan Message
	logger *zap.Logger
}

func (c *Client) wants(msg Message) bool {
	if c.kind == "" {
		return true
	}
	data, ok := msg.Data.(GenerationData)
	return !ok || data.Generation.Kind == c.kind
}

// Hub fans recorded generations out to connected feed clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{clients: map[*Client]struct{}{}, logger: logger}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	feedClients.Inc()
	h.logger.Debug("feed client connected", zap.String("user_id", c.userID), zap.String("kind", c.kind))
}

// Unregister removes c and closes its send channel. Unknown clients are
// ignored, so a second call is harmless.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if ok {
		feedClients.Dec()
		h.logger.Debug("feed client disconnected", zap.String("user_id", c.userID))
	}
}

// Broadcast queues msg for every interested client without blocking. A
// client whose buffer is full misses the message.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if !c.wants(msg) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			feedDropped.Inc()
			h.logger.Warn("feed client too slow, message dropped",
				zap.String("user_id", c.userID), zap.String("id", msg.ID))
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Recorder wraps next so that every recorded generation is also broadcast.
// next may be nil. Its error is returned after the broadcast.
func (h *Hub) Recorder(next plan.Recorder) plan.Recorder {
	return recorderFunc(func(ctx context.Context, g *store.Generation) error {
		var err error
		if next != nil {
			err = next.Record(ctx, g)
		}
		h.Broadcast(Message{
			Type:      MessageGeneration,
			ID:        g.ID,
			Timestamp: time.Now(),
			Data:      GenerationData{Generation: *g},
		})
		return err
	})
}

type recorderFunc func(ctx context.Context, g *store.Generation) error

func (f recorderFunc) Record(ctx context.Context, g *store.Generation) error { return f(ctx, g) }

// writePump delivers queued messages and pings the client when the feed is
// quiet. It returns when the hub closes the channel, a write or ping fails,
// or ctx ends.
func (c *Client) writePump(ctx context.Context) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			err = c.withTimeout(ctx, func(ctx context.Context) error { return c.conn.Ping(ctx) })
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			err = c.withTimeout(ctx, func(ctx context.Context) error { return wsjson.Write(ctx, c.conn, msg) })
		}
		if err != nil {
			c.logger.Debug("feed client write failed", zap.String("user_id", c.userID), zap.Error(err))
			return
		}
	}
}

func (c *Client) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return fn(ctx)
}

// readPump discards client frames until the connection fails. Reading is
// what lets the library process pongs and close frames.
func (c *Client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}
