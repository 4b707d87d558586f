package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JaimeStill/tally/pkg/handlers"
	"github.com/JaimeStill/tally/pkg/lifecycle"
	"github.com/JaimeStill/tally/pkg/middleware"
	"github.com/JaimeStill/tally/pkg/routes"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// Hub fans events out to WebSocket connections keyed by requester.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub creates a Hub. An empty origins list accepts any origin.
func NewHub(origins []string, logger *slog.Logger) *Hub {
	h := &Hub{
		clients: make(map[string]map[*client]struct{}),
		logger:  logger.With("system", "notify"),
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(origins) == 0 || slices.Contains(origins, origin)
		},
	}

	return h
}

// Start registers a shutdown hook that disconnects every client after the
// drain phase.
func (h *Hub) Start(lc *lifecycle.Coordinator) error {
	lc.OnShutdown(func() {
		<-lc.Drained()
		h.closeAll()
		h.logger.Info("notification hub stopped")
	})
	return nil
}

// Routes returns the route group for the WebSocket endpoint.
func (h *Hub) Routes() routes.Group {
	return routes.Group{
		Prefix: "/notifications",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/ws", Handler: h.ServeWS},
		},
	}
}

// Connections returns the number of open connections for requesterID.
func (h *Hub) Connections(requesterID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[requesterID])
}

// Notify queues e for every connection of its requester. Connections whose
// buffer is full drop the event.
func (h *Hub) Notify(ctx context.Context, e Event) {
	if e.RequesterID == "" {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(e)
	if err != nil {
		h.logger.ErrorContext(ctx, "encode event failed", "document_id", e.DocumentID, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[e.RequesterID] {
		select {
		case c.send <- payload:
		default:
			h.logger.WarnContext(ctx, "client buffer full, event dropped",
				"requester_id", e.RequesterID,
				"document_id", e.DocumentID,
			)
		}
	}
}

// ServeWS upgrades the request and subscribes the caller to its events.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok || id.Subject == "" {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(id.Subject, c)

	go h.writePump(c)
	h.readPump(id.Subject, c)
}

func (h *Hub) register(requesterID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[requesterID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[requesterID] = set
	}
	set[c] = struct{}{}

	h.logger.Debug("client connected", "requester_id", requesterID, "connections", len(set))
}

func (h *Hub) unregister(requesterID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.clients[requesterID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, requesterID)
		}
	}
	c.close()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for requesterID, set := range h.clients {
		for c := range set {
			c.close()
		}
		delete(h.clients, requesterID)
	}
}

// readPump discards client messages and detects disconnects.
func (h *Hub) readPump(requesterID string, c *client) {
	defer func() {
		h.unregister(requesterID, c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
