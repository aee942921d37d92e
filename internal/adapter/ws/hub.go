// Package ws implements the WebSocket hub that pushes live broker events to
// dashboard clients. The hub is fan-out only: clients never send anything
// meaningful, their read side exists to notice disconnects.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// EventActivity carries one flattened activity-feed entry.
const EventActivity = "activity"

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// client is one dashboard connection with its own lifetime.
type client struct {
	ws     *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

// Hub tracks active dashboard connections and fans broker events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// HandleWS upgrades the request to a WebSocket connection and tracks it.
// The connection gets a lifetime independent of the request: net/http
// cancels r.Context() as soon as this handler returns, even for hijacked
// connections, so reads tied to it would drop every client immediately.
// The connection lives until the peer goes away or the hub removes it.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &client{ws: ws, ctx: ctx, cancel: cancel}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("dashboard client connected", "remote", r.RemoteAddr)

	go h.readUntilClosed(c)
}

// readUntilClosed consumes the connection's read side until the peer
// disconnects or the hub cancels the client, then removes it.
func (h *Hub) readUntilClosed(c *client) {
	defer func() {
		h.remove(c)
		_ = c.ws.Close(websocket.StatusNormalClosure, "")
	}()
	for {
		if _, _, err := c.ws.Read(c.ctx); err != nil {
			return
		}
	}
}

// BroadcastEvent marshals a typed event payload and sends it to every
// connected client. It satisfies the broadcast.Broadcaster port. A write
// failure evicts that client; other clients are unaffected.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}
	h.broadcast(ctx, Message{Type: eventType, Payload: json.RawMessage(data)})
}

func (h *Hub) broadcast(ctx context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal ws message", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
			slog.Debug("websocket write failed", "error", err)
			go h.remove(c)
		}
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		c.cancel()
		delete(h.clients, c)
		slog.Info("dashboard client disconnected")
	}
}
