// Package ws pushes plan lifecycle events to browser clients over WebSocket.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// writeTimeout bounds a single frame write so one stalled client cannot
// hold up a broadcast.
const writeTimeout = 5 * time.Second

// client is one connected browser session.
type client struct {
	sock   *websocket.Conn
	cancel context.CancelFunc
}

// Hub tracks connected clients and fans plan events out to all of them.
// Delivery is best-effort: a client that fails a write is dropped, and a
// reconnecting browser recovers current state through the REST API.
type Hub struct {
	mu      sync.RWMutex
	seq     int
	clients map[int]*client
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[int]*client)}
}

// HandleWS upgrades the request and registers the connection. The read
// loop discards inbound frames; its only job is noticing disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	// The request context dies when this handler returns, but the hijacked
	// socket outlives it; the connection owns its own lifetime.
	ctx, cancel := context.WithCancel(context.Background())

	h.mu.Lock()
	h.seq++
	id := h.seq
	h.clients[id] = &client{sock: sock, cancel: cancel}
	h.mu.Unlock()

	slog.Info("websocket client connected", "client", id, "remote", r.RemoteAddr)

	go func() {
		defer func() {
			h.drop(id)
			_ = sock.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			if _, _, err := sock.Read(ctx); err != nil {
				return
			}
		}
	}()
}

// broadcast writes one frame to every client, dropping those that fail.
func (h *Hub) broadcast(ctx context.Context, frame []byte) {
	h.mu.RLock()
	targets := make(map[int]*client, len(h.clients))
	for id, c := range h.clients {
		targets[id] = c
	}
	h.mu.RUnlock()

	for id, c := range targets {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := c.sock.Write(wctx, websocket.MessageText, frame)
		cancel()
		if err != nil {
			slog.Debug("websocket write failed", "client", id, "error", err)
			h.drop(id)
		}
	}
}

// ConnectionCount returns the number of registered clients.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) drop(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[id]; ok {
		c.cancel()
		delete(h.clients, id)
		slog.Info("websocket client disconnected", "client", id)
	}
}
