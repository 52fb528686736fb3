package websocket

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks the live connections so they can be counted and closed on
// shutdown. Sessions never reach each other through it.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Conn
	closed  bool
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Conn),
	}
}

// Register adds c to the hub. It returns false once CloseAll has run, so a
// connection accepted during shutdown is not left behind.
func (h *Hub) Register(c *Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.ID] = c
	return true
}

func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	h.mu.Unlock()
}

// Count returns the number of live connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll sends a going-away close frame to every live connection and
// refuses later registrations.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*Conn, 0, len(h.clients))
	for _, c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.Close(websocket.CloseGoingAway, "server shutting down")
	}
}
