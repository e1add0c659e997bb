// Package ws pushes a player's bus events to their open websocket
// connections.
package ws

import (
	"net/http"
	"sync"

	"idle_tapper/internal/events"
	"idle_tapper/internal/metrics"

	"github.com/gorilla/websocket"
)

// Hub tracks live clients so they can be counted and closed on shutdown.
// Each client subscribes to the bus for its own player.
type Hub struct {
	Bus *events.Bus

	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
}

func NewHub(bus *events.Bus) *Hub {
	return &Hub{
		Bus:     bus,
		clients: make(map[*Client]struct{}),
	}
}

// Upgrader accepts any origin when allowedOrigin is empty.
func Upgrader(allowedOrigin string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.WSClients.Set(float64(len(h.clients)))
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	metrics.WSClients.Set(float64(len(h.clients)))
}

// Len reports connected clients, optionally for one player (0 means all).
func (h *Hub) Len(playerID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if playerID == 0 {
		return len(h.clients)
	}
	n := 0
	for c := range h.clients {
		if c.PlayerID == playerID {
			n++
		}
	}
	return n
}

// CloseAll disconnects every client and refuses new ones.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	h.closed = true
	all := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		all = append(all, c)
	}
	h.mu.Unlock()

	for _, c := range all {
		c.close()
	}
}
