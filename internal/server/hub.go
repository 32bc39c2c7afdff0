package server

import (
	"log/slog"
	"sync"

	"carbon_market/internal/infra"

	"github.com/gorilla/websocket"
)

// wsClient pairs a connection with a write mutex. gorilla/websocket allows
// only one concurrent writer per connection, and broadcasts arrive from
// whichever request goroutine completed a mutation.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(payload)
}

// Hub fans market snapshots out to connected websocket clients. Clients are
// read-only; anything they send is discarded.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]*wsClient
	log     *slog.Logger
	metrics *infra.Metrics
}

// NewHub creates an empty hub.
func NewHub(log *slog.Logger, metrics *infra.Metrics) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]*wsClient),
		log:     log,
		metrics: metrics,
	}
}

// Add registers a client and starts its discard-read loop.
func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = &wsClient{conn: conn}
	h.mu.Unlock()
	h.metrics.IncrementWSClients()

	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		h.metrics.DecrementWSClients()
	}
	h.mu.Unlock()
	conn.Close()
}

// Send writes a JSON payload to a single registered client, serialized with
// any concurrent broadcast to the same connection.
func (h *Hub) Send(conn *websocket.Conn, payload interface{}) {
	h.mu.Lock()
	c := h.clients[conn]
	h.mu.Unlock()
	if c == nil {
		return
	}
	if err := c.write(payload); err != nil {
		h.remove(conn)
	}
}

// Broadcast sends a JSON payload to every client. Slow or broken clients
// are dropped rather than allowed to block the caller.
func (h *Hub) Broadcast(payload interface{}) {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.write(payload); err != nil {
			h.log.Debug("dropping websocket client", slog.Any("error", err))
			h.remove(c.conn)
		}
	}
}
