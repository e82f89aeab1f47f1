// Package notify pushes dataset events to WebSocket clients.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"txreport/internal/core"
)

const writeWait = 5 * time.Second

// Event is the JSON frame sent to clients.
type Event struct {
	Type     string    `json:"type"`
	RunID    string    `json:"runId,omitempty"`
	Source   string    `json:"source,omitempty"`
	Count    int       `json:"count,omitempty"`
	SeededAt time.Time `json:"seededAt"`
}

const (
	EventConnected     = "connected"
	EventDatasetSeeded = "dataset_seeded"
)

func seededEvent(r core.SeedResult) Event {
	return Event{Type: EventDatasetSeeded, RunID: r.RunID, Source: r.Source, Count: r.Count, SeededAt: r.SeededAt}
}

// Hub tracks connected clients and fans events out to them.
type Hub struct {
	upgrader   websocket.Upgrader
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mu         sync.Mutex

	// lastSeed, when set, is sent to clients as they connect.
	lastSeed func() (core.SeedResult, bool)
}

func NewHub(lastSeed func() (core.SeedResult, bool)) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		lastSeed:   lastSeed,
	}
}

// Start runs the hub loop until ctx is done, then closes every client.
func (h *Hub) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				close(h.done)
				h.mu.Lock()
				for c := range h.clients {
					c.Close()
					delete(h.clients, c)
				}
				h.mu.Unlock()
				return
			case c := <-h.register:
				h.mu.Lock()
				h.clients[c] = true
				n := len(h.clients)
				h.mu.Unlock()
				slog.Debug("WebSocket client connected", "clients", n)
			case c := <-h.unregister:
				h.mu.Lock()
				if _, ok := h.clients[c]; ok {
					delete(h.clients, c)
					c.Close()
				}
				n := len(h.clients)
				h.mu.Unlock()
				slog.Debug("WebSocket client disconnected", "clients", n)
			case msg := <-h.broadcast:
				h.mu.Lock()
				for c := range h.clients {
					c.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
						slog.Warn("Dropping WebSocket client after write error", "error", err)
						c.Close()
						delete(h.clients, c)
					}
				}
				h.mu.Unlock()
			}
		}
	}()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// BroadcastSeeded announces a completed seed. It never blocks the caller:
// when the hub is saturated the event is dropped.
func (h *Hub) BroadcastSeeded(ctx context.Context, r core.SeedResult) {
	data, err := json.Marshal(seededEvent(r))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to marshal dataset event", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		slog.WarnContext(ctx, "WebSocket broadcast queue full, dropping event", "run_id", r.RunID)
	}
}

// ServeWS upgrades the request and registers the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "WebSocket upgrade failed", "error", err)
		return
	}

	hello := []Event{{Type: EventConnected}}
	if h.lastSeed != nil {
		if last, ok := h.lastSeed(); ok {
			hello = append(hello, seededEvent(last))
		}
	}
	for _, ev := range hello {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			conn.Close()
			return
		}
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	// Reads only detect disconnects; clients have nothing to say.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				select {
				case h.unregister <- conn:
				case <-h.done:
				}
				return
			}
		}
	}()
}
