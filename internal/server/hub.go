// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/pdiddy/patent-chooser/internal/signal"
)

const (
	writeWait = 2 * time.Second

	// sendBuffer is the number of messages queued per client. A client
	// whose queue is full is dropped.
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var welcomeMessage = []byte(`{"name":"welcome"}`)

// client is one websocket connection with its outgoing queue.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub streams signal-bus events to connected websocket clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  *slog.Logger
}

// NewHub returns a hub with no clients.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{clients: make(map[*client]struct{}), logger: logger}
}

// Attach forwards every event published on bus to the clients.
func (h *Hub) Attach(bus *signal.Bus) (detach func()) {
	return bus.Subscribe(signal.All, func(ev signal.Event) {
		h.BroadcastJSON(ev)
	})
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// BroadcastJSON queues v for every client without waiting on the network.
// Clients whose queue is full are dropped.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.logger.Warn("encoding websocket message failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			h.logger.Warn("websocket client too slow, dropping it")
			h.removeLocked(c)
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// removeLocked closes the client's queue once; its writer then closes the
// connection.
func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// writePump drains the client's queue onto the connection.
func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(c)
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
}

// Handler upgrades the request and keeps the connection until the client
// goes away. Incoming messages are ignored.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		cl := &client{conn: ws, send: make(chan []byte, sendBuffer)}
		cl.send <- welcomeMessage
		h.register(cl)
		go h.writePump(cl)
		h.logger.Debug("websocket client connected", "clients", h.Count())

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		h.remove(cl)
		h.logger.Debug("websocket client disconnected", "clients", h.Count())
	}
}
