// Package relay runs inside API processes: it subscribes to the pub/sub
// channels workers publish on and fans each event out to the websocket
// connections of whichever tenant/user room it belongs to.
package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// client is one websocket connection registered to exactly one room.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub is the registry of websocket rooms: add/remove happen under a
// mutex, never via map mutation mid-iteration.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*client]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*client]struct{}),
		logger: logger.With("component", "relay_hub"),
	}
}

// Room returns the room name for a tenant/user pair.
func Room(tenantID, userID string) string {
	return "tenant:" + tenantID + ":user:" + userID
}

// ServeWS upgrades the request and registers the connection to room,
// draining it until the client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, room string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{conn: conn, send: make(chan []byte, 32)}
	h.register(room, c)

	go h.writePump(room, c)
	h.readPump(room, c)
	return nil
}

func (h *Hub) register(room string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*client]struct{})
	}
	h.rooms[room][c] = struct{}{}
}

func (h *Hub) unregister(room string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.rooms[room]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	close(c.send)
}

func (h *Hub) readPump(room string, c *client) {
	defer func() {
		h.unregister(room, c)
		_ = c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(_ string, c *client) {
	defer func() { _ = c.conn.Close() }()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Broadcast delivers payload, JSON-encoded, to every connection in room.
// A client whose send buffer is full misses this message rather than
// blocking the whole room; it stays registered (spec's best-effort
// delivery model extends here too).
func (h *Hub) Broadcast(room string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("marshal broadcast payload failed", "room", room, "error", err)
		return
	}

	h.mu.RLock()
	clients := h.rooms[room]
	targets := make([]*client, 0, len(clients))
	for c := range clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping slow websocket client", "room", room)
		}
	}
}

// RoomSize reports how many connections a room currently holds.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
