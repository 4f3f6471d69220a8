// Package ws serves the realtime live-users channel over websockets.
package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-signup-presence/internal/application/presence"
	"github.com/go-signup-presence/internal/domain"
	"github.com/go-signup-presence/internal/pkg/id"
	"github.com/gorilla/websocket"
)

// Event names on the wire.
const (
	EventConnected       = "connected"
	EventJoinLiveUsers   = "joinLiveUsers"
	EventLiveUsersUpdate = "liveUsersUpdate"
	EventError           = "error"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

// Envelope frames every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinPayload is the data of a joinLiveUsers event.
type JoinPayload struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	UserID string `json:"userId,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub owns every open socket. It is the roster's Broadcaster.
type Hub struct {
	roster   presence.Registry
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
}

func NewHub(roster presence.Registry, allowedOrigins []string) *Hub {
	h := &Hub{
		roster:  roster,
		clients: map[string]*client{},
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := map[string]bool{}
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[o] = true
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// ServeHTTP upgrades the request and runs the socket until it closes.
// The socket's id is sent first in a connected event; it leaves the roster on close.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.Debug("websocket upgrade failed", "err", err)
		return
	}
	c := &client{id: id.New(), conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		conn.Close()
		return
	}
	h.enqueue(c, EventConnected, map[string]string{"socketId": c.id})

	go h.writePump(c)
	h.readPump(c)
}

// Broadcast sends the roster to every client. It never blocks; clients whose
// buffers are full are disconnected.
func (h *Hub) Broadcast(entries []domain.PresenceEntry) {
	msg, err := encode(EventLiveUsersUpdate, entries)
	if err != nil {
		slog.Error("failed to encode live users", "err", err)
		return
	}
	var slow []*client
	h.mu.RLock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range slow {
		slog.Warn("dropping slow websocket client", "socket_id", c.id)
		h.unregister(c)
	}
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sid, c := range h.clients {
		delete(h.clients, sid)
		close(c.send)
	}
}

// Len reports the number of open sockets.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	return true
}

// unregister is idempotent; send is closed exactly once, by whoever removes c.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
		close(c.send)
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		h.roster.Leave(c.id)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "socket_id", c.id, "err", err)
			}
			return
		}
		h.handle(c, raw)
	}
}

func (h *Hub) handle(c *client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.enqueue(c, EventError, map[string]string{"error": "malformed message"})
		return
	}
	switch env.Event {
	case EventJoinLiveUsers:
		var p JoinPayload
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &p); err != nil {
				h.enqueue(c, EventError, map[string]string{"error": "malformed joinLiveUsers payload"})
				return
			}
		}
		// Join broadcasts to every socket, this one included.
		if _, err := h.roster.Join(domain.PresenceEntry{
			SocketID: c.id,
			UserID:   p.UserID,
			Email:    p.Email,
			Name:     p.Name,
		}); err != nil {
			h.enqueue(c, EventError, map[string]string{"error": err.Error()})
		}
	default:
		h.enqueue(c, EventError, map[string]string{"error": "unknown event " + env.Event})
	}
}

// enqueue sends to one client without blocking.
func (h *Hub) enqueue(c *client, event string, data any) {
	msg, err := encode(event, data)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.clients[c.id] != c {
		return
	}
	select {
	case c.send <- msg:
	default:
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
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					slog.Debug("websocket write failed", "socket_id", c.id, "err", err)
				}
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
