// Package session - hub.go
//
// The Hub owns the WebSocket surface: it upgrades connections, assigns
// session identifiers, tracks connected clients, and routes their events to
// the room layer. Room state itself lives in the room package; the Hub is
// the broadcast router on top of it.
package session

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/logging"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/metrics"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/room"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/types"
)

// Hub coordinates all connected sessions and their room membership.
//
// Concurrency:
// The Hub's mutex protects only the session map. Per-room serialization is
// the room package's job; fan-out reads a membership snapshot and enqueues
// onto per-client buffered channels, so a slow client never blocks a room.
type Hub struct {
	registry *room.Registry

	mu       sync.Mutex
	sessions map[types.SessionID]*Client

	allowedOrigins   []string
	throttleInterval time.Duration
}

// NewHub wires the broadcast router to the room registry.
func NewHub(registry *room.Registry, allowedOrigins []string, throttleInterval time.Duration) *Hub {
	return &Hub{
		registry:         registry,
		sessions:         make(map[types.SessionID]*Client),
		allowedOrigins:   allowedOrigins,
		throttleInterval: throttleInterval,
	}
}

// validateOrigin checks if the request origin is in the allowed list.
func validateOrigin(r *http.Request, allowedOrigins []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // Allow non-browser clients (e.g., for testing)
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	for _, allowed := range allowedOrigins {
		allowedURL, err := url.Parse(allowed)
		if err != nil {
			continue
		}
		if originURL.Scheme == allowedURL.Scheme && originURL.Host == allowedURL.Host {
			return true
		}
	}
	return false
}

// ServeWs upgrades an HTTP request to a WebSocket connection and starts the
// session's read and write goroutines. Sessions begin unjoined; all room
// membership happens through room:join events.
func (h *Hub) ServeWs(c *gin.Context) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return validateOrigin(r, h.allowedOrigins)
		},
		WriteBufferPool: &sync.Pool{
			New: func() any {
				return make([]byte, 4096)
			},
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to upgrade connection", zap.Error(err))
		return
	}

	client := h.newClient(conn)

	logging.Info(c.Request.Context(), "Session connected",
		zap.String("session_id", string(client.id)))

	go client.writePump()
	go client.readPump()
}

// newClient constructs and registers a session for a connection.
func (h *Hub) newClient(conn wsConnection) *Client {
	client := &Client{
		conn:     conn,
		send:     make(chan []byte, 256),
		hub:      h,
		id:       types.SessionID(uuid.New().String()),
		throttle: newCursorThrottle(h.throttleInterval),
	}

	h.mu.Lock()
	h.sessions[client.id] = client
	h.mu.Unlock()

	metrics.IncConnection()
	return client
}

// unregister drops a session from the hub and closes its send channel.
func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	current, ok := h.sessions[client.id]
	if ok && current == client {
		delete(h.sessions, client.id)
	}
	h.mu.Unlock()

	if ok && current == client {
		client.closeSend()
	}
}

// session looks up a connected client by id.
func (h *Hub) session(id types.SessionID) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions[id]
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// broadcastToRoom delivers a frame to every session joined to the room.
// Used for the reconstructive events (undo, redo, history, clear) where the
// initiator must also apply the authoritative sequence.
func (h *Hub) broadcastToRoom(rm *room.Room, frame []byte) {
	h.broadcastToRoomExcept(rm, "", frame)
}

// broadcastToRoomExcept delivers a frame to the room, skipping the origin
// session. Membership is read from the room itself, which keeps fan-out
// scoped: sessions joined to other rooms can never receive the frame.
func (h *Hub) broadcastToRoomExcept(rm *room.Room, except types.SessionID, frame []byte) {
	for _, id := range rm.UserIDs() {
		if id == except {
			continue
		}
		if client := h.session(id); client != nil {
			client.enqueue(frame)
		}
	}
}

// Shutdown closes the connection of every connected session. Frames still
// queued in a session's send channel are not delivered.
func (h *Hub) Shutdown(ctx context.Context) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.sessions))
	for _, c := range h.sessions {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		c.conn.Close()
	}
}
