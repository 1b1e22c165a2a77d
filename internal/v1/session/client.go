// Package session - client.go
//
// This file implements the Client struct for managing individual WebSocket
// connections. Each client represents one connected browser and handles
// bidirectional communication between it and the room server.
//
// Connection Management:
// - Each client runs two goroutines: readPump and writePump
// - readPump continuously reads frames and hands them to the Hub dispatcher
// - writePump drains the buffered send channel to the connection
// - If the send buffer fills, frames are dropped rather than blocking a room
package session

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/logging"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/metrics"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/protocol"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/types"
)

// wsConnection abstracts the WebSocket connection so tests can substitute
// mock connections. In production it is satisfied by *websocket.Conn.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetWriteDeadline(t time.Time) error
}

// Client is one connected browser session. The session id doubles as the
// user id inside whatever room the client joins; it is assigned server-side
// and cannot be spoofed by the client.
type Client struct {
	conn wsConnection
	send chan []byte
	hub  *Hub
	id   types.SessionID

	mu sync.RWMutex
	// roomID is the room this session is currently joined to, empty when
	// not in a room.
	roomID types.RoomID
	// closed marks the send channel as closed; enqueue holds the read lock
	// while sending so a concurrent close cannot slip in under it.
	closed bool

	throttle *cursorThrottle
}

// ID returns the session identifier.
func (c *Client) ID() types.SessionID {
	return c.id
}

// RoomID returns the current room, or empty when unjoined.
func (c *Client) RoomID() types.RoomID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

func (c *Client) setRoomID(id types.RoomID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = id
}

// readPump continuously processes incoming frames until the connection
// drops, then triggers the disconnect cleanup.
func (c *Client) readPump() {
	defer func() {
		c.hub.handleDisconnect(c)
		c.conn.Close()
		metrics.DecConnection()
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		ctx := context.WithValue(context.Background(), logging.SessionIDKey, string(c.id))
		c.hub.dispatch(ctx, c, data)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	writeWait := 10 * time.Second

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logging.Error(context.Background(), "error writing message", zap.Error(err))
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// enqueue hands a frame to the write pump without blocking.
func (c *Client) enqueue(frame []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
		logging.Warn(context.Background(), "Client send channel full, dropping frame",
			zap.String("session_id", string(c.id)))
	}
}

// closeSend marks the session closed and shuts the send channel.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// sendEvent serializes and queues one event for this session.
func (c *Client) sendEvent(event string, payload any) {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		logging.Error(context.Background(), "Failed to encode event",
			zap.String("event", event), zap.Error(err))
		return
	}
	c.enqueue(frame)
}
