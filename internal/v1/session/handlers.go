// Package session - handlers.go
//
// Event dispatch for the broadcast router. Every incoming frame passes
// through dispatch, which validates it against the session's current room,
// delegates to the room state, and fans the result out with the scope each
// event requires.
//
// Validation authority: the session id is assigned at upgrade time and is
// the only identity the router trusts. Any event carrying a userId must
// match it, otherwise the event is dropped with a warning log. Application
// misbehavior never disconnects a client; it is answered with an error event
// or silently ignored.
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/logging"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/metrics"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/protocol"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/room"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/types"
)

// dispatch routes one raw frame from a session.
func (h *Hub) dispatch(ctx context.Context, c *Client, raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		h.sendError(c, "Malformed message")
		metrics.WebsocketEvents.WithLabelValues("unknown", "error").Inc()
		return
	}

	start := time.Now()
	defer func() {
		metrics.MessageProcessingDuration.WithLabelValues(env.Event).Observe(time.Since(start).Seconds())
	}()

	switch env.Event {
	case protocol.EventRoomJoin:
		h.handleJoin(ctx, c, env)
	case protocol.EventRoomLeave:
		h.handleLeave(ctx, c, env)
	case protocol.EventCursorMove:
		h.handleCursorMove(ctx, c, env)
	case protocol.EventStrokeStart:
		h.handleStrokeStart(ctx, c, env)
	case protocol.EventStrokePoint:
		h.handleStrokePoint(ctx, c, env)
	case protocol.EventStrokeEnd:
		h.handleStrokeEnd(ctx, c, env)
	case protocol.EventCanvasClear:
		h.handleCanvasClear(ctx, c, env)
	case protocol.EventUndo:
		h.handleUndo(ctx, c, env)
	case protocol.EventRedo:
		h.handleRedo(ctx, c, env)
	case protocol.EventPing:
		h.handlePing(ctx, c, env)
	default:
		logging.Warn(ctx, "Unknown event received", zap.String("event", env.Event))
		metrics.WebsocketEvents.WithLabelValues(env.Event, "unknown").Inc()
		return
	}
	metrics.WebsocketEvents.WithLabelValues(env.Event, "ok").Inc()
}

// sendError answers the origin with an error event. Never disconnects.
func (h *Hub) sendError(c *Client, message string) {
	c.sendEvent(protocol.EventError, message)
}

// currentRoom resolves the session's room when the event names the same
// code. Events naming another room (or arriving before a join) return nil.
func (h *Hub) currentRoom(c *Client, id types.RoomID) *room.Room {
	if id == "" || id != c.RoomID() {
		return nil
	}
	return h.registry.Get(id)
}

// --- Room Membership ---

func (h *Hub) handleJoin(ctx context.Context, c *Client, env *protocol.Envelope) {
	var payload protocol.JoinPayload
	if err := env.Bind(&payload); err != nil {
		h.sendError(c, "Malformed join payload")
		return
	}
	if err := types.ValidateRoomCode(payload.RoomID); err != nil {
		h.sendError(c, err.Error())
		return
	}
	if err := types.ValidateUsername(payload.Username); err != nil {
		h.sendError(c, err.Error())
		return
	}

	// Switching rooms leaves the old one first, with a user:left fan-out.
	if c.RoomID() != "" {
		h.leaveCurrentRoom(ctx, c)
	}

	rm, err := h.registry.GetOrCreate(ctx, payload.RoomID)
	if err != nil {
		h.sendError(c, err.Error())
		return
	}

	user := rm.AddUser(c.id, payload.Username)
	c.setRoomID(rm.ID)
	metrics.RoomParticipants.WithLabelValues(string(rm.ID)).Set(float64(rm.UserCount()))

	// Handshake back to the joining session.
	c.sendEvent(protocol.EventRoomJoined, protocol.RoomJoinedPayload{
		RoomID:   rm.ID,
		UserID:   user.ID,
		Username: user.Username,
		Color:    user.Color,
	})
	c.sendEvent(protocol.EventUserList, rm.ListUsers())

	strokes := rm.Strokes()
	c.sendEvent(protocol.EventCanvasState, protocol.CanvasStatePayload{Strokes: strokes})
	if rm.RestoredFromDisk() && len(strokes) > 0 {
		c.sendEvent(protocol.EventCanvasRestored, protocol.CanvasRestoredPayload{StrokeCount: len(strokes)})
	}
	operationCount, undoneCount := rm.HistoryState()
	c.sendEvent(protocol.EventHistoryState, protocol.HistoryStatePayload{
		OperationCount: operationCount,
		UndoneCount:    undoneCount,
	})

	// Announce to the rest of the room.
	if frame, err := protocol.Encode(protocol.EventUserJoined, user); err == nil {
		h.broadcastToRoomExcept(rm, c.id, frame)
	}
}

func (h *Hub) handleLeave(ctx context.Context, c *Client, env *protocol.Envelope) {
	id, err := env.BindRoomID()
	if err != nil {
		h.sendError(c, "Malformed leave payload")
		return
	}
	// Only honored for the room the session is actually in.
	if id == "" || id != c.RoomID() {
		return
	}
	h.leaveCurrentRoom(ctx, c)
}

// leaveCurrentRoom removes the session from its room and announces the
// departure. Safe to call for unjoined sessions.
func (h *Hub) leaveCurrentRoom(ctx context.Context, c *Client) {
	roomID := c.RoomID()
	if roomID == "" {
		return
	}
	c.setRoomID("")

	rm := h.registry.Get(roomID)
	if rm == nil {
		return
	}
	if !rm.RemoveUser(c.id) {
		return
	}

	count := rm.UserCount()
	if count > 0 {
		metrics.RoomParticipants.WithLabelValues(string(roomID)).Set(float64(count))
	} else {
		metrics.RoomParticipants.DeleteLabelValues(string(roomID))
	}

	if frame, err := protocol.Encode(protocol.EventUserLeft, c.id); err == nil {
		h.broadcastToRoomExcept(rm, c.id, frame)
	}
}

// handleDisconnect runs when the transport drops a session.
func (h *Hub) handleDisconnect(c *Client) {
	ctx := context.WithValue(context.Background(), logging.SessionIDKey, string(c.id))
	c.throttle.Stop()
	h.leaveCurrentRoom(ctx, c)
	h.unregister(c)

	logging.Info(ctx, "Session disconnected")
}

// --- Cursor Telemetry ---

func (h *Hub) handleCursorMove(ctx context.Context, c *Client, env *protocol.Envelope) {
	var payload protocol.CursorMovePayload
	if err := env.Bind(&payload); err != nil {
		return
	}
	rm := h.currentRoom(c, payload.RoomID)
	if rm == nil {
		return
	}

	rm.UpdateCursor(c.id, payload.Position, payload.IsDrawing)

	frame, err := protocol.Encode(protocol.EventCursorUpdate, protocol.CursorUpdatePayload{
		UserID:    c.id,
		Position:  payload.Position,
		IsDrawing: payload.IsDrawing,
	})
	if err != nil {
		return
	}
	c.throttle.Submit(func() {
		h.broadcastToRoomExcept(rm, c.id, frame)
	})
}

// --- Stroke Stream ---

func (h *Hub) handleStrokeStart(ctx context.Context, c *Client, env *protocol.Envelope) {
	var payload protocol.StrokeStartPayload
	if err := env.Bind(&payload); err != nil {
		h.sendError(c, "Malformed stroke payload")
		return
	}
	rm := h.currentRoom(c, payload.RoomID)
	if rm == nil {
		return
	}
	if err := payload.Stroke.Validate(); err != nil {
		h.sendError(c, err.Error())
		return
	}
	// Ownership: a session may only start strokes under its own id.
	if payload.Stroke.UserID != string(c.id) {
		logging.Warn(ctx, "Dropping stroke:start with spoofed userId",
			zap.String("room_id", string(rm.ID)),
			zap.String("claimed_user_id", payload.Stroke.UserID),
		)
		return
	}
	if !rm.AddStroke(payload.Stroke) {
		logging.Warn(ctx, "Dropping stroke:start with duplicate id",
			zap.String("room_id", string(rm.ID)),
			zap.String("stroke_id", payload.Stroke.ID),
		)
		return
	}

	if frame, err := protocol.Encode(protocol.EventStrokeStart, payload); err == nil {
		h.broadcastToRoomExcept(rm, c.id, frame)
	}
}

func (h *Hub) handleStrokePoint(ctx context.Context, c *Client, env *protocol.Envelope) {
	var payload protocol.StrokePointPayload
	if err := env.Bind(&payload); err != nil {
		return
	}
	rm := h.currentRoom(c, payload.RoomID)
	if rm == nil {
		return
	}
	if !h.ownsStroke(ctx, c, rm, payload.StrokeID) {
		return
	}

	if !rm.AppendPoint(payload.StrokeID, payload.Point) {
		return
	}

	if frame, err := protocol.Encode(protocol.EventStrokePoint, payload); err == nil {
		h.broadcastToRoomExcept(rm, c.id, frame)
	}
}

func (h *Hub) handleStrokeEnd(ctx context.Context, c *Client, env *protocol.Envelope) {
	var payload protocol.StrokeEndPayload
	if err := env.Bind(&payload); err != nil {
		return
	}
	rm := h.currentRoom(c, payload.RoomID)
	if rm == nil {
		return
	}
	if !h.ownsStroke(ctx, c, rm, payload.StrokeID) {
		return
	}

	if !rm.FinalizeStroke(payload.StrokeID) {
		return
	}

	if frame, err := protocol.Encode(protocol.EventStrokeEnd, payload); err == nil {
		h.broadcastToRoomExcept(rm, c.id, frame)
	}
	h.broadcastHistoryState(rm)
}

// ownsStroke verifies the stored stroke belongs to the session. Unknown
// strokes are a silent no-op (they may have been undone concurrently);
// another session's strokes are dropped with a log entry.
func (h *Hub) ownsStroke(ctx context.Context, c *Client, rm *room.Room, strokeID string) bool {
	owner, ok := rm.StrokeOwner(strokeID)
	if !ok {
		return false
	}
	if owner != string(c.id) {
		logging.Warn(ctx, "Dropping stroke event for stroke owned by another session",
			zap.String("room_id", string(rm.ID)),
			zap.String("stroke_id", strokeID),
			zap.String("owner", owner),
		)
		return false
	}
	return true
}

// --- Canvas-Wide Operations ---

func (h *Hub) handleCanvasClear(ctx context.Context, c *Client, env *protocol.Envelope) {
	id, err := env.BindRoomID()
	if err != nil {
		return
	}
	rm := h.currentRoom(c, id)
	if rm == nil {
		return
	}

	rm.Clear()

	// Reconstructive: everyone, including the initiator, applies the same
	// authoritative sequence.
	if frame, err := protocol.Encode(protocol.EventCanvasClear, nil); err == nil {
		h.broadcastToRoom(rm, frame)
	}
	h.broadcastHistoryState(rm)
}

func (h *Hub) handleUndo(ctx context.Context, c *Client, env *protocol.Envelope) {
	id, err := env.BindRoomID()
	if err != nil {
		return
	}
	rm := h.currentRoom(c, id)
	if rm == nil {
		return
	}

	op := rm.Undo()
	if op == nil {
		return
	}

	if frame, err := protocol.Encode(protocol.EventUndo, op); err == nil {
		h.broadcastToRoom(rm, frame)
	}
	h.broadcastHistoryState(rm)
}

func (h *Hub) handleRedo(ctx context.Context, c *Client, env *protocol.Envelope) {
	id, err := env.BindRoomID()
	if err != nil {
		return
	}
	rm := h.currentRoom(c, id)
	if rm == nil {
		return
	}

	op := rm.Redo()
	if op == nil {
		return
	}

	if frame, err := protocol.Encode(protocol.EventRedo, op); err == nil {
		h.broadcastToRoom(rm, frame)
	}
	h.broadcastHistoryState(rm)
}

// broadcastHistoryState sends the undo/redo counters to the whole room.
func (h *Hub) broadcastHistoryState(rm *room.Room) {
	operationCount, undoneCount := rm.HistoryState()
	frame, err := protocol.Encode(protocol.EventHistoryState, protocol.HistoryStatePayload{
		OperationCount: operationCount,
		UndoneCount:    undoneCount,
	})
	if err != nil {
		return
	}
	h.broadcastToRoom(rm, frame)
}

// --- Latency Probe ---

func (h *Hub) handlePing(ctx context.Context, c *Client, env *protocol.Envelope) {
	if env.AckID == nil {
		return
	}
	frame, err := protocol.EncodeAck(*env.AckID)
	if err != nil {
		return
	}
	c.enqueue(frame)
}
