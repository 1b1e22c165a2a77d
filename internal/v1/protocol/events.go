// Package protocol defines the wire contract between connected clients and
// the room server: event names, payload shapes, and the JSON envelope.
package protocol

// Client -> server events.
const (
	EventRoomJoin    = "room:join"
	EventRoomLeave   = "room:leave"
	EventCursorMove  = "cursor:move"
	EventStrokeStart = "stroke:start"
	EventStrokePoint = "stroke:point"
	EventStrokeEnd   = "stroke:end"
	EventCanvasClear = "canvas:clear"
	EventUndo        = "operation:undo"
	EventRedo        = "operation:redo"
	EventPing        = "ping"
)

// Server -> client events. Stroke, clear, undo and redo events reuse the
// client-side names above; these are the remaining server-originated ones.
const (
	EventRoomJoined     = "room:joined"
	EventUserList       = "user:list"
	EventUserJoined     = "user:joined"
	EventUserLeft       = "user:left"
	EventCursorUpdate   = "cursor:update"
	EventCanvasState    = "canvas:state"
	EventCanvasRestored = "canvas:restored"
	EventHistoryState   = "history:state"
	EventError          = "error"
	EventAck            = "ack"
)
