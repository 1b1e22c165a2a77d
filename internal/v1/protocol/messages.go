package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/types"
)

// Envelope is the framing for every message in either direction. Data holds
// the event payload verbatim; AckID carries the callback correlation number
// for ping round-trips.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	AckID *int64          `json:"ackId,omitempty"`
}

// Decode parses a raw frame into an Envelope.
func Decode(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed envelope: %w", err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("malformed envelope: missing event")
	}
	return &env, nil
}

// Encode builds a raw frame for the given event and payload.
func Encode(event string, payload any) ([]byte, error) {
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", event, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// EncodeAck builds the reply frame for a ping carrying an ack id.
func EncodeAck(ackID int64) ([]byte, error) {
	return json.Marshal(Envelope{Event: EventAck, AckID: &ackID})
}

// Bind decodes the envelope's data into the given payload struct.
func (e *Envelope) Bind(payload any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: missing payload", e.Event)
	}
	if err := json.Unmarshal(e.Data, payload); err != nil {
		return fmt.Errorf("%s: malformed payload: %w", e.Event, err)
	}
	return nil
}

// BindRoomID decodes the payloads that are a bare room code string
// (room:leave, canvas:clear, operation:undo, operation:redo).
func (e *Envelope) BindRoomID() (types.RoomID, error) {
	var code string
	if err := json.Unmarshal(e.Data, &code); err != nil {
		return "", fmt.Errorf("%s: malformed room id: %w", e.Event, err)
	}
	return types.RoomID(code), nil
}

// --- Client -> Server Payloads ---

// JoinPayload carries a room:join request.
type JoinPayload struct {
	RoomID   types.RoomID `json:"roomId"`
	Username string       `json:"username"`
}

// CursorMovePayload carries cursor telemetry. Position is nil when the
// pointer leaves the canvas.
type CursorMovePayload struct {
	RoomID    types.RoomID `json:"roomId"`
	Position  *types.Point `json:"position"`
	IsDrawing bool         `json:"isDrawing"`
}

// StrokeStartPayload opens a new stroke.
type StrokeStartPayload struct {
	Stroke *types.Stroke `json:"stroke"`
	RoomID types.RoomID  `json:"roomId"`
}

// StrokePointPayload appends one point to an in-progress stroke.
type StrokePointPayload struct {
	StrokeID string       `json:"strokeId"`
	Point    types.Point  `json:"point"`
	RoomID   types.RoomID `json:"roomId"`
}

// StrokeEndPayload finalizes a stroke.
type StrokeEndPayload struct {
	StrokeID string       `json:"strokeId"`
	RoomID   types.RoomID `json:"roomId"`
}

// --- Server -> Client Payloads ---

// RoomJoinedPayload confirms a join to the originating session.
type RoomJoinedPayload struct {
	RoomID   types.RoomID    `json:"roomId"`
	UserID   types.SessionID `json:"userId"`
	Username string          `json:"username"`
	Color    string          `json:"color"`
}

// CursorUpdatePayload fans out one user's cursor to its room.
type CursorUpdatePayload struct {
	UserID    types.SessionID `json:"userId"`
	Position  *types.Point    `json:"position"`
	IsDrawing bool            `json:"isDrawing"`
}

// CanvasStatePayload is the canvas snapshot sent on join.
type CanvasStatePayload struct {
	Strokes []*types.Stroke `json:"strokes"`
}

// CanvasRestoredPayload hints that the joined room was recovered from disk.
type CanvasRestoredPayload struct {
	StrokeCount int `json:"strokeCount"`
}

// HistoryStatePayload drives undo/redo button enablement on clients.
type HistoryStatePayload struct {
	OperationCount int `json:"operationCount"`
	UndoneCount    int `json:"undoneCount"`
}
