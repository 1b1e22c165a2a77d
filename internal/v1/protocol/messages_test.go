package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/types"
)

func TestDecodeValidEnvelope(t *testing.T) {
	env, err := Decode([]byte(`{"event":"room:join","data":{"roomId":"ABC123","username":"alice"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventRoomJoin, env.Event)

	var payload JoinPayload
	require.NoError(t, env.Bind(&payload))
	assert.Equal(t, types.RoomID("ABC123"), payload.RoomID)
	assert.Equal(t, "alice", payload.Username)
}

func TestDecodeRejectsMalformedFrames(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "not-json"},
		{"missing event", `{"data":{}}`},
		{"wrong envelope type", `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestBindMissingPayload(t *testing.T) {
	env, err := Decode([]byte(`{"event":"stroke:start"}`))
	require.NoError(t, err)

	var payload StrokeStartPayload
	assert.Error(t, env.Bind(&payload))
}

func TestBindRoomID(t *testing.T) {
	env, err := Decode([]byte(`{"event":"operation:undo","data":"ABC123"}`))
	require.NoError(t, err)

	id, err := env.BindRoomID()
	require.NoError(t, err)
	assert.Equal(t, types.RoomID("ABC123"), id)

	env, err = Decode([]byte(`{"event":"operation:undo","data":{"roomId":"ABC123"}}`))
	require.NoError(t, err)
	_, err = env.BindRoomID()
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	frame, err := Encode(EventHistoryState, HistoryStatePayload{OperationCount: 2, UndoneCount: 1})
	require.NoError(t, err)

	env, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, EventHistoryState, env.Event)

	var payload HistoryStatePayload
	require.NoError(t, env.Bind(&payload))
	assert.Equal(t, 2, payload.OperationCount)
	assert.Equal(t, 1, payload.UndoneCount)
}

func TestEncodeAck(t *testing.T) {
	frame, err := EncodeAck(42)
	require.NoError(t, err)

	env, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, EventAck, env.Event)
	require.NotNil(t, env.AckID)
	assert.Equal(t, int64(42), *env.AckID)
}

func TestCursorPositionNullRoundTrip(t *testing.T) {
	// Position null means the pointer left the canvas; it must survive
	// re-encoding as null, not a zero point.
	frame, err := Encode(EventCursorUpdate, CursorUpdatePayload{
		UserID:   "session-1",
		Position: nil,
	})
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	env, err := Decode(frame)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(env.Data, &decoded))
	assert.Equal(t, "null", string(decoded["position"]))
}
