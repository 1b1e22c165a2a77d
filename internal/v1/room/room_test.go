package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/types"
)

func newStroke(id, userID string, tool types.Tool) *types.Stroke {
	return &types.Stroke{
		ID:        id,
		UserID:    userID,
		Tool:      tool,
		Color:     "#000",
		Width:     3,
		Points:    []types.Point{{X: 10, Y: 10}},
		Timestamp: 1,
	}
}

func TestAddUserAssignsPaletteColorsRoundRobin(t *testing.T) {
	r := NewRoom("ABC123", nil, nil)

	palette := types.UserColorPalette
	for i := 0; i < len(palette)+2; i++ {
		user := r.AddUser(types.SessionID(string(rune('a'+i))), "user")
		assert.Equal(t, palette[i%len(palette)], user.Color)
	}
}

func TestAddUserReturnsCopy(t *testing.T) {
	r := NewRoom("ABC123", nil, nil)

	user := r.AddUser("session-1", "alice")
	user.Username = "mallory"

	listed := r.ListUsers()
	require.Len(t, listed, 1)
	assert.Equal(t, "alice", listed[0].Username)
}

func TestRemoveUserTriggersOnEmpty(t *testing.T) {
	var emptied []types.RoomID
	r := NewRoom("ABC123", func(id types.RoomID) { emptied = append(emptied, id) }, nil)

	r.AddUser("a", "alice")
	r.AddUser("b", "bob")

	r.RemoveUser("a")
	assert.Empty(t, emptied, "room still occupied")

	r.RemoveUser("b")
	assert.Equal(t, []types.RoomID{"ABC123"}, emptied)

	// Removing an unknown user is a no-op and never fires the callback.
	assert.False(t, r.RemoveUser("ghost"))
	assert.Len(t, emptied, 1)
}

func TestUpdateCursor(t *testing.T) {
	r := NewRoom("ABC123", nil, nil)
	r.AddUser("a", "alice")

	r.UpdateCursor("a", &types.Point{X: 5, Y: 6}, true)

	users := r.ListUsers()
	require.Len(t, users, 1)
	require.NotNil(t, users[0].CursorPosition)
	assert.Equal(t, 5.0, users[0].CursorPosition.X)
	assert.True(t, users[0].IsDrawing)

	// Pointer left the canvas.
	r.UpdateCursor("a", nil, false)
	users = r.ListUsers()
	assert.Nil(t, users[0].CursorPosition)
	assert.False(t, users[0].IsDrawing)

	// Unknown users are ignored.
	r.UpdateCursor("ghost", &types.Point{X: 1, Y: 1}, true)
	assert.Len(t, r.ListUsers(), 1)
}

func TestSnapshotRoundTrip(t *testing.T) {
	r := NewRoom("XYZ789", nil, nil)
	r.AddStroke(newStroke("s1", "u1", types.ToolBrush))
	r.AppendPoint("s1", types.Point{X: 20, Y: 20})
	r.FinalizeStroke("s1")
	r.AddStroke(newStroke("s2", "u1", types.ToolEraser))
	r.Undo()

	snap := r.Snapshot()
	restored := NewRoomFromSnapshot(snap, nil, nil)

	assert.True(t, restored.RestoredFromDisk())
	assert.ElementsMatch(t, r.Strokes(), restored.Strokes())

	origOps, origUndone := r.HistoryState()
	restOps, restUndone := restored.HistoryState()
	assert.Equal(t, origOps, restOps)
	assert.Equal(t, origUndone, restUndone)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	r := NewRoom("ABC123", nil, nil)
	r.AddStroke(newStroke("s1", "u1", types.ToolBrush))

	snap := r.Snapshot()
	r.AppendPoint("s1", types.Point{X: 99, Y: 99})

	require.Len(t, snap.Strokes, 1)
	assert.Len(t, snap.Strokes[0].Points, 1)
}

func TestSchedulePersistFiresOnMutations(t *testing.T) {
	var persisted []*types.RoomSnapshot
	r := NewRoom("ABC123", nil, func(snap *types.RoomSnapshot) {
		persisted = append(persisted, snap)
	})

	r.AddStroke(newStroke("s1", "u1", types.ToolBrush))
	assert.Len(t, persisted, 1)

	// Point appends are intentionally not persisted mid-stream.
	r.AppendPoint("s1", types.Point{X: 20, Y: 20})
	assert.Len(t, persisted, 1)

	r.FinalizeStroke("s1")
	assert.Len(t, persisted, 2)

	r.Undo()
	assert.Len(t, persisted, 3)

	r.Redo()
	assert.Len(t, persisted, 4)

	r.Clear()
	assert.Len(t, persisted, 5)
}
