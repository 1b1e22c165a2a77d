package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/types"
)

func TestUndoEmptyHistory(t *testing.T) {
	r := NewRoom("ABC123", nil, nil)
	assert.Nil(t, r.Undo())
	assert.Nil(t, r.Redo())
}

func TestUndoRemovesDrawnStroke(t *testing.T) {
	r := NewRoom("ABC123", nil, nil)
	r.AddStroke(newStroke("s1", "u1", types.ToolBrush))

	op := r.Undo()
	require.NotNil(t, op)
	assert.Equal(t, types.OperationDraw, op.Type)
	assert.Equal(t, "s1", op.StrokeID)
	assert.Equal(t, 0, r.StrokeCount())

	ops, undone := r.HistoryState()
	assert.Equal(t, 0, ops)
	assert.Equal(t, 1, undone)
}

func TestUndoRedoRoundTrip(t *testing.T) {
	r := NewRoom("ABC123", nil, nil)
	r.AddStroke(newStroke("s1", "u1", types.ToolBrush))
	r.AppendPoint("s1", types.Point{X: 20, Y: 20})
	r.FinalizeStroke("s1")
	r.AddStroke(newStroke("s2", "u2", types.ToolEraser))

	before := r.Snapshot()

	require.NotNil(t, r.Undo())
	require.NotNil(t, r.Redo())

	after := r.Snapshot()
	assert.ElementsMatch(t, before.Strokes, after.Strokes)
	assert.Equal(t, len(before.OperationHistory), len(after.OperationHistory))
	assert.Equal(t, len(before.UndoneOperations), len(after.UndoneOperations))
}

func TestRedoThenUndoRoundTrip(t *testing.T) {
	r := NewRoom("ABC123", nil, nil)
	r.AddStroke(newStroke("s1", "u1", types.ToolBrush))
	require.NotNil(t, r.Undo())

	before := r.Snapshot()

	require.NotNil(t, r.Redo())
	require.NotNil(t, r.Undo())

	after := r.Snapshot()
	assert.ElementsMatch(t, before.Strokes, after.Strokes)
	assert.Equal(t, len(before.OperationHistory), len(after.OperationHistory))
	assert.Equal(t, len(before.UndoneOperations), len(after.UndoneOperations))
}

func TestUndoLIFOOrder(t *testing.T) {
	r := NewRoom("ABC123", nil, nil)
	r.AddStroke(newStroke("s1", "u1", types.ToolBrush))
	r.AddStroke(newStroke("s2", "u2", types.ToolBrush))

	op := r.Undo()
	require.NotNil(t, op)
	assert.Equal(t, "s2", op.StrokeID, "undo reverts the most recent change anyone made")

	op = r.Undo()
	require.NotNil(t, op)
	assert.Equal(t, "s1", op.StrokeID)
}

func TestRedoInvalidationAcrossUsers(t *testing.T) {
	r := NewRoom("ABC123", nil, nil)

	// alice draws s1, bob undoes it, bob redoes it.
	r.AddStroke(newStroke("s1", "alice", types.ToolBrush))
	require.NotNil(t, r.Undo())
	require.NotNil(t, r.Redo())

	// alice draws s2; completing it truncates the redo stack, so the next
	// undo pops s2, not s1.
	r.AddStroke(newStroke("s2", "alice", types.ToolBrush))

	op := r.Undo()
	require.NotNil(t, op)
	assert.Equal(t, "s2", op.StrokeID)
}

func TestUndoEraseRestoresSnapshot(t *testing.T) {
	r := NewRoom("ABC123", nil, nil)

	erase := newStroke("e1", "u1", types.ToolEraser)
	erase.Points = []types.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}
	r.AddStroke(erase)
	r.FinalizeStroke("e1")

	require.NotNil(t, r.Undo())
	assert.Equal(t, 1, r.StrokeCount(), "undo of erase reinserts the stored stroke")

	require.NotNil(t, r.Redo())
	assert.Equal(t, 0, r.StrokeCount(), "redo of erase removes it again")
}

func TestUndoReturnsCopy(t *testing.T) {
	r := NewRoom("ABC123", nil, nil)
	r.AddStroke(newStroke("s1", "u1", types.ToolBrush))

	op := r.Undo()
	require.NotNil(t, op)
	op.Stroke.Points[0].X = 1234

	require.NotNil(t, r.Redo())
	stroke := r.GetStroke("s1")
	require.NotNil(t, stroke)
	assert.Equal(t, 10.0, stroke.Points[0].X)
}

// Invariant: a stroke id present in strokes means its most recent operation
// in the history is not undone.
func TestStrokePresenceMatchesHistory(t *testing.T) {
	r := NewRoom("ABC123", nil, nil)
	r.AddStroke(newStroke("s1", "u1", types.ToolBrush))
	r.AddStroke(newStroke("s2", "u1", types.ToolBrush))
	r.Undo()

	snap := r.Snapshot()

	inHistory := make(map[string]bool)
	for _, op := range snap.OperationHistory {
		if op.Type == types.OperationDraw {
			inHistory[op.StrokeID] = true
		}
	}
	for _, s := range snap.Strokes {
		assert.True(t, inHistory[s.ID], "stroke %s on canvas without a live draw operation", s.ID)
	}
	for _, op := range snap.UndoneOperations {
		for _, s := range snap.Strokes {
			assert.NotEqual(t, op.StrokeID, s.ID, "undone stroke still on canvas")
		}
	}
}
