package room

import (
	"time"

	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/types"
)

// AddStroke stores a new in-progress stroke and logs its operation. Returns
// false when the id already exists in the room; stroke ids must not collide.
//
// The logged operation embeds a deep copy of the stroke as seen at start;
// FinalizeStroke rewrites it once the point stream completes. Completing a
// new operation invalidates the redo stack.
func (r *Room) AddStroke(stroke *types.Stroke) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strokes[stroke.ID]; exists {
		return false
	}

	stored := stroke.Clone()
	r.strokes[stored.ID] = stored

	opType := types.OperationDraw
	if stored.Tool == types.ToolEraser {
		opType = types.OperationErase
	}
	r.operationHistory = append(r.operationHistory, &types.Operation{
		Type:      opType,
		StrokeID:  stored.ID,
		Stroke:    stored.Clone(),
		UserID:    stored.UserID,
		Timestamp: time.Now().UnixMilli(),
	})
	r.undoneOperations = r.undoneOperations[:0]

	r.schedulePersistLocked()
	return true
}

// AppendPoint grows an in-progress stroke. A missing stroke is a silent
// no-op: the stroke may have been undone while points were still in flight.
func (r *Room) AppendPoint(strokeID string, point types.Point) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	stroke, ok := r.strokes[strokeID]
	if !ok {
		return false
	}
	stroke.Points = append(stroke.Points, point)
	return true
}

// FinalizeStroke rewrites the stroke's operation's embedded snapshot to the
// full points array, so a later undo of an erase (or redo of a draw) restores
// the stroke exactly as drawn. It does not mark the stroke as ended:
// AppendPoint still grows a finalized stroke that is on the canvas.
func (r *Room) FinalizeStroke(strokeID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	stroke, ok := r.strokes[strokeID]
	if !ok {
		return false
	}

	for i := len(r.operationHistory) - 1; i >= 0; i-- {
		if r.operationHistory[i].StrokeID == strokeID {
			r.operationHistory[i].Stroke = stroke.Clone()
			break
		}
	}

	r.schedulePersistLocked()
	return true
}

// GetStroke returns a copy of the stroke, or nil when absent.
func (r *Room) GetStroke(strokeID string) *types.Stroke {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.strokes[strokeID].Clone()
}

// StrokeOwner returns the author of a stored stroke for ownership checks.
// The second result is false when the stroke is unknown.
func (r *Room) StrokeOwner(strokeID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stroke, ok := r.strokes[strokeID]
	if !ok {
		return "", false
	}
	return stroke.UserID, true
}

// Strokes returns a snapshot of the canvas for the join handshake.
func (r *Room) Strokes() []*types.Stroke {
	r.mu.RLock()
	defer r.mu.RUnlock()

	strokes := make([]*types.Stroke, 0, len(r.strokes))
	for _, s := range r.strokes {
		strokes = append(strokes, s.Clone())
	}
	return strokes
}

// StrokeCount returns the number of strokes currently on the canvas.
func (r *Room) StrokeCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.strokes)
}

// Clear empties the canvas and both history stacks. Clear is destructive and
// not undoable.
func (r *Room) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.strokes = make(map[string]*types.Stroke)
	r.operationHistory = r.operationHistory[:0]
	r.undoneOperations = r.undoneOperations[:0]

	r.schedulePersistLocked()
}
