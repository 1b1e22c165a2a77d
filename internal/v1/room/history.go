package room

import "github.com/sp201004/CollabCanvas/backend/go/internal/v1/types"

// The operation log is a single global stack per room, not per-user: undo
// reverts the most recent change anyone made. Per-user stacks mismatch intent
// once users draw atop each other's work.

// Undo pops the newest operation, applies its inverse to the canvas, and
// parks it on the redo stack. Returns a copy of the operation for broadcast,
// or nil when the history is empty.
func (r *Room) Undo() *types.Operation {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.operationHistory)
	if n == 0 {
		return nil
	}
	op := r.operationHistory[n-1]
	r.operationHistory = r.operationHistory[:n-1]
	r.undoneOperations = append(r.undoneOperations, op)

	switch op.Type {
	case types.OperationDraw:
		delete(r.strokes, op.StrokeID)
	case types.OperationErase:
		r.strokes[op.StrokeID] = op.Stroke.Clone()
	}

	r.schedulePersistLocked()
	return op.Clone()
}

// Redo pops the redo stack, reapplies the operation, and restores it to the
// history. Returns a copy for broadcast, or nil when nothing is redoable.
func (r *Room) Redo() *types.Operation {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.undoneOperations)
	if n == 0 {
		return nil
	}
	op := r.undoneOperations[n-1]
	r.undoneOperations = r.undoneOperations[:n-1]
	r.operationHistory = append(r.operationHistory, op)

	switch op.Type {
	case types.OperationDraw:
		r.strokes[op.StrokeID] = op.Stroke.Clone()
	case types.OperationErase:
		delete(r.strokes, op.StrokeID)
	}

	r.schedulePersistLocked()
	return op.Clone()
}

// HistoryState returns the counters clients use to enable undo/redo buttons.
func (r *Room) HistoryState() (operationCount, undoneCount int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.operationHistory), len(r.undoneOperations)
}
