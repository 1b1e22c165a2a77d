// Package room implements the authoritative per-room canvas state and the
// registry managing room lifecycle.
//
// Concurrency Design:
// Each Room guards all of its state with a read-write mutex. Mutators take
// the write lock, so every room observes one mutation at a time; different
// rooms proceed in parallel. Methods suffixed Locked assume the caller holds
// the lock. Persistence is dispatched asynchronously from inside mutators and
// never blocks them.
package room

import (
	"sync"
	"time"

	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/types"
)

// Room is one collaborative canvas: its participants, strokes, and the global
// operation history shared by every user in the room.
type Room struct {
	ID types.RoomID
	mu sync.RWMutex

	users   map[types.SessionID]*types.User
	strokes map[string]*types.Stroke

	operationHistory []*types.Operation
	undoneOperations []*types.Operation

	// userColorIndex assigns palette colors round-robin across joins.
	userColorIndex   int
	restoredFromDisk bool

	// persist schedules an asynchronous snapshot write; never blocks.
	persist func(*types.RoomSnapshot)
	// onEmpty is invoked after the last user leaves, outside the room lock.
	onEmpty func(types.RoomID)
}

// NewRoom constructs an empty room.
func NewRoom(id types.RoomID, onEmpty func(types.RoomID), persist func(*types.RoomSnapshot)) *Room {
	return &Room{
		ID:      id,
		users:   make(map[types.SessionID]*types.User),
		strokes: make(map[string]*types.Stroke),
		persist: persist,
		onEmpty: onEmpty,
	}
}

// NewRoomFromSnapshot restores a room from its persisted state.
func NewRoomFromSnapshot(snap *types.RoomSnapshot, onEmpty func(types.RoomID), persist func(*types.RoomSnapshot)) *Room {
	r := NewRoom(snap.RoomID, onEmpty, persist)
	for _, s := range snap.Strokes {
		if s != nil && s.ID != "" {
			r.strokes[s.ID] = s.Clone()
		}
	}
	for _, op := range snap.OperationHistory {
		r.operationHistory = append(r.operationHistory, op.Clone())
	}
	for _, op := range snap.UndoneOperations {
		r.undoneOperations = append(r.undoneOperations, op.Clone())
	}
	r.restoredFromDisk = true
	return r
}

// RestoredFromDisk reports whether this room was loaded from persistence at
// first access in the current process.
func (r *Room) RestoredFromDisk() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.restoredFromDisk
}

// Snapshot produces a deep-copied persistence record of the current state.
func (r *Room) Snapshot() *types.RoomSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() *types.RoomSnapshot {
	snap := &types.RoomSnapshot{
		Version:          types.SnapshotSchemaVersion,
		RoomID:           r.ID,
		Strokes:          make([]*types.Stroke, 0, len(r.strokes)),
		OperationHistory: make([]*types.Operation, 0, len(r.operationHistory)),
		UndoneOperations: make([]*types.Operation, 0, len(r.undoneOperations)),
		Timestamp:        time.Now().UnixMilli(),
	}
	for _, s := range r.strokes {
		snap.Strokes = append(snap.Strokes, s.Clone())
	}
	for _, op := range r.operationHistory {
		snap.OperationHistory = append(snap.OperationHistory, op.Clone())
	}
	for _, op := range r.undoneOperations {
		snap.UndoneOperations = append(snap.UndoneOperations, op.Clone())
	}
	return snap
}

// schedulePersistLocked hands a deep-copied snapshot to the async writer.
// Caller must hold r.mu.
func (r *Room) schedulePersistLocked() {
	if r.persist != nil {
		r.persist(r.snapshotLocked())
	}
}
