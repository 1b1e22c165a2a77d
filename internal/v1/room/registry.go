package room

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/logging"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/metrics"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/types"
)

// Persistence is the storage contract the registry depends on. In production
// it is satisfied by the file-backed snapshot store; tests substitute fakes.
type Persistence interface {
	// Load returns the stored snapshot, or (nil, nil) when none exists.
	Load(ctx context.Context, id types.RoomID) (*types.RoomSnapshot, error)
	// Schedule queues an asynchronous write; never blocks.
	Schedule(snap *types.RoomSnapshot)
	// Save writes synchronously, for final saves on cleanup and shutdown.
	Save(ctx context.Context, snap *types.RoomSnapshot) error
}

// Registry maintains the mapping from room code to Room. Cold misses load
// from persistence exactly once: concurrent first-joins to the same code
// share one in-flight load, so no caller ever receives a shadow room.
type Registry struct {
	mu              sync.Mutex
	rooms           map[types.RoomID]*Room
	loads           map[types.RoomID]*inflightLoad
	pendingCleanups map[types.RoomID]*time.Timer

	persistence Persistence
	gracePeriod time.Duration
}

// inflightLoad lets second callers of a cold miss await the first's result.
type inflightLoad struct {
	done chan struct{}
	room *Room
}

// NewRegistry creates a registry with the given empty-room grace period.
func NewRegistry(persistence Persistence, gracePeriod time.Duration) *Registry {
	return &Registry{
		rooms:           make(map[types.RoomID]*Room),
		loads:           make(map[types.RoomID]*inflightLoad),
		pendingCleanups: make(map[types.RoomID]*time.Timer),
		persistence:     persistence,
		gracePeriod:     gracePeriod,
	}
}

// GetOrCreate returns the canonical Room for a code, loading it from
// persistence on the cold path. It fails on an invalid room code, or with
// ctx.Err() when the context ends while awaiting another caller's in-flight
// load.
func (r *Registry) GetOrCreate(ctx context.Context, id types.RoomID) (*Room, error) {
	if err := types.ValidateRoomCode(id); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if room, ok := r.rooms[id]; ok {
		r.cancelCleanupLocked(id)
		r.mu.Unlock()
		return room, nil
	}
	if load, ok := r.loads[id]; ok {
		r.mu.Unlock()
		select {
		case <-load.done:
			return load.room, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	load := &inflightLoad{done: make(chan struct{})}
	r.loads[id] = load
	r.mu.Unlock()

	room := r.loadRoom(ctx, id)

	r.mu.Lock()
	r.rooms[id] = room
	delete(r.loads, id)
	r.mu.Unlock()

	load.room = room
	close(load.done)

	metrics.ActiveRooms.Inc()
	return room, nil
}

// loadRoom performs the cold-path disk read. Read failures degrade to a
// fresh empty room; the registry never crashes on a corrupt snapshot.
func (r *Registry) loadRoom(ctx context.Context, id types.RoomID) *Room {
	snap, err := r.persistence.Load(ctx, id)
	if err != nil {
		logging.Warn(ctx, "Failed to load room snapshot, starting fresh",
			zap.String("room_id", string(id)),
			zap.Error(err),
		)
		snap = nil
	}

	if snap == nil {
		logging.Info(ctx, "Creating new room", zap.String("room_id", string(id)))
		return NewRoom(id, r.ScheduleCleanup, r.persistence.Schedule)
	}

	logging.Info(ctx, "Restored room from disk",
		zap.String("room_id", string(id)),
		zap.Int("strokes", len(snap.Strokes)),
		zap.Int("operations", len(snap.OperationHistory)),
	)
	return NewRoomFromSnapshot(snap, r.ScheduleCleanup, r.persistence.Schedule)
}

// Get returns the room if present; never creates.
func (r *Registry) Get(id types.RoomID) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[id]
}

// Count returns the number of active rooms.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// ScheduleCleanup starts the empty-room grace timer. On expiry the room is
// removed if still vacant, after one final snapshot so the next joiner
// recovers the latest state. Rescheduling resets the timer.
func (r *Registry) ScheduleCleanup(id types.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelCleanupLocked(id)
	r.pendingCleanups[id] = time.AfterFunc(r.gracePeriod, func() {
		r.finishCleanup(id)
	})

	logging.Info(context.Background(), "Scheduled room cleanup",
		zap.String("room_id", string(id)),
		zap.Duration("grace_period", r.gracePeriod),
	)
}

// CancelCleanup stops a pending cleanup timer. Idempotent.
func (r *Registry) CancelCleanup(id types.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelCleanupLocked(id)
}

func (r *Registry) cancelCleanupLocked(id types.RoomID) {
	if timer, ok := r.pendingCleanups[id]; ok {
		timer.Stop()
		delete(r.pendingCleanups, id)
	}
}

// finishCleanup runs when the grace timer fires.
func (r *Registry) finishCleanup(id types.RoomID) {
	r.mu.Lock()
	delete(r.pendingCleanups, id)
	room, ok := r.rooms[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	if room.UserCount() > 0 {
		r.mu.Unlock()
		logging.Info(context.Background(), "Cancelled room cleanup, room is occupied again",
			zap.String("room_id", string(id)))
		return
	}
	delete(r.rooms, id)
	r.mu.Unlock()

	metrics.ActiveRooms.Dec()
	metrics.RoomParticipants.DeleteLabelValues(string(id))

	ctx := context.WithValue(context.Background(), logging.RoomIDKey, string(id))
	if err := r.persistence.Save(ctx, room.Snapshot()); err != nil {
		logging.Error(ctx, "Final snapshot failed during room cleanup", zap.Error(err))
	}
	logging.Info(ctx, "Removed empty room after grace period")
}

// Shutdown cancels all timers and synchronously persists every active room.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	for id, timer := range r.pendingCleanups {
		timer.Stop()
		delete(r.pendingCleanups, id)
	}
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.Unlock()

	var firstErr error
	for _, room := range rooms {
		if err := r.persistence.Save(ctx, room.Snapshot()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
