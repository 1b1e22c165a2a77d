package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/logging"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/types"
)

// Writer dispatches snapshot saves asynchronously so room mutators never
// block on disk. Writes coalesce per room: while a save is in flight, newer
// snapshots for the same room overwrite the pending slot and only the latest
// one is written.
type Writer struct {
	store *FileStore

	mu      sync.Mutex
	pending map[types.RoomID]*types.RoomSnapshot
	active  map[types.RoomID]bool
	wg      sync.WaitGroup
}

// NewWriter wraps a FileStore with the coalescing async dispatch.
func NewWriter(store *FileStore) *Writer {
	return &Writer{
		store:   store,
		pending: make(map[types.RoomID]*types.RoomSnapshot),
		active:  make(map[types.RoomID]bool),
	}
}

// Schedule queues a snapshot write and returns immediately. The snapshot must
// already be a deep copy owned by the writer.
func (w *Writer) Schedule(snap *types.RoomSnapshot) {
	if snap == nil {
		return
	}

	w.mu.Lock()
	w.pending[snap.RoomID] = snap
	if w.active[snap.RoomID] {
		w.mu.Unlock()
		return
	}
	w.active[snap.RoomID] = true
	w.wg.Add(1)
	w.mu.Unlock()

	go w.drain(snap.RoomID)
}

// drain writes the latest pending snapshot for a room until none remain.
func (w *Writer) drain(id types.RoomID) {
	defer w.wg.Done()

	for {
		w.mu.Lock()
		snap, ok := w.pending[id]
		if !ok {
			w.active[id] = false
			w.mu.Unlock()
			return
		}
		delete(w.pending, id)
		w.mu.Unlock()

		ctx := context.WithValue(context.Background(), logging.RoomIDKey, string(id))
		if err := w.store.Save(ctx, snap); err != nil {
			// In-memory state stays authoritative; the next mutation retries.
			logging.Error(ctx, "Failed to persist room snapshot", zap.Error(err))
		}
	}
}

// Flush blocks until every scheduled write has completed. Called on shutdown
// after the rooms have produced their final snapshots.
func (w *Writer) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
