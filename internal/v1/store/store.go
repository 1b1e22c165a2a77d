// Package store implements the room persistence layer: one schema-versioned
// JSON snapshot file per room, written atomically and loaded on the first
// access to a room in a process lifetime.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/logging"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/metrics"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/types"
)

// FileStore reads and writes room snapshots under a data directory. Disk
// writes run through a circuit breaker so a failing disk does not get
// hammered by every mutation in a busy room.
type FileStore struct {
	dir     string
	breaker *gobreaker.CircuitBreaker
}

// NewFileStore creates the data directory if needed and returns a store.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "snapshot-writes",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logging.Warn(context.Background(), "Snapshot circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &FileStore{dir: dir, breaker: breaker}, nil
}

// Dir returns the snapshot directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) snapshotPath(id types.RoomID) string {
	return filepath.Join(s.dir, string(id)+".json")
}

// Load reads the snapshot for a room. Returns (nil, nil) when no snapshot
// exists; any other failure (corrupt JSON, schema mismatch, I/O error) is an
// error the caller treats as a cold miss.
func (s *FileStore) Load(ctx context.Context, id types.RoomID) (*types.RoomSnapshot, error) {
	start := time.Now()

	data, err := os.ReadFile(s.snapshotPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		metrics.SnapshotOperations.WithLabelValues("load", "error").Inc()
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap types.RoomSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		metrics.SnapshotOperations.WithLabelValues("load", "error").Inc()
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if snap.Version != types.SnapshotSchemaVersion {
		metrics.SnapshotOperations.WithLabelValues("load", "error").Inc()
		return nil, fmt.Errorf("snapshot schema version %d, want %d", snap.Version, types.SnapshotSchemaVersion)
	}

	metrics.SnapshotOperations.WithLabelValues("load", "ok").Inc()
	metrics.SnapshotDuration.WithLabelValues("load").Observe(time.Since(start).Seconds())
	return &snap, nil
}

// Save writes a snapshot synchronously with write-then-rename so readers
// never observe a torn file. Used for final saves on room cleanup and
// shutdown; the mutation path goes through the async Writer instead.
func (s *FileStore) Save(ctx context.Context, snap *types.RoomSnapshot) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.write(snap)
	})
	return err
}

func (s *FileStore) write(snap *types.RoomSnapshot) error {
	start := time.Now()

	data, err := json.Marshal(snap)
	if err != nil {
		metrics.SnapshotOperations.WithLabelValues("save", "error").Inc()
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	final := s.snapshotPath(snap.RoomID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		metrics.SnapshotOperations.WithLabelValues("save", "error").Inc()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		metrics.SnapshotOperations.WithLabelValues("save", "error").Inc()
		return fmt.Errorf("publishing snapshot: %w", err)
	}

	metrics.SnapshotOperations.WithLabelValues("save", "ok").Inc()
	metrics.SnapshotDuration.WithLabelValues("save").Observe(time.Since(start).Seconds())
	return nil
}

// Delete removes a room's snapshot file. Missing files are not an error.
func (s *FileStore) Delete(ctx context.Context, id types.RoomID) error {
	if err := os.Remove(s.snapshotPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing snapshot: %w", err)
	}
	return nil
}
