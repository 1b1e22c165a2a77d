package store

import (
	"context"

	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/types"
)

// Persistence bundles the synchronous file store with the coalescing async
// writer into the single dependency the room registry consumes.
type Persistence struct {
	*FileStore
	writer *Writer
}

// NewPersistence opens the data directory and wires the async writer.
func NewPersistence(dir string) (*Persistence, error) {
	fs, err := NewFileStore(dir)
	if err != nil {
		return nil, err
	}
	return &Persistence{FileStore: fs, writer: NewWriter(fs)}, nil
}

// Schedule queues an asynchronous, coalescing snapshot write.
func (p *Persistence) Schedule(snap *types.RoomSnapshot) {
	p.writer.Schedule(snap)
}

// Flush waits for all scheduled writes to land on disk.
func (p *Persistence) Flush(ctx context.Context) error {
	return p.writer.Flush(ctx)
}
