package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/protocol"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/room"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/types"
)

// mockConn satisfies wsConnection for tests that drive the dispatcher
// directly. The pumps are never started, so reads fail fast.
type mockConn struct{}

func (m *mockConn) ReadMessage() (int, []byte, error)  { return 0, nil, errors.New("mock closed") }
func (m *mockConn) WriteMessage(int, []byte) error     { return nil }
func (m *mockConn) Close() error                       { return nil }
func (m *mockConn) SetWriteDeadline(time.Time) error   { return nil }

// memPersistence is an in-memory room.Persistence.
type memPersistence struct {
	mu        sync.Mutex
	snapshots map[types.RoomID]*types.RoomSnapshot
}

func newMemPersistence() *memPersistence {
	return &memPersistence{snapshots: make(map[types.RoomID]*types.RoomSnapshot)}
}

func (m *memPersistence) Load(ctx context.Context, id types.RoomID) (*types.RoomSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots[id], nil
}

func (m *memPersistence) Schedule(snap *types.RoomSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snap.RoomID] = snap
}

func (m *memPersistence) Save(ctx context.Context, snap *types.RoomSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snap.RoomID] = snap
	return nil
}

// newTestHub builds a hub over in-memory persistence with a throttle short
// enough that trailing cursor emits land within test timeouts.
func newTestHub() (*Hub, *memPersistence) {
	persistence := newMemPersistence()
	registry := room.NewRegistry(persistence, time.Minute)
	hub := NewHub(registry, []string{"http://localhost:3000"}, 5*time.Millisecond)
	return hub, persistence
}

func connect(h *Hub) *Client {
	return h.newClient(&mockConn{})
}

// frame builds a client->server frame.
func frame(t *testing.T, event string, payload any) []byte {
	t.Helper()
	raw, err := protocol.Encode(event, payload)
	require.NoError(t, err)
	return raw
}

// drain decodes every frame currently queued for the client.
func drain(t *testing.T, c *Client) []*protocol.Envelope {
	t.Helper()
	var envs []*protocol.Envelope
	for {
		select {
		case raw := <-c.send:
			env, err := protocol.Decode(raw)
			require.NoError(t, err)
			envs = append(envs, env)
		default:
			return envs
		}
	}
}

// collect reads frames until the deadline, for events emitted asynchronously
// (cursor throttle trailing edges).
func collect(t *testing.T, c *Client, d time.Duration) []*protocol.Envelope {
	t.Helper()
	var envs []*protocol.Envelope
	deadline := time.After(d)
	for {
		select {
		case raw := <-c.send:
			env, err := protocol.Decode(raw)
			require.NoError(t, err)
			envs = append(envs, env)
		case <-deadline:
			return envs
		}
	}
}

func eventNames(envs []*protocol.Envelope) []string {
	names := make([]string, 0, len(envs))
	for _, env := range envs {
		names = append(names, env.Event)
	}
	return names
}

func findEvent(envs []*protocol.Envelope, event string) *protocol.Envelope {
	for _, env := range envs {
		if env.Event == event {
			return env
		}
	}
	return nil
}

func countEvent(envs []*protocol.Envelope, event string) int {
	n := 0
	for _, env := range envs {
		if env.Event == event {
			n++
		}
	}
	return n
}

// join performs a room:join and discards the handshake frames.
func join(t *testing.T, h *Hub, c *Client, roomID, username string) {
	t.Helper()
	h.dispatch(context.Background(), c, frame(t, protocol.EventRoomJoin, protocol.JoinPayload{
		RoomID:   types.RoomID(roomID),
		Username: username,
	}))
	envs := drain(t, c)
	require.NotNil(t, findEvent(envs, protocol.EventRoomJoined), "join handshake failed: %v", eventNames(envs))
}
