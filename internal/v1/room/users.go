package room

import (
	"context"

	"go.uber.org/zap"

	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/logging"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/types"
)

// AddUser inserts a participant and assigns the next palette color. The
// returned User is a copy safe to serialize without the room lock.
func (r *Room) AddUser(sessionID types.SessionID, username string) *types.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := &types.User{
		ID:       sessionID,
		Username: username,
		Color:    types.UserColorPalette[r.userColorIndex%len(types.UserColorPalette)],
	}
	r.userColorIndex++
	r.users[sessionID] = user

	logging.Info(context.Background(), "User joined room",
		zap.String("room_id", string(r.ID)),
		zap.String("session_id", string(sessionID)),
		zap.String("username", username),
		zap.String("color", user.Color),
	)

	return user.Clone()
}

// RemoveUser deletes a participant. When the room becomes empty the onEmpty
// callback fires after the lock is released so the registry can schedule
// cleanup without lock-order inversion.
func (r *Room) RemoveUser(sessionID types.SessionID) bool {
	r.mu.Lock()
	_, ok := r.users[sessionID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.users, sessionID)
	empty := len(r.users) == 0
	r.mu.Unlock()

	logging.Info(context.Background(), "User left room",
		zap.String("room_id", string(r.ID)),
		zap.String("session_id", string(sessionID)),
	)

	if empty && r.onEmpty != nil {
		r.onEmpty(r.ID)
	}
	return true
}

// UpdateCursor writes cursor telemetry to the user record. Unknown users are
// a no-op; the update may race a disconnect.
func (r *Room) UpdateCursor(sessionID types.SessionID, position *types.Point, isDrawing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[sessionID]
	if !ok {
		return
	}
	if position != nil {
		pos := *position
		user.CursorPosition = &pos
	} else {
		user.CursorPosition = nil
	}
	user.IsDrawing = isDrawing
}

// HasUser reports membership.
func (r *Room) HasUser(sessionID types.SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[sessionID]
	return ok
}

// UserCount returns the number of joined participants.
func (r *Room) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// ListUsers returns a snapshot of the participants.
func (r *Room) ListUsers() []*types.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*types.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u.Clone())
	}
	return users
}

// UserIDs returns the session ids joined to this room, for fan-out.
func (r *Room) UserIDs() []types.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]types.SessionID, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	return ids
}
