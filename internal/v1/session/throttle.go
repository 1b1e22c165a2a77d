package session

import (
	"sync"
	"time"

	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/metrics"
)

// cursorThrottle bounds the rate of cursor fan-out per session. Raw pointer
// events arrive at ~100 Hz; peers only need ~28 Hz for smooth motion.
//
// The throttle is a trailing-edge window, not an every-Nth sampler: when a
// message arrives inside the minimum interval it is parked in the single
// pending slot (newest wins) and a one-shot timer emits it at the window
// boundary. The last position in a burst is therefore always delivered.
type cursorThrottle struct {
	mu       sync.Mutex
	interval time.Duration
	lastSent time.Time
	pending  func()
	timer    *time.Timer
	stopped  bool

	// now is replaceable in tests.
	now func() time.Time
}

func newCursorThrottle(interval time.Duration) *cursorThrottle {
	return &cursorThrottle{
		interval: interval,
		now:      time.Now,
	}
}

// Submit emits immediately when the window allows, otherwise parks the emit
// closure as the pending trailing edge.
func (t *cursorThrottle) Submit(emit func()) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}

	now := t.now()
	elapsed := now.Sub(t.lastSent)
	if elapsed >= t.interval {
		t.lastSent = now
		t.pending = nil
		if t.timer != nil {
			t.timer.Stop()
			t.timer = nil
		}
		t.mu.Unlock()
		emit()
		return
	}

	if t.pending != nil {
		metrics.CursorUpdatesDeferred.Inc()
	}
	t.pending = emit
	if t.timer == nil {
		t.timer = time.AfterFunc(t.interval-elapsed, t.fire)
	}
	t.mu.Unlock()
}

// fire delivers the trailing edge of a burst.
func (t *cursorThrottle) fire() {
	t.mu.Lock()
	t.timer = nil
	if t.stopped || t.pending == nil {
		t.mu.Unlock()
		return
	}
	emit := t.pending
	t.pending = nil
	t.lastSent = t.now()
	t.mu.Unlock()
	emit()
}

// Stop discards any pending emit and prevents further ones. Called on
// disconnect so no timer outlives the session.
func (t *cursorThrottle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	t.pending = nil
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
