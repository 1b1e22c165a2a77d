package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottleFirstEmitIsImmediate(t *testing.T) {
	th := newCursorThrottle(35 * time.Millisecond)

	var emitted int32
	th.Submit(func() { atomic.AddInt32(&emitted, 1) })

	assert.Equal(t, int32(1), atomic.LoadInt32(&emitted))
}

func TestThrottleCoalescesBurstToTrailingEdge(t *testing.T) {
	th := newCursorThrottle(30 * time.Millisecond)

	var mu sync.Mutex
	var values []int
	emit := func(v int) func() {
		return func() {
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
		}
	}

	th.Submit(emit(0)) // immediate
	th.Submit(emit(1)) // parked
	th.Submit(emit(2)) // overwrites pending
	th.Submit(emit(3)) // overwrites pending again

	mu.Lock()
	require.Equal(t, []int{0}, values, "burst inside the window must not emit yet")
	mu.Unlock()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(values) == 2
	}, time.Second, 2*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []int{0, 3}, values, "the trailing edge carries the newest value")
	mu.Unlock()
}

// Property: over a window of ~400ms the emission count stays near the rate
// ceiling while the last submitted value always arrives.
func TestThrottleRateCeiling(t *testing.T) {
	interval := 20 * time.Millisecond
	th := newCursorThrottle(interval)

	var emitted int32
	var lastValue int32
	deadline := time.Now().Add(400 * time.Millisecond)
	i := int32(0)
	for time.Now().Before(deadline) {
		i++
		v := i
		th.Submit(func() {
			atomic.AddInt32(&emitted, 1)
			atomic.StoreInt32(&lastValue, v)
		})
		time.Sleep(time.Millisecond)
	}
	final := i

	// Let the trailing edge land.
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&lastValue) == final
	}, time.Second, 2*time.Millisecond, "final position must be delivered")

	maxEmits := int32(400/20) + 2
	assert.LessOrEqual(t, atomic.LoadInt32(&emitted), maxEmits)
	assert.Greater(t, atomic.LoadInt32(&emitted), int32(1))
}

func TestThrottleStopDiscardsPending(t *testing.T) {
	th := newCursorThrottle(30 * time.Millisecond)

	var emitted int32
	th.Submit(func() { atomic.AddInt32(&emitted, 1) })
	th.Submit(func() { atomic.AddInt32(&emitted, 1) })
	th.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&emitted), "pending emit discarded on stop")

	th.Submit(func() { atomic.AddInt32(&emitted, 1) })
	assert.Equal(t, int32(1), atomic.LoadInt32(&emitted), "submits after stop are ignored")
}

func TestThrottleEmitsAgainAfterWindow(t *testing.T) {
	th := newCursorThrottle(10 * time.Millisecond)

	var emitted int32
	th.Submit(func() { atomic.AddInt32(&emitted, 1) })
	time.Sleep(15 * time.Millisecond)
	th.Submit(func() { atomic.AddInt32(&emitted, 1) })

	assert.Equal(t, int32(2), atomic.LoadInt32(&emitted), "a submit after the window emits immediately")
}
