package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the collaborative canvas platform.
//
// Naming convention: namespace_subsystem_name
// - namespace: collab_canvas (application-level grouping)
// - subsystem: websocket, room, snapshot, cursor (feature-level grouping)
// - name: specific metric (connections_active, events_total, etc.)
//
// Metric Types:
// - Gauge: Current state (connections, rooms, participants)
// - Counter: Cumulative events (messages processed, errors)
// - Histogram: Latency distributions (processing time)

var (
	// ActiveWebSocketConnections tracks the current number of active WebSocket connections
	ActiveWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "collab_canvas",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// ActiveRooms tracks the current number of active rooms
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "collab_canvas",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of active rooms",
	})

	// RoomParticipants tracks the number of participants in each room
	RoomParticipants = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "collab_canvas",
		Subsystem: "room",
		Name:      "participants_count",
		Help:      "Number of participants in each room",
	}, []string{"room_id"})

	// WebsocketEvents tracks the total number of WebSocket events processed
	WebsocketEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collab_canvas",
		Subsystem: "websocket",
		Name:      "events_total",
		Help:      "Total WebSocket events processed",
	}, []string{"event_type", "status"})

	// MessageProcessingDuration tracks the time spent processing WebSocket messages
	MessageProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "collab_canvas",
		Subsystem: "websocket",
		Name:      "message_processing_seconds",
		Help:      "Time spent processing WebSocket messages",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"event_type"})

	// CursorUpdatesDeferred counts cursor broadcasts held back by the throttle
	// and replaced by a newer position before the trailing emit fired.
	CursorUpdatesDeferred = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "collab_canvas",
		Subsystem: "cursor",
		Name:      "updates_deferred_total",
		Help:      "Cursor updates coalesced by the per-session throttle",
	})

	// SnapshotOperations tracks room snapshot reads and writes
	SnapshotOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collab_canvas",
		Subsystem: "snapshot",
		Name:      "operations_total",
		Help:      "Total room snapshot operations",
	}, []string{"operation", "status"})

	// SnapshotDuration tracks the duration of snapshot disk operations
	SnapshotDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "collab_canvas",
		Subsystem: "snapshot",
		Name:      "operation_duration_seconds",
		Help:      "Duration of room snapshot disk operations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	// RateLimitExceeded tracks the total number of requests that exceeded the rate limit
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collab_canvas",
		Subsystem: "rate_limit",
		Name:      "exceeded_total",
		Help:      "Total number of requests that exceeded the rate limit",
	}, []string{"endpoint", "reason"})
)

func IncConnection() {
	ActiveWebSocketConnections.Inc()
}

func DecConnection() {
	ActiveWebSocketConnections.Dec()
}
