// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveRooms is the number of labs with at least one open socket.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "canvaslab_active_rooms",
		Help: "Number of labs with at least one connected session.",
	})

	// ActiveSessions is the number of open WebSocket sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "canvaslab_active_sessions",
		Help: "Number of connected WebSocket sessions.",
	})

	// BroadcastFrames counts frames fanned out to room members, by event type.
	BroadcastFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvaslab_broadcast_frames_total",
		Help: "Frames relayed to room members.",
	}, []string{"type"})

	// DroppedFrames counts inbound frames dropped as malformed or unknown.
	DroppedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvaslab_dropped_frames_total",
		Help: "Inbound frames dropped silently (malformed or unknown type).",
	})

	// PersistedCommits counts shape commits written to the commit log.
	PersistedCommits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvaslab_persisted_commits_total",
		Help: "Shape commits persisted by the worker pool.",
	})
)
