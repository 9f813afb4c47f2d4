package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session lifecycle metrics
	sessionsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blend_sessions_started_total",
		Help: "Compositing sessions started",
	})

	sessionsFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blend_sessions_finished_total",
		Help: "Compositing sessions finished, by outcome",
	}, []string{"outcome"})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blend_sessions_active",
		Help: "Compositing sessions currently running",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "blend_session_duration_seconds",
		Help:    "Wall-clock duration of finished sessions",
		Buckets: prometheus.ExponentialBuckets(0.1, 4, 10), // 100ms to ~26ks
	})

	// Texture pool metrics
	poolTexturesIdle = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "blend_pool_textures_idle",
		Help: "Idle textures in a pool",
	}, []string{"pool"})

	poolTexturesAllocated = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "blend_pool_textures_allocated_total",
		Help: "Textures ever allocated by a pool",
	}, []string{"pool"})

	poolTexturesReused = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "blend_pool_textures_reused_total",
		Help: "Texture reuses served by a pool",
	}, []string{"pool"})
)

// Session outcomes.
const (
	OutcomeEnded    = "ended"
	OutcomeFailed   = "failed"
	OutcomeReleased = "released"
)

// SessionStarted records a new compositing session.
func SessionStarted() {
	sessionsStartedTotal.Inc()
	sessionsActive.Inc()
}

// SessionFinished records a session reaching terminal state.
func SessionFinished(outcome string, durationSeconds float64) {
	sessionsFinishedTotal.WithLabelValues(outcome).Inc()
	sessionsActive.Dec()
	sessionDuration.Observe(durationSeconds)
}

// RecordPoolStats publishes a texture pool snapshot.
func RecordPoolStats(pool string, idle int, allocated, reused int64) {
	poolTexturesIdle.WithLabelValues(pool).Set(float64(idle))
	poolTexturesAllocated.WithLabelValues(pool).Set(float64(allocated))
	poolTexturesReused.WithLabelValues(pool).Set(float64(reused))
}
