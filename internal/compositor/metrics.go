package compositor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesQueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compositor_frames_queued_total",
		Help: "Input frames queued per stream",
	}, []string{"session_id", "stream_id"})

	framesMatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compositor_frames_matched_total",
		Help: "Input frames consumed by a composable set per stream",
	}, []string{"session_id", "stream_id"})

	framesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compositor_frames_dropped_total",
		Help: "Input frames discarded without compositing",
	}, []string{"session_id", "stream_id", "reason"})

	framesCompositedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compositor_frames_composited_total",
		Help: "Composited output frames produced",
	}, []string{"session_id"})

	compositeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compositor_failures_total",
		Help: "Unrecoverable compositing failures",
	}, []string{"session_id"})

	blendDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "compositor_blend_duration_seconds",
		Help:    "Time spent blending one composable set",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
	})

	outputsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "compositor_outputs_in_flight",
		Help: "Composited frames delivered but not yet released downstream",
	})

	streamsRegistered = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "compositor_streams_registered",
		Help: "Registered input streams per session",
	}, []string{"session_id"})
)

// Drop reasons for framesDroppedTotal.
const (
	dropReasonLate     = "late"     // arrived behind the reference timestamp
	dropReasonNoMatch  = "no_match" // reference frame an ended peer cannot supply
	dropReasonFlushed  = "flushed"  // unmatched at end of session
	dropReasonReleased = "released" // buffered at compositor release
)
