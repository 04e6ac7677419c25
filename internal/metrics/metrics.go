// Package metrics instruments the fabric with Prometheus counters and
// histograms. This is ambient observability only — no spec.md operation
// depends on a metric being recorded. Grounded on
// SAGE-X-project-sage/internal/metrics, the only subtree in the example
// corpus that wires prometheus/client_golang end to end (a dedicated
// registry plus promauto-registered vectors).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fabric"

// Registry is a dedicated registry rather than the global default, so that
// agents embedding this library don't collide with metrics already
// registered by their own process.
var Registry = prometheus.NewRegistry()

var (
	MessagesSent = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "send",
			Name:      "messages_total",
			Help:      "Messages handed to the Send Pipeline, by method and outcome.",
		},
		[]string{"method", "outcome"}, // targeted|broadcast, ok|error
	)

	MessagesDispatched = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "messages_total",
			Help:      "Envelopes dispatched to subscription handlers, by verification state.",
		},
		[]string{"verified"},
	)

	AnchorConfirmAttempts = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "anchor",
			Name:      "confirm_attempts",
			Help:      "Number of confirmation attempts made before an anchor was confirmed or abandoned.",
			Buckets:   prometheus.LinearBuckets(1, 1, 6),
		},
	)

	VerificationDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "verify",
			Name:      "duration_seconds",
			Help:      "Wall-clock time spent correlating and confirming one anchor.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	StoreSize = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "entries",
			Help:      "Current number of unverified entries in the Message Store.",
		},
	)

	IntegrityErrors = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verify",
			Name:      "integrity_errors_total",
			Help:      "Anchors whose hash did not match the correlated off-bus payload.",
		},
	)
)
