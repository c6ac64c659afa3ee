package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nile_collector_events_total",
			Help: "Total number of candidate events received",
		},
		[]string{"event_type", "status"},
	)

	EventBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nile_collector_event_bytes_total",
			Help: "Total bytes of event data received",
		},
	)

	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nile_collector_validation_failures_total",
			Help: "Total number of events rejected by schema or UUID validation",
		},
		[]string{"event_type"},
	)

	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nile_collector_auth_failures_total",
			Help: "Total number of HEC authentication failures",
		},
		[]string{"reason"},
	)

	StorageDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nile_collector_storage_duration_seconds",
			Help:    "Duration of event batch writes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	StorageErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nile_collector_storage_errors_total",
			Help: "Total number of storage errors",
		},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nile_collector_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"token"},
	)

	TokenRotations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nile_collector_token_rotations_total",
			Help: "Total number of HEC token rotation attempts",
		},
		[]string{"status"},
	)
)
