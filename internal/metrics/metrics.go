// Package metrics provides Prometheus metrics for the refresh pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PhaseDuration measures how long each refresh phase takes.
	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pharmawatch",
			Name:      "phase_duration_seconds",
			Help:      "Duration of refresh phases in seconds",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"phase", "status"},
	)

	// DroppedTotal counts rows and letters skipped during ingestion.
	DroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pharmawatch",
			Name:      "dropped_items_total",
			Help:      "Total number of rows or letters dropped during ingestion",
		},
		[]string{"source", "reason"},
	)

	// FetchInFlight tracks concurrently outstanding detail fetches.
	FetchInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pharmawatch",
			Name:      "fetch_in_flight",
			Help:      "Number of detail fetches currently in flight",
		},
	)

	// CollectionSize reports the size of each cached collection.
	CollectionSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "pharmawatch",
			Name:      "collection_size",
			Help:      "Number of entries in each cached collection",
		},
		[]string{"collection"},
	)

	// SchedulerRetries counts cycles restarted after a failed feed phase.
	SchedulerRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pharmawatch",
			Name:      "scheduler_retries_total",
			Help:      "Total number of refresh cycles restarted after a failure",
		},
	)
)

// RecordPhase records a finished refresh phase.
func RecordPhase(phase, status string, seconds float64) {
	PhaseDuration.WithLabelValues(phase, status).Observe(seconds)
}

// RecordDropped records an item dropped by a source.
func RecordDropped(source, reason string) {
	DroppedTotal.WithLabelValues(source, reason).Inc()
}

// SetCollectionSize updates a collection size gauge.
func SetCollectionSize(collection string, size int) {
	CollectionSize.WithLabelValues(collection).Set(float64(size))
}
