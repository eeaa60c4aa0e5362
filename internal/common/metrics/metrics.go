// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ApplicationsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generator_applications_total",
			Help: "Total number of loan applications generated, by profile branch",
		},
		[]string{"branch"},
	)

	PublishOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generator_publish_outcomes_total",
			Help: "Publish outcomes observed at insert time",
		},
		[]string{"status"},
	)

	DeliveryResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generator_delivery_results_total",
			Help: "Asynchronous delivery acknowledgments surfaced by pump",
		},
		[]string{"result"},
	)

	FlushTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "generator_flush_timeouts_total",
			Help: "Number of flush calls that timed out with outstanding messages",
		},
	)

	InsertDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "generator_insert_duration_seconds",
			Help: "Duration of local store inserts in seconds",
		},
	)
)
