// Package metrics exposes Prometheus instrumentation for the split
// lifecycle. Collectors are registered on the default registry and served
// by the router's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Operations counts lifecycle operations by name and outcome
	// (ok, invalid, conflict, rate_limited, forbidden, not_found, error).
	Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "foodhunt",
		Subsystem: "splits",
		Name:      "operations_total",
		Help:      "Split lifecycle operations by outcome.",
	}, []string{"op", "outcome"})

	// SweptSplits counts splits closed by the expiry sweeper.
	SweptSplits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "foodhunt",
		Subsystem: "splits",
		Name:      "swept_total",
		Help:      "Open splits closed because their time passed.",
	})

	// OperationDuration observes wall time per lifecycle operation.
	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "foodhunt",
		Subsystem: "splits",
		Name:      "operation_duration_seconds",
		Help:      "Duration of split lifecycle operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})
)
