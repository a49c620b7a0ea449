package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Document store metrics
var (
	// StoreOperations counts store calls by backend, operation, collection and outcome
	StoreOperations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of document store operations",
		},
		[]string{"backend", "op", "collection", "outcome"}, // outcome: ok|conflict|unavailable|error
	)

	// StoreOperationDuration records store call latency including retries
	StoreOperationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Document store operation duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"backend", "op"},
	)

	// StoreRetries counts retried attempts after temporary failures
	StoreRetries = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_retries_total",
			Help:      "Total number of retried document store attempts",
		},
		[]string{"backend", "op"},
	)
)

// Enrollment metrics
var (
	// EnrollmentResults counts enroll/unenroll calls by result
	EnrollmentResults = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollment_results_total",
			Help:      "Total number of enrollment operations by action and result",
		},
		[]string{"action", "result"}, // action: enroll|unenroll
	)

	// EnrollmentCASConflicts counts compare-and-swap retries on enrollment lists
	EnrollmentCASConflicts = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollment_cas_conflicts_total",
			Help:      "Total number of conditional write conflicts while updating enrollment lists",
		},
		[]string{"side"}, // side: user|event
	)

	// ReconcileRepairs counts links repaired by the reconciliation sweep
	ReconcileRepairs = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_repairs_total",
			Help:      "Total number of enrollment links repaired by reconciliation",
		},
		[]string{"kind"}, // kind: roster_added|roster_removed|dangling_event|dangling_user
	)

	// ReconcileRuns counts reconciliation sweeps by outcome
	ReconcileRuns = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_runs_total",
			Help:      "Total number of reconciliation sweeps",
		},
		[]string{"outcome"}, // outcome: success|error
	)
)
