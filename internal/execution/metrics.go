package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// PairsTotal tracks pair executions by outcome.
	PairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_execution_pairs_total",
			Help: "Total number of order-pair executions by outcome",
		},
		[]string{"outcome"},
	)

	// LegsFilledTotal tracks legs that filled a nonzero amount.
	LegsFilledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_execution_legs_filled_total",
			Help: "Total number of order legs that filled",
		},
		[]string{"side"},
	)

	// StageDurationSeconds tracks build, sign and post latency.
	StageDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polymarket_execution_stage_duration_seconds",
			Help:    "Duration of each order-pair execution stage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// ExecutionDurationSeconds tracks end-to-end pair latency.
	ExecutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_execution_duration_seconds",
		Help:    "Duration of order-pair execution",
		Buckets: prometheus.DefBuckets,
	})

	// CLOBRequestsTotal tracks order book API calls by endpoint and result.
	CLOBRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_execution_clob_requests_total",
			Help: "Total number of CLOB API requests",
		},
		[]string{"endpoint", "result"},
	)

	// CLOBRequestDurationSeconds tracks order book API latency.
	CLOBRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polymarket_execution_clob_request_duration_seconds",
			Help:    "Duration of CLOB API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)
