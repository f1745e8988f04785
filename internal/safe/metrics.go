package safe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// ExecutionsTotal counts wallet executions by result.
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_safe_executions_total",
		Help: "Total number of multisig wallet executions",
	}, []string{"result"})

	// GasUsed tracks gas consumed by confirmed executions.
	GasUsed = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_safe_gas_used",
		Help:    "Gas used by multisig wallet executions",
		Buckets: prometheus.ExponentialBuckets(50000, 1.5, 8),
	})
)
