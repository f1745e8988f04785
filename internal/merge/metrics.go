package merge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// AttemptsTotal counts merge attempts by path and result.
	AttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_merge_attempts_total",
		Help: "Total number of merge attempts",
	}, []string{"path", "result"})

	// MergedUnitsTotal sums merged amounts in 6-decimal token units.
	MergedUnitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_merge_merged_units_total",
		Help: "Total outcome-token units merged back into collateral",
	})

	// DurationSeconds tracks end-to-end merge latency.
	DurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polymarket_merge_duration_seconds",
		Help:    "Time from merge request to submission or confirmation",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"path"})
)
