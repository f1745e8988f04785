package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// OpportunitiesReceivedTotal tracks opportunities handed to the engine by source.
	OpportunitiesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_arb_opportunities_received_total",
			Help: "Total number of arbitrage opportunities received",
		},
		[]string{"source"},
	)

	// OpportunitiesRejectedTotal tracks rejected opportunities by reason.
	OpportunitiesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polymarket_arb_opportunities_rejected_total",
			Help: "Total number of arbitrage opportunities rejected",
		},
		[]string{"reason"},
	)

	// OpportunityProfitBPS tracks profit margins in basis points.
	OpportunityProfitBPS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polymarket_arb_opportunity_profit_bps",
		Help:    "Arbitrage opportunity profit margin in basis points",
		Buckets: []float64{-500, -100, 0, 10, 25, 50, 100, 200, 500, 1000},
	})
)
