package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// USDCBalance tracks the last collateral balance read.
	USDCBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polymarket_wallet_usdc_balance",
		Help: "Last read USDC balance of the settlement wallet (USD)",
	})

	// RPCCallsTotal counts chain reads by method and result.
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_wallet_rpc_calls_total",
		Help: "Total number of chain reads",
	}, []string{"method", "result"})
)
