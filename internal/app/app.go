package app

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-settle/internal/execution"
	"github.com/mselser95/polymarket-settle/internal/merge"
	"github.com/mselser95/polymarket-settle/internal/storage"
	"github.com/mselser95/polymarket-settle/pkg/cache"
	"github.com/mselser95/polymarket-settle/pkg/config"
	"github.com/mselser95/polymarket-settle/pkg/healthprobe"
	"github.com/mselser95/polymarket-settle/pkg/httpserver"
	"github.com/mselser95/polymarket-settle/pkg/wallet"
)

// ErrComponentDisabled is returned when a command uses a component that
// was not enabled in Options.
var ErrComponentDisabled = errors.New("component not enabled")

// App wires configuration into the settlement and execution components.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	chain         *ethclient.Client
	collectionIDs cache.Cache
	wallet        *wallet.Client
	storage       storage.Storage
	settler       *merge.Settler
	orderClient   *execution.OrderClient
	pairs         *execution.PairExecutor
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options selects which components New builds.
type Options struct {
	// Merge builds the merge settler. Needs POLYMARKET_PRIVATE_KEY and POLYMARKET_PROXY_ADDRESS.
	Merge bool
	// Pairs builds the CLOB order client and pair executor. Needs the CLOB API credentials.
	Pairs bool
	// HTTP builds the HTTP server exposing the enabled components.
	HTTP bool
}

// MergeMax runs one merge bounded by MERGE_RECEIPT_TIMEOUT.
func (a *App) MergeMax(ctx context.Context, conditionID common.Hash) (*merge.Result, error) {
	if a.settler == nil {
		return nil, ErrComponentDisabled
	}

	if a.cfg.MergeReceiptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.MergeReceiptTimeout)
		defer cancel()
	}

	result, err := a.settler.MergeMax(ctx, conditionID)
	if err != nil {
		return nil, err
	}

	_, balErr := a.CollateralBalance(ctx)
	if balErr != nil {
		a.logger.Warn("collateral-balance-read-failed",
			zap.String("condition-id", conditionID.Hex()),
			zap.Error(balErr))
	}

	return result, nil
}

// CollateralBalance reads the settlement wallet's USDC balance (6 decimals).
func (a *App) CollateralBalance(ctx context.Context) (*big.Int, error) {
	if a.wallet == nil {
		return nil, ErrComponentDisabled
	}
	return a.wallet.CollateralBalance(ctx, common.HexToAddress(a.cfg.ProxyAddress))
}

// PairExecutor returns the pair executor, nil unless Options.Pairs was set.
func (a *App) PairExecutor() *execution.PairExecutor {
	return a.pairs
}

// OrderClient returns the CLOB client, nil unless Options.Pairs was set.
func (a *App) OrderClient() *execution.OrderClient {
	return a.orderClient
}

// HealthChecker returns the probe state shared with the HTTP server.
func (a *App) HealthChecker() *healthprobe.HealthChecker {
	return a.healthChecker
}
