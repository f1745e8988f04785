package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	orderconfig "github.com/polymarket/go-order-utils/pkg/config"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-settle/internal/ctf"
	"github.com/mselser95/polymarket-settle/internal/execution"
	"github.com/mselser95/polymarket-settle/internal/merge"
	"github.com/mselser95/polymarket-settle/internal/relayer"
	"github.com/mselser95/polymarket-settle/internal/safe"
	"github.com/mselser95/polymarket-settle/internal/storage"
	"github.com/mselser95/polymarket-settle/pkg/cache"
	"github.com/mselser95/polymarket-settle/pkg/config"
	"github.com/mselser95/polymarket-settle/pkg/healthprobe"
	"github.com/mselser95/polymarket-settle/pkg/httpserver"
	"github.com/mselser95/polymarket-settle/pkg/polyauth"
	"github.com/mselser95/polymarket-settle/pkg/types"
	"github.com/mselser95/polymarket-settle/pkg/wallet"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (_ *App, err error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthprobe.New(),
		ctx:           ctx,
		cancel:        cancel,
	}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.storage, err = setupStorage(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	if opts.Merge {
		err = a.setupMerge(ctx)
		if err != nil {
			return nil, fmt.Errorf("setup merge: %w", err)
		}
	}

	if opts.Pairs {
		err = a.setupPairs()
		if err != nil {
			return nil, fmt.Errorf("setup pairs: %w", err)
		}
	}

	a.setupHealthChecks()

	if opts.HTTP {
		a.httpServer = a.setupHTTPServer()
	}

	return a, nil
}

func setupStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	return storage.New(ctx, cfg.StorageMode, &storage.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		Database: cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		Logger:   logger,
	}, logger)
}

func setupCache(cfg *config.Config, logger *zap.Logger) (cache.Cache, error) {
	size := cfg.CollectionIDCacheSize
	if size <= 0 {
		return nil, nil
	}

	c, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: size * 10, // 10x expected max items
		MaxCost:     size,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (a *App) setupMerge(ctx context.Context) (err error) {
	if a.cfg.PrivateKey == "" {
		return errors.New("POLYMARKET_PRIVATE_KEY not set")
	}
	if !common.IsHexAddress(a.cfg.ProxyAddress) {
		return fmt.Errorf("POLYMARKET_PROXY_ADDRESS must be a wallet address, got %q", a.cfg.ProxyAddress)
	}

	ownerKey, err := polyauth.ParsePrivateKey(a.cfg.PrivateKey)
	if err != nil {
		return err
	}

	contracts, err := orderconfig.GetContracts(ctf.PolygonChainID)
	if err != nil {
		return fmt.Errorf("get contracts: %w", err)
	}

	a.chain, err = ethclient.DialContext(ctx, a.cfg.PolygonRPCURL)
	if err != nil {
		return fmt.Errorf("dial RPC: %w", err)
	}

	a.collectionIDs, err = setupCache(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("setup cache: %w", err)
	}

	a.wallet, err = wallet.NewClient(&wallet.Config{
		Caller:            a.chain,
		Collateral:        contracts.Collateral,
		ConditionalTokens: contracts.Conditional,
		Cache:             a.collectionIDs,
		Logger:            a.logger,
	})
	if err != nil {
		return fmt.Errorf("create wallet client: %w", err)
	}

	walletAddr := common.HexToAddress(a.cfg.ProxyAddress)

	multisig, err := safe.New(&safe.Config{
		Address:  walletAddr,
		OwnerKey: ownerKey,
		ChainID:  big.NewInt(ctf.PolygonChainID),
		Backend:  a.chain,
		Logger:   a.logger,
	})
	if err != nil {
		return fmt.Errorf("create multisig wallet: %w", err)
	}

	relay, err := relayer.NewClient(&relayer.Config{
		BaseURL: a.cfg.RelayerURL,
		Logger:  a.logger,
	})
	if err != nil {
		return fmt.Errorf("create relayer client: %w", err)
	}

	a.settler, err = merge.NewSettler(&merge.Config{
		Wallet:            walletAddr,
		OwnerKey:          ownerKey,
		Collateral:        contracts.Collateral,
		ConditionalTokens: contracts.Conditional,
		GasLimit:          a.cfg.MergeProxyGasLimit,
		TryAnyway:         a.cfg.MergeTryAnyway,
		Credentials: polyauth.Credentials{
			Key:        a.cfg.BuilderAPIKey,
			Secret:     a.cfg.BuilderSecret,
			Passphrase: a.cfg.BuilderPassphrase,
		},
		Chain:    a.wallet,
		Multisig: multisig,
		Relayer:  relay,
		Recorder: a.storage,
		Logger:   a.logger,
	})
	if err != nil {
		return fmt.Errorf("create settler: %w", err)
	}

	if !a.cfg.HasBuilderCredentials() {
		a.logger.Warn("builder-credentials-missing",
			zap.String("note", "forwarding-proxy merges will fail until POLY_BUILDER_* is set"))
	}

	a.logger.Info("merge-settler-ready",
		zap.String("wallet", walletAddr.Hex()),
		zap.String("owner", polyauth.AddressOf(ownerKey).Hex()),
		zap.String("rpc-url", a.cfg.PolygonRPCURL))

	return nil
}

func (a *App) setupPairs() (err error) {
	if a.cfg.PrivateKey == "" {
		return errors.New("POLYMARKET_PRIVATE_KEY not set")
	}
	if !a.cfg.HasCLOBCredentials() {
		return errors.New("POLYMARKET_API_KEY, POLYMARKET_SECRET and POLYMARKET_PASSPHRASE must all be set")
	}

	a.orderClient, err = NewOrderClient(a.cfg, a.logger)
	if err != nil {
		return err
	}

	a.pairs, err = execution.NewPairExecutor(&execution.PairConfig{
		MaxOrderSize: decimal.NewFromFloat(a.cfg.ExecutionMaxOrderSize),
		Slippage: execution.SlippagePolicy{
			First:  decimal.NewFromFloat(a.cfg.ExecutionSlippageFirst),
			Second: decimal.NewFromFloat(a.cfg.ExecutionSlippageSecond),
		},
		OrderType:     types.OrderType(a.cfg.ExecutionOrderType),
		GTDExpiration: a.cfg.ExecutionGTDExpiration,
		Venue:         a.orderClient,
		Recorder:      a.storage,
		Logger:        a.logger,
	})
	if err != nil {
		return fmt.Errorf("create pair executor: %w", err)
	}

	a.logger.Info("pair-executor-ready",
		zap.String("signer", a.orderClient.Signer().Hex()),
		zap.String("maker", a.orderClient.Maker().Hex()),
		zap.String("order-type", a.cfg.ExecutionOrderType),
		zap.Float64("max-order-size", a.cfg.ExecutionMaxOrderSize))

	return nil
}

// NewOrderClient builds a CLOB client from the wallet and CLOB settings.
func NewOrderClient(cfg *config.Config, logger *zap.Logger) (*execution.OrderClient, error) {
	client, err := execution.NewOrderClient(&execution.OrderClientConfig{
		BaseURL: cfg.PolymarketCLOBURL,
		Credentials: polyauth.Credentials{
			Key:        cfg.PolymarketAPIKey,
			Secret:     cfg.PolymarketSecret,
			Passphrase: cfg.PolymarketPassphrase,
		},
		PrivateKey:    cfg.PrivateKey,
		ProxyAddress:  cfg.ProxyAddress,
		SignatureType: cfg.SignatureType,
		ChainID:       ctf.PolygonChainID,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create order client: %w", err)
	}
	return client, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (a *App) setupHealthChecks() {
	if a.chain != nil {
		chain := a.chain
		a.healthChecker.AddCheck("rpc", func(ctx context.Context) error {
			_, err := chain.BlockNumber(ctx)
			return err
		})
	}

	if p, ok := a.storage.(pinger); ok {
		a.healthChecker.AddCheck("storage", p.Ping)
	}
}

func (a *App) setupHTTPServer() *httpserver.Server {
	cfg := &httpserver.Config{
		Port:          a.cfg.HTTPPort,
		Logger:        a.logger,
		HealthChecker: a.healthChecker,
	}
	if a.settler != nil {
		cfg.Merger = a
	}
	if a.pairs != nil {
		cfg.PairExecutor = a.pairs
	}

	return httpserver.New(cfg)
}
