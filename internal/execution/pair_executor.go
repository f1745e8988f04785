package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/polymarket/go-order-utils/pkg/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mselser95/polymarket-settle/internal/arbitrage"
	"github.com/mselser95/polymarket-settle/pkg/types"
)

// minNotional is the venue floor for price*size of a single order, in USDC.
var minNotional = decimal.NewFromInt(1) //nolint:gochecknoglobals // constant decimal

// Venue builds, signs and submits orders. *OrderClient implements it.
type Venue interface {
	BuildOrder(intent OrderIntent) (*model.OrderData, error)
	SignOrder(data *model.OrderData, negRisk bool) (*model.SignedOrder, error)
	PostOrders(ctx context.Context, orders []PostOrder) (types.BatchOrderResponse, error)
}

// Recorder persists executed pairs.
type Recorder interface {
	StorePair(ctx context.Context, result *PairResult) error
}

// PairResult is the outcome of a pair that filled at least one leg.
type PairResult struct {
	PairID        string
	OpportunityID string
	MarketID      string
	MarketSlug    string
	YesTokenID    string
	NoTokenID     string
	YesOrderID    string
	NoOrderID     string
	YesPrice      decimal.Decimal
	NoPrice       decimal.Decimal
	YesSize       decimal.Decimal
	NoSize        decimal.Decimal
	YesFilled     decimal.Decimal
	NoFilled      decimal.Decimal
	OrderType     types.OrderType
	Outcome       FillOutcome
	Success       bool
	ExecutedAt    time.Time
}

// PairConfig holds pair executor configuration.
type PairConfig struct {
	MaxOrderSize  decimal.Decimal
	Slippage      SlippagePolicy
	OrderType     types.OrderType
	GTDExpiration time.Duration
	Venue         Venue
	Recorder      Recorder // optional
	Logger        *zap.Logger
}

// PairExecutor places a YES/NO pair of buy orders in one batch and reconciles the fills.
type PairExecutor struct {
	maxOrderSize  decimal.Decimal
	slippage      SlippagePolicy
	orderType     types.OrderType
	gtdExpiration time.Duration
	venue         Venue
	recorder      Recorder
	now           func() time.Time
	logger        *zap.Logger
}

// NewPairExecutor creates a pair executor.
func NewPairExecutor(cfg *PairConfig) (*PairExecutor, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.Venue == nil {
		return nil, errors.New("venue is required")
	}
	if !cfg.MaxOrderSize.IsPositive() {
		return nil, fmt.Errorf("max order size must be positive, got %s", cfg.MaxOrderSize)
	}
	if cfg.Slippage.First.IsNegative() || cfg.Slippage.Second.IsNegative() {
		return nil, errors.New("slippage must not be negative")
	}

	orderType := cfg.OrderType
	if orderType == "" {
		orderType = types.OrderTypeGTC
	}
	if !orderType.Valid() {
		return nil, fmt.Errorf("unknown order type %q", orderType)
	}
	if orderType == types.OrderTypeGTD && cfg.GTDExpiration <= 0 {
		return nil, errors.New("GTD orders require a positive expiration")
	}

	return &PairExecutor{
		maxOrderSize:  cfg.MaxOrderSize,
		slippage:      cfg.Slippage,
		orderType:     orderType,
		gtdExpiration: cfg.GTDExpiration,
		venue:         cfg.Venue,
		recorder:      cfg.Recorder,
		now:           time.Now,
		logger:        cfg.Logger,
	}, nil
}

// ExecutePair buys both sides of opp. A partial fill is returned as a result, not an error;
// unwinding the filled leg is up to the caller.
func (e *PairExecutor) ExecutePair(ctx context.Context, opp *arbitrage.Opportunity, yesDir, noDir Direction) (*PairResult, error) {
	start := time.Now()
	defer func() {
		ExecutionDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	size := decimal.Min(opp.YesAskSize, opp.NoAskSize, e.maxOrderSize)
	yesPrice := e.slippage.AdjustPrice(opp.YesAskPrice, yesDir)
	noPrice := e.slippage.AdjustPrice(opp.NoAskPrice, noDir)

	e.logger.Info("pair-orders-priced",
		zap.String("opportunity-id", opp.ID),
		zap.String("market-slug", opp.MarketSlug),
		zap.String("size", size.String()),
		zap.String("yes-ask", opp.YesAskPrice.String()),
		zap.String("yes-price", yesPrice.String()),
		zap.String("yes-direction", string(yesDir)),
		zap.String("no-ask", opp.NoAskPrice.String()),
		zap.String("no-price", noPrice.String()),
		zap.String("no-direction", string(noDir)))

	if err := checkNotional(yesPrice, noPrice, size); err != nil {
		PairsTotal.WithLabelValues("rejected").Inc()
		e.logger.Warn("pair-below-minimum-notional",
			zap.String("opportunity-id", opp.ID),
			zap.Error(err))
		return nil, err
	}

	var expiration *time.Time
	if e.orderType == types.OrderTypeGTD {
		exp := e.now().Add(e.gtdExpiration)
		expiration = &exp
	}

	yesIntent := OrderIntent{
		TokenID:    opp.YesTokenID,
		Side:       model.BUY,
		Price:      yesPrice,
		Size:       size,
		OrderType:  e.orderType,
		Expiration: expiration,
		NegRisk:    opp.NegRisk,
	}
	noIntent := yesIntent
	noIntent.TokenID = opp.NoTokenID
	noIntent.Price = noPrice

	yesSigned, noSigned, err := e.buildAndSign(yesIntent, noIntent)
	if err != nil {
		PairsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	yesResp, noResp, err := e.post(ctx, yesSigned, noSigned, yesPrice.GreaterThanOrEqual(noPrice))
	if err != nil {
		PairsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	result, err := e.reconcile(opp, yesResp, noResp)
	if err != nil {
		return nil, err
	}

	result.OrderType = e.orderType
	result.YesPrice = yesPrice
	result.NoPrice = noPrice
	result.YesSize = size
	result.NoSize = size

	if e.recorder != nil {
		if storeErr := e.recorder.StorePair(ctx, result); storeErr != nil {
			e.logger.Error("pair-store-failed",
				zap.String("pair-id", result.PairID),
				zap.Error(storeErr))
		}
	}

	return result, nil
}

func checkNotional(yesPrice, noPrice, size decimal.Decimal) error {
	yesNotional := yesPrice.Mul(size)
	noNotional := noPrice.Mul(size)

	if !yesNotional.GreaterThan(minNotional) || !noNotional.GreaterThan(minNotional) {
		return fmt.Errorf("%w: YES=%s NO=%s (must exceed %s)",
			ErrMinimumNotional, yesNotional, noNotional, minNotional)
	}
	return nil
}

// buildAndSign builds both orders concurrently, then signs both concurrently.
// Either branch failing fails the step.
func (e *PairExecutor) buildAndSign(yesIntent, noIntent OrderIntent) (*model.SignedOrder, *model.SignedOrder, error) {
	var yesData, noData *model.OrderData

	buildStart := time.Now()
	var build errgroup.Group
	build.Go(func() error {
		data, err := e.venue.BuildOrder(yesIntent)
		if err != nil {
			return fmt.Errorf("build YES order: %w", err)
		}
		yesData = data
		return nil
	})
	build.Go(func() error {
		data, err := e.venue.BuildOrder(noIntent)
		if err != nil {
			return fmt.Errorf("build NO order: %w", err)
		}
		noData = data
		return nil
	})
	if err := build.Wait(); err != nil {
		return nil, nil, err
	}
	StageDurationSeconds.WithLabelValues("build").Observe(time.Since(buildStart).Seconds())

	var yesSigned, noSigned *model.SignedOrder

	signStart := time.Now()
	var sign errgroup.Group
	sign.Go(func() error {
		signed, err := e.venue.SignOrder(yesData, yesIntent.NegRisk)
		if err != nil {
			return fmt.Errorf("sign YES order: %w", err)
		}
		yesSigned = signed
		return nil
	})
	sign.Go(func() error {
		signed, err := e.venue.SignOrder(noData, noIntent.NegRisk)
		if err != nil {
			return fmt.Errorf("sign NO order: %w", err)
		}
		noSigned = signed
		return nil
	})
	if err := sign.Wait(); err != nil {
		return nil, nil, err
	}
	StageDurationSeconds.WithLabelValues("sign").Observe(time.Since(signStart).Seconds())

	return yesSigned, noSigned, nil
}

// post submits both orders, higher price first, and returns responses as (YES, NO).
func (e *PairExecutor) post(
	ctx context.Context,
	yesSigned, noSigned *model.SignedOrder,
	yesFirst bool,
) (*types.OrderSubmissionResponse, *types.OrderSubmissionResponse, error) {
	yesOrder := PostOrder{Order: yesSigned, OrderType: e.orderType}
	noOrder := PostOrder{Order: noSigned, OrderType: e.orderType}

	batch := []PostOrder{yesOrder, noOrder}
	if !yesFirst {
		batch = []PostOrder{noOrder, yesOrder}
	}

	postStart := time.Now()
	resp, err := e.venue.PostOrders(ctx, batch)
	if err != nil {
		return nil, nil, fmt.Errorf("post order batch: %w", err)
	}
	StageDurationSeconds.WithLabelValues("post").Observe(time.Since(postStart).Seconds())

	if len(resp) != len(batch) {
		return nil, nil, fmt.Errorf("%w: got %d results, want %d", ErrBatchShape, len(resp), len(batch))
	}

	if yesFirst {
		return &resp[0], &resp[1], nil
	}
	return &resp[1], &resp[0], nil
}

func (e *PairExecutor) reconcile(
	opp *arbitrage.Opportunity,
	yesResp, noResp *types.OrderSubmissionResponse,
) (*PairResult, error) {
	yesFilled := e.legFilled("YES", opp, yesResp)
	noFilled := e.legFilled("NO", opp, noResp)

	outcome, ok := classifyFills(yesFilled, noFilled)
	if !ok {
		PairsTotal.WithLabelValues("fill_failure").Inc()
		failure := &FillFailureError{
			YesReason: simplifyReason(yesResp.ErrorMsg),
			NoReason:  simplifyReason(noResp.ErrorMsg),
		}
		e.logger.Error("pair-fill-failed",
			zap.String("opportunity-id", opp.ID),
			zap.String("yes-reason", failure.YesReason),
			zap.String("no-reason", failure.NoReason))
		return nil, failure
	}

	result := &PairResult{
		PairID:        uuid.New().String(),
		OpportunityID: opp.ID,
		MarketID:      opp.MarketID,
		MarketSlug:    opp.MarketSlug,
		YesTokenID:    opp.YesTokenID,
		NoTokenID:     opp.NoTokenID,
		YesOrderID:    yesResp.OrderID,
		NoOrderID:     noResp.OrderID,
		YesFilled:     yesFilled,
		NoFilled:      noFilled,
		Outcome:       outcome,
		Success:       true,
		ExecutedAt:    e.now(),
	}

	PairsTotal.WithLabelValues(string(outcome)).Inc()
	if yesFilled.IsPositive() {
		LegsFilledTotal.WithLabelValues("yes").Inc()
	}
	if noFilled.IsPositive() {
		LegsFilledTotal.WithLabelValues("no").Inc()
	}

	if outcome == OutcomePartialFill {
		e.logger.Warn("pair-partial-fill",
			zap.String("pair-id", result.PairID),
			zap.String("market-slug", opp.MarketSlug),
			zap.String("yes-filled", yesFilled.String()),
			zap.String("no-filled", noFilled.String()))
	} else {
		e.logger.Info("pair-filled",
			zap.String("pair-id", result.PairID),
			zap.String("market-slug", opp.MarketSlug),
			zap.String("yes-order-id", result.YesOrderID),
			zap.String("no-order-id", result.NoOrderID),
			zap.String("yes-filled", yesFilled.String()),
			zap.String("no-filled", noFilled.String()))
	}

	return result, nil
}

func (e *PairExecutor) legFilled(side string, opp *arbitrage.Opportunity, resp *types.OrderSubmissionResponse) decimal.Decimal {
	if orderErr := types.OrderErrorFromResponse(side, resp); orderErr != nil {
		e.logger.Warn("leg-not-accepted",
			zap.String("opportunity-id", opp.ID),
			zap.String("side", side),
			zap.String("code", orderErr.Code),
			zap.Error(orderErr))
	}

	filled, ok := filledAmount(resp)
	if !ok {
		e.logger.Warn("leg-filled-amount-unparsable",
			zap.String("side", side),
			zap.String("taking-amount", resp.TakingAmount))
	}
	return filled
}
