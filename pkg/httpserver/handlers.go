package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-settle/internal/arbitrage"
	"github.com/mselser95/polymarket-settle/internal/ctf"
	"github.com/mselser95/polymarket-settle/internal/execution"
	"github.com/mselser95/polymarket-settle/internal/merge"
)

// maxBodyBytes caps request bodies on the /api routes.
const maxBodyBytes = 64 << 10

// Merger merges a condition's full YES/NO pairs back into collateral.
type Merger interface {
	MergeMax(ctx context.Context, conditionID common.Hash) (*merge.Result, error)
}

// PairExecutor places a YES/NO buy batch for an opportunity.
type PairExecutor interface {
	ExecutePair(ctx context.Context, opp *arbitrage.Opportunity, yesDir, noDir execution.Direction) (*execution.PairResult, error)
}

type handlers struct {
	merger Merger
	pairs  PairExecutor
	logger *zap.Logger
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	YesReason string `json:"yes_reason,omitempty"`
	NoReason  string `json:"no_reason,omitempty"`
}

// MergeRequest is the body of POST /api/merge.
type MergeRequest struct {
	ConditionID string `json:"condition_id"`
}

// MergeResponse reports a submitted merge. Amounts are raw 6-decimal units.
type MergeResponse struct {
	ConditionID string `json:"condition_id"`
	Wallet      string `json:"wallet"`
	Path        string `json:"path"`
	Amount      string `json:"amount"`
	YesBalance  string `json:"yes_balance"`
	NoBalance   string `json:"no_balance"`
	TxHash      string `json:"tx_hash"`
}

// PairRequest is the body of POST /api/pairs.
type PairRequest struct {
	MarketID     string          `json:"market_id"`
	MarketSlug   string          `json:"market_slug"`
	YesTokenID   string          `json:"yes_token_id"`
	NoTokenID    string          `json:"no_token_id"`
	YesAskPrice  decimal.Decimal `json:"yes_ask_price"`
	YesAskSize   decimal.Decimal `json:"yes_ask_size"`
	NoAskPrice   decimal.Decimal `json:"no_ask_price"`
	NoAskSize    decimal.Decimal `json:"no_ask_size"`
	NegRisk      bool            `json:"neg_risk"`
	YesDirection string          `json:"yes_direction"`
	NoDirection  string          `json:"no_direction"`
}

// PairResponse reports the reconciled fills of one order pair.
type PairResponse struct {
	PairID        string          `json:"pair_id"`
	OpportunityID string          `json:"opportunity_id"`
	YesOrderID    string          `json:"yes_order_id"`
	NoOrderID     string          `json:"no_order_id"`
	YesPrice      decimal.Decimal `json:"yes_price"`
	NoPrice       decimal.Decimal `json:"no_price"`
	Size          decimal.Decimal `json:"size"`
	YesFilled     decimal.Decimal `json:"yes_filled"`
	NoFilled      decimal.Decimal `json:"no_filled"`
	OrderType     string          `json:"order_type"`
	Outcome       string          `json:"outcome"`
}

// handleMerge handles POST /api/merge.
func (h *handlers) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, ErrorResponse{Error: err.Error()}, http.StatusBadRequest)
		return
	}

	conditionID, err := ctf.ParseConditionID(req.ConditionID)
	if err != nil {
		h.writeError(w, ErrorResponse{Error: "condition_id must be a 32-byte hex string"}, http.StatusBadRequest)
		return
	}

	h.logger.Info("merge-request-received", zap.String("condition-id", conditionID.Hex()))

	result, err := h.merger.MergeMax(r.Context(), conditionID)
	if err != nil {
		h.logger.Warn("merge-request-failed",
			zap.String("condition-id", conditionID.Hex()),
			zap.Error(err))
		h.writeError(w, ErrorResponse{Error: err.Error()}, mergeStatus(err))
		return
	}

	h.writeJSON(w, http.StatusOK, MergeResponse{
		ConditionID: result.ConditionID.Hex(),
		Wallet:      result.Wallet.Hex(),
		Path:        result.Path.String(),
		Amount:      result.Amount.String(),
		YesBalance:  result.YesBalance.String(),
		NoBalance:   result.NoBalance.String(),
		TxHash:      result.TxHash,
	})
}

// handlePair handles POST /api/pairs.
func (h *handlers) handlePair(w http.ResponseWriter, r *http.Request) {
	var req PairRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, ErrorResponse{Error: err.Error()}, http.StatusBadRequest)
		return
	}

	opp := arbitrage.NewOpportunity(arbitrage.Params{
		MarketID:    req.MarketID,
		MarketSlug:  req.MarketSlug,
		YesTokenID:  req.YesTokenID,
		NoTokenID:   req.NoTokenID,
		YesAskPrice: req.YesAskPrice,
		YesAskSize:  req.YesAskSize,
		NoAskPrice:  req.NoAskPrice,
		NoAskSize:   req.NoAskSize,
		NegRisk:     req.NegRisk,
	})

	if err := arbitrage.Admit(opp, "http"); err != nil {
		h.writeError(w, ErrorResponse{Error: err.Error()}, http.StatusUnprocessableEntity)
		return
	}

	h.logger.Info("pair-request-received",
		zap.String("opportunity-id", opp.ID),
		zap.String("market-slug", opp.MarketSlug),
		zap.String("price-sum", opp.PriceSum().String()))

	result, err := h.pairs.ExecutePair(r.Context(), opp,
		execution.ParseDirection(req.YesDirection),
		execution.ParseDirection(req.NoDirection))
	if err != nil {
		h.logger.Warn("pair-request-failed",
			zap.String("opportunity-id", opp.ID),
			zap.Error(err))

		var fillErr *execution.FillFailureError
		switch {
		case errors.As(err, &fillErr):
			h.writeError(w, ErrorResponse{
				Error:     err.Error(),
				YesReason: fillErr.YesReason,
				NoReason:  fillErr.NoReason,
			}, http.StatusConflict)
		case errors.Is(err, execution.ErrMinimumNotional):
			h.writeError(w, ErrorResponse{Error: err.Error()}, http.StatusUnprocessableEntity)
		default:
			h.writeError(w, ErrorResponse{Error: err.Error()}, http.StatusBadGateway)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, PairResponse{
		PairID:        result.PairID,
		OpportunityID: result.OpportunityID,
		YesOrderID:    result.YesOrderID,
		NoOrderID:     result.NoOrderID,
		YesPrice:      result.YesPrice,
		NoPrice:       result.NoPrice,
		Size:          result.YesSize,
		YesFilled:     result.YesFilled,
		NoFilled:      result.NoFilled,
		OrderType:     string(result.OrderType),
		Outcome:       string(result.Outcome),
	})
}

func mergeStatus(err error) int {
	switch {
	case errors.Is(err, merge.ErrNothingToMerge):
		return http.StatusUnprocessableEntity
	case errors.Is(err, merge.ErrProxyMismatch):
		return http.StatusConflict
	case errors.Is(err, merge.ErrMissingRelayerCredentials):
		return http.StatusPreconditionFailed
	default:
		return http.StatusBadGateway
	}
}

func (h *handlers) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *handlers) writeError(w http.ResponseWriter, resp ErrorResponse, statusCode int) {
	h.writeJSON(w, statusCode, resp)
}
