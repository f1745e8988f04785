package types

import (
	"fmt"
	"strings"
)

// OrderError represents an error that occurred during order placement or execution.
type OrderError struct {
	Code    string // API error code or internal error code
	Message string // Human-readable error message
	OrderID string // Order ID if available
	Side    string // YES or NO
}

func (e *OrderError) Error() string {
	if e.OrderID != "" {
		return fmt.Sprintf("%s order failed (ID: %s): %s (%s)", e.Side, e.OrderID, e.Message, e.Code)
	}

	return fmt.Sprintf("%s order failed: %s (%s)", e.Side, e.Message, e.Code)
}

// Known Polymarket CLOB API error codes
const (
	ErrInvalidMinTickSize = "INVALID_ORDER_MIN_TICK_SIZE"
	ErrNotEnoughBalance   = "INVALID_ORDER_NOT_ENOUGH_BALANCE"
	ErrFOKNotFilled       = "FOK_ORDER_NOT_FILLED_ERROR"
	ErrMarketNotReady     = "MARKET_NOT_READY"
	ErrUnmatched          = "UNMATCHED"
	ErrUnknownStatus      = "UNKNOWN_STATUS"
)

// OrderErrorFromResponse classifies a rejected or unfilled leg.
// Returns nil when resp reports success.
func OrderErrorFromResponse(side string, resp *OrderSubmissionResponse) *OrderError {
	if resp == nil {
		return &OrderError{Code: ErrUnknownStatus, Message: "no response", Side: side}
	}
	if resp.Success && resp.ErrorMsg == "" {
		return nil
	}

	code := ErrUnknownStatus
	for _, known := range []string{ErrInvalidMinTickSize, ErrNotEnoughBalance, ErrFOKNotFilled, ErrMarketNotReady} {
		if containsFold(resp.ErrorMsg, known) {
			code = known
			break
		}
	}
	if code == ErrUnknownStatus && resp.Status == "unmatched" {
		code = ErrUnmatched
	}

	return &OrderError{
		Code:    code,
		Message: resp.ErrorMsg,
		OrderID: resp.OrderID,
		Side:    side,
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToUpper(s), strings.ToUpper(substr))
}
