package execution

import (
	"errors"
	"fmt"
)

var (
	// ErrMinimumNotional means a leg's price*size is at or below the venue floor.
	ErrMinimumNotional = errors.New("order notional below minimum")

	// ErrBatchShape means the batch call did not return exactly one result per leg.
	ErrBatchShape = errors.New("unexpected batch result shape")

	// ErrTotalFillFailure means neither leg filled.
	ErrTotalFillFailure = errors.New("both legs failed to fill")
)

// FillFailureError carries the simplified reason of each unfilled leg.
type FillFailureError struct {
	YesReason string
	NoReason  string
}

func (e *FillFailureError) Error() string {
	return fmt.Sprintf("both legs failed to fill: YES: %s, NO: %s", e.YesReason, e.NoReason)
}

// Unwrap lets errors.Is match ErrTotalFillFailure.
func (e *FillFailureError) Unwrap() error {
	return ErrTotalFillFailure
}
