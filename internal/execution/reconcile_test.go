package execution

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/mselser95/polymarket-settle/pkg/types"
)

func TestSimplifyReason(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{name: "empty", msg: "", want: "unknown error"},
		{name: "no-match", msg: "no orders found to match with FAK order. FAK orders are partially filled or killed if no match is found.", want: "no matching orders in book"},
		{name: "fok", msg: "order couldn't be fully filled. FOK orders are fully filled or killed.", want: "order could not be filled"},
		{name: "gtd", msg: "invalid expiration for GTD order", want: "order could not be filled"},
		{name: "gtc", msg: "GTC order rejected", want: "order could not be filled"},
		{name: "passthrough", msg: "not enough balance / allowance", want: "not enough balance / allowance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, simplifyReason(tt.msg))
		})
	}
}

func TestFilledAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   string
		wantOK bool
	}{
		{name: "empty", amount: "", want: "0", wantOK: true},
		{name: "integer", amount: "50", want: "50", wantOK: true},
		{name: "fractional", amount: "12.345678", want: "12.345678", wantOK: true},
		{name: "garbage", amount: "n/a", want: "0", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := filledAmount(&types.OrderSubmissionResponse{TakingAmount: tt.amount})
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestClassifyFills(t *testing.T) {
	zero := decimal.Zero
	some := decimal.NewFromInt(5)

	tests := []struct {
		name   string
		yes    decimal.Decimal
		no     decimal.Decimal
		want   FillOutcome
		wantOK bool
	}{
		{name: "none", yes: zero, no: zero, wantOK: false},
		{name: "yes-only", yes: some, no: zero, want: OutcomePartialFill, wantOK: true},
		{name: "no-only", yes: zero, no: some, want: OutcomePartialFill, wantOK: true},
		{name: "both", yes: some, no: some, want: OutcomeFullFill, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := classifyFills(tt.yes, tt.no)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFillFailureError(t *testing.T) {
	err := &FillFailureError{YesReason: "a", NoReason: "b"}
	assert.Equal(t, "both legs failed to fill: YES: a, NO: b", err.Error())
	assert.ErrorIs(t, err, ErrTotalFillFailure)
}
