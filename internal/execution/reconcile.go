package execution

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mselser95/polymarket-settle/pkg/types"
)

// FillOutcome classifies a pair that filled at least one leg.
type FillOutcome string

// Fill outcomes.
const (
	OutcomeFullFill    FillOutcome = "full_fill"
	OutcomePartialFill FillOutcome = "partial_fill"
)

// filledAmount parses takingAmount. Empty or malformed counts as zero.
func filledAmount(resp *types.OrderSubmissionResponse) (decimal.Decimal, bool) {
	if resp.TakingAmount == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(resp.TakingAmount)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// simplifyReason turns a venue error message into something short enough for an alert.
func simplifyReason(msg string) string {
	switch {
	case msg == "":
		return "unknown error"
	case strings.Contains(msg, "no orders found to match"):
		return "no matching orders in book"
	case strings.Contains(msg, "GTD"), strings.Contains(msg, "FOK"),
		strings.Contains(msg, "FAK"), strings.Contains(msg, "GTC"):
		return "order could not be filled"
	default:
		return msg
	}
}

// classifyFills maps the two filled amounts to an outcome.
// ok is false when neither leg filled.
func classifyFills(yesFilled, noFilled decimal.Decimal) (FillOutcome, bool) {
	yes := yesFilled.IsPositive()
	no := noFilled.IsPositive()

	switch {
	case yes && no:
		return OutcomeFullFill, true
	case yes || no:
		return OutcomePartialFill, true
	default:
		return "", false
	}
}
