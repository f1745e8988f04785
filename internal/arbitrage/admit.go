package arbitrage

import (
	"errors"
	"strings"
)

// Admit validates opp and records it in the opportunity metrics.
// source labels where the opportunity came from ("cli", "http").
func Admit(opp *Opportunity, source string) error {
	OpportunitiesReceivedTotal.WithLabelValues(source).Inc()

	if err := opp.Validate(); err != nil {
		OpportunitiesRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
		return err
	}

	OpportunityProfitBPS.Observe(float64(opp.ProfitBPS()))
	return nil
}

func rejectReason(err error) string {
	if !errors.Is(err, ErrInvalidOpportunity) {
		return "unknown"
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "token id"):
		return "token_ids"
	case strings.Contains(msg, "price"):
		return "price"
	case strings.Contains(msg, "size"):
		return "size"
	default:
		return "other"
	}
}
