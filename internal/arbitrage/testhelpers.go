package arbitrage

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateTestOpportunity creates a binary-market opportunity with YES ask 0.40
// and NO ask 0.55, 100 shares on each side.
func CreateTestOpportunity(marketID string, marketSlug string) *Opportunity {
	return &Opportunity{
		ID:          "test-opp-" + marketID,
		MarketID:    marketID,
		MarketSlug:  marketSlug,
		YesTokenID:  "1001",
		NoTokenID:   "1002",
		YesAskPrice: decimal.RequireFromString("0.40"),
		YesAskSize:  decimal.NewFromInt(100),
		NoAskPrice:  decimal.RequireFromString("0.55"),
		NoAskSize:   decimal.NewFromInt(100),
		DetectedAt:  time.Now(),
	}
}
