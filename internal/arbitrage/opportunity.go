package arbitrage

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalidOpportunity is wrapped by every Validate failure.
var ErrInvalidOpportunity = errors.New("invalid opportunity")

// Opportunity is a YES/NO ask snapshot handed to the pair executor.
// Prices are in probability units (0, 1]; sizes are in shares.
type Opportunity struct {
	ID          string
	MarketID    string
	MarketSlug  string
	YesTokenID  string
	NoTokenID   string
	YesAskPrice decimal.Decimal
	YesAskSize  decimal.Decimal
	NoAskPrice  decimal.Decimal
	NoAskSize   decimal.Decimal
	NegRisk     bool
	DetectedAt  time.Time
}

// Params are the inputs to NewOpportunity.
type Params struct {
	MarketID    string
	MarketSlug  string
	YesTokenID  string
	NoTokenID   string
	YesAskPrice decimal.Decimal
	YesAskSize  decimal.Decimal
	NoAskPrice  decimal.Decimal
	NoAskSize   decimal.Decimal
	NegRisk     bool
}

// NewOpportunity stamps p with a fresh id and detection time.
func NewOpportunity(p Params) *Opportunity {
	return &Opportunity{
		ID:          uuid.New().String(),
		MarketID:    p.MarketID,
		MarketSlug:  p.MarketSlug,
		YesTokenID:  p.YesTokenID,
		NoTokenID:   p.NoTokenID,
		YesAskPrice: p.YesAskPrice,
		YesAskSize:  p.YesAskSize,
		NoAskPrice:  p.NoAskPrice,
		NoAskSize:   p.NoAskSize,
		NegRisk:     p.NegRisk,
		DetectedAt:  time.Now(),
	}
}

// PriceSum is YES ask + NO ask.
func (o *Opportunity) PriceSum() decimal.Decimal {
	return o.YesAskPrice.Add(o.NoAskPrice)
}

// ProfitMargin is 1 - PriceSum. Negative when the pair costs more than it redeems for.
func (o *Opportunity) ProfitMargin() decimal.Decimal {
	return decimal.NewFromInt(1).Sub(o.PriceSum())
}

// ProfitBPS is ProfitMargin in basis points, truncated.
func (o *Opportunity) ProfitBPS() int64 {
	return o.ProfitMargin().Mul(decimal.NewFromInt(10000)).IntPart()
}

// AvailableSize is the smaller of the two ask sizes.
func (o *Opportunity) AvailableSize() decimal.Decimal {
	return decimal.Min(o.YesAskSize, o.NoAskSize)
}

// Validate checks that the snapshot can be traded at all.
func (o *Opportunity) Validate() error {
	if o.YesTokenID == "" || o.NoTokenID == "" {
		return fmt.Errorf("%w: missing token id", ErrInvalidOpportunity)
	}
	if o.YesTokenID == o.NoTokenID {
		return fmt.Errorf("%w: yes and no token ids are equal", ErrInvalidOpportunity)
	}

	one := decimal.NewFromInt(1)
	for _, leg := range []struct {
		name  string
		price decimal.Decimal
		size  decimal.Decimal
	}{
		{"yes", o.YesAskPrice, o.YesAskSize},
		{"no", o.NoAskPrice, o.NoAskSize},
	} {
		if !leg.price.IsPositive() || leg.price.GreaterThan(one) {
			return fmt.Errorf("%w: %s ask price %s outside (0, 1]", ErrInvalidOpportunity, leg.name, leg.price)
		}
		if !leg.size.IsPositive() {
			return fmt.Errorf("%w: %s ask size %s not positive", ErrInvalidOpportunity, leg.name, leg.size)
		}
	}

	return nil
}

// String returns a human-readable representation of the opportunity.
func (o *Opportunity) String() string {
	id := o.ID
	if len(id) > 8 {
		id = id[:8]
	}

	return fmt.Sprintf(
		"Opportunity[%s] Market=%s YES=%s NO=%s Sum=%s Profit=%dbps Size=%s",
		id,
		o.MarketSlug,
		o.YesAskPrice.StringFixed(4),
		o.NoAskPrice.StringFixed(4),
		o.PriceSum().StringFixed(4),
		o.ProfitBPS(),
		o.AvailableSize().StringFixed(2),
	)
}
