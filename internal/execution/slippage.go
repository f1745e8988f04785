package execution

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Direction is the recent price movement of a leg.
type Direction string

// Directions as reported by the price feed.
const (
	DirectionUp   Direction = "↑"
	DirectionDown Direction = "↓"
	DirectionFlat Direction = "−"
)

// maxPrice is the highest valid outcome price.
var maxPrice = decimal.NewFromInt(1) //nolint:gochecknoglobals // constant decimal

// ParseDirection accepts the arrow glyphs and the words up, down and flat.
// Anything else is returned as-is and treated like DirectionUp by SlippagePolicy.
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", string(DirectionUp):
		return DirectionUp
	case "down", string(DirectionDown):
		return DirectionDown
	case "flat", "-", string(DirectionFlat):
		return DirectionFlat
	default:
		return Direction(s)
	}
}

// SlippagePolicy holds the two slippage allowances in price units.
// Second is the larger allowance, used for legs moving down.
type SlippagePolicy struct {
	First  decimal.Decimal
	Second decimal.Decimal
}

// For returns the allowance for a leg moving in dir.
func (p SlippagePolicy) For(dir Direction) decimal.Decimal {
	if dir == DirectionDown {
		return p.Second
	}
	return p.First
}

// AdjustPrice adds the allowance for dir to ask, capped at 1.
func (p SlippagePolicy) AdjustPrice(ask decimal.Decimal, dir Direction) decimal.Decimal {
	return decimal.Min(ask.Add(p.For(dir)), maxPrice)
}
