package strategies

import (
	"strings"

	"github.com/rustyeddy/riskgate/market"
	"github.com/shopspring/decimal"
)

// Fixed always wants the same position. Fixed{} is flat and never trades.
type Fixed struct {
	Position market.Desired
}

func (f Fixed) Name() string {
	return "fixed(" + strings.ToLower(f.Position.String()) + ")"
}

func (f Fixed) Decide(_ []decimal.Decimal) market.Desired {
	return f.Position
}
