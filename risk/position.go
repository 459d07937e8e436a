package risk

import "github.com/shopspring/decimal"

// Position is the net holding in one instrument.
//
// CostBasis is the signed notional of the open units, sum(price * qty), kept
// unrounded so realized plus unrealized P&L always adds up to the exact cash
// flow. AverageEntryPrice is derived from it for display.
type Position struct {
	Instrument        string
	Quantity          int64 // >0 long, <0 short
	AverageEntryPrice decimal.Decimal
	CostBasis         decimal.Decimal
}

func (p Position) Flat() bool { return p.Quantity == 0 }

// Unrealized is the open P&L at mark: (mark * qty - cost) * pointValue.
func (p Position) Unrealized(mark, pointValue decimal.Decimal) decimal.Decimal {
	if p.Quantity == 0 {
		return decimal.Zero
	}
	return mark.Mul(decimal.NewFromInt(p.Quantity)).Sub(p.CostBasis).Mul(pointValue)
}

// Apply adds a signed quantity filled at price and returns the resulting
// position with the P&L realized by any closed units.
//
// Reducing a position releases cost pro rata, so closing it entirely realizes
// exactly (exit notional - entry notional) * pointValue. Crossing through zero
// opens the remainder at price.
func (p Position) Apply(qty int64, price, pointValue decimal.Decimal) (Position, decimal.Decimal) {
	if qty == 0 {
		return p, decimal.Zero
	}
	next := p
	next.Quantity = p.Quantity + qty

	if p.Quantity == 0 || sign(p.Quantity) == sign(qty) {
		next.CostBasis = p.CostBasis.Add(price.Mul(decimal.NewFromInt(qty)))
		next.AverageEntryPrice = averageOf(next.CostBasis, next.Quantity)
		return next, decimal.Zero
	}

	held := abs(p.Quantity)
	closed := min(held, abs(qty))
	released := p.CostBasis
	if closed < held {
		released = p.CostBasis.Mul(decimal.NewFromInt(closed)).Div(decimal.NewFromInt(held))
	}
	realized := price.Mul(decimal.NewFromInt(closed * sign(p.Quantity))).
		Sub(released).
		Mul(pointValue)

	switch {
	case next.Quantity == 0:
		next.CostBasis = decimal.Zero
		next.AverageEntryPrice = decimal.Zero
	case sign(next.Quantity) != sign(p.Quantity):
		next.CostBasis = price.Mul(decimal.NewFromInt(next.Quantity))
		next.AverageEntryPrice = price
	default:
		next.CostBasis = p.CostBasis.Sub(released)
		next.AverageEntryPrice = averageOf(next.CostBasis, next.Quantity)
	}
	return next, realized
}

func averageOf(cost decimal.Decimal, qty int64) decimal.Decimal {
	if qty == 0 {
		return decimal.Zero
	}
	return cost.Div(decimal.NewFromInt(qty))
}

func sign(x int64) int64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
