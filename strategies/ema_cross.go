package strategies

import (
	"fmt"

	"github.com/rustyeddy/riskgate/indicators"
	"github.com/rustyeddy/riskgate/market"
	"github.com/shopspring/decimal"
)

// EMACross compares a fast and a slow EMA over the whole history.
type EMACross struct {
	FastPeriod int
	SlowPeriod int
}

func NewEMACross(fast, slow int) (*EMACross, error) {
	if err := validateWindows(fast, slow); err != nil {
		return nil, err
	}
	return &EMACross{FastPeriod: fast, SlowPeriod: slow}, nil
}

func (s *EMACross) Name() string {
	return fmt.Sprintf("ema-cross(%d,%d)", s.FastPeriod, s.SlowPeriod)
}

func (s *EMACross) Decide(history []decimal.Decimal) market.Desired {
	if len(history) < s.SlowPeriod {
		return market.Flat
	}
	prices := floats(history)
	fast, err := indicators.EMA(prices, s.FastPeriod)
	if err != nil {
		return market.Flat
	}
	slow, err := indicators.EMA(prices, s.SlowPeriod)
	if err != nil {
		return market.Flat
	}
	return compare(fast, slow)
}
