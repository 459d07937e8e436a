package strategies

import (
	"fmt"

	"github.com/rustyeddy/riskgate/indicators"
	"github.com/rustyeddy/riskgate/market"
	"github.com/shopspring/decimal"
)

// MACrossover is long while the short SMA is above the long SMA, short while
// it is below, and flat when they are equal or there is not enough history.
type MACrossover struct {
	Short int
	Long  int
}

func NewMACrossover(short, long int) (*MACrossover, error) {
	if err := validateWindows(short, long); err != nil {
		return nil, err
	}
	return &MACrossover{Short: short, Long: long}, nil
}

func (s *MACrossover) Name() string {
	return fmt.Sprintf("ma-crossover(%d,%d)", s.Short, s.Long)
}

func (s *MACrossover) Decide(history []decimal.Decimal) market.Desired {
	if len(history) < s.Long {
		return market.Flat
	}
	prices := floats(history)
	fast, err := indicators.MA(prices, s.Short)
	if err != nil {
		return market.Flat
	}
	slow, err := indicators.MA(prices, s.Long)
	if err != nil {
		return market.Flat
	}
	return compare(fast, slow)
}
