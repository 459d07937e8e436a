package risk

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidLimits = errors.New("invalid risk limits")

// Limits are the immutable thresholds the ledger enforces.
type Limits struct {
	DailyLossLimit  decimal.Decimal // money, > 0
	MaxDrawdown     decimal.Decimal // money, > 0
	MaxPositionSize int64           // contracts, > 0
	PointValue      decimal.Decimal // money per 1.0 price move per contract
}

func (l Limits) Validate() error {
	if !l.DailyLossLimit.IsPositive() {
		return fmt.Errorf("%w: daily loss limit must be positive, got %s", ErrInvalidLimits, l.DailyLossLimit)
	}
	if !l.MaxDrawdown.IsPositive() {
		return fmt.Errorf("%w: max drawdown must be positive, got %s", ErrInvalidLimits, l.MaxDrawdown)
	}
	if l.MaxPositionSize <= 0 {
		return fmt.Errorf("%w: max position size must be positive, got %d", ErrInvalidLimits, l.MaxPositionSize)
	}
	if !l.PointValue.IsPositive() {
		return fmt.Errorf("%w: point value must be positive, got %s", ErrInvalidLimits, l.PointValue)
	}
	return nil
}
