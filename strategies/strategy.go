// Package strategies turns a price history into a desired position.
package strategies

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rustyeddy/riskgate/market"
	"github.com/shopspring/decimal"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy decides the position to hold given the prices seen so far, oldest
// first. Decide must be a pure function of history.
type Strategy interface {
	Name() string
	Decide(history []decimal.Decimal) market.Desired
}

// Params carries the strategy section of the config.
type Params struct {
	Name        string
	ShortWindow int
	LongWindow  int
	Position    string // for "fixed"
}

// ByName builds the strategy named by p.Name.
func ByName(p Params) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(p.Name)) {
	case "ma-crossover", "ma-cross", "sma-cross":
		return NewMACrossover(p.ShortWindow, p.LongWindow)

	case "ema-cross", "emacross":
		return NewEMACross(p.ShortWindow, p.LongWindow)

	case "fixed", "noop", "none":
		d, err := market.ParseDesired(p.Position)
		if err != nil {
			return nil, err
		}
		return Fixed{Position: d}, nil

	default:
		return nil, fmt.Errorf("%w %q (supported: ma-crossover, ema-cross, fixed)", ErrUnknownStrategy, p.Name)
	}
}

func validateWindows(short, long int) error {
	if short <= 0 || long <= 0 {
		return fmt.Errorf("MA windows must be positive, got %d/%d", short, long)
	}
	if short >= long {
		return fmt.Errorf("short window %d must be less than long window %d", short, long)
	}
	return nil
}

func floats(history []decimal.Decimal) []float64 {
	out := make([]float64, len(history))
	for i, p := range history {
		out[i] = p.InexactFloat64()
	}
	return out
}

// compare maps fast vs slow averages to a position.
func compare(fast, slow float64) market.Desired {
	switch {
	case fast > slow:
		return market.Long
	case fast < slow:
		return market.Short
	default:
		return market.Flat
	}
}
