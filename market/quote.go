package market

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMalformedQuote marks a quote that must be discarded.
var ErrMalformedQuote = errors.New("malformed quote")

// Quote is the last traded price of an instrument.
type Quote struct {
	Instrument string
	Price      decimal.Decimal
	Time       time.Time
}

// Validate rejects quotes the gate must not act on: a non-positive price,
// a missing timestamp, or (when maxAge > 0) a timestamp older than maxAge
// relative to now.
func (q Quote) Validate(now time.Time, maxAge time.Duration) error {
	if !q.Price.IsPositive() {
		return fmt.Errorf("%w: price %s", ErrMalformedQuote, q.Price)
	}
	if q.Time.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrMalformedQuote)
	}
	if maxAge > 0 && now.Sub(q.Time) > maxAge {
		return fmt.Errorf("%w: stale by %s", ErrMalformedQuote, now.Sub(q.Time).Round(time.Millisecond))
	}
	return nil
}
