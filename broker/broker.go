// Package broker defines the brokerage collaborator the execution gate drives:
// quotes, market orders and position lookups for a single instrument.
package broker

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/riskgate/market"
	"github.com/shopspring/decimal"
)

var (
	// ErrQuoteUnavailable means no price could be obtained right now.
	ErrQuoteUnavailable = errors.New("quote unavailable")
	// ErrOrderRejected is final: the broker refused the order.
	ErrOrderRejected = errors.New("order rejected")
	// ErrTransient is retryable: timeouts, throttling, 5xx responses.
	ErrTransient = errors.New("transient broker error")
)

type Broker interface {
	GetPrice(ctx context.Context, instrument string) (market.Quote, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (Fill, error)
	GetPosition(ctx context.Context, instrument string) (int64, error)
}

// PointValuer is implemented by brokers that know the money value of a one
// point move in an instrument.
type PointValuer interface {
	PointValue(ctx context.Context, instrument string) (decimal.Decimal, error)
}

type OrderType int

const (
	Market OrderType = iota
)

func (t OrderType) String() string {
	if t == Market {
		return "MARKET"
	}
	return "UNKNOWN"
}

// OrderRequest asks for Quantity (always positive) units on Side.
// ClientOrderID stays the same across retries of one logical order.
type OrderRequest struct {
	Instrument    string
	Side          market.Side
	Quantity      int64
	Type          OrderType
	ClientOrderID string
}

// Fill is an execution report. IdempotencyKey must be stable for the same
// execution so duplicate deliveries can be dropped.
type Fill struct {
	Instrument     string
	Side           market.Side
	Quantity       int64
	Price          decimal.Decimal
	Time           time.Time
	OrderID        string
	IdempotencyKey string
}

// Signed returns the fill quantity with the side applied.
func (f Fill) Signed() int64 {
	return f.Side.Sign() * f.Quantity
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}
