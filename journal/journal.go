// Package journal records fills and session events so a trading day can be
// audited after the fact.
package journal

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FillRecord is one applied fill together with the ledger state after it.
type FillRecord struct {
	Time           time.Time
	Instrument     string
	Side           string
	Quantity       int64
	Price          decimal.Decimal
	OrderID        string
	IdempotencyKey string
	Reason         string // strategy, halt, window, shutdown
	Position       int64  // signed quantity after the fill
	RealizedPnL    decimal.Decimal
}

// EventRecord is a gate state change or a skipped tick worth keeping.
type EventRecord struct {
	Time       time.Time
	TradingDay string
	Kind       string
	State      string
	Reason     string
	Equity     decimal.Decimal
}

// Event kinds.
const (
	EventSession  = "session"
	EventHalt     = "halt"
	EventStopped  = "stopped"
	EventReject   = "reject"
	EventFailed   = "order_failed"
	EventShutdown = "shutdown"
)

type Journal interface {
	RecordFill(FillRecord) error
	RecordEvent(EventRecord) error
	Close() error
}

// Open returns the journal named by kind. "none" and "" return nil.
func Open(kind, path string) (Journal, error) {
	switch kind {
	case "sqlite":
		return NewSQLite(path)
	case "csv":
		return NewCSVDir(path)
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q (supported: sqlite, csv, none)", kind)
	}
}
