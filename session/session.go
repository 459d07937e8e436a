// Package session tracks the daily trading session: which calendar day is
// active, whether the trading window is open, and the bookkeeping that is
// reset every day.
package session

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session is the per-day bookkeeping scope. The risk ledger mutates the money
// fields; the clock rolls the day.
type Session struct {
	TradingDay  time.Time
	WindowStart time.Time
	WindowEnd   time.Time

	StartEquity decimal.Decimal
	RealizedPnL decimal.Decimal
	PeakEquity  decimal.Decimal

	Halted     bool
	HaltCode   string
	HaltReason string
}

// New returns a session that has not been assigned a trading day yet.
func New(startEquity decimal.Decimal) *Session {
	return &Session{
		StartEquity: startEquity,
		PeakEquity:  startEquity,
	}
}

// Halt marks the session halted. The first code and reason win.
func (s *Session) Halt(code, reason string) {
	if s.Halted {
		return
	}
	s.Halted = true
	s.HaltCode = code
	s.HaltReason = reason
}

// Balance is start equity plus realized P&L.
func (s *Session) Balance() decimal.Decimal {
	return s.StartEquity.Add(s.RealizedPnL)
}

// roll starts a new day, carrying the realized balance forward.
func (s *Session) roll(day, start, end time.Time) {
	s.StartEquity = s.Balance()
	s.RealizedPnL = decimal.Zero
	s.PeakEquity = s.StartEquity
	s.Halted = false
	s.HaltCode = ""
	s.HaltReason = ""
	s.TradingDay = day
	s.WindowStart = start
	s.WindowEnd = end
}
