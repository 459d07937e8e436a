// Package risk keeps the session's running P&L and drawdown and vets every
// proposed trade against the daily loss limit, the max drawdown and the
// position size cap.
package risk

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/riskgate/broker"
	"github.com/rustyeddy/riskgate/session"
	"github.com/shopspring/decimal"
)

// ErrMissingIdempotencyKey is returned for fills that cannot be deduplicated.
var ErrMissingIdempotencyKey = errors.New("fill has no idempotency key")

// Ledger accumulates realized and unrealized P&L for the current session.
// It is not safe for concurrent use; the execution gate owns it.
type Ledger struct {
	limits  Limits
	session *session.Session
	pos     Position

	// Fill keys of the current and the previous session.
	seen     map[string]struct{}
	prevSeen map[string]struct{}
}

func NewLedger(limits Limits, s *session.Session, instrument string) *Ledger {
	return &Ledger{
		limits:   limits,
		session:  s,
		pos:      Position{Instrument: instrument},
		seen:     make(map[string]struct{}),
		prevSeen: make(map[string]struct{}),
	}
}

func (l *Ledger) Limits() Limits { return l.limits }
func (l *Ledger) Position() Position { return l.pos }
func (l *Ledger) Session() *session.Session { return l.session }

// Equity is the session balance plus open P&L at mark.
func (l *Ledger) Equity(mark decimal.Decimal) decimal.Decimal {
	return l.session.Balance().Add(l.pos.Unrealized(mark, l.limits.PointValue))
}

// Mark revalues the open position at mark, raises the peak and halts the
// session on a breach.
func (l *Ledger) Mark(mark decimal.Decimal) Decision {
	if l.session.Halted {
		return halt(CodeHalted, l.session.HaltReason)
	}
	equity := l.Equity(mark)
	l.raisePeak(equity)
	if d, breached := l.check(equity, l.session.PeakEquity); breached {
		l.session.Halt(d.Code, d.Reason)
		return d
	}
	return allow()
}

// Evaluate vets moving the position by delta units at mark.
//
// Halt is returned when the session is already halted or when the equity
// after the trade would breach a limit; in the second case the session is
// halted here. Reject covers a zero delta and the position size cap.
func (l *Ledger) Evaluate(delta int64, mark decimal.Decimal) Decision {
	if l.session.Halted {
		return halt(CodeHalted, l.session.HaltReason)
	}

	next, realized := l.pos.Apply(delta, mark, l.limits.PointValue)
	equity := l.session.Balance().Add(realized).Add(next.Unrealized(mark, l.limits.PointValue))
	peak := decimal.Max(l.session.PeakEquity, equity)
	if d, breached := l.check(equity, peak); breached {
		l.session.Halt(d.Code, d.Reason)
		return d
	}

	if delta == 0 {
		return reject(CodeNoUnits, "delta must be non-zero")
	}
	if abs(next.Quantity) > l.limits.MaxPositionSize {
		return reject(CodeMaxPosition, "position %d would exceed max %d", next.Quantity, l.limits.MaxPositionSize)
	}
	return allow()
}

// RecordFill applies a fill to the position and the session totals. A fill
// whose idempotency key was already applied is ignored and reported as not
// applied. A fill can itself realize a breach, which halts the session.
func (l *Ledger) RecordFill(f broker.Fill) (bool, error) {
	if f.IdempotencyKey == "" {
		return false, ErrMissingIdempotencyKey
	}
	if _, ok := l.seen[f.IdempotencyKey]; ok {
		return false, nil
	}
	if _, ok := l.prevSeen[f.IdempotencyKey]; ok {
		return false, nil
	}
	if f.Quantity <= 0 {
		return false, fmt.Errorf("fill %s: non-positive quantity %d", f.IdempotencyKey, f.Quantity)
	}
	l.seen[f.IdempotencyKey] = struct{}{}

	next, realized := l.pos.Apply(f.Signed(), f.Price, l.limits.PointValue)
	l.pos = next
	l.session.RealizedPnL = l.session.RealizedPnL.Add(realized)

	equity := l.Equity(f.Price)
	l.raisePeak(equity)
	if d, breached := l.check(equity, l.session.PeakEquity); breached {
		l.session.Halt(d.Code, d.Reason)
	}
	return true, nil
}

// NewSession rotates the remembered fill keys. Call it after the clock rolls
// the trading day.
func (l *Ledger) NewSession() {
	l.prevSeen = l.seen
	l.seen = make(map[string]struct{})
}

// Reconcile replaces the local position with the broker's view. The entry
// price is unknown to the broker adapter, so the caller supplies one.
func (l *Ledger) Reconcile(qty int64, entry decimal.Decimal) {
	l.pos.Quantity = qty
	if qty == 0 {
		l.pos.AverageEntryPrice = decimal.Zero
		l.pos.CostBasis = decimal.Zero
		return
	}
	l.pos.AverageEntryPrice = entry
	l.pos.CostBasis = entry.Mul(decimal.NewFromInt(qty))
}

// Snapshot is a read-only view of the ledger at a mark price.
type Snapshot struct {
	Position    Position
	RealizedPnL decimal.Decimal
	Unrealized  decimal.Decimal
	Equity      decimal.Decimal
	PeakEquity  decimal.Decimal
	Drawdown    decimal.Decimal
	Halted      bool
}

func (l *Ledger) Snapshot(mark decimal.Decimal) Snapshot {
	equity := l.Equity(mark)
	peak := decimal.Max(l.session.PeakEquity, equity)
	return Snapshot{
		Position:    l.pos,
		RealizedPnL: l.session.RealizedPnL,
		Unrealized:  l.pos.Unrealized(mark, l.limits.PointValue),
		Equity:      equity,
		PeakEquity:  peak,
		Drawdown:    peak.Sub(equity),
		Halted:      l.session.Halted,
	}
}

func (l *Ledger) raisePeak(equity decimal.Decimal) {
	if equity.GreaterThan(l.session.PeakEquity) {
		l.session.PeakEquity = equity
	}
}

// check tests the daily loss limit (breached at or beyond the limit) and the
// drawdown limit (breached strictly beyond it).
func (l *Ledger) check(equity, peak decimal.Decimal) (Decision, bool) {
	pnl := equity.Sub(l.session.StartEquity)
	if pnl.LessThanOrEqual(l.limits.DailyLossLimit.Neg()) {
		return halt(CodeDailyLossLimit, fmt.Sprintf("session P&L %s reached daily loss limit %s",
			pnl.StringFixed(2), l.limits.DailyLossLimit.StringFixed(2))), true
	}
	dd := peak.Sub(equity)
	if dd.GreaterThan(l.limits.MaxDrawdown) {
		return halt(CodeMaxDrawdown, fmt.Sprintf("drawdown %s from peak %s exceeds max %s",
			dd.StringFixed(2), peak.StringFixed(2), l.limits.MaxDrawdown.StringFixed(2))), true
	}
	return Decision{}, false
}
