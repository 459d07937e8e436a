// Package gate runs the single-instrument execution loop: every tick asks the
// strategy for a position, vets the trade with the risk ledger, places at most
// one order and flattens when the session halts or the trading window closes.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/riskgate/broker"
	"github.com/rustyeddy/riskgate/id"
	"github.com/rustyeddy/riskgate/journal"
	"github.com/rustyeddy/riskgate/market"
	"github.com/rustyeddy/riskgate/metrics"
	"github.com/rustyeddy/riskgate/risk"
	"github.com/rustyeddy/riskgate/session"
	"github.com/rustyeddy/riskgate/strategies"
	"github.com/shopspring/decimal"
)

// Order reasons, also used as journal and metric labels.
const (
	ReasonStrategy = "strategy"
	ReasonHalt     = "halt"
	ReasonWindow   = "window"
	ReasonShutdown = "shutdown"
)

type Options struct {
	Instrument  string
	OrderSize   int64
	HistorySize int

	PollInterval    time.Duration
	QuoteTimeout    time.Duration
	OrderTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxQuoteAge     time.Duration
	Retry           Backoff

	Logger  *slog.Logger
	Journal journal.Journal  // optional
	Metrics *metrics.Metrics // optional
	Now     func() time.Time // defaults to time.Now
}

func (o *Options) defaults() {
	if o.HistorySize <= 0 {
		o.HistorySize = 500
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.QuoteTimeout <= 0 {
		o.QuoteTimeout = 5 * time.Second
	}
	if o.OrderTimeout <= 0 {
		o.OrderTimeout = 5 * time.Second
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 15 * time.Second
	}
	if o.Retry.Attempts <= 0 {
		o.Retry = DefaultBackoff
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Gate owns the clock, the ledger and the price history. Only one goroutine
// may call Step, Reconcile or Run.
type Gate struct {
	opts     Options
	broker   broker.Broker
	strategy strategies.Strategy
	clock    *session.Clock
	ledger   *risk.Ledger
	log      *slog.Logger

	state   State
	history []decimal.Decimal
	last    market.Quote

	sleep func(context.Context, time.Duration) error
}

func New(b broker.Broker, s strategies.Strategy, clock *session.Clock, ledger *risk.Ledger, opts Options) (*Gate, error) {
	if b == nil || s == nil || clock == nil || ledger == nil {
		return nil, errors.New("gate: broker, strategy, clock and ledger are required")
	}
	if clock.Session() != ledger.Session() {
		return nil, errors.New("gate: clock and ledger must share one session")
	}
	if opts.Instrument == "" {
		return nil, errors.New("gate: instrument is required")
	}
	if opts.OrderSize <= 0 {
		return nil, fmt.Errorf("gate: order size must be positive, got %d", opts.OrderSize)
	}
	opts.defaults()

	return &Gate{
		opts:     opts,
		broker:   b,
		strategy: s,
		clock:    clock,
		ledger:   ledger,
		log:      opts.Logger.With("instrument", opts.Instrument, "strategy", s.Name()),
		state:    Idle,
		sleep:    sleepCtx,
	}, nil
}

func (g *Gate) State() State               { return g.state }
func (g *Gate) Ledger() *risk.Ledger       { return g.ledger }
func (g *Gate) History() []decimal.Decimal { return g.history }
func (g *Gate) LastQuote() market.Quote    { return g.last }
func (g *Gate) Session() *session.Session  { return g.clock.Session() }
func (g *Gate) Snapshot() risk.Snapshot    { return g.ledger.Snapshot(g.mark()) }
func (g *Gate) position() int64            { return g.ledger.Position().Quantity }
func (g *Gate) setState(s State)           { g.state = s }

func (g *Gate) tradingDay() string {
	return g.Session().TradingDay.Format(time.DateOnly)
}

// mark is the last valid quote, or the entry price before any quote.
func (g *Gate) mark() decimal.Decimal {
	if g.last.Price.IsPositive() {
		return g.last.Price
	}
	return g.ledger.Position().AverageEntryPrice
}

// Reconcile adopts the broker's open position. The broker does not report an
// entry price, so the current quote is used.
func (g *Gate) Reconcile(ctx context.Context) error {
	qctx, cancel := context.WithTimeout(ctx, g.opts.QuoteTimeout)
	qty, err := g.broker.GetPosition(qctx, g.opts.Instrument)
	cancel()
	if err != nil {
		return fmt.Errorf("gate: reconcile position: %w", err)
	}
	if qty == 0 {
		g.ledger.Reconcile(0, decimal.Zero)
		return nil
	}

	q, err := g.quote(ctx, g.opts.Now())
	if err != nil {
		return fmt.Errorf("gate: reconcile entry price: %w", err)
	}
	g.ledger.Reconcile(qty, q.Price)
	g.log.Info("reconciled broker position", "position", qty, "entry", q.Price.String())
	return nil
}

// Run ticks every PollInterval until ctx is done, then flattens any open
// position within ShutdownTimeout.
func (g *Gate) Run(ctx context.Context) error {
	t := time.NewTicker(g.opts.PollInterval)
	defer t.Stop()

	g.log.Info("execution loop started", "poll", g.opts.PollInterval.String(), "window", g.clock.Window().String())
	for {
		g.Step(ctx, g.opts.Now())

		select {
		case <-ctx.Done():
			return g.Shutdown()
		case <-t.C:
		}
	}
}

// Shutdown flattens an open position with a fresh context.
func (g *Gate) Shutdown() error {
	pos := g.position()
	g.event(journal.EventShutdown, fmt.Sprintf("shutdown with position %d", pos))
	if pos == 0 {
		g.log.Info("execution loop stopped", "state", g.state.String())
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.opts.ShutdownTimeout)
	defer cancel()
	if err := g.flatten(ctx, ReasonShutdown); err != nil {
		g.log.Error("shutdown flatten failed", "position", pos, "err", err)
		return fmt.Errorf("gate: flatten on shutdown: %w", err)
	}
	g.log.Info("execution loop stopped", "state", g.state.String(), "flattened", pos)
	return nil
}

// Step processes one tick at now. It never returns an error: every failure is
// logged and the tick is skipped.
func (g *Gate) Step(ctx context.Context, now time.Time) State {
	defer g.publish()

	q, err := g.quote(ctx, now)
	if err != nil {
		g.log.Warn("skipping tick", "reason", "quote", "err", err)
		g.opts.Metrics.Tick(metrics.TickSkipped)
		return g.state
	}
	g.last = q
	g.history = append(g.history, q.Price)
	if n := len(g.history) - g.opts.HistorySize; n > 0 {
		g.history = append(g.history[:0], g.history[n:]...)
	}

	if g.clock.AdvanceDay(now) {
		g.ledger.NewSession()
		g.setState(Idle)
		g.event(journal.EventSession, "new trading session "+g.clock.Window().String())
		g.log.Info("new trading session", "day", g.tradingDay(),
			"start_equity", g.Session().StartEquity.String())
	}

	if !g.clock.InWindow(now) {
		g.stop(ctx)
		return g.state
	}
	if g.state == Stopped {
		g.setState(Idle)
	}

	if d := g.ledger.Mark(q.Price); d.Verdict == risk.Halt {
		g.halt(ctx, d)
		return g.state
	}

	g.setState(Ready)
	desired := g.strategy.Decide(g.history)
	delta := desired.Target(g.opts.OrderSize) - g.position()
	if delta == 0 {
		g.setState(Idle)
		g.opts.Metrics.Tick(metrics.TickIdle)
		return g.state
	}

	d := g.ledger.Evaluate(delta, q.Price)
	switch d.Verdict {
	case risk.Allow:
		g.setState(OrderPending)
		if err := g.trade(ctx, delta, ReasonStrategy); err != nil {
			g.log.Warn("order failed, tick skipped", "desired", desired.String(), "delta", delta, "err", err)
			g.event(journal.EventFailed, err.Error())
			g.opts.Metrics.Tick(metrics.TickRejected)
		} else {
			g.opts.Metrics.Tick(metrics.TickTraded)
		}
		if g.Session().Halted {
			// the fill realized a breach; flatten next tick
			g.enterHalting(risk.Decision{Verdict: risk.Halt, Code: g.Session().HaltCode, Reason: g.Session().HaltReason})
			return g.state
		}
		g.setState(Idle)

	case risk.Reject:
		g.log.Info("trade rejected", "delta", delta, "code", d.Code, "reason", d.Reason)
		g.event(journal.EventReject, d.String())
		g.opts.Metrics.Tick(metrics.TickRejected)
		g.setState(Idle)

	case risk.Halt:
		g.halt(ctx, d)
	}
	return g.state
}

func (g *Gate) quote(ctx context.Context, now time.Time) (market.Quote, error) {
	qctx, cancel := context.WithTimeout(ctx, g.opts.QuoteTimeout)
	defer cancel()

	q, err := g.broker.GetPrice(qctx, g.opts.Instrument)
	if err != nil {
		return market.Quote{}, err
	}
	if err := q.Validate(now, g.opts.MaxQuoteAge); err != nil {
		return market.Quote{}, err
	}
	return q, nil
}

// stop flattens outside the trading window. A failed flatten leaves the
// position open and is retried next tick.
func (g *Gate) stop(ctx context.Context) {
	if g.state != Stopped {
		g.setState(Stopped)
		g.event(journal.EventStopped, "outside trading window "+g.clock.Window().String())
		g.log.Info("trading window closed", "position", g.position())
	}
	g.opts.Metrics.Tick(metrics.TickStopped)

	if g.position() == 0 {
		return
	}
	if err := g.flatten(ctx, ReasonWindow); err != nil {
		g.log.Error("flatten at window close failed", "position", g.position(), "err", err)
		g.event(journal.EventFailed, err.Error())
	}
}

func (g *Gate) enterHalting(d risk.Decision) {
	if g.state == Halting || g.state == Flattened {
		return
	}
	g.setState(Halting)
	g.log.Warn("session halted", "code", d.Code, "reason", d.Reason, "position", g.position())
	g.event(journal.EventHalt, d.String())
	g.opts.Metrics.Halt(d.Code)
}

// halt flattens the whole position regardless of the strategy and stays
// Flattened until the session rolls.
func (g *Gate) halt(ctx context.Context, d risk.Decision) {
	if d.Code == risk.CodeHalted && g.Session().HaltCode != "" {
		d.Code = g.Session().HaltCode
	}
	g.enterHalting(d)
	g.opts.Metrics.Tick(metrics.TickHalted)

	if g.position() != 0 {
		if err := g.flatten(ctx, ReasonHalt); err != nil {
			g.log.Error("halt flatten failed, retrying next tick", "position", g.position(), "err", err)
			g.event(journal.EventFailed, err.Error())
			return
		}
	}
	if g.state != Flattened {
		g.log.Info("position flattened", "day", g.tradingDay())
	}
	g.setState(Flattened)
}

func (g *Gate) flatten(ctx context.Context, reason string) error {
	pos := g.position()
	if pos == 0 {
		return nil
	}
	return g.trade(ctx, -pos, reason)
}

// trade places one market order for delta units with bounded retries and
// applies the fill to the ledger.
func (g *Gate) trade(ctx context.Context, delta int64, reason string) error {
	side, qty := market.SideFor(delta)
	req := broker.OrderRequest{
		Instrument:    g.opts.Instrument,
		Side:          side,
		Quantity:      qty,
		Type:          broker.Market,
		ClientOrderID: id.ClientOrderID(),
	}
	log := g.log.With("side", side.String(), "qty", qty, "reason", reason, "client_order_id", req.ClientOrderID)

	var fill broker.Fill
	start := time.Now()
	err := retry(ctx, g.opts.Retry, g.sleep, func() error {
		octx, cancel := context.WithTimeout(ctx, g.opts.OrderTimeout)
		defer cancel()
		f, err := g.broker.PlaceOrder(octx, req)
		if err != nil {
			return err
		}
		fill = f
		return nil
	}, func(attempt int, err error, wait time.Duration) {
		g.opts.Metrics.Retry()
		log.Warn("order attempt failed, retrying", "attempt", attempt, "wait", wait.String(), "err", err)
	})
	took := time.Since(start)
	if err != nil {
		result := metrics.OrderFailed
		if errors.Is(err, broker.ErrOrderRejected) {
			result = metrics.OrderRejected
		}
		g.opts.Metrics.Order(result, reason, took)
		return fmt.Errorf("place %s %d %s: %w", side, qty, g.opts.Instrument, err)
	}
	g.opts.Metrics.Order(metrics.OrderFilled, reason, took)

	applied, err := g.ledger.RecordFill(fill)
	if err != nil {
		return fmt.Errorf("record fill %s: %w", fill.OrderID, err)
	}
	if !applied {
		log.Warn("duplicate fill ignored", "key", fill.IdempotencyKey)
		return nil
	}

	log.Info("order filled", "price", fill.Price.String(), "order_id", fill.OrderID,
		"position", g.position(), "realized", g.Session().RealizedPnL.String())
	if g.opts.Journal != nil {
		if err := g.opts.Journal.RecordFill(journal.FillRecord{
			Time:           fill.Time,
			Instrument:     g.opts.Instrument,
			Side:           side.String(),
			Quantity:       fill.Quantity,
			Price:          fill.Price,
			OrderID:        fill.OrderID,
			IdempotencyKey: fill.IdempotencyKey,
			Reason:         reason,
			Position:       g.position(),
			RealizedPnL:    g.Session().RealizedPnL,
		}); err != nil {
			log.Error("journal fill", "err", err)
		}
	}
	return nil
}

func (g *Gate) event(kind, reason string) {
	if g.opts.Journal == nil {
		return
	}
	err := g.opts.Journal.RecordEvent(journal.EventRecord{
		Time:       g.opts.Now(),
		TradingDay: g.tradingDay(),
		Kind:       kind,
		State:      g.state.String(),
		Reason:     reason,
		Equity:     g.ledger.Equity(g.mark()),
	})
	if err != nil {
		g.log.Error("journal event", "kind", kind, "err", err)
	}
}

func (g *Gate) publish() {
	if g.opts.Metrics == nil {
		return
	}
	s := g.Snapshot()
	g.opts.Metrics.Ledger(s.Equity, s.RealizedPnL, s.Drawdown, s.Position.Quantity, s.Halted)
}
