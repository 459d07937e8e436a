// Package sim is an in-process broker: prices come from a script or a seeded
// random walk and market orders fill immediately at the current price.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rustyeddy/riskgate/broker"
	"github.com/rustyeddy/riskgate/id"
	"github.com/rustyeddy/riskgate/market"
	"github.com/shopspring/decimal"
)

type Config struct {
	StartPrice float64
	Volatility float64 // stddev of the per-quote return
	TickSize   float64
	Seed       int64
	Prices     []float64 // scripted quotes; the last one repeats
	FailEvery  int       // every n-th order fails with broker.ErrTransient
	Now        func() time.Time
}

type Engine struct {
	mu         sync.Mutex
	instrument string
	cfg        Config
	rng        *rand.Rand
	tick       decimal.Decimal
	price      decimal.Decimal
	next       int

	position int64
	orders   map[string]broker.Fill // by client order id
	calls    int
}

var _ broker.Broker = (*Engine)(nil)

func NewEngine(instrument string, cfg Config) (*Engine, error) {
	if instrument == "" {
		return nil, fmt.Errorf("sim: instrument is required")
	}
	if len(cfg.Prices) == 0 && cfg.StartPrice <= 0 {
		return nil, fmt.Errorf("sim: start price must be positive")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	e := &Engine{
		instrument: instrument,
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		tick:       decimal.NewFromFloat(cfg.TickSize),
		price:      decimal.NewFromFloat(cfg.StartPrice),
		orders:     make(map[string]broker.Fill),
	}
	return e, nil
}

// GetPrice advances the price by one step and returns it.
func (e *Engine) GetPrice(ctx context.Context, instrument string) (market.Quote, error) {
	if err := ctx.Err(); err != nil {
		return market.Quote{}, fmt.Errorf("%w: %v", broker.ErrQuoteUnavailable, err)
	}
	if instrument != e.instrument {
		return market.Quote{}, fmt.Errorf("%w: unknown instrument %q", broker.ErrQuoteUnavailable, instrument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.step()
	return market.Quote{Instrument: instrument, Price: e.price, Time: e.cfg.Now()}, nil
}

func (e *Engine) step() {
	if len(e.cfg.Prices) > 0 {
		i := min(e.next, len(e.cfg.Prices)-1)
		e.price = decimal.NewFromFloat(e.cfg.Prices[i])
		e.next++
		return
	}

	ret := e.rng.NormFloat64() * e.cfg.Volatility
	p := e.price.Mul(decimal.NewFromFloat(1 + ret))
	if e.tick.IsPositive() {
		p = p.Div(e.tick).Round(0).Mul(e.tick)
		if !p.IsPositive() {
			p = e.tick
		}
	}
	e.price = p
}

// PlaceOrder fills at the last quoted price. Repeating a client order id
// returns the first fill.
func (e *Engine) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.Fill, error) {
	if err := ctx.Err(); err != nil {
		return broker.Fill{}, err
	}
	if req.Instrument != e.instrument {
		return broker.Fill{}, fmt.Errorf("%w: unknown instrument %q", broker.ErrOrderRejected, req.Instrument)
	}
	if req.Quantity <= 0 {
		return broker.Fill{}, fmt.Errorf("%w: quantity %d", broker.ErrOrderRejected, req.Quantity)
	}
	if req.Type != broker.Market {
		return broker.Fill{}, fmt.Errorf("%w: order type %s", broker.ErrOrderRejected, req.Type)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if f, ok := e.orders[req.ClientOrderID]; ok && req.ClientOrderID != "" {
		return f, nil
	}

	e.calls++
	if e.cfg.FailEvery > 0 && e.calls%e.cfg.FailEvery == 0 {
		return broker.Fill{}, fmt.Errorf("sim: injected failure on order %d: %w", e.calls, broker.ErrTransient)
	}

	fill := broker.Fill{
		Instrument:     req.Instrument,
		Side:           req.Side,
		Quantity:       req.Quantity,
		Price:          e.price,
		Time:           e.cfg.Now(),
		OrderID:        id.WithPrefix("sim"),
		IdempotencyKey: id.New(),
	}
	e.position += fill.Signed()
	if req.ClientOrderID != "" {
		e.orders[req.ClientOrderID] = fill
	}
	return fill, nil
}

func (e *Engine) GetPosition(ctx context.Context, instrument string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if instrument != e.instrument {
		return 0, nil
	}
	return e.position, nil
}

// SetPosition seeds the broker-side position, e.g. to exercise startup
// reconciliation.
func (e *Engine) SetPosition(qty int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = qty
}
