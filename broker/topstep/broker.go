package topstep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/riskgate/broker"
	"github.com/rustyeddy/riskgate/id"
	"github.com/rustyeddy/riskgate/market"
	"github.com/shopspring/decimal"
)

type Options struct {
	AccountID int64
	Symbol    string // "CON.F.US.MES.M25" or search text such as "MES"
	Live      bool

	// Fill prices are read back from the trade search. FillPolls attempts
	// FillPollInterval apart before falling back to the last quote.
	FillPolls        int
	FillPollInterval time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// Broker adapts the TopstepX gateway to broker.Broker for one contract.
type Broker struct {
	client   *Client
	opts     Options
	contract Contract
	log      *slog.Logger
	last     market.Quote
}

var (
	_ broker.Broker      = (*Broker)(nil)
	_ broker.PointValuer = (*Broker)(nil)
)

// New logs in and resolves the configured symbol to a contract.
func New(ctx context.Context, c *Client, opts Options) (*Broker, error) {
	if opts.AccountID <= 0 {
		return nil, errors.New("topstep: account id is required")
	}
	if opts.Symbol == "" {
		return nil, errors.New("topstep: symbol is required")
	}
	if opts.FillPolls <= 0 {
		opts.FillPolls = 3
	}
	if opts.FillPollInterval <= 0 {
		opts.FillPollInterval = 250 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if err := c.Login(ctx); err != nil {
		return nil, err
	}
	b := &Broker{client: c, opts: opts, log: opts.Logger.With("broker", "topstep")}
	contract, err := b.resolve(ctx, opts.Symbol)
	if err != nil {
		return nil, err
	}
	b.contract = contract
	b.log.Info("resolved contract", "symbol", opts.Symbol, "contract", contract.ID,
		"tick_size", contract.TickSize, "tick_value", contract.TickValue)
	return b, nil
}

func (b *Broker) Contract() Contract { return b.contract }

func (b *Broker) resolve(ctx context.Context, symbol string) (Contract, error) {
	if strings.HasPrefix(symbol, "CON.") {
		return b.client.ContractByID(ctx, symbol)
	}

	contracts, err := b.client.SearchContracts(ctx, symbol, b.opts.Live)
	if err != nil {
		return Contract{}, err
	}
	c, ok := pickContract(symbol, contracts)
	if !ok {
		return Contract{}, fmt.Errorf("topstep: no contract found for %q", symbol)
	}
	return c, nil
}

// pickContract prefers an exact name match. Otherwise a symbol starting with
// "M" selects the micro (smallest tick value) and anything else the full-size
// contract (largest tick value).
func pickContract(symbol string, contracts []Contract) (Contract, bool) {
	switch len(contracts) {
	case 0:
		return Contract{}, false
	case 1:
		return contracts[0], true
	}

	want := strings.ToUpper(symbol)
	for _, c := range contracts {
		if strings.ToUpper(c.Name) == want {
			return c, true
		}
	}

	byTickValue := func(a, b Contract) int {
		switch {
		case a.TickValue < b.TickValue:
			return -1
		case a.TickValue > b.TickValue:
			return 1
		default:
			return 0
		}
	}
	if strings.HasPrefix(want, "M") {
		return slices.MinFunc(contracts, byTickValue), true
	}
	return slices.MaxFunc(contracts, byTickValue), true
}

func (b *Broker) owns(instrument string) bool {
	return instrument == b.opts.Symbol || instrument == b.contract.ID
}

// PointValue is tickValue / tickSize of the resolved contract.
func (b *Broker) PointValue(_ context.Context, instrument string) (decimal.Decimal, error) {
	if !b.owns(instrument) {
		return decimal.Zero, fmt.Errorf("topstep: unknown instrument %q", instrument)
	}
	if b.contract.TickSize <= 0 || b.contract.TickValue <= 0 {
		return decimal.Zero, fmt.Errorf("topstep: contract %s has no tick data", b.contract.ID)
	}
	return decimal.NewFromFloat(b.contract.TickValue).Div(decimal.NewFromFloat(b.contract.TickSize)), nil
}

func (b *Broker) GetPrice(ctx context.Context, instrument string) (market.Quote, error) {
	if !b.owns(instrument) {
		return market.Quote{}, fmt.Errorf("%w: unknown instrument %q", broker.ErrQuoteUnavailable, instrument)
	}
	c, err := b.client.ContractByID(ctx, b.contract.ID)
	if err != nil {
		return market.Quote{}, fmt.Errorf("%w: %w", broker.ErrQuoteUnavailable, err)
	}
	px, ok := c.Price()
	if !ok {
		return market.Quote{}, fmt.Errorf("%w: no price in contract data for %s", broker.ErrQuoteUnavailable, c.ID)
	}
	b.last = market.Quote{Instrument: instrument, Price: decimal.NewFromFloat(px), Time: b.opts.Now()}
	return b.last, nil
}

func (b *Broker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.Fill, error) {
	if !b.owns(req.Instrument) {
		return broker.Fill{}, fmt.Errorf("%w: unknown instrument %q", broker.ErrOrderRejected, req.Instrument)
	}
	if req.Type != broker.Market || req.Quantity <= 0 {
		return broker.Fill{}, fmt.Errorf("%w: unsupported order %s x%d", broker.ErrOrderRejected, req.Type, req.Quantity)
	}

	side := SideBid
	if req.Side == market.Sell {
		side = SideAsk
	}
	placed := b.opts.Now()
	orderID, err := b.client.PlaceOrder(ctx, PlaceOrderRequest{
		AccountID:  b.opts.AccountID,
		ContractID: b.contract.ID,
		Type:       OrderTypeMarket,
		Side:       side,
		Size:       req.Quantity,
		CustomTag:  req.ClientOrderID,
	})
	if errors.Is(err, ErrOrderFailed) && req.ClientOrderID != "" {
		// A retry after a timed-out attempt is refused when the first one
		// went through, since customTag is unique per account.
		if prior, ok := b.findOrder(ctx, req.ClientOrderID, placed); ok {
			b.log.Info("order already placed", "client_order_id", req.ClientOrderID, "order_id", prior.ID)
			orderID, err = prior.ID, nil
			if !prior.CreationTimestamp.IsZero() {
				placed = prior.CreationTimestamp
			}
		}
	}
	if err != nil {
		if errors.Is(err, ErrOrderFailed) {
			return broker.Fill{}, fmt.Errorf("%w: %w", broker.ErrOrderRejected, err)
		}
		return broker.Fill{}, err
	}

	price, at := b.fillPrice(ctx, orderID, placed)
	return broker.Fill{
		Instrument:     req.Instrument,
		Side:           req.Side,
		Quantity:       req.Quantity,
		Price:          price,
		Time:           at,
		OrderID:        strconv.FormatInt(orderID, 10),
		IdempotencyKey: id.FillKey("topstep", strconv.FormatInt(orderID, 10)),
	}, nil
}

// orderLookback bounds the order search for an earlier attempt.
const orderLookback = time.Hour

// findOrder looks for an order on this account and contract carrying tag.
func (b *Broker) findOrder(ctx context.Context, tag string, before time.Time) (Order, bool) {
	orders, err := b.client.SearchOrders(ctx, b.opts.AccountID, before.Add(-orderLookback))
	if err != nil {
		b.log.Warn("order search failed", "client_order_id", tag, "err", err)
		return Order{}, false
	}
	for _, o := range orders {
		if o.CustomTag != tag || o.ContractID != b.contract.ID {
			continue
		}
		switch o.Status {
		case OrderStatusCancelled, OrderStatusExpired, OrderStatusRejected:
			if o.FillVolume == 0 {
				return Order{}, false
			}
		}
		return o, true
	}
	return Order{}, false
}

// fillPrice averages the executions of orderID. When none show up in time it
// returns the last quote.
func (b *Broker) fillPrice(ctx context.Context, orderID int64, since time.Time) (decimal.Decimal, time.Time) {
	for i := 0; i < b.opts.FillPolls; i++ {
		trades, err := b.client.SearchTrades(ctx, b.opts.AccountID, since.Add(-time.Minute))
		if err == nil {
			if px, at, ok := averageFill(trades, orderID); ok {
				return px, at
			}
		} else {
			b.log.Warn("trade search failed", "order_id", orderID, "err", err)
		}

		if !wait(ctx, b.opts.FillPollInterval) {
			break
		}
	}
	b.log.Warn("fill price not reported, using last quote", "order_id", orderID, "price", b.last.Price.String())
	return b.last.Price, b.opts.Now()
}

func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func averageFill(trades []Trade, orderID int64) (decimal.Decimal, time.Time, bool) {
	var (
		notional decimal.Decimal
		size     int64
		at       time.Time
	)
	for _, t := range trades {
		if t.OrderID != orderID || t.Voided || t.Size <= 0 {
			continue
		}
		notional = notional.Add(decimal.NewFromFloat(t.Price).Mul(decimal.NewFromInt(t.Size)))
		size += t.Size
		if t.CreationTimestamp.After(at) {
			at = t.CreationTimestamp
		}
	}
	if size == 0 {
		return decimal.Zero, time.Time{}, false
	}
	return notional.Div(decimal.NewFromInt(size)), at, true
}

func (b *Broker) GetPosition(ctx context.Context, instrument string) (int64, error) {
	if !b.owns(instrument) {
		return 0, fmt.Errorf("topstep: unknown instrument %q", instrument)
	}
	positions, err := b.client.OpenPositions(ctx, b.opts.AccountID)
	if err != nil {
		return 0, err
	}
	var qty int64
	for _, p := range positions {
		if p.ContractID == b.contract.ID {
			qty += p.Signed()
		}
	}
	return qty, nil
}
