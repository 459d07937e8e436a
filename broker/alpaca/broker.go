// Package alpaca adapts the Alpaca trading and market data APIs to
// broker.Broker for a single symbol.
package alpaca

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apca "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/rustyeddy/riskgate/broker"
	"github.com/rustyeddy/riskgate/id"
	"github.com/rustyeddy/riskgate/market"
	"github.com/shopspring/decimal"
)

// Trading is the subset of *alpaca.Client the adapter uses.
type Trading interface {
	PlaceOrder(req apca.PlaceOrderRequest) (*apca.Order, error)
	GetOrder(orderID string) (*apca.Order, error)
	GetOrderByClientOrderID(clientOrderID string) (*apca.Order, error)
	GetPosition(symbol string) (*apca.Position, error)
}

// MarketData is the subset of *marketdata.Client the adapter uses.
type MarketData interface {
	GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error)
}

type Options struct {
	Symbol string
	Feed   marketdata.Feed

	FillPolls        int
	FillPollInterval time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

type Broker struct {
	trading Trading
	data    MarketData
	opts    Options
	log     *slog.Logger
	last    market.Quote
}

var _ broker.Broker = (*Broker)(nil)

// Credentials for Dial.
type Credentials struct {
	KeyID     string
	SecretKey string
	BaseURL   string
	DataURL   string
}

// Dial builds the SDK clients and wraps them.
func Dial(c Credentials, opts Options) (*Broker, error) {
	if c.KeyID == "" || c.SecretKey == "" {
		return nil, errors.New("alpaca: key id and secret key are required")
	}
	trading := apca.NewClient(apca.ClientOpts{
		APIKey:    c.KeyID,
		APISecret: c.SecretKey,
		BaseURL:   c.BaseURL,
	})
	dataOpts := marketdata.ClientOpts{
		APIKey:    c.KeyID,
		APISecret: c.SecretKey,
	}
	if c.DataURL != "" {
		dataOpts.BaseURL = c.DataURL
	}
	return New(trading, marketdata.NewClient(dataOpts), opts)
}

func New(trading Trading, data MarketData, opts Options) (*Broker, error) {
	if trading == nil || data == nil {
		return nil, errors.New("alpaca: trading and market data clients are required")
	}
	if opts.Symbol == "" {
		return nil, errors.New("alpaca: symbol is required")
	}
	if opts.FillPolls <= 0 {
		opts.FillPolls = 10
	}
	if opts.FillPollInterval <= 0 {
		opts.FillPollInterval = 200 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Broker{
		trading: trading,
		data:    data,
		opts:    opts,
		log:     opts.Logger.With("broker", "alpaca"),
	}, nil
}

func (b *Broker) owns(instrument string) bool {
	return strings.EqualFold(instrument, b.opts.Symbol)
}

func (b *Broker) GetPrice(ctx context.Context, instrument string) (market.Quote, error) {
	if !b.owns(instrument) {
		return market.Quote{}, fmt.Errorf("%w: unknown instrument %q", broker.ErrQuoteUnavailable, instrument)
	}
	if err := ctx.Err(); err != nil {
		return market.Quote{}, err
	}
	t, err := b.data.GetLatestTrade(b.opts.Symbol, marketdata.GetLatestTradeRequest{Feed: b.opts.Feed})
	if err != nil {
		return market.Quote{}, fmt.Errorf("%w: %w", broker.ErrQuoteUnavailable, err)
	}
	if t == nil {
		return market.Quote{}, fmt.Errorf("%w: no trade for %s", broker.ErrQuoteUnavailable, b.opts.Symbol)
	}
	at := t.Timestamp
	if at.IsZero() {
		at = b.opts.Now()
	}
	b.last = market.Quote{Instrument: instrument, Price: decimal.NewFromFloat(t.Price), Time: at}
	return b.last, nil
}

func (b *Broker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.Fill, error) {
	if !b.owns(req.Instrument) {
		return broker.Fill{}, fmt.Errorf("%w: unknown instrument %q", broker.ErrOrderRejected, req.Instrument)
	}
	if req.Type != broker.Market || req.Quantity <= 0 {
		return broker.Fill{}, fmt.Errorf("%w: unsupported order %s x%d", broker.ErrOrderRejected, req.Type, req.Quantity)
	}
	if err := ctx.Err(); err != nil {
		return broker.Fill{}, err
	}

	qty := decimal.NewFromInt(req.Quantity)
	order, err := b.trading.PlaceOrder(apca.PlaceOrderRequest{
		Symbol:        b.opts.Symbol,
		Qty:           &qty,
		Side:          toSide(req.Side),
		Type:          apca.Market,
		TimeInForce:   apca.Day,
		ClientOrderID: req.ClientOrderID,
	})
	if err != nil && isDuplicateClientID(err) && req.ClientOrderID != "" {
		// An earlier attempt reached the exchange. Pick that order up.
		b.log.Info("order already submitted", "client_order_id", req.ClientOrderID)
		order, err = b.trading.GetOrderByClientOrderID(req.ClientOrderID)
	}
	if err != nil {
		return broker.Fill{}, classify(err)
	}

	order, err = b.awaitFill(ctx, order)
	if err != nil {
		return broker.Fill{}, err
	}
	return b.toFill(req, order), nil
}

// awaitFill polls until the order is filled or final. An order still working
// when the polls run out is a transient failure: a retry with the same client
// order id picks it up again.
func (b *Broker) awaitFill(ctx context.Context, order *apca.Order) (*apca.Order, error) {
	for i := 0; ; i++ {
		switch order.Status {
		case "filled":
			return order, nil
		case "rejected", "canceled", "expired":
			if order.FilledQty.IsPositive() {
				return order, nil
			}
			return nil, fmt.Errorf("%w: order %s %s", broker.ErrOrderRejected, order.ID, order.Status)
		}
		if i >= b.opts.FillPolls || !wait(ctx, b.opts.FillPollInterval) {
			return nil, fmt.Errorf("%w: order %s still %s, filled %s of %s",
				broker.ErrTransient, order.ID, order.Status, order.FilledQty, order.Qty)
		}
		next, err := b.trading.GetOrder(order.ID)
		if err != nil {
			b.log.Warn("order lookup failed", "order_id", order.ID, "err", err)
			continue
		}
		order = next
	}
}

func (b *Broker) toFill(req broker.OrderRequest, o *apca.Order) broker.Fill {
	f := broker.Fill{
		Instrument:     req.Instrument,
		Side:           req.Side,
		Quantity:       req.Quantity,
		Price:          b.last.Price,
		Time:           b.opts.Now(),
		OrderID:        o.ID,
		IdempotencyKey: id.FillKey("alpaca", o.ID),
	}
	if o.FilledQty.IsPositive() {
		f.Quantity = o.FilledQty.IntPart()
	}
	if o.FilledAvgPrice != nil && o.FilledAvgPrice.IsPositive() {
		f.Price = *o.FilledAvgPrice
	} else {
		b.log.Warn("fill price not reported, using last quote", "order_id", o.ID, "status", o.Status, "price", f.Price.String())
	}
	if o.FilledAt != nil {
		f.Time = *o.FilledAt
	}
	return f
}

func (b *Broker) GetPosition(ctx context.Context, instrument string) (int64, error) {
	if !b.owns(instrument) {
		return 0, fmt.Errorf("alpaca: unknown instrument %q", instrument)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p, err := b.trading.GetPosition(b.opts.Symbol)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return 0, nil
		}
		return 0, classify(err)
	}
	return signedQty(p), nil
}

func signedQty(p *apca.Position) int64 {
	if p == nil {
		return 0
	}
	qty := p.Qty.Abs().IntPart()
	if strings.EqualFold(p.Side, "short") {
		return -qty
	}
	return qty
}

func toSide(s market.Side) apca.Side {
	if s == market.Sell {
		return apca.Sell
	}
	return apca.Buy
}

func statusOf(err error) int {
	var apiErr *apca.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// classify maps SDK errors onto the broker sentinels. Throttling, 5xx and
// transport failures are transient, any other API error is final.
func classify(err error) error {
	switch status := statusOf(err); {
	case status == 0:
		return fmt.Errorf("alpaca: %w: %w", broker.ErrTransient, err)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("alpaca: status %d: %w: %w", status, broker.ErrTransient, err)
	default:
		return fmt.Errorf("alpaca: status %d: %w: %w", status, broker.ErrOrderRejected, err)
	}
}

func isDuplicateClientID(err error) bool {
	var apiErr *apca.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnprocessableEntity {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "client_order_id")
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
