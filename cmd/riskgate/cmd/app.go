package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/rustyeddy/riskgate/broker"
	"github.com/rustyeddy/riskgate/broker/alpaca"
	"github.com/rustyeddy/riskgate/broker/sim"
	"github.com/rustyeddy/riskgate/broker/topstep"
	"github.com/rustyeddy/riskgate/config"
	"github.com/rustyeddy/riskgate/gate"
	"github.com/rustyeddy/riskgate/journal"
	"github.com/rustyeddy/riskgate/metrics"
	"github.com/rustyeddy/riskgate/risk"
	"github.com/rustyeddy/riskgate/session"
	"github.com/rustyeddy/riskgate/strategies"
	"github.com/shopspring/decimal"
)

// app is everything "run" wires together from one config.
type app struct {
	gate    *gate.Gate
	metrics *metrics.Metrics
	journal journal.Journal
}

func (a *app) Close() error {
	if a.journal == nil {
		return nil
	}
	return a.journal.Close()
}

func buildApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	b, err := buildBroker(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("broker: %w", err)
	}

	pv, err := resolvePointValue(ctx, cfg, b)
	if err != nil {
		return nil, err
	}
	limits := cfg.Limits(pv)
	if err := limits.Validate(); err != nil {
		return nil, err
	}

	window, err := cfg.Window()
	if err != nil {
		return nil, err
	}
	sess := session.New(cfg.StartingEquity())
	clock := session.NewClock(window, sess)
	ledger := risk.NewLedger(limits, sess, cfg.Instrument.Symbol)

	strat, err := strategies.ByName(cfg.StrategyParams())
	if err != nil {
		return nil, err
	}

	a := &app{}
	if a.journal, err = journal.Open(cfg.Journal.Type, cfg.Journal.Path); err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
	}

	ex := cfg.Execution
	a.gate, err = gate.New(b, strat, clock, ledger, gate.Options{
		Instrument:      cfg.Instrument.Symbol,
		OrderSize:       cfg.Instrument.OrderSize,
		HistorySize:     ex.HistorySize,
		PollInterval:    ex.PollInterval,
		QuoteTimeout:    ex.QuoteTimeout,
		OrderTimeout:    ex.OrderTimeout,
		ShutdownTimeout: ex.ShutdownTimeout,
		MaxQuoteAge:     ex.MaxQuoteAge,
		Retry:           gate.Backoff{Attempts: ex.RetryAttempts, Base: ex.RetryBase, Max: ex.RetryMax},
		Logger:          log,
		Journal:         a.journal,
		Metrics:         a.metrics,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	log.Info("gate configured",
		"broker", cfg.Broker.Type,
		"instrument", cfg.Instrument.Symbol,
		"strategy", strat.Name(),
		"window", window.String(),
		"daily_loss_limit", limits.DailyLossLimit.String(),
		"max_drawdown", limits.MaxDrawdown.String(),
		"max_position", limits.MaxPositionSize,
		"point_value", limits.PointValue.String(),
	)
	return a, nil
}

func buildBroker(ctx context.Context, cfg *config.Config, log *slog.Logger) (broker.Broker, error) {
	switch cfg.Broker.Type {
	case "sim":
		return sim.NewEngine(cfg.Instrument.Symbol, sim.Config{
			StartPrice: cfg.Sim.StartPrice,
			Volatility: cfg.Sim.Volatility,
			TickSize:   cfg.Sim.TickSize,
			Seed:       cfg.Sim.Seed,
			Prices:     cfg.Sim.Prices,
			FailEvery:  cfg.Sim.FailEvery,
		})

	case "topstep":
		ts := cfg.Broker.Topstep
		client := topstep.NewClient(ts.BaseURL, ts.Username, ts.APIKey)
		return topstep.New(ctx, client, topstep.Options{
			AccountID: ts.AccountID,
			Symbol:    cfg.Instrument.Symbol,
			Live:      ts.Live,
			Logger:    log,
		})

	case "alpaca":
		ac := cfg.Broker.Alpaca
		return alpaca.Dial(alpaca.Credentials{
			KeyID:     ac.KeyID,
			SecretKey: ac.SecretKey,
			BaseURL:   ac.BaseURL,
			DataURL:   ac.DataURL,
		}, alpaca.Options{
			Symbol: cfg.Instrument.Symbol,
			Feed:   marketdata.Feed(ac.Feed),
			Logger: log,
		})

	default:
		return nil, fmt.Errorf("%w: unknown broker type %q", config.ErrConfigInvalid, cfg.Broker.Type)
	}
}

// resolvePointValue prefers the configured value, then the broker's contract
// data, then 1.
func resolvePointValue(ctx context.Context, cfg *config.Config, b broker.Broker) (decimal.Decimal, error) {
	if cfg.Instrument.PointValue > 0 {
		return decimal.NewFromFloat(cfg.Instrument.PointValue), nil
	}
	pv, ok := b.(broker.PointValuer)
	if !ok {
		return decimal.NewFromInt(1), nil
	}
	v, err := pv.PointValue(ctx, cfg.Instrument.Symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("point value: %w", err)
	}
	if !v.IsPositive() {
		return decimal.Zero, errors.New("point value: broker reported a non-positive value")
	}
	return v, nil
}
