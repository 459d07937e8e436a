package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rustyeddy/riskgate/logging"
	"github.com/rustyeddy/riskgate/risk"
	"github.com/rustyeddy/riskgate/session"
	"github.com/rustyeddy/riskgate/strategies"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ErrConfigInvalid is fatal at startup.
var ErrConfigInvalid = errors.New("invalid config")

// Config is loaded once at startup and passed by value to constructors.
type Config struct {
	Account       AccountConfig    `yaml:"account"`
	Instrument    InstrumentConfig `yaml:"instrument"`
	Risk          RiskConfig       `yaml:"risk"`
	TradingWindow WindowConfig     `yaml:"trading_window"`
	Strategy      StrategyConfig   `yaml:"strategy"`
	Execution     ExecutionConfig  `yaml:"execution"`
	Broker        BrokerConfig     `yaml:"broker"`
	Journal       JournalConfig    `yaml:"journal"`
	Logging       LoggingConfig    `yaml:"logging"`
	Metrics       MetricsConfig    `yaml:"metrics"`
	Sim           SimConfig        `yaml:"sim"`
}

type AccountConfig struct {
	ID             string  `yaml:"id"`
	StartingEquity float64 `yaml:"starting_equity"`
}

type InstrumentConfig struct {
	Symbol     string  `yaml:"symbol"`
	OrderSize  int64   `yaml:"order_size"`
	PointValue float64 `yaml:"point_value,omitempty"` // 0 asks the broker
}

type RiskConfig struct {
	DailyLossLimit  float64 `yaml:"daily_loss_limit"`
	MaxDrawdown     float64 `yaml:"max_drawdown"`
	MaxPositionSize int64   `yaml:"max_position_size"`
}

// WindowConfig holds "HH:MM[:SS]" times in an IANA zone.
type WindowConfig struct {
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Timezone string `yaml:"timezone"`
}

type StrategyConfig struct {
	Name        string `yaml:"name"`
	ShortWindow int    `yaml:"short_window,omitempty"`
	LongWindow  int    `yaml:"long_window,omitempty"`
	Position    string `yaml:"position,omitempty"`
}

type ExecutionConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval"`
	QuoteTimeout    time.Duration `yaml:"quote_timeout"`
	OrderTimeout    time.Duration `yaml:"order_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxQuoteAge     time.Duration `yaml:"max_quote_age,omitempty"`
	RetryAttempts   int           `yaml:"retry_attempts"`
	RetryBase       time.Duration `yaml:"retry_base"`
	RetryMax        time.Duration `yaml:"retry_max"`
	HistorySize     int           `yaml:"history_size"`
}

type BrokerConfig struct {
	Type    string        `yaml:"type"` // sim, topstep, alpaca
	Topstep TopstepConfig `yaml:"topstep,omitempty"`
	Alpaca  AlpacaConfig  `yaml:"alpaca,omitempty"`
}

// Credential fields may reference environment variables as $VAR or ${VAR}.
type TopstepConfig struct {
	BaseURL   string `yaml:"base_url"`
	Username  string `yaml:"username"`
	APIKey    string `yaml:"api_key"`
	AccountID int64  `yaml:"account_id"`
	Live      bool   `yaml:"live,omitempty"`
}

type AlpacaConfig struct {
	KeyID     string `yaml:"key_id"`
	SecretKey string `yaml:"secret_key"`
	BaseURL   string `yaml:"base_url,omitempty"`
	DataURL   string `yaml:"data_url,omitempty"`
	Feed      string `yaml:"feed,omitempty"` // iex, sip
}

type JournalConfig struct {
	Type string `yaml:"type"` // sqlite, csv, none
	Path string `yaml:"path,omitempty"`
}

type LoggingConfig struct {
	Level       string   `yaml:"level"`
	Development bool     `yaml:"development,omitempty"`
	OutputPaths []string `yaml:"output_paths,omitempty"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// SimConfig drives the simulated broker: scripted prices when Prices is set,
// otherwise a seeded random walk from StartPrice.
type SimConfig struct {
	StartPrice float64   `yaml:"start_price"`
	Volatility float64   `yaml:"volatility"`
	TickSize   float64   `yaml:"tick_size"`
	Seed       int64     `yaml:"seed"`
	Prices     []float64 `yaml:"prices,omitempty"`
	FailEvery  int       `yaml:"fail_every,omitempty"`
}

// LoadFromFile reads a YAML config, expands credential env vars and
// validates it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.expandEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveToFile writes the config as YAML.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func (c *Config) expandEnv() {
	c.Broker.Topstep.Username = os.ExpandEnv(c.Broker.Topstep.Username)
	c.Broker.Topstep.APIKey = os.ExpandEnv(c.Broker.Topstep.APIKey)
	c.Broker.Alpaca.KeyID = os.ExpandEnv(c.Broker.Alpaca.KeyID)
	c.Broker.Alpaca.SecretKey = os.ExpandEnv(c.Broker.Alpaca.SecretKey)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfigInvalid, fmt.Sprintf(format, args...))
}

// Validate checks if the configuration is valid. Every error wraps
// ErrConfigInvalid.
func (c *Config) Validate() error {
	if c.Account.StartingEquity <= 0 {
		return invalid("account.starting_equity must be positive")
	}
	if c.Instrument.Symbol == "" {
		return invalid("instrument.symbol is required")
	}
	if c.Instrument.OrderSize <= 0 {
		return invalid("instrument.order_size must be positive")
	}
	if c.Instrument.PointValue < 0 {
		return invalid("instrument.point_value must not be negative")
	}
	if c.Risk.DailyLossLimit <= 0 {
		return invalid("risk.daily_loss_limit must be positive")
	}
	if c.Risk.MaxDrawdown <= 0 {
		return invalid("risk.max_drawdown must be positive")
	}
	if c.Risk.MaxPositionSize <= 0 {
		return invalid("risk.max_position_size must be positive")
	}
	if c.Instrument.OrderSize > c.Risk.MaxPositionSize {
		return invalid("instrument.order_size %d exceeds risk.max_position_size %d",
			c.Instrument.OrderSize, c.Risk.MaxPositionSize)
	}
	if _, err := c.Window(); err != nil {
		return invalid("trading_window: %v", err)
	}
	if _, err := strategies.ByName(c.StrategyParams()); err != nil {
		return invalid("strategy: %v", err)
	}
	if err := c.Execution.validate(); err != nil {
		return err
	}
	if err := c.Broker.validate(); err != nil {
		return err
	}
	if c.Broker.Type == "sim" && len(c.Sim.Prices) == 0 && c.Sim.StartPrice <= 0 {
		return invalid("sim.start_price must be positive")
	}
	switch c.Journal.Type {
	case "", "none":
	case "sqlite", "csv":
		if c.Journal.Path == "" {
			return invalid("journal.path is required for %s", c.Journal.Type)
		}
	default:
		return invalid("journal.type must be 'sqlite', 'csv' or 'none'")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return invalid("metrics.addr is required when metrics are enabled")
	}
	return nil
}

func (e ExecutionConfig) validate() error {
	for name, d := range map[string]time.Duration{
		"poll_interval":    e.PollInterval,
		"quote_timeout":    e.QuoteTimeout,
		"order_timeout":    e.OrderTimeout,
		"shutdown_timeout": e.ShutdownTimeout,
	} {
		if d <= 0 {
			return invalid("execution.%s must be positive", name)
		}
	}
	if e.MaxQuoteAge < 0 {
		return invalid("execution.max_quote_age must not be negative")
	}
	if e.RetryAttempts < 1 {
		return invalid("execution.retry_attempts must be at least 1")
	}
	if e.RetryBase < 0 || e.RetryMax < e.RetryBase {
		return invalid("execution.retry_base must be >= 0 and <= retry_max")
	}
	return nil
}

func (b BrokerConfig) validate() error {
	switch b.Type {
	case "sim":
	case "topstep":
		if b.Topstep.Username == "" || b.Topstep.APIKey == "" {
			return invalid("broker.topstep.username and api_key are required")
		}
		if b.Topstep.AccountID <= 0 {
			return invalid("broker.topstep.account_id is required")
		}
	case "alpaca":
		if b.Alpaca.KeyID == "" || b.Alpaca.SecretKey == "" {
			return invalid("broker.alpaca.key_id and secret_key are required")
		}
	default:
		return invalid("broker.type must be 'sim', 'topstep' or 'alpaca'")
	}
	return nil
}

// Window parses the trading window.
func (c *Config) Window() (session.Window, error) {
	return session.ParseWindow(c.TradingWindow.Start, c.TradingWindow.End, c.TradingWindow.Timezone)
}

// Limits builds the risk limits. pointValue is used when the config does not
// set one.
func (c *Config) Limits(pointValue decimal.Decimal) risk.Limits {
	if c.Instrument.PointValue > 0 {
		pointValue = decimal.NewFromFloat(c.Instrument.PointValue)
	}
	return risk.Limits{
		DailyLossLimit:  decimal.NewFromFloat(c.Risk.DailyLossLimit),
		MaxDrawdown:     decimal.NewFromFloat(c.Risk.MaxDrawdown),
		MaxPositionSize: c.Risk.MaxPositionSize,
		PointValue:      pointValue,
	}
}

func (c *Config) StartingEquity() decimal.Decimal {
	return decimal.NewFromFloat(c.Account.StartingEquity)
}

func (c *Config) StrategyParams() strategies.Params {
	return strategies.Params{
		Name:        c.Strategy.Name,
		ShortWindow: c.Strategy.ShortWindow,
		LongWindow:  c.Strategy.LongWindow,
		Position:    c.Strategy.Position,
	}
}

func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:       c.Logging.Level,
		Development: c.Logging.Development,
		OutputPaths: c.Logging.OutputPaths,
	}
}

// Default returns a configuration with sensible defaults: one MES contract on
// the simulated broker during US cash hours.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:             "SIM-001",
			StartingEquity: 50000,
		},
		Instrument: InstrumentConfig{
			Symbol:     "MES",
			OrderSize:  1,
			PointValue: 5,
		},
		Risk: RiskConfig{
			DailyLossLimit:  1000,
			MaxDrawdown:     2000,
			MaxPositionSize: 3,
		},
		TradingWindow: WindowConfig{
			Start:    "09:30",
			End:      "16:00",
			Timezone: "America/New_York",
		},
		Strategy: StrategyConfig{
			Name:        "ma-crossover",
			ShortWindow: 5,
			LongWindow:  20,
		},
		Execution: ExecutionConfig{
			PollInterval:    5 * time.Second,
			QuoteTimeout:    5 * time.Second,
			OrderTimeout:    5 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RetryAttempts:   4,
			RetryBase:       250 * time.Millisecond,
			RetryMax:        4 * time.Second,
			HistorySize:     500,
		},
		Broker: BrokerConfig{
			Type: "sim",
			Topstep: TopstepConfig{
				BaseURL:  "https://api.topstepx.com",
				Username: "${TOPSTEPX_USERNAME}",
				APIKey:   "${TOPSTEPX_API_KEY}",
			},
			Alpaca: AlpacaConfig{
				KeyID:     "${APCA_API_KEY_ID}",
				SecretKey: "${APCA_API_SECRET_KEY}",
				BaseURL:   "https://paper-api.alpaca.markets",
				Feed:      "iex",
			},
		},
		Journal: JournalConfig{
			Type: "sqlite",
			Path: "./riskgate.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
			Path: "/metrics",
		},
		Sim: SimConfig{
			StartPrice: 5000,
			Volatility: 0.0005,
			TickSize:   0.25,
			Seed:       1,
		},
	}
}
