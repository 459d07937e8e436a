package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, "MES", cfg.Instrument.Symbol)
	assert.Equal(t, "sim", cfg.Broker.Type)
	assert.Equal(t, 5*time.Second, cfg.Execution.PollInterval)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"zero equity", func(c *Config) { c.Account.StartingEquity = 0 }, "account.starting_equity must be positive"},
		{"no symbol", func(c *Config) { c.Instrument.Symbol = "" }, "instrument.symbol is required"},
		{"zero order size", func(c *Config) { c.Instrument.OrderSize = 0 }, "instrument.order_size must be positive"},
		{"negative loss limit", func(c *Config) { c.Risk.DailyLossLimit = -500 }, "risk.daily_loss_limit must be positive"},
		{"zero drawdown", func(c *Config) { c.Risk.MaxDrawdown = 0 }, "risk.max_drawdown must be positive"},
		{"zero max position", func(c *Config) { c.Risk.MaxPositionSize = 0 }, "risk.max_position_size must be positive"},
		{"order bigger than cap", func(c *Config) { c.Instrument.OrderSize = 5 }, "exceeds risk.max_position_size"},
		{"window backwards", func(c *Config) { c.TradingWindow.Start = "16:00"; c.TradingWindow.End = "09:30" }, "trading_window"},
		{"bad timezone", func(c *Config) { c.TradingWindow.Timezone = "Mars/Olympus" }, "trading_window"},
		{"unknown strategy", func(c *Config) { c.Strategy.Name = "martingale" }, "strategy"},
		{"bad ma windows", func(c *Config) { c.Strategy.ShortWindow = 30 }, "strategy"},
		{"zero poll", func(c *Config) { c.Execution.PollInterval = 0 }, "execution.poll_interval must be positive"},
		{"no retries", func(c *Config) { c.Execution.RetryAttempts = 0 }, "execution.retry_attempts must be at least 1"},
		{"unknown broker", func(c *Config) { c.Broker.Type = "oanda" }, "broker.type must be"},
		{"topstep without key", func(c *Config) {
			c.Broker.Type = "topstep"
			c.Broker.Topstep = TopstepConfig{Username: "u", AccountID: 7}
		}, "broker.topstep.username and api_key are required"},
		{"topstep without account", func(c *Config) {
			c.Broker.Type = "topstep"
			c.Broker.Topstep = TopstepConfig{Username: "u", APIKey: "k"}
		}, "broker.topstep.account_id is required"},
		{"alpaca without secret", func(c *Config) {
			c.Broker.Type = "alpaca"
			c.Broker.Alpaca = AlpacaConfig{KeyID: "id"}
		}, "broker.alpaca.key_id and secret_key are required"},
		{"sim without price", func(c *Config) { c.Sim.StartPrice = 0 }, "sim.start_price must be positive"},
		{"sim scripted prices", func(c *Config) { c.Sim.StartPrice = 0; c.Sim.Prices = []float64{1, 2} }, ""},
		{"journal without path", func(c *Config) { c.Journal.Path = "" }, "journal.path is required"},
		{"journal none", func(c *Config) { c.Journal = JournalConfig{Type: "none"} }, ""},
		{"journal unknown", func(c *Config) { c.Journal.Type = "parquet" }, "journal.type must be"},
		{"metrics without addr", func(c *Config) { c.Metrics = MetricsConfig{Enabled: true} }, "metrics.addr is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfigInvalid)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "riskgate.yaml")
	cfg := Default()
	cfg.Risk.DailyLossLimit = 500
	cfg.Execution.MaxQuoteAge = 30 * time.Second
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 500.0, loaded.Risk.DailyLossLimit)
	assert.Equal(t, 30*time.Second, loaded.Execution.MaxQuoteAge)
	assert.Equal(t, cfg.TradingWindow, loaded.TradingWindow)
}

func TestLoadFromYAML(t *testing.T) {
	t.Setenv("RISKGATE_TEST_KEY", "secret-key")

	path := filepath.Join(t.TempDir(), "riskgate.yaml")
	data := `
account:
  starting_equity: 10000
instrument:
  symbol: MNQ
  order_size: 2
risk:
  daily_loss_limit: 500
  max_drawdown: 1000
  max_position_size: 4
trading_window:
  start: "09:30"
  end: "16:00"
  timezone: America/Chicago
strategy:
  name: ema-cross
  short_window: 9
  long_window: 21
execution:
  poll_interval: 2s
  order_timeout: 3s
broker:
  type: topstep
  topstep:
    username: trader
    api_key: ${RISKGATE_TEST_KEY}
    account_id: 1234
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "MNQ", cfg.Instrument.Symbol)
	assert.Equal(t, 2*time.Second, cfg.Execution.PollInterval)
	assert.Equal(t, 3*time.Second, cfg.Execution.OrderTimeout)
	assert.Equal(t, 5*time.Second, cfg.Execution.QuoteTimeout, "defaults survive")
	assert.Equal(t, "secret-key", cfg.Broker.Topstep.APIKey)
	assert.Equal(t, int64(1234), cfg.Broker.Topstep.AccountID)

	w, err := cfg.Window()
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", w.Location.String())
}

func TestLoadInvalid(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("risk:\n  daily_loss_limit: -1\n"), 0o600))
	_, err = LoadFromFile(bad)
	assert.ErrorIs(t, err, ErrConfigInvalid)

	garbled := filepath.Join(dir, "garbled.yaml")
	require.NoError(t, os.WriteFile(garbled, []byte("risk: [unclosed"), 0o600))
	_, err = LoadFromFile(garbled)
	assert.Error(t, err)
}

func TestLimits(t *testing.T) {
	t.Parallel()

	cfg := Default()
	l := cfg.Limits(decimal.NewFromInt(50))
	assert.True(t, l.PointValue.Equal(decimal.NewFromInt(5)), "configured point value wins")
	assert.True(t, l.DailyLossLimit.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, int64(3), l.MaxPositionSize)
	assert.NoError(t, l.Validate())

	cfg.Instrument.PointValue = 0
	l = cfg.Limits(decimal.NewFromInt(50))
	assert.True(t, l.PointValue.Equal(decimal.NewFromInt(50)))
}
