package journal

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatFillOrg(t *testing.T) {
	t.Parallel()

	f := FillRecord{
		Time:           time.Date(2025, 6, 2, 14, 30, 5, 0, time.UTC),
		Instrument:     "MES",
		Side:           "SELL",
		Quantity:       2,
		Price:          decimal.RequireFromString("5012.25"),
		OrderID:        "ord-1234567890",
		IdempotencyKey: "sim-abc",
		Reason:         "halt",
		Position:       0,
		RealizedPnL:    decimal.RequireFromString("-512.5"),
	}

	out := FormatFillOrg(f)
	assert.Contains(t, out, "** Fill: MES SELL 2 @ 5012.25 (ord-1234)")
	assert.Contains(t, out, ":TIME: 2025-06-02T14:30:05Z")
	assert.Contains(t, out, ":IDEMPOTENCY_KEY: sim-abc")
	assert.Contains(t, out, ":REASON: halt")
	assert.Contains(t, out, ":REALIZED_PL: -512.50")
	assert.Contains(t, out, ":END:")
}

func TestFormatDayOrg(t *testing.T) {
	t.Parallel()

	fills := []FillRecord{
		{Time: time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC), Side: "BUY", Quantity: 1, Price: decimal.NewFromInt(100), Position: 1, RealizedPnL: decimal.Zero, Reason: "strategy"},
		{Time: time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC), Side: "SELL", Quantity: 1, Price: decimal.NewFromInt(110), Position: 0, RealizedPnL: decimal.NewFromInt(50), Reason: "window"},
	}
	events := []EventRecord{
		{Time: time.Date(2025, 6, 2, 20, 0, 1, 0, time.UTC), Kind: EventStopped, State: "STOPPED", Reason: "outside trading window", Equity: decimal.NewFromInt(10050)},
	}

	out := FormatDayOrg("2025-06-02", fills, events)
	assert.Contains(t, out, "* Trading day 2025-06-02")
	assert.Contains(t, out, ":FILLS: 2")
	assert.Contains(t, out, ":REALIZED_PL: 50.00")
	assert.Contains(t, out, "| 15:00:00 | SELL | 1 | 110 | 0 | 50.00 | window |")
	assert.Contains(t, out, "- 2025-06-02T20:00:01Z stopped [STOPPED] outside trading window (equity 10050.00)")

	empty := FormatDayOrg("2025-06-03", nil, nil)
	assert.NotContains(t, empty, ":PROPERTIES:")
	assert.Contains(t, empty, "** Fills\nnone")
}

func TestShortID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "short", shortID("short"))
	assert.Equal(t, "12345678", shortID("1234567890"))
}
