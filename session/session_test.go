package session

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestParseWindow(t *testing.T) {
	t.Parallel()

	w, err := ParseWindow("09:30", "16:00:00", "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{9, 30, 0}, w.Start)
	assert.Equal(t, TimeOfDay{16, 0, 0}, w.End)
	assert.Equal(t, "America/New_York", w.Location.String())

	tests := []struct {
		name, start, end, tz string
	}{
		{"start after end", "16:00", "09:30", ""},
		{"start equals end", "10:00", "10:00", ""},
		{"bad start", "9h30", "16:00", ""},
		{"bad end", "09:30", "25:00", ""},
		{"bad zone", "09:30", "16:00", "Mars/Olympus"},
	}
	for _, tt := range tests {
		_, err := ParseWindow(tt.start, tt.end, tt.tz)
		assert.ErrorIs(t, err, ErrInvalidWindow, tt.name)
	}
}

func TestWindowContains(t *testing.T) {
	t.Parallel()

	loc := newYork(t)
	w, err := ParseWindow("09:30", "16:00", "America/New_York")
	require.NoError(t, err)

	day := func(h, m, s int) time.Time { return time.Date(2024, 3, 4, h, m, s, 0, loc) }

	tests := []struct {
		at   time.Time
		want bool
	}{
		{day(9, 29, 59), false},
		{day(9, 30, 0), true},
		{day(12, 0, 0), true},
		{day(15, 59, 59), true},
		{day(16, 0, 0), false},
		{day(16, 0, 1), false},
		{day(0, 0, 0), false},
		// 14:30 UTC is 09:30 EST on this date.
		{time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, w.Contains(tt.at), tt.at.String())
	}
}

func TestWindowBoundsAcrossDST(t *testing.T) {
	t.Parallel()

	loc := newYork(t)
	w, err := ParseWindow("09:30", "16:00", "America/New_York")
	require.NoError(t, err)

	// DST starts 2024-03-10 in New York.
	before, _ := w.Bounds(time.Date(2024, 3, 8, 12, 0, 0, 0, loc))
	after, _ := w.Bounds(time.Date(2024, 3, 11, 12, 0, 0, 0, loc))
	assert.Equal(t, 14, before.UTC().Hour())
	assert.Equal(t, 13, after.UTC().Hour())
}

func TestClockTradingAllowed(t *testing.T) {
	t.Parallel()

	loc := newYork(t)
	w, err := ParseWindow("09:30", "16:00", "America/New_York")
	require.NoError(t, err)

	s := New(decimal.NewFromInt(10000))
	c := NewClock(w, s)

	at := func(h, m, sec int) time.Time { return time.Date(2024, 3, 4, h, m, sec, 0, loc) }

	// No trading day assigned yet.
	assert.False(t, c.IsTradingAllowed(at(10, 0, 0)))

	assert.True(t, c.AdvanceDay(at(9, 0, 0)))
	assert.False(t, c.IsTradingAllowed(at(9, 0, 0)))
	assert.True(t, c.IsTradingAllowed(at(9, 30, 0)))
	assert.True(t, c.IsTradingAllowed(at(15, 59, 59)))
	assert.False(t, c.IsTradingAllowed(at(16, 0, 0)))
	assert.False(t, c.IsTradingAllowed(at(16, 0, 1)))

	s.Halt("DAILY_LOSS_LIMIT", "daily loss")
	assert.True(t, c.InWindow(at(10, 0, 0)))
	assert.False(t, c.IsTradingAllowed(at(10, 0, 0)))
}

func TestAdvanceDayResetsSession(t *testing.T) {
	t.Parallel()

	loc := newYork(t)
	w, err := ParseWindow("09:30", "16:00", "America/New_York")
	require.NoError(t, err)

	s := New(decimal.NewFromInt(10000))
	c := NewClock(w, s)

	day1 := time.Date(2024, 3, 4, 10, 0, 0, 0, loc)
	require.True(t, c.AdvanceDay(day1))
	assert.False(t, c.AdvanceDay(day1.Add(time.Hour)), "same day must not roll")

	s.RealizedPnL = decimal.NewFromInt(-300)
	s.PeakEquity = decimal.NewFromInt(10200)
	s.Halt("MAX_DRAWDOWN", "drawdown")
	s.Halt("OTHER", "ignored")
	assert.Equal(t, "drawdown", s.HaltReason)
	assert.Equal(t, "MAX_DRAWDOWN", s.HaltCode)

	day2 := time.Date(2024, 3, 5, 9, 30, 0, 0, loc)
	require.True(t, c.AdvanceDay(day2))

	assert.False(t, s.Halted)
	assert.Empty(t, s.HaltReason)
	assert.True(t, s.RealizedPnL.IsZero())
	assert.True(t, s.StartEquity.Equal(decimal.NewFromInt(9700)), "balance carries over")
	assert.True(t, s.PeakEquity.Equal(s.StartEquity))
	assert.Equal(t, 5, s.TradingDay.Day())
	assert.True(t, c.IsTradingAllowed(day2))
}
