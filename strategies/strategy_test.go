package strategies

import (
	"testing"

	"github.com/rustyeddy/riskgate/market"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prices(vals ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

func TestMACrossover(t *testing.T) {
	t.Parallel()

	s, err := NewMACrossover(3, 5)
	require.NoError(t, err)
	assert.Equal(t, "ma-crossover(3,5)", s.Name())

	tests := []struct {
		name    string
		history []decimal.Decimal
		want    market.Desired
	}{
		{"warmup", prices(100, 101, 102, 103), market.Flat},
		{"rising", prices(100, 101, 102, 103, 104, 105), market.Long},
		{"falling", prices(105, 104, 103, 102, 101, 100), market.Short},
		{"flat", prices(100, 100, 100, 100, 100), market.Flat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Decide(tt.history))
		})
	}
}

func TestEMACross(t *testing.T) {
	t.Parallel()

	s, err := NewEMACross(2, 4)
	require.NoError(t, err)

	assert.Equal(t, market.Flat, s.Decide(prices(1, 2, 3)))
	assert.Equal(t, market.Long, s.Decide(prices(1, 2, 3, 4, 5, 6)))
	assert.Equal(t, market.Short, s.Decide(prices(6, 5, 4, 3, 2, 1)))
}

func TestDecideIsPure(t *testing.T) {
	t.Parallel()

	s, err := NewMACrossover(2, 3)
	require.NoError(t, err)
	h := prices(10, 11, 12, 11, 13)
	first := s.Decide(h)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, s.Decide(h))
	}
}

func TestFixed(t *testing.T) {
	t.Parallel()

	assert.Equal(t, market.Flat, Fixed{}.Decide(nil))
	assert.Equal(t, market.Short, Fixed{Position: market.Short}.Decide(prices(1)))
	assert.Equal(t, "fixed(long)", Fixed{Position: market.Long}.Name())
}

func TestByName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  Params
		want    string
		wantErr bool
	}{
		{"ma", Params{Name: "ma-crossover", ShortWindow: 5, LongWindow: 20}, "ma-crossover(5,20)", false},
		{"ema upper", Params{Name: "EMA-Cross", ShortWindow: 12, LongWindow: 26}, "ema-cross(12,26)", false},
		{"fixed", Params{Name: "fixed", Position: "long"}, "fixed(long)", false},
		{"noop", Params{Name: "noop"}, "fixed(flat)", false},
		{"bad windows", Params{Name: "ma-crossover", ShortWindow: 20, LongWindow: 5}, "", true},
		{"zero window", Params{Name: "ema-cross", ShortWindow: 0, LongWindow: 5}, "", true},
		{"bad position", Params{Name: "fixed", Position: "sideways"}, "", true},
		{"unknown", Params{Name: "martingale"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ByName(tt.params)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Name())
		})
	}
}
