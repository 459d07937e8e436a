package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPrices() []float64 {
	return []float64{102, 105, 106, 108, 110, 111, 113, 114, 116, 118}
}

func TestMA(t *testing.T) {
	ma, err := MA(testPrices(), 5)
	require.NoError(t, err)
	// Last 5: 111,113,114,116,118 => 572/5
	assert.InDelta(t, 114.4, ma, 0.001)

	ma, err = MA(testPrices()[:3], 3)
	require.NoError(t, err)
	assert.InDelta(t, (102.0+105.0+106.0)/3.0, ma, 0.001)
}

func TestEMA(t *testing.T) {
	prices := testPrices()[:4]
	ema, err := EMA(prices, 3)
	require.NoError(t, err)

	// Seed with SMA(3), then one step with multiplier 2/(3+1).
	sma := (102.0 + 105.0 + 106.0) / 3.0
	assert.InDelta(t, (108.0-sma)*0.5+sma, ema, 0.001)

	ema, err = EMA(testPrices()[:3], 3)
	require.NoError(t, err)
	assert.InDelta(t, sma, ema, 0.001)
}

func TestInvalidInputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prices []float64
		period int
	}{
		{"zero period", testPrices(), 0},
		{"negative period", testPrices(), -1},
		{"not enough prices", testPrices()[:2], 3},
		{"empty", nil, 1},
	}
	for _, tt := range tests {
		_, err := MA(tt.prices, tt.period)
		assert.Error(t, err, tt.name)
		_, err = EMA(tt.prices, tt.period)
		assert.Error(t, err, tt.name)
	}
}
