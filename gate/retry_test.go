package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rustyeddy/riskgate/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelay(t *testing.T) {
	t.Parallel()

	b := Backoff{Attempts: 5, Base: 100 * time.Millisecond, Max: time.Second}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{64, time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestRetry(t *testing.T) {
	t.Parallel()

	b := Backoff{Attempts: 3, Base: time.Millisecond}

	t.Run("success first try", func(t *testing.T) {
		calls := 0
		err := retry(context.Background(), b, noSleep, func() error { calls++; return nil }, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("permanent error stops", func(t *testing.T) {
		calls := 0
		err := retry(context.Background(), b, noSleep, func() error { calls++; return broker.ErrOrderRejected }, nil)
		assert.ErrorIs(t, err, broker.ErrOrderRejected)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausted", func(t *testing.T) {
		calls, retries := 0, 0
		err := retry(context.Background(), b, noSleep,
			func() error { calls++; return broker.ErrTransient },
			func(int, error, time.Duration) { retries++ })
		assert.ErrorIs(t, err, ErrRetriesExhausted)
		assert.ErrorIs(t, err, broker.ErrTransient)
		assert.Equal(t, 3, calls)
		assert.Equal(t, 2, retries)
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := retry(ctx, Backoff{Attempts: 3, Base: time.Hour}, sleepCtx, func() error { calls++; return broker.ErrTransient }, nil)
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Equal(t, 1, calls)
	})
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ORDER_PENDING", OrderPending.String())
	assert.Equal(t, "FLATTENED", Flattened.String())
	assert.Equal(t, "State(42)", State(42).String())
}
