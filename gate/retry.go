package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/riskgate/broker"
)

// ErrRetriesExhausted wraps the last transient error once every attempt failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Backoff bounds order placement retries: at most Attempts calls, waiting
// Base, 2*Base, 4*Base... between them, capped at Max.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

var DefaultBackoff = Backoff{Attempts: 4, Base: 250 * time.Millisecond, Max: 4 * time.Second}

// Delay is the wait after the given failed attempt, counting from 1.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 30 {
		return b.Max
	}
	d := b.Base * time.Duration(1<<(attempt-1))
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// retry calls fn until it succeeds, fails with a non-transient error or the
// attempts run out. onRetry runs before each wait.
func retry(ctx context.Context, b Backoff, sleep func(context.Context, time.Duration) error,
	fn func() error, onRetry func(attempt int, err error, wait time.Duration)) error {
	attempts := max(b.Attempts, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !broker.IsTransient(err) {
			return err
		}
		if attempt == attempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, err)
		}
		wait := b.Delay(attempt)
		if onRetry != nil {
			onRetry(attempt, err, wait)
		}
		if serr := sleep(ctx, wait); serr != nil {
			return serr
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
