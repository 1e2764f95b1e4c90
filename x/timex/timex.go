package timex

import (
	"context"
	"time"
)

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// Sleeper suspends the caller for d, honouring context cancellation.
// Tasks take one as a dependency so tests can collapse wall-clock waits.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the production Sleeper: a plain timer wait.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Scaled returns a Sleeper that divides every wait by factor.
// factor <= 0 is coerced to 1. Used by the simulator to compress time.
func Scaled(factor float64) Sleeper {
	if factor <= 0 {
		factor = 1
	}
	return func(ctx context.Context, d time.Duration) error {
		return Sleep(ctx, time.Duration(float64(d)/factor))
	}
}
