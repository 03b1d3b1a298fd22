// Package retry provides a bounded attempt loop with a fixed delay.
package retry

import (
	"context"
	"time"
)

// Do invokes op until it succeeds, the attempt budget is spent, or ctx is
// cancelled. It sleeps delay between attempts and returns the last error
// after exhaustion, or the context error on cancellation. attempts is the
// total number of invocations, not the number of retries.
func Do(ctx context.Context, attempts int, delay time.Duration, op func(attempt int) error) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(attempt)
		if lastErr == nil {
			return nil
		}

		if attempt < attempts {
			if err := Sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	return lastErr
}

// Sleep blocks for d or until ctx is cancelled, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
