package resilience

import (
	"context"
	"time"
)

// RetryPolicy defines reconnect behavior for transient failures: up to
// MaxAttempts tries with exponential backoff between them.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func NewRetryPolicy(maxAttempts int, initial, max time.Duration) RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if initial <= 0 {
		initial = time.Second
	}
	if max <= 0 {
		max = 10 * time.Second
	}
	return RetryPolicy{MaxAttempts: maxAttempts, InitialBackoff: initial, MaxBackoff: max}
}

// Backoff returns the delay before the given attempt (first retry is attempt 1).
func (r RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := r.InitialBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= r.MaxBackoff {
			return r.MaxBackoff
		}
	}
	if d > r.MaxBackoff {
		return r.MaxBackoff
	}
	return d
}

// Wait blocks for the attempt's backoff or until ctx is done.
func (r RetryPolicy) Wait(ctx context.Context, attempt int) error {
	t := time.NewTimer(r.Backoff(attempt))
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
