// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package similarity

import (
	"context"
	"time"
)

// RetryPolicy describes how the adapter retries a failed upstream call
// before degrading to Fallback.
type RetryPolicy struct {
	// Retries is the number of additional attempts after the first.
	Retries int

	// Backoff is the wait before the first retry.
	Backoff time.Duration

	// Double doubles the wait before each further retry.
	Double bool

	// Fallback is the similarity reported once every attempt has failed.
	Fallback float32
}

// DefaultRetryPolicy retries twice with a doubling 500ms backoff and falls
// back to 0.75.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Retries: 2, Backoff: 500 * time.Millisecond, Double: true, Fallback: 0.75}
}

// Delay returns the wait before retry number n (1-based).
func (p RetryPolicy) Delay(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	d := p.Backoff
	if p.Double {
		for i := 1; i < n; i++ {
			d *= 2
		}
	}
	return d
}

// Do runs fn until it succeeds, returns a permanent error, the context ends,
// or the attempts are exhausted. It returns the last error and the number of
// attempts made.
func (p RetryPolicy) Do(ctx context.Context, clock Clock, fn func(context.Context) error) (int, error) {
	if clock == nil {
		clock = SystemClock
	}
	var err error
	attempts := 0
	for n := 0; n <= p.Retries; n++ {
		if n > 0 {
			if werr := sleep(ctx, clock, p.Delay(n)); werr != nil {
				return attempts, werr
			}
		}
		attempts++
		if err = fn(ctx); err == nil {
			return attempts, nil
		}
		if IsPermanent(err) || ctx.Err() != nil {
			return attempts, err
		}
	}
	return attempts, err
}
