// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package similarity

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// Clock abstracts time so tests can run the limiter and retry policy without
// real sleeps.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}

// sleep waits for d on clock, returning early with ctx.Err() on cancellation.
func sleep(ctx context.Context, clock Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}

var errReservation = errors.New("rate limiter refused reservation")

// Scheduler decides when the next upstream call may start.
type Scheduler interface {
	Wait(ctx context.Context) error
}

// Limiter spaces upstream calls at least interval apart. Only the slot
// reservation is serialized; callers sleep outside the limiter and the
// network call itself runs unguarded.
type Limiter struct {
	lim   *rate.Limiter
	clock Clock
}

// NewLimiter returns a Limiter with the given minimum inter-call interval.
// A non-positive interval disables spacing.
func NewLimiter(interval time.Duration, clock Clock) *Limiter {
	if clock == nil {
		clock = SystemClock
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Limiter{lim: rate.NewLimiter(limit, 1), clock: clock}
}

// Wait blocks until the caller's reserved slot arrives.
func (l *Limiter) Wait(ctx context.Context) error {
	now := l.clock.Now()
	r := l.lim.ReserveN(now, 1)
	if !r.OK() {
		return errReservation
	}
	delay := r.DelayFrom(now)
	if err := sleep(ctx, l.clock, delay); err != nil {
		r.CancelAt(l.clock.Now())
		return err
	}
	return nil
}
