// Package clock abstracts reading the wall clock and waiting, so the retry
// and scheduling loops can be interrupted on shutdown and driven in tests.
package clock

import (
	"context"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// Sleeper blocks for a duration or until ctx is done, whichever is first.
// It returns ctx.Err() when the wait was interrupted.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Real is the system clock.
type Real struct{}

// Now returns the current time in UTC.
func (Real) Now() time.Time { return time.Now().UTC() }

// Sleep waits on a timer that is stopped if ctx finishes first.
func (Real) Sleep(ctx context.Context, d time.Duration) error {
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
