package delivery

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned by Poller.Run when every attempt ran without
// the attempt function reporting success.
var ErrExhausted = errors.New("poll attempts exhausted")

// Schedule describes a bounded poll: how long the caller is willing to
// wait in total and how long to pause between attempts.
type Schedule struct {
	Timeout  time.Duration
	Interval time.Duration
}

// Attempts returns Timeout / Interval using integer division. It returns
// zero when Interval is not positive or exceeds Timeout.
func (s Schedule) Attempts() int {
	if s.Interval <= 0 || s.Timeout <= 0 {
		return 0
	}
	return int(s.Timeout / s.Interval)
}

// SleepFunc blocks for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc. It returns ctx.Err() when the context
// ends before d elapses.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
