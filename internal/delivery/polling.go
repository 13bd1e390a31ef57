package delivery

import (
	"context"
)

// AttemptFunc performs one poll. attempt counts from 1. Returning true
// ends the loop successfully.
type AttemptFunc func(ctx context.Context, attempt int) bool

// Poller runs an AttemptFunc on a fixed interval until it succeeds or the
// schedule's attempt budget is spent.
type Poller struct {
	Schedule Schedule

	// Sleep pauses between attempts. Defaults to Sleep.
	Sleep SleepFunc

	// OnWait, when set, is called before each pause with the attempt that
	// just failed and the total budget.
	OnWait func(attempt, maxAttempts int)
}

// Run executes fn up to Schedule.Attempts() times. It returns the number of
// attempts made and nil on success, ErrExhausted when the budget ran out,
// or the context error when ctx ended first.
func (p *Poller) Run(ctx context.Context, fn AttemptFunc) (int, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	maxAttempts := p.Schedule.Attempts()
	for i := 1; i <= maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return i - 1, err
		}

		if fn(ctx, i) {
			return i, nil
		}

		// No pause after the final attempt.
		if i < maxAttempts {
			if p.OnWait != nil {
				p.OnWait(i, maxAttempts)
			}
			if err := sleep(ctx, p.Schedule.Interval); err != nil {
				return i, err
			}
		}
	}

	return maxAttempts, ErrExhausted
}
