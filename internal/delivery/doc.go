// Package delivery provides the bounded, fixed-interval poll loop used to
// wait for a verification code to arrive in a mailbox.
//
// # Attempt Budget
//
// A [Schedule] converts an overall timeout and a poll interval into an
// attempt count by integer division, so a 10s timeout with a 4s interval
// yields 2 attempts, and a 3s timeout with a 4s interval yields none.
//
// # Usage
//
//	p := &delivery.Poller{Schedule: delivery.Schedule{Timeout: time.Minute, Interval: 4 * time.Second}}
//	n, err := p.Run(ctx, func(ctx context.Context, attempt int) bool {
//	    return checkInbox(ctx)
//	})
//
// The loop sleeps between attempts but never after the last one. Sleeps
// end early when ctx is cancelled.
package delivery
