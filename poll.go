package moemail

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/moemail/client-go/internal/delivery"
)

// PollForCode calls FetchCodeOnce up to timeout/interval times (rounded
// down), sleeping interval between attempts but not after the last one.
// A timeout shorter than interval, or a non-positive interval, makes no
// attempts at all. Cancelling ctx stops polling, including mid-sleep.
func (c *Client) PollForCode(ctx context.Context, timeout, interval time.Duration, since time.Time) (string, bool) {
	ctx, end := c.otel.startSpan(ctx, "moemail.PollForCode",
		attribute.Int64("moemail.poll.timeout_ms", timeout.Milliseconds()),
		attribute.Int64("moemail.poll.interval_ms", interval.Milliseconds()),
	)

	if interval <= 0 {
		c.logf(LevelWarn, "Poll interval %s is not positive, skipping poll", interval)
	}

	poller := &delivery.Poller{
		Schedule: delivery.Schedule{Timeout: timeout, Interval: interval},
		Sleep:    c.sleep,
		OnWait: func(attempt, maxAttempts int) {
			c.logf(LevelInfo, "Waiting for verification code... (%d/%d)", attempt, maxAttempts)
		},
	}

	var code string
	attempts, err := poller.Run(ctx, func(ctx context.Context, _ int) bool {
		var ok bool
		code, ok = c.FetchCodeOnce(ctx, since)
		return ok
	})
	end(err)
	c.otel.recordPoll(ctx, attempts, err)

	switch {
	case err == nil:
		return code, true
	case errors.Is(err, delivery.ErrExhausted):
		c.log(LevelError, "Verification code timeout")
	default:
		c.logf(LevelWarn, "Polling for verification code stopped: %v", err)
	}
	return "", false
}

// WaitForCode polls with DefaultPollTimeout and DefaultPollInterval.
func (c *Client) WaitForCode(ctx context.Context, since time.Time) (string, bool) {
	return c.PollForCode(ctx, DefaultPollTimeout, DefaultPollInterval, since)
}
