package moemail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moemail/client-go/internal/api"
)

// FetchCodeOnce reads the current mailbox's inbox once and returns the
// first verification code found, scanning messages in provider order.
// Messages stamped before since are skipped; a zero since disables the
// filter, and messages without a readable timestamp are never skipped.
//
// The inline preview of each message is tried first. If it yields no
// code, the full message is fetched. A provider error on one message
// skips it; a transport failure ends the fetch with no result.
func (c *Client) FetchCodeOnce(ctx context.Context, since time.Time) (string, bool) {
	if c.mailbox == nil {
		c.logf(LevelError, "Cannot fetch verification code: %v", ErrNoMailbox)
		return "", false
	}
	mb := *c.mailbox

	ctx, end := c.otel.startSpan(ctx, "moemail.FetchCodeOnce", mailboxAttr(mb.ProviderID))
	code, err := c.fetchCode(ctx, mb, since)
	if errors.Is(err, ErrNoCode) {
		end(nil)
	} else {
		end(err)
	}
	c.otel.recordFetch(ctx, err)

	if err != nil {
		if !errors.Is(err, ErrNoCode) {
			c.logf(LevelError, "Fetch verification code failed: %v", err)
		}
		return "", false
	}
	return code, true
}

func (c *Client) fetchCode(ctx context.Context, mb Mailbox, since time.Time) (string, error) {
	c.log(LevelInfo, "Fetching verification code from Moemail")

	list, err := c.apiClient.ListMessages(ctx, mb.ProviderID)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	if len(list.Messages) == 0 {
		c.log(LevelInfo, "No messages in mailbox")
		return "", ErrNoCode
	}
	c.logf(LevelInfo, "Found %d messages", len(list.Messages))

	for _, entry := range list.Messages {
		msg := summaryMessage(entry)
		if msg.ID == "" {
			continue
		}
		if !since.IsZero() && !msg.Timestamp.IsZero() && msg.Timestamp.Before(since) {
			c.logf(LevelDebug, "Skipping message %s received at %s", msg.ID, msg.Timestamp.Format(time.RFC3339))
			continue
		}

		if msg.BodyText != "" {
			if code, ok := c.safeExtract(msg.BodyText); ok {
				c.logf(LevelInfo, "Found verification code in message %s", msg.ID)
				return code, nil
			}
		}

		payload, err := c.apiClient.GetMessage(ctx, mb.ProviderID, msg.ID)
		if err != nil {
			if api.IsTransport(err) {
				return "", fmt.Errorf("get message %s: %w", msg.ID, err)
			}
			c.logf(LevelWarn, "Skipping message %s: %v", msg.ID, err)
			continue
		}

		detail := detailMessage(msg.ID, payload)
		content := detail.Content()
		if content == "" {
			continue
		}
		if code, ok := c.safeExtract(content); ok {
			c.logf(LevelInfo, "Found verification code in message %s", msg.ID)
			return code, nil
		}
	}

	return "", ErrNoCode
}
