// Package twin implements a fake Moemail provider for tests and local
// development. It serves the same endpoints as the real service plus a
// small admin surface for injecting messages.
package twin

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned for unknown or expired mailboxes and messages.
	ErrNotFound = errors.New("not found")
	// ErrAddressTaken is returned when a live mailbox already owns the address.
	ErrAddressTaken = errors.New("address already in use")
)

// Mailbox is a provisioned temporary address.
type Mailbox struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	// ExpiresAt is zero for mailboxes that never expire.
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

// Expired reports whether the mailbox has expired at now.
func (m Mailbox) Expired(now time.Time) bool {
	return !m.ExpiresAt.IsZero() && !now.Before(m.ExpiresAt)
}

// Message is an email delivered to a mailbox.
type Message struct {
	ID         string    `json:"id"`
	MailboxID  string    `json:"mailboxId"`
	From       string    `json:"from"`
	Subject    string    `json:"subject"`
	Text       string    `json:"text,omitempty"`
	HTML       string    `json:"html,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Store persists mailboxes and their messages.
type Store interface {
	// CreateMailbox stores mb, failing with ErrAddressTaken when another
	// live mailbox has the same address.
	CreateMailbox(ctx context.Context, mb Mailbox) error
	GetMailbox(ctx context.Context, id string) (Mailbox, error)
	AddMessage(ctx context.Context, msg Message) error
	// ListMessages returns a mailbox's messages, newest first.
	ListMessages(ctx context.Context, mailboxID string) ([]Message, error)
	GetMessage(ctx context.Context, mailboxID, messageID string) (Message, error)
	Reset(ctx context.Context) error
}
