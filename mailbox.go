package moemail

import (
	"time"

	"github.com/moemail/client-go/internal/api"
)

// Mailbox is a provisioned temporary mailbox.
type Mailbox struct {
	// Address is the full email address, e.g. t5123ab12cd34ef@moemail.app.
	Address string
	// ProviderID is the provider's opaque identifier, used in inbox URLs.
	ProviderID string
	// Domain is the domain part of Address.
	Domain string
}

// Message is a received email as far as code extraction is concerned.
type Message struct {
	ID string
	// Timestamp is zero when the provider sent none or it could not be parsed.
	Timestamp time.Time
	BodyText  string
	BodyHTML  string
}

// Content returns the text body followed by the HTML body.
func (m Message) Content() string {
	return m.BodyText + m.BodyHTML
}

// Payload keys, in lookup order.
var (
	timestampKeys = []string{"createdAt", "receivedAt"}
	textKeys      = []string{"text", "textContent", "content"}
	htmlKeys      = []string{"html", "htmlContent"}
)

// summaryMessage builds a Message from an inbox list entry. Only the
// inline "content" preview is taken as body text.
func summaryMessage(f api.Fields) Message {
	ts, _ := parseTimestamp(f.Value(timestampKeys...))
	return Message{
		ID:        f.String("id"),
		Timestamp: ts,
		BodyText:  f.String("content"),
	}
}

// detailMessage builds a Message from a single-message payload, which
// may be wrapped in a "message" envelope.
func detailMessage(id string, f api.Fields) Message {
	f = f.Unwrap("message")
	ts, _ := parseTimestamp(f.Value(timestampKeys...))
	m := Message{
		ID:        f.String("id"),
		Timestamp: ts,
		BodyText:  f.String(textKeys...),
		BodyHTML:  f.String(htmlKeys...),
	}
	if m.ID == "" {
		m.ID = id
	}
	return m
}
