package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// GetConfig retrieves the provider configuration, including the list of
// domains mailboxes may be created under.
func (c *Client) GetConfig(ctx context.Context) (*ServerConfig, error) {
	var result ServerConfig
	if err := c.Do(ctx, http.MethodGet, "/api/config", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateMailbox provisions a new temporary mailbox.
func (c *Client) CreateMailbox(ctx context.Context, req CreateMailboxRequest) (*CreateMailboxResponse, error) {
	var result CreateMailboxResponse
	if err := c.Do(ctx, http.MethodPost, "/api/emails/generate", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListMessages lists the messages in the mailbox identified by mailboxID,
// in provider order.
func (c *Client) ListMessages(ctx context.Context, mailboxID string) (*MessageList, error) {
	path := fmt.Sprintf("/api/emails/%s", url.PathEscape(mailboxID))
	var result MessageList
	if err := c.Do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetMessage retrieves a single message. The payload is returned as-is;
// callers decide whether to unwrap a "message" envelope.
func (c *Client) GetMessage(ctx context.Context, mailboxID, messageID string) (Fields, error) {
	path := fmt.Sprintf("/api/emails/%s/%s",
		url.PathEscape(mailboxID), url.PathEscape(messageID))
	var result Fields
	if err := c.Do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = Fields{}
	}
	return result, nil
}
