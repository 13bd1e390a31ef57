package moemail

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/moemail/client-go/internal/api"
)

const (
	localPartPrefix   = "t"
	localPartAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	localPartRandom   = 10
)

// Provision creates a new mailbox and makes it the client's current one.
// The domain is chosen in order: preferredDomain, the WithDomain option,
// then a random entry of AvailableDomains. It reports whether the
// provider returned both an address and an id. On failure the previous
// mailbox, if any, is kept.
func (c *Client) Provision(ctx context.Context, preferredDomain string) bool {
	ctx, end := c.otel.startSpan(ctx, "moemail.Provision")
	mb, err := c.provision(ctx, preferredDomain)
	end(err)
	c.otel.recordProvision(ctx, mb.Domain, err)

	if err != nil {
		c.logf(LevelError, "Moemail register failed: %v", err)
		return false
	}
	c.mailbox = &mb
	return true
}

func (c *Client) provision(ctx context.Context, preferredDomain string) (Mailbox, error) {
	domain := c.selectDomain(ctx, preferredDomain)
	c.logf(LevelInfo, "Moemail using domain: %s", domain)

	name := c.localPart()
	c.logf(LevelInfo, "Moemail registering email: %s@%s", name, domain)

	resp, err := c.apiClient.CreateMailbox(ctx, api.CreateMailboxRequest{
		Name:       name,
		ExpiryTime: MailboxExpiry.Milliseconds(),
		Domain:     domain,
	})
	if err != nil {
		return Mailbox{Domain: domain}, fmt.Errorf("create mailbox: %w", err)
	}
	if resp.Email == "" || resp.ID == "" {
		return Mailbox{Domain: domain}, ErrIncompleteMailbox
	}

	mb := Mailbox{
		Address:    resp.Email,
		ProviderID: resp.ID,
		Domain:     domain,
	}
	if at := strings.LastIndexByte(resp.Email, '@'); at >= 0 && at < len(resp.Email)-1 {
		mb.Domain = resp.Email[at+1:]
	}

	c.logf(LevelInfo, "Moemail register success: %s", mb.Address)
	c.logf(LevelInfo, "Moemail email_id: %s", mb.ProviderID)
	return mb, nil
}

func (c *Client) selectDomain(ctx context.Context, preferred string) string {
	if d := strings.TrimSpace(preferred); d != "" {
		return d
	}
	if d := strings.TrimSpace(c.domain); d != "" {
		return d
	}
	domains := c.availableDomains(ctx)
	if len(domains) == 0 {
		return DefaultDomain
	}
	return domains[rand.IntN(len(domains))]
}

// localPart builds "t" + the last four digits of the Unix time + ten
// random lowercase alphanumerics.
func (c *Client) localPart() string {
	ts := strconv.FormatInt(c.now().Unix(), 10)
	if len(ts) > 4 {
		ts = ts[len(ts)-4:]
	}

	var b strings.Builder
	b.Grow(len(localPartPrefix) + len(ts) + localPartRandom)
	b.WriteString(localPartPrefix)
	b.WriteString(ts)
	for range localPartRandom {
		b.WriteByte(localPartAlphabet[rand.IntN(len(localPartAlphabet))])
	}
	return b.String()
}

func domainAttr(domain string) attribute.KeyValue {
	return attribute.String("moemail.domain", domain)
}
