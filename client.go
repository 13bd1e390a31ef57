package moemail

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/moemail/client-go/internal/api"
	"github.com/moemail/client-go/internal/delivery"
	"github.com/moemail/client-go/verifycode"
)

// Client provisions one temporary mailbox at a time and reads
// verification codes from it.
type Client struct {
	apiClient *api.Client
	domain    string
	logger    LogFunc
	extract   ExtractFunc
	otel      *instrumentation

	// Replaced in tests.
	sleep delivery.SleepFunc
	now   func() time.Time

	mailbox *Mailbox
	domains []string
}

// New creates a new Moemail client. It performs no network I/O.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	c := &Client{
		domain:  cfg.domain,
		logger:  cfg.logger,
		extract: cfg.extractor,
		sleep:   delivery.Sleep,
		now:     time.Now,
	}
	if c.extract == nil {
		c.extract = verifycode.Extract
	}

	apiClient, err := api.NewClient(api.Config{
		BaseURL:    cfg.baseURL,
		APIKey:     cfg.apiKey,
		Proxy:      cfg.proxy,
		HTTPClient: cfg.httpClient,
		Timeout:    cfg.timeout,
		MaxRetries: cfg.retries,
		Logger:     c.log,
	})
	if err != nil {
		return nil, fmt.Errorf("moemail: %w", err)
	}
	c.apiClient = apiClient

	inst, err := newInstrumentation(cfg.tracerProvider, cfg.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("moemail: telemetry: %w", err)
	}
	c.otel = inst

	return c, nil
}

// BaseURL returns the provider base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.apiClient.BaseURL()
}

// Mailbox returns the currently provisioned mailbox.
// The second result is false before the first successful Provision.
func (c *Client) Mailbox() (Mailbox, bool) {
	if c.mailbox == nil {
		return Mailbox{}, false
	}
	return *c.mailbox, true
}

// UseMailbox makes mb the current mailbox without contacting the provider,
// for resuming a mailbox provisioned earlier. It reports false, leaving the
// current mailbox unchanged, when mb lacks an address or provider id.
func (c *Client) UseMailbox(mb Mailbox) bool {
	if mb.Address == "" || mb.ProviderID == "" {
		return false
	}
	if mb.Domain == "" {
		if at := strings.LastIndexByte(mb.Address, '@'); at >= 0 {
			mb.Domain = mb.Address[at+1:]
		}
	}
	c.mailbox = &mb
	return true
}

// AvailableDomains returns the domains the provider accepts. The list is
// fetched once and cached for the client's lifetime. When the provider
// cannot be reached or returns no domains, the result is DefaultDomain
// alone, and that fallback is cached too.
func (c *Client) AvailableDomains(ctx context.Context) []string {
	return slices.Clone(c.availableDomains(ctx))
}

func (c *Client) availableDomains(ctx context.Context) []string {
	if len(c.domains) > 0 {
		return c.domains
	}

	ctx, end := c.otel.startSpan(ctx, "moemail.AvailableDomains")
	cfg, err := c.apiClient.GetConfig(ctx)
	end(err)

	switch {
	case err != nil:
		c.logf(LevelError, "Failed to get available domains: %v, using %s", err, DefaultDomain)
	case len(cfg.EmailDomains) == 0:
		c.logf(LevelWarn, "%v, using %s", ErrNoDomains, DefaultDomain)
	default:
		c.domains = cfg.EmailDomains
		c.logf(LevelInfo, "Moemail available domains: %v", c.domains)
		return c.domains
	}

	c.domains = []string{DefaultDomain}
	return c.domains
}

// safeExtract runs the configured extractor, treating a panic as no match.
func (c *Client) safeExtract(text string) (code string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logf(LevelError, "Code extractor panicked: %v", r)
			code, ok = "", false
		}
	}()
	return c.extract(text)
}
