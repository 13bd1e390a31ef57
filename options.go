package moemail

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultBaseURL is the public Moemail instance.
	DefaultBaseURL = "https://moemail.app"
	// DefaultDomain is used when no domain is configured and the provider's
	// domain list cannot be fetched.
	DefaultDomain = "moemail.app"
	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = 30 * time.Second
	// DefaultPollTimeout and DefaultPollInterval are used by WaitForCode.
	DefaultPollTimeout  = 120 * time.Second
	DefaultPollInterval = 4 * time.Second
	// MailboxExpiry is the lifetime requested for every new mailbox.
	MailboxExpiry = time.Hour
)

// ExtractFunc finds a verification code in message text. The second
// result is false when no code is present.
type ExtractFunc func(text string) (string, bool)

// clientConfig holds configuration for the client.
type clientConfig struct {
	baseURL        string
	apiKey         string
	proxy          string
	domain         string
	httpClient     *http.Client
	timeout        time.Duration
	retries        int
	logger         LogFunc
	extractor      ExtractFunc
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures the client.
type Option func(*clientConfig)

// WithBaseURL sets the provider base URL.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithAPIKey sets the API key sent in the X-API-Key header.
// Without one, requests are sent unauthenticated.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) {
		c.apiKey = key
	}
}

// WithProxy routes every request through an HTTP, HTTPS or SOCKS5 proxy.
// An unparseable proxy URL makes New fail.
func WithProxy(proxyURL string) Option {
	return func(c *clientConfig) {
		c.proxy = proxyURL
	}
}

// WithDomain sets the domain used by Provision when the caller does not
// pass one.
func WithDomain(domain string) Option {
	return func(c *clientConfig) {
		c.domain = domain
	}
}

// WithHTTPClient sets a custom HTTP client. WithTimeout and WithProxy do
// not apply to a custom client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request timeout.
// Default: 30 seconds
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithRetries sets the number of transport-level retries for network
// errors and 408/429/5xx responses.
// Default: 0
func WithRetries(count int) Option {
	return func(c *clientConfig) {
		c.retries = count
	}
}

// WithLogger sets the diagnostic callback. A nil LogFunc silences the client.
func WithLogger(fn LogFunc) Option {
	return func(c *clientConfig) {
		c.logger = fn
	}
}

// WithExtractor replaces the verification code matcher.
// Default: verifycode.Extract
func WithExtractor(fn ExtractFunc) Option {
	return func(c *clientConfig) {
		c.extractor = fn
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
// Default: the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *clientConfig) {
		c.tracerProvider = tp
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider.
// Default: the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *clientConfig) {
		c.meterProvider = mp
	}
}
