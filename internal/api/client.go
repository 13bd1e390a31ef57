package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single HTTP request, independent of any
	// polling deadline above it.
	DefaultTimeout = 30 * time.Second
	// DefaultRetryDelay is the delay before the first transport retry.
	DefaultRetryDelay = time.Second
	// DefaultContentType is sent unless Config.ContentType overrides it.
	DefaultContentType = "application/json"

	maxRetryDelay = 30 * time.Second
	maxLoggedBody = 500
)

// Logger receives transport diagnostics. Level is one of "debug", "info",
// "warn" or "error".
type Logger func(level, message string)

// Config holds the configuration for creating a new API client.
type Config struct {
	// BaseURL is the provider root, e.g. https://moemail.app. Required.
	BaseURL string
	// APIKey is sent as the X-API-Key header when non-empty.
	APIKey string
	// Proxy is an HTTP, HTTPS or SOCKS5 proxy URL used for every request. It is
	// ignored when HTTPClient is set.
	Proxy string
	// HTTPClient replaces the default client entirely.
	HTTPClient *http.Client
	// Timeout is the per-request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration
	// MaxRetries is the number of transport-level retries for network
	// errors and 408/429/5xx responses. Defaults to 0.
	MaxRetries int
	// RetryDelay is the initial backoff delay. Defaults to DefaultRetryDelay.
	RetryDelay time.Duration
	// ContentType overrides DefaultContentType.
	ContentType string
	// Logger receives request and response diagnostics. May be nil.
	Logger Logger
}

// Client is the HTTP API client for a Moemail provider.
type Client struct {
	baseURL     string
	apiKey      string
	contentType string
	httpClient  *http.Client
	maxRetries  int
	retryDelay  time.Duration
	log         Logger
}

// NewClient creates a new API client from the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrBaseURLRequired
	}

	c := &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		contentType: cfg.ContentType,
		httpClient:  cfg.HTTPClient,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		log:         cfg.Logger,
	}
	if c.contentType == "" {
		c.contentType = DefaultContentType
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.retryDelay <= 0 {
		c.retryDelay = DefaultRetryDelay
	}

	if c.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.Proxy != "" {
			proxyURL, err := parseProxy(cfg.Proxy)
			if err != nil {
				return nil, err
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		}
		c.httpClient = &http.Client{Timeout: timeout, Transport: transport}
	}

	return c, nil
}

func parseProxy(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid proxy URL %q: missing host", raw)
	}
	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return nil, fmt.Errorf("invalid proxy URL %q: unsupported scheme %q", raw, u.Scheme)
	}
	return u, nil
}

// BaseURL returns the normalized provider root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs an HTTP request against path and decodes a JSON response
// into result. A nil result discards the body. An empty 2xx body leaves
// result untouched.
func (c *Client) Do(ctx context.Context, method, path string, body, result any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = data
	}

	fullURL := c.baseURL + path
	c.logf("info", "[HTTP] %s %s", method, fullURL)
	if payload != nil {
		c.logf("info", "[HTTP] Request body: %s", payload)
	}

	var resp *http.Response
	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(req)

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if attempt < c.maxRetries && ctx.Err() == nil {
				c.logf("warn", "[HTTP] Request failed, retrying: %v", err)
				if werr := c.wait(ctx, attempt); werr == nil {
					continue
				}
			}
			c.logf("error", "[HTTP] Request failed: %v", err)
			return &NetworkError{Err: err, URL: fullURL, Attempt: attempt + 1}
		}

		if attempt < c.maxRetries && retryableStatus(resp.StatusCode) {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			c.logf("warn", "[HTTP] Response: %d, retrying", resp.StatusCode)
			if err := c.wait(ctx, attempt); err != nil {
				return &NetworkError{Err: err, URL: fullURL, Attempt: attempt + 1}
			}
			continue
		}
		break
	}
	defer resp.Body.Close()

	c.logf("info", "[HTTP] Response: %d", resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: fmt.Errorf("read body: %w", err), URL: fullURL}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := truncate(string(data), maxLoggedBody)
		if msg != "" && resp.StatusCode >= 400 {
			c.logf("error", "[HTTP] Response body: %s", msg)
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    msg,
			Method:     method,
			Path:       path,
		}
	}

	if result != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return &DecodeError{Err: err, Path: path}
		}
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Content-Type", c.contentType)
	req.Header.Set("Accept", "application/json")
}

func (c *Client) wait(ctx context.Context, attempt int) error {
	delay := c.retryDelay << attempt
	if delay <= 0 || delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) logf(level, format string, args ...any) {
	if c.log == nil {
		return
	}
	c.log(level, fmt.Sprintf(format, args...))
}

func retryableStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
