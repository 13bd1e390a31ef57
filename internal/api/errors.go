package api

import (
	"errors"
	"fmt"
)

// Common API errors that can be checked with errors.Is.
var (
	// ErrUnauthorized indicates the API key is missing, invalid or expired.
	ErrUnauthorized = errors.New("invalid or missing API key")
	// ErrNotFound indicates the requested mailbox or message does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrBaseURLRequired is returned by NewClient when no base URL is given.
	ErrBaseURLRequired = errors.New("base URL is required")
)

// APIError represents a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	// Message holds the response body, truncated to maxLoggedBody bytes.
	Message string
	Method  string
	Path    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case 401, 403:
		return target == ErrUnauthorized
	case 404:
		return target == ErrNotFound
	case 429:
		return target == ErrRateLimited
	}
	return false
}

// NetworkError represents a network-level failure: connection refused,
// DNS failure, proxy failure or timeout.
type NetworkError struct {
	Err     error
	URL     string
	Attempt int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DecodeError indicates a 2xx response whose body was not valid JSON.
type DecodeError struct {
	Err  error
	Path string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response from %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a transport failure rather than a
// provider-reported one.
func IsTransport(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
