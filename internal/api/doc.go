// Package api provides HTTP client functionality for communicating with a
// Moemail temporary-mail provider. It handles the API key header, proxy
// routing, request/response serialization, per-request timeouts and
// optional retries with exponential backoff.
//
// # Client Creation
//
// [NewClient] takes a [Config]. Only BaseURL is required; the API key is
// sent via the X-API-Key header when configured.
//
// # Retry Behavior
//
// Transport retries are disabled by default. With [Config.MaxRetries] set,
// network errors and these status codes are retried with a doubling delay:
//
//   - 408 Request Timeout
//   - 429 Too Many Requests
//   - 500, 502, 503, 504
//
// # Error Handling
//
// Non-2xx responses are returned as [*APIError], which matches
// [ErrUnauthorized], [ErrNotFound] and [ErrRateLimited] through errors.Is.
// Connection failures and timeouts are returned as [*NetworkError]:
//
//	if api.IsTransport(err) {
//	    // provider unreachable
//	}
//
// # Response Shapes
//
// Message payloads differ between provider versions, so they are decoded
// into [Fields], which looks values up by an ordered list of candidate keys.
package api
