package moemail

import (
	"errors"
)

// Sentinel errors describing why an operation produced no result. They
// never escape the public API; they appear in log output and spans.
var (
	// ErrNoMailbox is reported when fetching before a successful Provision.
	ErrNoMailbox = errors.New("no mailbox provisioned")

	// ErrNoDomains is reported when the provider config lists no domains.
	ErrNoDomains = errors.New("provider lists no email domains")

	// ErrIncompleteMailbox is reported when the provider accepted a create
	// request but did not return both an address and an id.
	ErrIncompleteMailbox = errors.New("provider response missing email or id")

	// ErrNoCode is reported when the inbox holds no message with a code.
	ErrNoCode = errors.New("no verification code found")
)
