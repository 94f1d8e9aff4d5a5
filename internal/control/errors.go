package control

import "errors"

// Control protocol errors.
// The taxonomy separates transport failures (connect, truncation) from
// protocol failures (malformed replies, refused commands) and state
// misuse (calling operations out of order), so callers can decide what
// is retryable and what is a programming error.
var (
	// ErrConnect is returned when no resolved address of the control
	// host accepted a TCP connection.
	ErrConnect = errors.New("cannot connect to control port: is tor running and ControlPort configured?")

	// ErrNotConnected is returned when an operation requires an open
	// control connection and there is none.
	ErrNotConnected = errors.New("not connected to control port: call Connect first")

	// ErrNotAuthenticated is returned when an operation requires a
	// completed AUTHENTICATE exchange.
	ErrNotAuthenticated = errors.New("control session is not authenticated: call Authenticate first")

	// ErrEmptyCookie is returned when the auth cookie file exists but
	// contains no bytes. Tor writes the cookie atomically, so an empty
	// file means it was created by something else.
	ErrEmptyCookie = errors.New("auth cookie file is empty: remove it and let tor regenerate the cookie")

	// ErrAuthentication is returned when tor rejects the AUTHENTICATE
	// command.
	ErrAuthentication = errors.New("authentication rejected by tor: cookie may be stale, restart tor or check CookieAuthFile")

	// ErrProtocol is returned for a reply line that does not follow
	// the "NNN-" / "NNN " framing.
	ErrProtocol = errors.New("malformed control protocol reply line")

	// ErrTruncatedReply is returned when the stream ends before a
	// final reply line arrives.
	ErrTruncatedReply = errors.New("control connection closed before the reply completed")

	// ErrCommandFailed is returned when the final reply line carries a
	// non-success status code.
	ErrCommandFailed = errors.New("control command failed")

	// ErrEmptyKeyMaterial is returned when a provided-key ADD_ONION is
	// requested without key material. Checked before anything is sent.
	ErrEmptyKeyMaterial = errors.New("provided-key service requires key material: supply a base64 ED25519-V3 blob")

	// ErrMissingServiceID is returned when an apparently successful
	// ADD_ONION reply carries no ServiceID line.
	ErrMissingServiceID = errors.New("tor reported success but returned no ServiceID")

	// ErrBootstrapTimeout is returned when tor never reached 100%
	// bootstrap progress within the configured budget.
	ErrBootstrapTimeout = errors.New("timed out waiting for tor bootstrap: check network connectivity or raise the bootstrap timeout")
)
