package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and state what is
// wrong plus how to fix it, so a CLI user can act on the message.
//
// Design decision: package-level sentinel errors rather than error
// values created inside Validate(). Callers can use errors.Is() for
// programmatic handling while the messages stay human-readable.
var (
	// ErrInvalidControlPort is returned when the control port is
	// outside the 1-65535 range.
	ErrInvalidControlPort = errors.New("invalid control port: must be between 1 and 65535")

	// ErrInvalidTimeout is returned when a timeout or poll interval
	// is zero or negative. Use the defaults if unsure.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidSpawnGrace is returned when the post-spawn grace
	// delay is negative. Use 0 to probe immediately after spawning.
	ErrInvalidSpawnGrace = errors.New("invalid spawn grace: must be non-negative")

	// ErrEmptyBindIP is returned when the local bind address is empty.
	ErrEmptyBindIP = errors.New("local bind IP cannot be empty: use 127.0.0.1 for loopback")

	// ErrInvalidLocalPort is returned when the local service port is
	// outside the 1-65535 range.
	ErrInvalidLocalPort = errors.New("invalid local port: must be between 1 and 65535")

	// ErrInvalidVirtualPort is returned when the onion virtual port is
	// outside the 1-65535 range.
	ErrInvalidVirtualPort = errors.New("invalid virtual port: must be between 1 and 65535")

	// ErrEmptyProvidedKey is returned when provided-key mode is
	// selected without key material. Either supply --key or switch to
	// ephemeral mode.
	ErrEmptyProvidedKey = errors.New("provided-key mode requires key material: pass a base64 ED25519-V3 blob or use ephemeral mode")

	// ErrInvalidPersistenceMode is returned for an unknown mode string.
	ErrInvalidPersistenceMode = errors.New(`invalid persistence mode: must be "ephemeral" or "provided-key"`)

	// ErrMissingPath is returned when torrc, data directory, or cookie
	// path is empty outside simulation mode.
	ErrMissingPath = errors.New("torrc, data directory, and cookie paths are required unless --simulate is set")
)
