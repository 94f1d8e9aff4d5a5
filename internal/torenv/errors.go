package torenv

import "errors"

// Environment configurator errors.
// Every message names what failed and the corrective action, because
// these errors surface directly to CLI users who need to fix their
// Tor installation rather than read a stack trace.
var (
	// ErrTorBinaryNotFound is returned when no tor executable could be
	// located, either at the explicit path or in the conventional
	// install locations.
	ErrTorBinaryNotFound = errors.New("tor binary not found: install tor (apt install tor / brew install tor) or pass --tor-binary")

	// ErrTorBinaryNotExecutable is returned when the resolved path
	// exists but is not a regular executable file.
	ErrTorBinaryNotExecutable = errors.New("tor binary is not a regular executable file: check the path and its permissions")

	// ErrDataDirIsRoot is returned when the data directory resolves to
	// the filesystem root. Chowning or chmodding "/" would be
	// catastrophic, so the configurator refuses to operate on it.
	ErrDataDirIsRoot = errors.New("data directory resolves to the filesystem root: set a dedicated directory such as ~/.local/share/onionup/tor")

	// ErrDirectiveMissing is returned when the torrc lacks a required
	// directive and append-if-exists is disabled. The configurator
	// never mutates an existing torrc without permission.
	ErrDirectiveMissing = errors.New("torrc is missing required directives and appending is disabled: enable append mode or add the directives manually")

	// ErrSpawn is returned when the tor process could not be started.
	ErrSpawn = errors.New("failed to start tor process")

	// ErrCookieTimeout is returned when the control auth cookie did
	// not appear within the cookie timeout. Tor may have failed to
	// start; check the tor log file.
	ErrCookieTimeout = errors.New("timed out waiting for control auth cookie: tor may have failed to start, check its log")

	// ErrControlPortTimeout is returned when the ControlPort never
	// accepted a TCP connection within its timeout.
	ErrControlPortTimeout = errors.New("timed out waiting for the control port to accept connections: verify ControlPort in the torrc and that tor is running")
)
