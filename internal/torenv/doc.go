// Package torenv deterministically prepares a local Tor daemon for
// control-port use.
//
// The entry point is Configurator.EnsureConfigured, which resolves the
// tor binary, enforces the DataDirectory permission contract (0700),
// writes or patches the torrc with the directives onionup needs
// (ControlPort, CookieAuthentication, DataDirectory, CookieAuthFile,
// optionally CookieAuthFileGroupReadable and a notices log), spawns the
// daemon when no ControlPort is reachable, and waits for the auth
// cookie and the ControlPort under separate timeouts.
//
// Why this exists: bringing Tor up by hand means guessing DataDirectory
// paths, creating cookie files manually, and debugging permission
// refusals one at a time. EnsureConfigured makes each assumption
// explicit, validates it at runtime, and fails fast with an actionable
// message.
//
// The package never manages the daemon beyond spawn. A spawned PID is
// recorded on the Result for diagnostics, but an already-running Tor is
// adopted as-is, and neither is ever killed.
package torenv
