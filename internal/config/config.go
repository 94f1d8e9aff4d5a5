package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These mirror stock Tor daemon conventions where one exists
// (ControlPort 9051) and are otherwise chosen to work out of the box on
// a typical workstation.
const (
	// DefaultControlPort is the conventional Tor ControlPort.
	// 9051 is what the Debian/Ubuntu and Homebrew packages configure,
	// so reusing it lets onionup adopt an externally managed daemon.
	DefaultControlPort = 9051

	// DefaultControlHost is where the ControlPort listens. Tor binds
	// the control listener to loopback unless explicitly told
	// otherwise, so there is no reason to make this configurable yet.
	DefaultControlHost = "127.0.0.1"

	// DefaultLocalBindIP is where the local TCP service listens.
	// We use 127.0.0.1 instead of localhost to avoid DNS resolution
	// and IPv6 ambiguity; the onion service forwards here.
	DefaultLocalBindIP = "127.0.0.1"

	// DefaultLocalPort is the local service port the onion forwards to.
	DefaultLocalPort = 5000

	// DefaultVirtualPort is the remote-facing port clients connect to
	// on the published onion address.
	DefaultVirtualPort = 12345

	// DefaultCookieTimeout is how long to wait for Tor to write its
	// control_auth_cookie after startup. A freshly spawned daemon
	// normally writes the cookie within a second or two; 15 seconds
	// leaves room for slow disks and cold starts.
	DefaultCookieTimeout = 15 * time.Second

	// DefaultConnectControlTimeout is how long to wait for the
	// ControlPort to accept TCP connections after spawn.
	DefaultConnectControlTimeout = 8 * time.Second

	// DefaultSpawnGrace is a small delay between spawning Tor and the
	// first readiness probe, so a brand-new process is not probed
	// before it has even parsed its torrc.
	DefaultSpawnGrace = 1500 * time.Millisecond

	// DefaultBootstrapTimeout is the maximum time to wait for Tor to
	// report 100% bootstrap progress. Joining the Tor network takes
	// 1-3 minutes on a cold data directory.
	DefaultBootstrapTimeout = 3 * time.Minute

	// DefaultBootstrapInterval is the delay between bootstrap-status
	// queries while waiting for full progress.
	DefaultBootstrapInterval = time.Second

	// AppName is the application name used for XDG directory paths.
	AppName = "onionup"
)

// PersistenceMode selects how the onion service's cryptographic
// identity is obtained.
type PersistenceMode string

const (
	// ModeEphemeral asks Tor to generate a fresh ED25519-V3 key.
	// The service disappears when the daemon stops.
	ModeEphemeral PersistenceMode = "ephemeral"

	// ModeProvidedKey supplies caller-provided key material so the
	// onion address stays stable across runs.
	ModeProvidedKey PersistenceMode = "provided-key"
)

// Paths holds every filesystem location the environment configurator
// touches. All fields are plain values; nothing here owns a resource.
//
// Design decision: explicit paths instead of magic defaults scattered
// through the code. Each assumption is visible and overridable from the
// CLI, and the zero value is completed by NewConfig with XDG locations.
type Paths struct {
	// TorBinary is the path to the tor executable. Empty means
	// auto-discover from a fixed list of conventional install
	// locations plus $PATH.
	TorBinary string

	// TorrcPath is the torrc file to use or create.
	TorrcPath string

	// DataDir is Tor's DataDirectory. Must end up with 0700
	// permissions before the daemon is spawned.
	DataDir string

	// CookiePath is the CookieAuthFile location Tor writes the
	// control auth cookie to.
	CookiePath string

	// LogFile is an optional Tor notices log. Empty disables file
	// logging.
	LogFile string
}

// Settings holds the operational knobs for bringing up and verifying
// the Tor daemon.
type Settings struct {
	// ControlPort is the TCP port of Tor's control listener (1-65535).
	ControlPort int

	// CookieTimeout bounds the wait for the auth cookie file.
	CookieTimeout time.Duration

	// ConnectControlTimeout bounds the wait for the ControlPort to
	// accept TCP connections.
	ConnectControlTimeout time.Duration

	// SpawnGrace is slept after spawning Tor before the first probe.
	SpawnGrace time.Duration

	// CookieGroupReadable emits CookieAuthFileGroupReadable 1 in the
	// generated torrc. It affects the directive only; this layer
	// never chmods the cookie itself.
	CookieGroupReadable bool

	// AppendIfExists governs torrc patching: when true, missing
	// directives are appended to an existing file (last occurrence
	// wins under Tor's parsing rules). When false, a missing required
	// directive is a fatal error and the file is never mutated.
	AppendIfExists bool
}

// Service describes the onion service to publish and the local
// listener it forwards to.
type Service struct {
	// LocalBindIP is the address the local TCP service binds to.
	LocalBindIP string

	// LocalPort is the local TCP service port.
	LocalPort int

	// VirtualPort is the port exposed on <serviceID>.onion.
	VirtualPort int

	// Mode selects ephemeral or provided-key persistence.
	Mode PersistenceMode

	// ProvidedKey is the base64 ED25519-V3 key blob, used only in
	// provided-key mode. Never logged.
	ProvidedKey string

	// SimulationMode bypasses all Tor interaction and fabricates a
	// deterministic onion address from (bind IP, local port, virtual
	// port). Used for tests and development without a Tor daemon.
	SimulationMode bool

	// BootstrapTimeout bounds the wait for 100% bootstrap progress.
	BootstrapTimeout time.Duration

	// BootstrapInterval is the poll interval for bootstrap queries.
	BootstrapInterval time.Duration
}

// Config holds all configuration for onionup.
// It is populated from CLI flags (plus an optional .onionup file) and
// passed through the application via dependency injection rather than
// global state.
type Config struct {
	// Paths are the filesystem locations used by the configurator.
	Paths Paths

	// Settings are the daemon bring-up knobs.
	Settings Settings

	// Service describes the onion service to publish.
	Service Service

	// Verbose enables slog.LevelDebug output. When false, only
	// warnings and errors are logged.
	Verbose bool

	// HistoryDBDir is the directory for the publish-history SQLite
	// database. Empty disables history recording.
	HistoryDBDir string

	// ConfigFilePath is an explicit .onionup file path. If empty, the
	// tool searches the current directory and then the home directory.
	ConfigFilePath string
}

// NewConfig creates a Config with all defaults filled in.
//
// Design decision: a constructor instead of relying on zero values,
// because almost every default here is non-zero (ports, timeouts, XDG
// paths). It also doubles as documentation of the defaults.
func NewConfig() *Config {
	dataDir := filepath.Join(xdg.DataHome, AppName, "tor")
	return &Config{
		Paths: Paths{
			TorrcPath:  filepath.Join(xdg.ConfigHome, AppName, "torrc"),
			DataDir:    dataDir,
			CookiePath: filepath.Join(dataDir, "control_auth_cookie"),
		},
		Settings: Settings{
			ControlPort:           DefaultControlPort,
			CookieTimeout:         DefaultCookieTimeout,
			ConnectControlTimeout: DefaultConnectControlTimeout,
			SpawnGrace:            DefaultSpawnGrace,
			CookieGroupReadable:   true,
			AppendIfExists:        true,
		},
		Service: Service{
			LocalBindIP:       DefaultLocalBindIP,
			LocalPort:         DefaultLocalPort,
			VirtualPort:       DefaultVirtualPort,
			Mode:              ModeEphemeral,
			BootstrapTimeout:  DefaultBootstrapTimeout,
			BootstrapInterval: DefaultBootstrapInterval,
		},
		HistoryDBDir: XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for onionup.
// On Linux: ~/.local/share/onionup
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for onionup.
// On Linux: ~/.config/onionup
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns a specific error for
// the first problem found. It is called once after CLI parsing, before
// any filesystem or network activity, so failures surface upfront with
// a clear message.
func (c *Config) Validate() error {
	if c.Settings.ControlPort < 1 || c.Settings.ControlPort > 65535 {
		return ErrInvalidControlPort
	}
	if c.Settings.CookieTimeout <= 0 || c.Settings.ConnectControlTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Settings.SpawnGrace < 0 {
		return ErrInvalidSpawnGrace
	}
	if c.Service.LocalBindIP == "" {
		return ErrEmptyBindIP
	}
	if c.Service.LocalPort < 1 || c.Service.LocalPort > 65535 {
		return ErrInvalidLocalPort
	}
	if c.Service.VirtualPort < 1 || c.Service.VirtualPort > 65535 {
		return ErrInvalidVirtualPort
	}
	switch c.Service.Mode {
	case ModeEphemeral:
		// Nothing extra to check; Tor generates the key.
	case ModeProvidedKey:
		if c.Service.ProvidedKey == "" {
			return ErrEmptyProvidedKey
		}
	default:
		return ErrInvalidPersistenceMode
	}
	if c.Service.BootstrapTimeout <= 0 || c.Service.BootstrapInterval <= 0 {
		return ErrInvalidTimeout
	}
	if !c.Service.SimulationMode {
		if c.Paths.TorrcPath == "" || c.Paths.DataDir == "" || c.Paths.CookiePath == "" {
			return ErrMissingPath
		}
	}
	return nil
}
