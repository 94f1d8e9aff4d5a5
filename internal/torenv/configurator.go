package torenv

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/nao1215/onionup/internal/config"
)

// dataDirPerm is the required permission for Tor's DataDirectory.
// Tor itself refuses to start when the directory is readable by group
// or other, so the configurator creates and repairs it to owner-only.
const dataDirPerm = os.FileMode(0o700)

// Configurator brings a local Tor daemon into a known-good state:
// binary resolved, data directory with correct permissions, torrc with
// the required directives, process running, cookie written, and
// ControlPort accepting connections.
//
// A Configurator performs read-only validation before any mutation, so
// a failed precondition (missing binary, bad torrc policy) leaves the
// filesystem untouched.
type Configurator struct {
	paths    config.Paths
	settings config.Settings
	logger   *slog.Logger
}

// Result reports what EnsureConfigured did.
//
// Design decision: the spawned PID lives here instead of in package
// state so multiple Configurator instances can coexist in tests. The
// PID is informational only - this layer never kills the daemon it
// started.
type Result struct {
	// TorBinary is the resolved tor executable path.
	TorBinary string

	// TorPID is the process id of the daemon spawned by this call, or
	// zero when an already-running daemon was adopted.
	TorPID int

	// SpawnedByUs is true when this call started the daemon.
	SpawnedByUs bool
}

// Option configures a Configurator.
type Option func(*Configurator)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Configurator) {
		c.logger = logger
	}
}

// New creates a Configurator for the given paths and settings.
func New(paths config.Paths, settings config.Settings, opts ...Option) *Configurator {
	c := &Configurator{
		paths:    paths,
		settings: settings,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// EnsureConfigured runs the full bring-up sequence. Each step is fatal
// on failure and the error states what failed and how to fix it:
//
//  1. Resolve the tor binary (read-only).
//  2. Ensure the data directory exists with 0700 permissions.
//  3. Ensure the torrc contains the required directives.
//  4. If the ControlPort already accepts connections, adopt the
//     running daemon and skip spawning (idempotent against an
//     externally managed Tor).
//  5. Otherwise spawn "tor -f <torrc>" and sleep the grace period.
//  6. Wait for the auth cookie file to appear and be readable.
//  7. Wait for the ControlPort to accept TCP connections.
//
// The context cancels the polling waits in steps 6 and 7.
func (c *Configurator) EnsureConfigured(ctx context.Context) (*Result, error) {
	binary, err := resolveTorBinary(c.paths.TorBinary)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("resolved tor binary", "path", binary)

	if err := c.ensureDataDirectory(); err != nil {
		return nil, err
	}

	if err := ensureTorrc(c.paths, c.settings); err != nil {
		return nil, err
	}

	result := &Result{TorBinary: binary}

	if probeTCPConnect(config.DefaultControlHost, c.settings.ControlPort, time.Second) {
		// A daemon is already listening; reuse it rather than racing
		// it for the same DataDirectory.
		c.logger.Info("control port already reachable, adopting running tor",
			"port", c.settings.ControlPort,
		)
		return result, nil
	}

	pid, err := c.spawnTor(binary)
	if err != nil {
		return nil, err
	}
	result.TorPID = pid
	result.SpawnedByUs = true
	c.logger.Info("spawned tor", "pid", pid, "torrc", c.paths.TorrcPath)

	if c.settings.SpawnGrace > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.settings.SpawnGrace):
		}
	}

	if err := c.waitForCookie(ctx); err != nil {
		return nil, err
	}
	if err := c.waitForControlPort(ctx); err != nil {
		return nil, err
	}

	c.logger.Info("tor is controllable",
		"port", c.settings.ControlPort,
		"cookie", c.paths.CookiePath,
	)
	return result, nil
}

// ensureDataDirectory creates the DataDirectory with 0700 permissions,
// repairing the mode if the directory already exists with a wider one.
// It refuses to operate on the filesystem root.
func (c *Configurator) ensureDataDirectory() error {
	cleaned := filepath.Clean(c.paths.DataDir)
	if cleaned == string(filepath.Separator) {
		return ErrDataDirIsRoot
	}

	info, err := os.Stat(cleaned)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(cleaned, dataDirPerm); err != nil {
			return fmt.Errorf("failed to create data directory %s: %w", cleaned, err)
		}
	case err != nil:
		return fmt.Errorf("failed to stat data directory %s: %w", cleaned, err)
	case !info.IsDir():
		return fmt.Errorf("data directory %s exists but is not a directory: remove it or pick another path", cleaned)
	case info.Mode().Perm() != dataDirPerm:
		// Tor refuses group/other-accessible data directories.
		c.logger.Debug("repairing data directory permissions",
			"dir", cleaned,
			"from", fmt.Sprintf("%#o", info.Mode().Perm()),
		)
		if err := os.Chmod(cleaned, dataDirPerm); err != nil {
			return fmt.Errorf("failed to set 0700 on data directory %s: %w", cleaned, err)
		}
	}
	return nil
}

// spawnTor starts the daemon with the torrc as its configuration and
// returns the process id. The child is reaped in the background if it
// exits, but is otherwise unmanaged: onionup never kills a Tor it
// started, matching how it adopts an externally started one.
func (c *Configurator) spawnTor(binary string) (int, error) {
	cmd := exec.Command(binary, "-f", c.paths.TorrcPath) //nolint:gosec // Binary resolved from a fixed list or operator flag
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("%w: %s -f %s: %v", ErrSpawn, binary, c.paths.TorrcPath, err)
	}

	pid := cmd.Process.Pid
	go func() {
		// Reap so a crashing tor does not linger as a zombie.
		_ = cmd.Wait()
	}()
	return pid, nil
}

// waitForCookie polls until the auth cookie exists as a readable
// regular file or the cookie timeout elapses.
func (c *Configurator) waitForCookie(ctx context.Context) error {
	err := pollUntil(ctx, c.settings.CookieTimeout, ErrCookieTimeout, func() bool {
		return cookieReady(c.paths.CookiePath)
	})
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", c.paths.CookiePath, err)
	}
	return nil
}

// waitForControlPort polls TCP connects until the ControlPort accepts
// or the connect timeout elapses.
func (c *Configurator) waitForControlPort(ctx context.Context) error {
	err := pollUntil(ctx, c.settings.ConnectControlTimeout, ErrControlPortTimeout, func() bool {
		return probeTCPConnect(config.DefaultControlHost, c.settings.ControlPort, pollInterval)
	})
	if err != nil {
		return fmt.Errorf("waiting for control port %d: %w", c.settings.ControlPort, err)
	}
	return nil
}

// ProbeControlPort reports whether a ControlPort currently accepts TCP
// connections. Exposed for the check subcommand.
func ProbeControlPort(port int, timeout time.Duration) bool {
	return probeTCPConnect(config.DefaultControlHost, port, timeout)
}
