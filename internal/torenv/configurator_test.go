package torenv

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/onionup/internal/config"
)

func TestResolveTorBinary(t *testing.T) {
	t.Parallel()

	t.Run("explicit executable file is accepted", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "tor")
		if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatal(err)
		}
		got, err := resolveTorBinary(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
	})

	t.Run("explicit non-executable file is rejected", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "tor")
		if err := os.WriteFile(path, []byte("not executable"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := resolveTorBinary(path)
		if !errors.Is(err, ErrTorBinaryNotExecutable) {
			t.Errorf("expected ErrTorBinaryNotExecutable, got %v", err)
		}
	})

	t.Run("explicit missing path is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := resolveTorBinary(filepath.Join(t.TempDir(), "missing"))
		if !errors.Is(err, ErrTorBinaryNotExecutable) {
			t.Errorf("expected ErrTorBinaryNotExecutable, got %v", err)
		}
	})

	t.Run("explicit directory is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := resolveTorBinary(t.TempDir())
		if !errors.Is(err, ErrTorBinaryNotExecutable) {
			t.Errorf("expected ErrTorBinaryNotExecutable, got %v", err)
		}
	})
}

func TestEnsureDataDirectory(t *testing.T) {
	t.Parallel()

	t.Run("missing directory is created with 0700", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "nested", "data")
		c := New(config.Paths{DataDir: dir}, testSettings())

		if err := c.ensureDataDirectory(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0o700 {
			t.Errorf("expected 0700, got %#o", perm)
		}
	})

	t.Run("existing directory with wide permissions is repaired", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "data")
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		c := New(config.Paths{DataDir: dir}, testSettings())

		if err := c.ensureDataDirectory(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		info, _ := os.Stat(dir)
		if perm := info.Mode().Perm(); perm != 0o700 {
			t.Errorf("expected repaired 0700, got %#o", perm)
		}
	})

	t.Run("filesystem root is refused", func(t *testing.T) {
		t.Parallel()
		c := New(config.Paths{DataDir: "/"}, testSettings())
		if err := c.ensureDataDirectory(); !errors.Is(err, ErrDataDirIsRoot) {
			t.Errorf("expected ErrDataDirIsRoot, got %v", err)
		}
	})

	t.Run("root with redundant separators is still refused", func(t *testing.T) {
		t.Parallel()
		c := New(config.Paths{DataDir: "///"}, testSettings())
		if err := c.ensureDataDirectory(); !errors.Is(err, ErrDataDirIsRoot) {
			t.Errorf("expected ErrDataDirIsRoot, got %v", err)
		}
	})

	t.Run("regular file at the path is an error", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "data")
		if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
		c := New(config.Paths{DataDir: path}, testSettings())
		if err := c.ensureDataDirectory(); err == nil {
			t.Error("expected error for non-directory path, got nil")
		}
	})
}

func TestPollUntil(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("deadline")

	t.Run("immediate success returns nil", func(t *testing.T) {
		t.Parallel()
		err := pollUntil(context.Background(), time.Second, sentinel, func() bool { return true })
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("eventual success within budget", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		err := pollUntil(context.Background(), 5*time.Second, sentinel, func() bool {
			attempts++
			return attempts >= 3
		})
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if attempts != 3 {
			t.Errorf("expected 3 attempts, got %d", attempts)
		}
	})

	t.Run("timeout returns the provided error", func(t *testing.T) {
		t.Parallel()
		err := pollUntil(context.Background(), 10*time.Millisecond, sentinel, func() bool { return false })
		if !errors.Is(err, sentinel) {
			t.Errorf("expected sentinel timeout error, got %v", err)
		}
	})

	t.Run("cancellation interrupts the wait", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := pollUntil(ctx, time.Minute, sentinel, func() bool { return false })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestCookieReady(t *testing.T) {
	t.Parallel()

	t.Run("readable regular file is ready", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "control_auth_cookie")
		if err := os.WriteFile(path, []byte{0x01, 0x02}, 0o600); err != nil {
			t.Fatal(err)
		}
		if !cookieReady(path) {
			t.Error("expected cookie to be ready")
		}
	})

	t.Run("missing file is not ready", func(t *testing.T) {
		t.Parallel()
		if cookieReady(filepath.Join(t.TempDir(), "missing")) {
			t.Error("expected missing cookie to not be ready")
		}
	})

	t.Run("directory is not ready", func(t *testing.T) {
		t.Parallel()
		if cookieReady(t.TempDir()) {
			t.Error("expected directory to not be ready")
		}
	})
}

func TestProbeTCPConnect(t *testing.T) {
	t.Parallel()

	t.Run("listening port is reachable", func(t *testing.T) {
		t.Parallel()
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		defer ln.Close()

		port := ln.Addr().(*net.TCPAddr).Port
		if !probeTCPConnect("127.0.0.1", port, time.Second) {
			t.Error("expected listening port to be reachable")
		}
	})

	t.Run("closed port is not reachable", func(t *testing.T) {
		t.Parallel()
		// Grab an ephemeral port and release it so nothing listens.
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		port := ln.Addr().(*net.TCPAddr).Port
		_ = ln.Close()

		if probeTCPConnect("127.0.0.1", port, 200*time.Millisecond) {
			t.Error("expected closed port to be unreachable")
		}
	})
}

// TestEnsureConfiguredAdoptsRunningDaemon verifies step 4: when the
// control port already accepts connections, no process is spawned and
// the readiness waits are skipped.
func TestEnsureConfiguredAdoptsRunningDaemon(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	// A fake tor binary that must never be spawned.
	paths := testPaths(t)
	paths.TorBinary = filepath.Join(t.TempDir(), "tor")
	if err := os.WriteFile(paths.TorBinary, []byte("#!/bin/sh\nexit 1\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	settings := testSettings()
	settings.ControlPort = port
	settings.CookieTimeout = time.Second
	settings.ConnectControlTimeout = time.Second

	c := New(paths, settings)
	result, err := c.EnsureConfigured(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.SpawnedByUs {
		t.Error("expected adoption of the running daemon, not a spawn")
	}
	if result.TorPID != 0 {
		t.Errorf("expected zero PID for adopted daemon, got %d", result.TorPID)
	}
	if result.TorBinary != paths.TorBinary {
		t.Errorf("expected resolved binary %s, got %s", paths.TorBinary, result.TorBinary)
	}
}
