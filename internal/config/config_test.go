package config

import (
	"errors"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with the
// documented defaults. Changes to defaults should be intentional, so
// this test fails loudly when one drifts.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default control port is 9051", func(t *testing.T) {
		t.Parallel()
		if cfg.Settings.ControlPort != 9051 {
			t.Errorf("expected control port 9051, got %d", cfg.Settings.ControlPort)
		}
	})

	t.Run("default local bind is 127.0.0.1:5000", func(t *testing.T) {
		t.Parallel()
		if cfg.Service.LocalBindIP != "127.0.0.1" {
			t.Errorf("expected bind IP 127.0.0.1, got %s", cfg.Service.LocalBindIP)
		}
		if cfg.Service.LocalPort != 5000 {
			t.Errorf("expected local port 5000, got %d", cfg.Service.LocalPort)
		}
	})

	t.Run("default virtual port is 12345", func(t *testing.T) {
		t.Parallel()
		if cfg.Service.VirtualPort != 12345 {
			t.Errorf("expected virtual port 12345, got %d", cfg.Service.VirtualPort)
		}
	})

	t.Run("default mode is ephemeral", func(t *testing.T) {
		t.Parallel()
		if cfg.Service.Mode != ModeEphemeral {
			t.Errorf("expected ephemeral mode, got %s", cfg.Service.Mode)
		}
	})

	t.Run("default cookie timeout is 15s", func(t *testing.T) {
		t.Parallel()
		if cfg.Settings.CookieTimeout != 15*time.Second {
			t.Errorf("expected 15s cookie timeout, got %v", cfg.Settings.CookieTimeout)
		}
	})

	t.Run("default bootstrap timeout is 3m", func(t *testing.T) {
		t.Parallel()
		if cfg.Service.BootstrapTimeout != 3*time.Minute {
			t.Errorf("expected 3m bootstrap timeout, got %v", cfg.Service.BootstrapTimeout)
		}
	})

	t.Run("torrc patching defaults to append", func(t *testing.T) {
		t.Parallel()
		if !cfg.Settings.AppendIfExists {
			t.Error("expected AppendIfExists to default to true")
		}
	})

	t.Run("XDG paths are populated", func(t *testing.T) {
		t.Parallel()
		if cfg.Paths.TorrcPath == "" || cfg.Paths.DataDir == "" || cfg.Paths.CookiePath == "" {
			t.Errorf("expected non-empty default paths, got %+v", cfg.Paths)
		}
	})
}

// TestConfigValidate exercises each validation rule in isolation.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	t.Run("default config is valid", func(t *testing.T) {
		t.Parallel()
		if err := NewConfig().Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("zero control port returns ErrInvalidControlPort", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Settings.ControlPort = 0
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidControlPort) {
			t.Errorf("expected ErrInvalidControlPort, got %v", err)
		}
	})

	t.Run("control port above 65535 returns ErrInvalidControlPort", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Settings.ControlPort = 70000
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidControlPort) {
			t.Errorf("expected ErrInvalidControlPort, got %v", err)
		}
	})

	t.Run("zero cookie timeout returns ErrInvalidTimeout", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Settings.CookieTimeout = 0
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidTimeout) {
			t.Errorf("expected ErrInvalidTimeout, got %v", err)
		}
	})

	t.Run("negative spawn grace returns ErrInvalidSpawnGrace", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Settings.SpawnGrace = -time.Second
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidSpawnGrace) {
			t.Errorf("expected ErrInvalidSpawnGrace, got %v", err)
		}
	})

	t.Run("empty bind IP returns ErrEmptyBindIP", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Service.LocalBindIP = ""
		if err := cfg.Validate(); !errors.Is(err, ErrEmptyBindIP) {
			t.Errorf("expected ErrEmptyBindIP, got %v", err)
		}
	})

	t.Run("provided-key mode without key returns ErrEmptyProvidedKey", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Service.Mode = ModeProvidedKey
		if err := cfg.Validate(); !errors.Is(err, ErrEmptyProvidedKey) {
			t.Errorf("expected ErrEmptyProvidedKey, got %v", err)
		}
	})

	t.Run("provided-key mode with key is valid", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Service.Mode = ModeProvidedKey
		cfg.Service.ProvidedKey = "UEsDBBQACAAIA=="
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("unknown mode returns ErrInvalidPersistenceMode", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Service.Mode = PersistenceMode("rsa1024")
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidPersistenceMode) {
			t.Errorf("expected ErrInvalidPersistenceMode, got %v", err)
		}
	})

	t.Run("missing paths are fatal outside simulation mode", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Paths.TorrcPath = ""
		if err := cfg.Validate(); !errors.Is(err, ErrMissingPath) {
			t.Errorf("expected ErrMissingPath, got %v", err)
		}
	})

	t.Run("missing paths are allowed in simulation mode", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Paths = Paths{}
		cfg.Service.SimulationMode = true
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error in simulation mode, got %v", err)
		}
	})
}
