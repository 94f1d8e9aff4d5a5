package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".onionup"

// ErrConfigNotFound is returned when the configuration file does not
// exist. Callers should treat it as fatal only when the user named the
// file explicitly.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the on-disk YAML configuration. Every field is optional;
// values present in the file override the built-in defaults, and CLI
// flags override the file in turn.
//
// Example .onionup:
//
//	control_port: 9051
//	data_dir: /opt/homebrew/var/lib/tor
//	torrc: /opt/homebrew/etc/tor/torrc
//	cookie_path: /opt/homebrew/var/lib/tor/control_auth_cookie
//	local_port: 8080
//	virtual_port: 80
type File struct {
	TorBinary   string `yaml:"tor_binary"`
	Torrc       string `yaml:"torrc"`
	DataDir     string `yaml:"data_dir"`
	CookiePath  string `yaml:"cookie_path"`
	LogFile     string `yaml:"log_file"`
	ControlPort int    `yaml:"control_port"`
	LocalBindIP string `yaml:"local_bind_ip"`
	LocalPort   int    `yaml:"local_port"`
	VirtualPort int    `yaml:"virtual_port"`
	Mode        string `yaml:"mode"`
}

// LoadConfigFile loads a File from a YAML path.
// A missing file yields ErrConfigNotFound so the caller can decide
// whether that is fatal.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &f, nil
}

// FindConfigFile searches for the configuration file in order:
//  1. the explicit path, if given
//  2. .onionup in the current directory
//  3. .onionup in the user's home directory
//
// Returns the path found, or empty string if none exists.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	candidate := filepath.Join(home, DefaultConfigFile)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// Apply copies the file's non-zero values onto cfg.
// CLI flags are applied after this, so the precedence is
// defaults < file < flags.
func (f *File) Apply(cfg *Config) {
	if f.TorBinary != "" {
		cfg.Paths.TorBinary = f.TorBinary
	}
	if f.Torrc != "" {
		cfg.Paths.TorrcPath = f.Torrc
	}
	if f.DataDir != "" {
		cfg.Paths.DataDir = f.DataDir
	}
	if f.CookiePath != "" {
		cfg.Paths.CookiePath = f.CookiePath
	}
	if f.LogFile != "" {
		cfg.Paths.LogFile = f.LogFile
	}
	if f.ControlPort != 0 {
		cfg.Settings.ControlPort = f.ControlPort
	}
	if f.LocalBindIP != "" {
		cfg.Service.LocalBindIP = f.LocalBindIP
	}
	if f.LocalPort != 0 {
		cfg.Service.LocalPort = f.LocalPort
	}
	if f.VirtualPort != 0 {
		cfg.Service.VirtualPort = f.VirtualPort
	}
	if f.Mode != "" {
		cfg.Service.Mode = PersistenceMode(f.Mode)
	}
}
