package torenv

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nao1215/onionup/internal/config"
)

// directive is a single torrc "Key value..." line.
type directive struct {
	key   string
	value string
}

// String renders the directive as a torrc line without a newline.
func (d directive) String() string {
	return d.key + " " + d.value
}

// requiredDirectives builds the directive set onionup needs Tor to run
// with. The exact keys are part of the external contract: ControlPort,
// CookieAuthentication, DataDirectory, CookieAuthFile, optionally
// CookieAuthFileGroupReadable and a notices log.
func requiredDirectives(paths config.Paths, settings config.Settings) []directive {
	ds := []directive{
		{"ControlPort", strconv.Itoa(settings.ControlPort)},
		{"CookieAuthentication", "1"},
		{"DataDirectory", paths.DataDir},
		{"CookieAuthFile", paths.CookiePath},
	}
	if settings.CookieGroupReadable {
		ds = append(ds, directive{"CookieAuthFileGroupReadable", "1"})
	}
	if paths.LogFile != "" {
		ds = append(ds, directive{"Log", "notice file " + paths.LogFile})
	}
	return ds
}

// ensureTorrc creates or patches the torrc so it contains every
// required directive.
//
// Missing file: write a fresh block. Existing file with AppendIfExists:
// append only the directives whose key+value pair is not already
// present - Tor applies the last occurrence of a key, so a stale
// duplicate earlier in the file is tolerated and the appended line
// wins. Existing file without AppendIfExists: a missing directive is
// fatal and the file is left untouched.
func ensureTorrc(paths config.Paths, settings config.Settings) error {
	required := requiredDirectives(paths, settings)

	data, err := os.ReadFile(paths.TorrcPath) //nolint:gosec // Operator-controlled torrc path
	if os.IsNotExist(err) {
		return writeFreshTorrc(paths.TorrcPath, required)
	}
	if err != nil {
		return fmt.Errorf("failed to read torrc %s: %w", paths.TorrcPath, err)
	}

	var missing []directive
	for _, d := range required {
		if !hasDirective(string(data), d) {
			missing = append(missing, d)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	if !settings.AppendIfExists {
		keys := make([]string, 0, len(missing))
		for _, d := range missing {
			keys = append(keys, d.key)
		}
		return fmt.Errorf("%w: %s in %s", ErrDirectiveMissing, strings.Join(keys, ", "), paths.TorrcPath)
	}

	return appendDirectives(paths.TorrcPath, string(data), missing)
}

// hasDirective reports whether content already contains the directive
// with the correct value. Torrc keys are case-insensitive; values are
// compared exactly after whitespace normalization. A matching key with
// a different value does not count - the directive still needs to be
// appended so the effective (last) value is ours.
func hasDirective(content string, d directive) bool {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if !strings.EqualFold(fields[0], d.key) {
			continue
		}
		if strings.Join(fields[1:], " ") == d.value {
			return true
		}
	}
	return false
}

// writeFreshTorrc writes a new torrc containing only our directive
// block. 0600 because the file names the cookie location and data
// directory of a privacy-sensitive daemon.
func writeFreshTorrc(path string, ds []directive) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create torrc directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Generated by onionup. Edits are preserved; missing directives are appended.\n")
	for _, d := range ds {
		b.WriteString(d.String())
		b.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write torrc %s: %w", path, err)
	}
	return nil
}

// appendDirectives appends the missing directives to an existing torrc.
func appendDirectives(path, existing string, ds []directive) error {
	var b strings.Builder
	if existing != "" && !strings.HasSuffix(existing, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("# Appended by onionup (last occurrence of a key wins).\n")
	for _, d := range ds {
		b.WriteString(d.String())
		b.WriteString("\n")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // Operator-controlled torrc path
	if err != nil {
		return fmt.Errorf("failed to open torrc %s for appending: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("failed to append to torrc %s: %w", path, err)
	}
	return nil
}
