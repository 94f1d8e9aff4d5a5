package torenv

import (
	"fmt"
	"os"
	"os/exec"
)

// conventionalTorPaths is the fixed, ordered list of install locations
// probed when no explicit binary path is configured. Package-manager
// defaults first (Debian/Ubuntu, then Homebrew on both architectures,
// then MacPorts), system sbin last.
var conventionalTorPaths = []string{
	"/usr/bin/tor",
	"/usr/local/bin/tor",
	"/opt/homebrew/bin/tor",
	"/opt/local/bin/tor",
	"/usr/sbin/tor",
}

// resolveTorBinary locates the tor executable.
// An explicit path must point at a regular executable file; otherwise
// the conventional locations are probed in order and $PATH is consulted
// last. This is a read-only step: it happens before any mutation so a
// missing installation aborts the whole bring-up cleanly.
func resolveTorBinary(explicit string) (string, error) {
	if explicit != "" {
		if !isExecutableFile(explicit) {
			return "", fmt.Errorf("%w: %s", ErrTorBinaryNotExecutable, explicit)
		}
		return explicit, nil
	}

	for _, candidate := range conventionalTorPaths {
		if isExecutableFile(candidate) {
			return candidate, nil
		}
	}

	// $PATH lookup is last so a system install is preferred over
	// whatever happens to be first on the user's PATH.
	if path, err := exec.LookPath("tor"); err == nil {
		return path, nil
	}

	return "", ErrTorBinaryNotFound
}

// isExecutableFile reports whether p is a regular file with at least
// one execute bit set.
func isExecutableFile(p string) bool {
	info, err := os.Stat(p)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}
