package report

import (
	"time"
)

// Summary describes one completed bring-up for presentation. It is
// assembled by the up command from the service record and the
// environment result; key material is deliberately absent.
type Summary struct {
	// OnionAddress is the full published address.
	OnionAddress string
	// VirtualPort is the onion-side port.
	VirtualPort int
	// Target is the local forward destination.
	Target string
	// Mode is the persistence mode label.
	Mode string
	// Simulated marks a dry run without a tor daemon.
	Simulated bool
	// TorBinary is the daemon binary in use, empty in simulation.
	TorBinary string
	// SpawnedDaemon is true when the tool started the daemon itself
	// rather than adopting a running one.
	SpawnedDaemon bool
	// CreatedAt is when the service came up.
	CreatedAt time.Time
}

// statusText renders the daemon column of a summary.
func (s *Summary) statusText() string {
	switch {
	case s.Simulated:
		return "simulated (no daemon)"
	case s.SpawnedDaemon:
		return "spawned by onionup"
	default:
		return "adopted running daemon"
	}
}
