package onion

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/nao1215/onionup/internal/config"
	"golang.org/x/crypto/sha3"
)

// simSeedFormat feeds the simulated key derivation. The triple of bind
// address, local port, and virtual port fully determines the address,
// so repeated runs with the same configuration print the same address.
const simSeedFormat = "onionup-sim|%s|%d|%d"

// simController satisfies the full controller capability set without a
// tor daemon. Connection, authentication, and bootstrap are immediate
// successes; service creation derives a deterministic, checksum-valid
// v3 address from the configuration.
type simController struct {
	svc config.Service
}

// newSimController returns a controller backed by no daemon at all.
func newSimController(cfg *config.Config) *simController {
	return &simController{svc: cfg.Service}
}

// Connect succeeds immediately. There is nothing to connect to.
func (c *simController) Connect(_ context.Context) error { return nil }

// Authenticate succeeds immediately.
func (c *simController) Authenticate() error { return nil }

// WaitBootstrapped succeeds immediately. The simulated daemon is
// always fully bootstrapped.
func (c *simController) WaitBootstrapped(_ context.Context) error { return nil }

// CreateService derives the deterministic service identifier from the
// configured bind address and ports.
func (c *simController) CreateService() (*Record, error) {
	id, err := simulatedServiceID(c.svc.LocalBindIP, c.svc.LocalPort, c.svc.VirtualPort)
	if err != nil {
		return nil, err
	}
	return &Record{
		ServiceID:   id,
		VirtualPort: c.svc.VirtualPort,
		Target:      net.JoinHostPort(c.svc.LocalBindIP, strconv.Itoa(c.svc.LocalPort)),
		Mode:        c.svc.Mode,
		Simulated:   true,
	}, nil
}

// RemoveService succeeds immediately.
func (c *simController) RemoveService(_ string) error { return nil }

// Close succeeds immediately.
func (c *simController) Close() error { return nil }

// simulatedServiceID hashes the configuration triple into a stand-in
// public key and runs it through the real v3 address encoding, so the
// result is indistinguishable in shape from a daemon-issued address.
func simulatedServiceID(bindIP string, localPort, virtualPort int) (string, error) {
	seed := fmt.Sprintf(simSeedFormat, bindIP, localPort, virtualPort)
	pubkey := sha3.Sum256([]byte(seed))
	return ServiceIDFromPublicKey(pubkey[:])
}
