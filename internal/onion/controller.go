package onion

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/nao1215/onionup/internal/config"
	"github.com/nao1215/onionup/internal/control"
)

// Record describes a published hidden service. PrivateKey holds the
// ED25519-V3 blob for ephemeral services and must never be written to
// logs; the secure log handler redacts it as a second line of defense.
type Record struct {
	// ServiceID is the 56-character v3 identifier without ".onion".
	ServiceID string
	// PrivateKey is the key blob returned by tor for newly generated
	// keys. Empty when the caller provided the key.
	PrivateKey string
	// VirtualPort is the port exposed on the onion side.
	VirtualPort int
	// Target is the local ip:port the virtual port forwards to.
	Target string
	// Mode records the persistence mode the service was created with.
	Mode config.PersistenceMode
	// Simulated is true when the record was produced without a tor
	// daemon.
	Simulated bool
}

// Address returns the full onion address for the record.
func (r *Record) Address() string {
	return Address(r.ServiceID)
}

// Controller is the capability set the lifecycle manager drives. Both
// the live tor-backed implementation and the simulated one satisfy it,
// so the manager runs one sequence regardless of mode.
//
// Design decision: polymorphism over a capability interface instead of
// an "if simulated" branch per step. The simulated controller answers
// every capability honestly for its mode, and tests can substitute
// their own implementation to script failures at any step.
type Controller interface {
	// Connect establishes the control connection.
	Connect(ctx context.Context) error
	// Authenticate proves control-port access with the cookie.
	Authenticate() error
	// WaitBootstrapped blocks until the daemon reports 100% bootstrap.
	WaitBootstrapped(ctx context.Context) error
	// CreateService publishes the hidden service and returns its record.
	CreateService() (*Record, error)
	// RemoveService unpublishes the service with the given identifier.
	RemoveService(serviceID string) error
	// Close releases the control connection. Safe to call at any point.
	Close() error
}

// torController drives a live tor daemon through its control port.
type torController struct {
	client     *control.Client
	cookiePath string
	svc        config.Service
}

// newTorController wires a control client against the configured
// control port.
func newTorController(cfg *config.Config, opts ...control.ClientOption) *torController {
	return &torController{
		client:     control.NewClient(config.DefaultControlHost, cfg.Settings.ControlPort, opts...),
		cookiePath: cfg.Paths.CookiePath,
		svc:        cfg.Service,
	}
}

// Connect establishes the TCP control connection.
func (c *torController) Connect(ctx context.Context) error {
	return c.client.Connect(ctx)
}

// Authenticate reads the cookie file and authenticates the session.
func (c *torController) Authenticate() error {
	return c.client.Authenticate(c.cookiePath)
}

// WaitBootstrapped polls bootstrap progress until the daemon reaches
// 100% or the configured timeout expires.
func (c *torController) WaitBootstrapped(ctx context.Context) error {
	return c.client.WaitBootstrapped(ctx, c.svc.BootstrapTimeout, c.svc.BootstrapInterval)
}

// CreateService publishes the hidden service via ADD_ONION.
func (c *torController) CreateService() (*Record, error) {
	req := control.AddOnionRequest{
		VirtualPort: c.svc.VirtualPort,
		Target:      net.JoinHostPort(c.svc.LocalBindIP, strconv.Itoa(c.svc.LocalPort)),
	}
	if c.svc.Mode == config.ModeProvidedKey {
		if c.svc.ProvidedKey == "" {
			return nil, ErrMissingKeyMaterial
		}
		req.ProvideKey = true
		req.KeyBlob = c.svc.ProvidedKey
	}

	svc, err := c.client.AddOnion(req)
	if err != nil {
		return nil, fmt.Errorf("publish hidden service: %w", err)
	}

	return &Record{
		ServiceID:   svc.ServiceID,
		PrivateKey:  svc.PrivateKey,
		VirtualPort: c.svc.VirtualPort,
		Target:      req.Target,
		Mode:        c.svc.Mode,
	}, nil
}

// RemoveService unpublishes the service via DEL_ONION.
func (c *torController) RemoveService(serviceID string) error {
	return c.client.DelOnion(serviceID)
}

// Close sends QUIT and closes the control connection.
func (c *torController) Close() error {
	return c.client.Close()
}
