package onion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/onionup/internal/config"
	"github.com/nao1215/onionup/internal/torenv"
)

// Manager orchestrates the full bring-up of a hidden service: tor
// environment preparation, control-port session, bootstrap wait, and
// service publication. It owns exactly one service at a time.
type Manager struct {
	cfg        *config.Config
	logger     *slog.Logger
	controller Controller
	record     *Record
	env        *torenv.Result
	ready      bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger the manager reports progress with.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithController substitutes the controller the manager drives.
// Intended for tests that script step failures.
func WithController(c Controller) ManagerOption {
	return func(m *Manager) {
		m.controller = c
	}
}

// NewManager creates a lifecycle manager for the given configuration.
func NewManager(cfg *config.Config, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.controller == nil {
		if cfg.Service.SimulationMode {
			m.controller = newSimController(cfg)
		} else {
			m.controller = newTorController(cfg)
		}
	}
	return m
}

// Setup brings the hidden service online. The sequence is environment
// preparation, control connection, authentication, bootstrap wait, and
// publication; the first failing step aborts the rest, and any control
// connection opened so far is closed before returning. Calling Setup on
// a manager that is already ready is a no-op.
func (m *Manager) Setup(ctx context.Context) error {
	if m.ready {
		return nil
	}

	if err := m.ensureEnvironment(ctx); err != nil {
		return err
	}

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{name: "connect control port", run: m.controller.Connect},
		{name: "authenticate", run: func(_ context.Context) error { return m.controller.Authenticate() }},
		{name: "wait for bootstrap", run: m.controller.WaitBootstrapped},
		{name: "publish hidden service", run: m.publish},
	}

	for _, step := range steps {
		m.logger.Info("setup step", slog.String("step", step.name))
		if err := step.run(ctx); err != nil {
			// Leave no half-open session behind a failed bring-up.
			if closeErr := m.controller.Close(); closeErr != nil {
				m.logger.Warn("close control connection after failure",
					slog.String("error", closeErr.Error()))
			}
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	m.ready = true
	m.logger.Info("hidden service is up",
		slog.String("onion_address", m.record.Address()),
		slog.Int("virtual_port", m.record.VirtualPort),
		slog.String("target", m.record.Target),
		slog.Bool("simulated", m.record.Simulated))
	return nil
}

// ensureEnvironment prepares torrc, data directory, and daemon. The
// simulated controller needs none of that, so simulation mode skips it
// entirely and never touches the filesystem.
func (m *Manager) ensureEnvironment(ctx context.Context) error {
	if m.cfg.Service.SimulationMode {
		m.logger.Info("simulation mode: skipping tor environment setup")
		return nil
	}

	configurator := torenv.New(m.cfg.Paths, m.cfg.Settings, torenv.WithLogger(m.logger))
	result, err := configurator.EnsureConfigured(ctx)
	if err != nil {
		return fmt.Errorf("prepare tor environment: %w", err)
	}
	m.env = result
	return nil
}

// publish creates the service and retains its record.
func (m *Manager) publish(_ context.Context) error {
	record, err := m.controller.CreateService()
	if err != nil {
		return err
	}
	m.record = record
	return nil
}

// Teardown unpublishes the service and closes the control connection.
// A removal failure does not prevent the disconnect; it is logged and
// returned so the caller can report an unclean shutdown. Teardown on a
// manager that is not ready only closes the connection.
func (m *Manager) Teardown() error {
	var removeErr error
	if m.record != nil {
		if err := m.controller.RemoveService(m.record.ServiceID); err != nil {
			m.logger.Warn("remove hidden service",
				slog.String("service_id", m.record.ServiceID),
				slog.String("error", err.Error()))
			removeErr = fmt.Errorf("remove hidden service: %w", err)
		}
	}

	if err := m.controller.Close(); err != nil {
		m.logger.Warn("close control connection", slog.String("error", err.Error()))
	}

	m.record = nil
	m.ready = false
	return removeErr
}

// Ready reports whether a hidden service is currently published.
func (m *Manager) Ready() bool {
	return m.ready
}

// OnionAddress returns the full address of the active service.
func (m *Manager) OnionAddress() (string, error) {
	if m.record == nil {
		return "", ErrNoService
	}
	return m.record.Address(), nil
}

// Record returns a copy of the active service record, or ErrNoService
// when nothing is published.
func (m *Manager) Record() (Record, error) {
	if m.record == nil {
		return Record{}, ErrNoService
	}
	return *m.record, nil
}

// Environment returns the result of tor environment preparation, or
// nil when it has not run (simulation mode, or before Setup).
func (m *Manager) Environment() *torenv.Result {
	return m.env
}
