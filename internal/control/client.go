package control

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// State is the control session lifecycle position. Transitions only
// move forward through Connect, Authenticate, WaitBootstrapped, and
// AddOnion; Close returns to StateDisconnected from anywhere.
type State int

const (
	// StateDisconnected means no control connection exists.
	StateDisconnected State = iota
	// StateConnected means the TCP connection is up but unauthenticated.
	StateConnected
	// StateAuthenticated means AUTHENTICATE succeeded.
	StateAuthenticated
	// StateBootstrapped means tor reported 100% bootstrap progress.
	StateBootstrapped
	// StateServiceActive means an onion service is currently published
	// on this session.
	StateServiceActive
)

// String returns a human-readable session state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateBootstrapped:
		return "bootstrapped"
	case StateServiceActive:
		return "service-active"
	default:
		return "unknown"
	}
}

// progressPattern extracts the PROGRESS token from bootstrap status
// lines such as:
//
//	250-status/bootstrap-phase=NOTICE BOOTSTRAP PROGRESS=100 TAG=done ...
var progressPattern = regexp.MustCompile(`PROGRESS=(\d+)`)

// AddOnionRequest describes one onion service to publish.
type AddOnionRequest struct {
	// ProvideKey selects provided-key persistence: KeyBlob is sent to
	// tor instead of requesting a fresh key.
	ProvideKey bool

	// KeyBlob is the base64 ED25519-V3 key material. Required when
	// ProvideKey is set; ignored otherwise. Never logged.
	KeyBlob string

	// VirtualPort is the remote-facing port on the onion address.
	VirtualPort int

	// Target is the local host:port the service forwards to.
	Target string
}

// OnionService is tor's answer to a successful ADD_ONION.
type OnionService struct {
	// ServiceID is the v3 service identifier without the ".onion"
	// suffix.
	ServiceID string

	// PrivateKey is the generated key material, populated only for
	// fresh-key creations. Never logged.
	PrivateKey string
}

// Client drives one authenticated control session. It owns its Conn
// exclusively for the client's lifetime; a Client is never shared and
// never survives a tor restart - disconnect and build a new one.
//
// All methods are synchronous and must be called from a single
// goroutine; the control protocol allows one in-flight command per
// connection.
type Client struct {
	conn   *Conn
	host   string
	port   int
	state  State
	logger *slog.Logger

	// lastErr keeps the most recent failure for diagnostics, mirroring
	// what the status surfaces of the CLI print.
	lastErr string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a disconnected Client for the control port at
// host:port.
func NewClient(host string, port int, opts ...ClientOption) *Client {
	c := &Client{
		host:  host,
		port:  port,
		state: StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// NewClientOverConn builds a Client on an already-open transport,
// starting in StateConnected. Used by tests to script replies.
func NewClientOverConn(conn *Conn, opts ...ClientOption) *Client {
	c := NewClient("", 0, opts...)
	c.conn = conn
	c.state = StateConnected
	return c
}

// State returns the current session state.
func (c *Client) State() State {
	return c.state
}

// LastError returns the most recent failure message, or empty.
func (c *Client) LastError() string {
	return c.lastErr
}

// Connect dials the control port. No-op error when already connected
// is deliberately not raised: connecting twice without a disconnect is
// a programming error surfaced by the state check instead.
func (c *Client) Connect(ctx context.Context) error {
	if c.state != StateDisconnected {
		return c.fail(fmt.Errorf("connect called in state %s: disconnect first", c.state))
	}
	conn, err := Dial(ctx, c.host, c.port)
	if err != nil {
		return c.fail(err)
	}
	c.conn = conn
	c.state = StateConnected
	c.logger.Debug("control connection established", "host", c.host, "port", c.port)
	return nil
}

// Authenticate performs cookie authentication: the cookie file is read
// whole, hex-encoded uppercase, and echoed back to prove same-machine
// access. Only the cookie scheme is supported.
//
// A failure leaves the connection open; the caller decides whether to
// disconnect.
func (c *Client) Authenticate(cookiePath string) error {
	if c.state == StateDisconnected {
		return c.fail(ErrNotConnected)
	}

	cookie, err := os.ReadFile(cookiePath) //nolint:gosec // Operator-controlled cookie path
	if err != nil {
		return c.fail(fmt.Errorf("reading auth cookie %s: %w", cookiePath, err))
	}
	if len(cookie) == 0 {
		return c.fail(fmt.Errorf("%w: %s", ErrEmptyCookie, cookiePath))
	}

	reply, err := c.conn.SendCommand("AUTHENTICATE " + encodeCookie(cookie))
	if err != nil {
		return c.fail(err)
	}
	if !reply.OK() {
		return c.fail(fmt.Errorf("%w: %s", ErrAuthentication, reply.FinalLine()))
	}

	c.state = StateAuthenticated
	c.logger.Debug("control session authenticated")
	return nil
}

// WaitBootstrapped polls tor's bootstrap phase until it reports 100%
// progress, the timeout elapses, or the context is cancelled. The
// interval is the delay between GETINFO queries.
func (c *Client) WaitBootstrapped(ctx context.Context, timeout, interval time.Duration) error {
	if c.state < StateAuthenticated {
		return c.fail(ErrNotAuthenticated)
	}

	start := time.Now()
	for {
		progress, err := c.bootstrapProgress()
		if err != nil {
			return c.fail(err)
		}
		if progress >= 100 {
			c.state = StateBootstrapped
			c.logger.Debug("tor bootstrap complete")
			return nil
		}
		c.logger.Debug("waiting for tor bootstrap", "progress", progress)

		if time.Since(start) >= timeout {
			return c.fail(fmt.Errorf("%w: stalled at %d%%", ErrBootstrapTimeout, progress))
		}
		select {
		case <-ctx.Done():
			return c.fail(ctx.Err())
		case <-time.After(interval):
		}
	}
}

// bootstrapProgress issues one bootstrap-status query and extracts the
// PROGRESS value. Every reply line is scanned; tor places the phase
// line on a continuation line.
func (c *Client) bootstrapProgress() (int, error) {
	reply, err := c.conn.SendCommand("GETINFO status/bootstrap-phase")
	if err != nil {
		return 0, err
	}
	if !reply.OK() {
		return 0, fmt.Errorf("%w: %s", ErrCommandFailed, reply.FinalLine())
	}
	for _, line := range reply.Lines {
		if m := progressPattern.FindStringSubmatch(line); m != nil {
			progress, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			return progress, nil
		}
	}
	// No PROGRESS token at all; treat as zero and keep polling.
	return 0, nil
}

// AddOnion publishes an onion service and returns tor's identifiers.
// Success requires a ServiceID in the reply: a 250 final line without
// one is a protocol error, not a success.
func (c *Client) AddOnion(req AddOnionRequest) (*OnionService, error) {
	if c.state < StateAuthenticated {
		return nil, c.failErr(ErrNotAuthenticated)
	}
	if req.ProvideKey && req.KeyBlob == "" {
		return nil, c.failErr(ErrEmptyKeyMaterial)
	}

	var b strings.Builder
	b.WriteString("ADD_ONION ")
	if req.ProvideKey {
		b.WriteString("ED25519-V3:")
		b.WriteString(req.KeyBlob)
	} else {
		b.WriteString("NEW:ED25519-V3")
	}
	b.WriteString(" Port=")
	b.WriteString(strconv.Itoa(req.VirtualPort))
	b.WriteString(",")
	b.WriteString(req.Target)

	reply, err := c.conn.SendCommand(b.String())
	if err != nil {
		return nil, c.failErr(err)
	}
	if !reply.OK() {
		return nil, c.failErr(fmt.Errorf("%w: %s", ErrCommandFailed, reply.FinalLine()))
	}

	svc := &OnionService{}
	for _, line := range reply.Lines {
		// Strip the "250-" framing before matching fields.
		body := line
		if len(body) > 4 {
			body = body[4:]
		}
		switch {
		case strings.HasPrefix(body, "ServiceID="):
			svc.ServiceID = strings.TrimPrefix(body, "ServiceID=")
		case strings.HasPrefix(body, "PrivateKey=") && !req.ProvideKey:
			svc.PrivateKey = strings.TrimPrefix(body, "PrivateKey=")
		}
	}
	if svc.ServiceID == "" {
		return nil, c.failErr(ErrMissingServiceID)
	}

	c.state = StateServiceActive
	c.logger.Info("onion service published", "service_id", svc.ServiceID)
	return svc, nil
}

// DelOnion retracts a published onion service. An empty service id, or
// a session that never authenticated, is a no-op success: there is
// nothing to clean up, and teardown must be safely repeatable.
func (c *Client) DelOnion(serviceID string) error {
	if serviceID == "" || c.state < StateAuthenticated {
		return nil
	}

	reply, err := c.conn.SendCommand("DEL_ONION " + serviceID)
	if err != nil {
		return c.fail(err)
	}
	if !reply.OK() {
		return c.fail(fmt.Errorf("%w: %s", ErrCommandFailed, reply.FinalLine()))
	}

	if c.state == StateServiceActive {
		c.state = StateBootstrapped
	}
	c.logger.Info("onion service removed", "service_id", serviceID)
	return nil
}

// Close tears the session down to StateDisconnected. A best-effort
// QUIT is sent first so tor logs a clean disconnect. Safe to call
// repeatedly.
func (c *Client) Close() error {
	if c.conn == nil {
		c.state = StateDisconnected
		return nil
	}
	_, _ = c.conn.SendCommand("QUIT")
	err := c.conn.Close()
	c.conn = nil
	c.state = StateDisconnected
	return err
}

// fail records and returns the error.
func (c *Client) fail(err error) error {
	c.lastErr = err.Error()
	return err
}

// failErr is fail for call sites that return a value alongside the
// error.
func (c *Client) failErr(err error) error {
	return c.fail(err)
}

// encodeCookie hex-encodes cookie bytes for the AUTHENTICATE command:
// two uppercase hex digits per byte, most-significant nibble first.
func encodeCookie(cookie []byte) string {
	return strings.ToUpper(hex.EncodeToString(cookie))
}
