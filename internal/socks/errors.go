package socks

import "errors"

var (
	// ErrInvalidProxyAddress is returned when the SOCKS proxy address
	// is not in host:port form.
	ErrInvalidProxyAddress = errors.New("invalid SOCKS proxy address: expected host:port, for example 127.0.0.1:9050")

	// ErrProxyNotRunning is returned when nothing answers on the
	// SOCKS port. Check that the tor daemon is up.
	ErrProxyNotRunning = errors.New("cannot connect to the SOCKS port: is the tor daemon running?")

	// ErrNotSOCKS5 is returned when the listener answers but does not
	// speak SOCKS5. The port probably belongs to another program.
	ErrNotSOCKS5 = errors.New("the SOCKS port did not answer with SOCKS5: another program may be listening there")

	// ErrProxyTimeout is returned when the SOCKS handshake does not
	// complete in time.
	ErrProxyTimeout = errors.New("SOCKS handshake timed out: the daemon may be overloaded or still starting")
)

// ProxyStatus is the outcome of probing the SOCKS port.
type ProxyStatus int

const (
	// StatusOK means a working SOCKS5 proxy answered.
	StatusOK ProxyStatus = iota
	// StatusWrongType means something answered, but not in SOCKS5.
	StatusWrongType
	// StatusCannotConnect means the port refused the connection.
	StatusCannotConnect
	// StatusTimeout means the probe timed out.
	StatusTimeout
)

// String returns a short human-readable label for the status.
func (s ProxyStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWrongType:
		return "not a SOCKS5 proxy"
	case StatusCannotConnect:
		return "cannot connect"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Err converts a non-OK status to its error. StatusOK yields nil.
func (s ProxyStatus) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusWrongType:
		return ErrNotSOCKS5
	case StatusCannotConnect:
		return ErrProxyNotRunning
	case StatusTimeout:
		return ErrProxyTimeout
	default:
		return ErrProxyNotRunning
	}
}
