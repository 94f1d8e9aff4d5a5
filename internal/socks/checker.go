package socks

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"golang.org/x/net/proxy"
)

// probeTimeout bounds the whole SOCKS5 probe. The probe never leaves
// the local machine, so a short timeout is enough.
const probeTimeout = 2 * time.Second

// SOCKS5 wire constants.
const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5AuthNoAccept = 0xFF
	socks5CmdConnect   = 0x01
	socks5AddrDomain   = 0x03
)

// probeOnion is a syntactically valid but nonexistent v3 address used
// in the CONNECT step of the probe. The connection is expected to
// fail; we only care that the proxy processes the request.
const probeOnion = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.onion"

// Checker probes a Tor SOCKS port and dials onion addresses through
// it, so a freshly published service can be verified reachable from
// the client side.
type Checker struct {
	proxyAddress string
	dialer       proxy.Dialer
}

// NewChecker creates a Checker for the SOCKS proxy at proxyAddress
// ("host:port"). The constructor validates the address shape only;
// call Probe to find out whether anything is listening.
func NewChecker(proxyAddress string) (*Checker, error) {
	if !validProxyAddress(proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	// Tor's SOCKS port does not require authentication.
	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, err
	}

	return &Checker{proxyAddress: proxyAddress, dialer: dialer}, nil
}

// ProxyAddress returns the configured proxy address.
func (c *Checker) ProxyAddress() string {
	return c.proxyAddress
}

// validProxyAddress accepts host:port with a numeric port in range.
func validProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" || port == "" {
		return false
	}
	n := 0
	for _, r := range port {
		if r < '0' || r > '9' {
			return false
		}
		n = n*10 + int(r-'0')
		if n > 65535 {
			return false
		}
	}
	return n >= 1
}

// Probe performs a SOCKS5 handshake against the proxy and reports the
// outcome. It verifies the listener negotiates SOCKS5 with no
// authentication and processes a CONNECT request, which a program that
// merely accepts TCP connections cannot fake.
func (c *Checker) Probe(ctx context.Context) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return StatusTimeout
		}
		return StatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(probeTimeout)); err != nil {
		return StatusCannotConnect
	}

	// Method negotiation: offer no-auth only.
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return StatusCannotConnect
	}
	negotiation := make([]byte, 2)
	if _, err := io.ReadFull(conn, negotiation); err != nil {
		if isTimeout(err) {
			return StatusTimeout
		}
		return StatusWrongType
	}
	if negotiation[0] != socks5Version || negotiation[1] != socks5AuthNone {
		if negotiation[1] == socks5AuthNoAccept {
			return StatusWrongType
		}
		return StatusWrongType
	}

	// CONNECT to a throwaway onion address. Tor answers with a reply
	// (usually host-unreachable for a made-up address), which proves
	// it is actually proxying.
	request := []byte{socks5Version, socks5CmdConnect, 0x00, socks5AddrDomain, byte(len(probeOnion))}
	request = append(request, probeOnion...)
	request = append(request, 0x00, 0x50)
	if _, err := conn.Write(request); err != nil {
		return StatusCannotConnect
	}

	reply := make([]byte, 4)
	if _, err := io.ReadFull(conn, reply); err != nil {
		if isTimeout(err) {
			return StatusTimeout
		}
		return StatusWrongType
	}
	if reply[0] != socks5Version {
		return StatusWrongType
	}

	// Any reply code counts. Failure codes still mean the proxy
	// handled the request.
	return StatusOK
}

// DialContext dials address through the proxy with cancellation
// support. The proxy.Dialer interface has no context variant, so the
// dial runs in a goroutine; on cancellation the attempt may linger
// briefly before the connection is discarded.
func (c *Checker) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		conn, err := c.dialer.Dial(network, address)
		ch <- result{conn: conn, err: err}
	}()

	select {
	case r := <-ch:
		return r.conn, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// isTimeout reports whether err came from a connection deadline.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
