package control

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
)

// readChunkSize is the buffer size for socket reads. Control replies
// are small; one chunk almost always holds the whole reply.
const readChunkSize = 4096

// crlf terminates every control protocol line in both directions.
const crlf = "\r\n"

// Conn owns exactly one transport to the tor control port and
// implements the line-protocol primitive shared by every higher-level
// operation. Only one command may be in flight at a time; there is no
// pipelining and no concurrent use.
//
// The transport is an io.ReadWriter rather than a net.Conn so tests can
// script replies without a socket; Dial installs a real TCP connection.
type Conn struct {
	rw      io.ReadWriter
	netConn net.Conn

	// pending holds bytes read past the final line of the previous
	// reply. Carried into the next SendCommand so nothing is lost if
	// tor ever batches writes across our read boundary.
	pending []byte
}

// NewConn wraps an existing transport. Used by tests and by callers
// that manage their own sockets; production code uses Dial.
func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{rw: rw}
}

// Dial connects to the control port at host:port. The host is resolved
// and every candidate address is attempted in order, so IPv4 and IPv6
// listeners are handled uniformly. All candidates failing yields
// ErrConnect.
func Dial(ctx context.Context, host string, port int) (*Conn, error) {
	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving %s: %v", ErrConnect, host, err)
	}

	var dialer net.Dialer
	var lastErr error
	for _, addr := range addrs {
		conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, strconv.Itoa(port)))
		if err != nil {
			lastErr = err
			continue
		}
		return &Conn{rw: conn, netConn: conn}, nil
	}
	return nil, fmt.Errorf("%w: %s port %d: %v", ErrConnect, host, port, lastErr)
}

// SendCommand writes one command line and reads the full multi-line
// reply. The command's CRLF terminator is appended when absent and the
// write never silently stops short of the full buffer.
//
// Reply framing: lines arrive CRLF-terminated; a line whose status code
// is followed by a dash is a continuation, a space marks the final
// line. Every line is collected into the Reply in order; reading stops
// at the first final line. End-of-stream before a final line is
// ErrTruncatedReply.
func (c *Conn) SendCommand(command string) (*Reply, error) {
	if c.rw == nil {
		return nil, ErrNotConnected
	}

	if !strings.HasSuffix(command, crlf) {
		command += crlf
	}
	if err := writeFull(c.rw, []byte(command)); err != nil {
		return nil, fmt.Errorf("writing control command: %w", err)
	}

	reply := &Reply{}
	buf := make([]byte, readChunkSize)
	acc := c.pending
	c.pending = nil

	for {
		// Drain every complete line already in the accumulator before
		// touching the socket again.
		for {
			idx := bytes.Index(acc, []byte(crlf))
			if idx < 0 {
				break
			}
			line := string(acc[:idx])
			acc = acc[idx+len(crlf):]

			status, kind, err := classifyLine(line)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", err, line)
			}
			reply.Lines = append(reply.Lines, line)
			if kind == lineFinal {
				reply.Status = status
				c.pending = acc
				return reply, nil
			}
		}

		n, err := c.rw.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			continue
		}
		if err == io.EOF {
			return nil, ErrTruncatedReply
		}
		if err != nil {
			return nil, fmt.Errorf("reading control reply: %w", err)
		}
	}
}

// Close releases the underlying socket. Safe to call repeatedly and on
// a Conn that never dialed.
func (c *Conn) Close() error {
	c.rw = nil
	c.pending = nil
	if c.netConn == nil {
		return nil
	}
	err := c.netConn.Close()
	c.netConn = nil
	return err
}

// writeFull writes the whole buffer, retrying partial writes. net.Conn
// guarantees full writes absent an error, but the transport here may be
// any io.Writer.
func writeFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
