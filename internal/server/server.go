package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("server already started")

// Protocol turns one incoming line into one response line. The server
// owns framing and connection handling; implementations only see
// payloads with the line ending stripped.
type Protocol interface {
	ProcessIncoming(line string) string
}

// LineEcho is the built-in protocol the up command serves when the
// user has no backend of their own: it answers every line with an
// "echo: " prefix, enough to prove the onion forwarding path works
// end to end.
type LineEcho struct{}

// ProcessIncoming implements Protocol.
func (LineEcho) ProcessIncoming(line string) string {
	return "echo: " + line
}

// Server accepts TCP connections on the local forward target and runs
// a line protocol over each. One goroutine per connection, all owned
// by a single errgroup so Stop can wait for every handler to drain.
type Server struct {
	address  string
	protocol Protocol
	logger   *slog.Logger

	listener net.Listener
	group    *errgroup.Group
	cancel   context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a server for the given listen address ("ip:port") and
// protocol. A nil protocol falls back to LineEcho.
func New(address string, protocol Protocol, opts ...Option) *Server {
	s := &Server{
		address:  address,
		protocol: protocol,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.protocol == nil {
		s.protocol = LineEcho{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Start binds the listen address and begins accepting connections in
// the background. It returns once the listener is bound, so the onion
// service can be published knowing the target answers.
func (s *Server) Start(ctx context.Context) error {
	if s.listener != nil {
		return ErrAlreadyStarted
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.address, err)
	}
	s.listener = listener

	ctx, s.cancel = context.WithCancel(ctx)
	s.group, ctx = errgroup.WithContext(ctx)

	// Closing the listener is what actually unblocks Accept; the
	// context watcher translates cancellation into that close.
	s.group.Go(func() error {
		<-ctx.Done()
		return s.listener.Close()
	})

	s.group.Go(func() error {
		return s.acceptLoop(ctx)
	})

	s.logger.Info("local server listening", slog.String("address", s.Address()))
	return nil
}

// Address returns the bound listen address. Useful when the
// configured port was 0 and the kernel chose one.
func (s *Server) Address() string {
	if s.listener == nil {
		return s.address
	}
	return s.listener.Addr().String()
}

// acceptLoop accepts connections until the listener closes.
func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Shutdown closes the listener; that is not a failure.
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.group.Go(func() error {
			s.handle(ctx, conn)
			return nil
		})
	}
}

// handle runs the line protocol over a single connection. Protocol
// errors end the connection, never the server.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	// Drop the connection on shutdown instead of waiting for the
	// peer to hang up.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	remote := conn.RemoteAddr().String()
	s.logger.Debug("connection opened", slog.String("remote", remote))

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		response := s.protocol.ProcessIncoming(line)
		if _, err := fmt.Fprintf(conn, "%s\n", response); err != nil {
			s.logger.Debug("write failed", slog.String("remote", remote), slog.String("error", err.Error()))
			return
		}
	}
	s.logger.Debug("connection closed", slog.String("remote", remote))
}

// Stop shuts the server down and waits for in-flight connections to
// finish. Safe to call once after a successful Start.
func (s *Server) Stop() error {
	if s.listener == nil {
		return nil
	}
	s.cancel()
	err := s.group.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
