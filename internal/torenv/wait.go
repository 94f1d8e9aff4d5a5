package torenv

import (
	"context"
	"net"
	"os"
	"strconv"
	"time"
)

// pollInterval is the fixed delay between readiness probe attempts.
// Short enough that bring-up feels instant once Tor is ready, long
// enough not to busy-wait.
const pollInterval = 250 * time.Millisecond

// probeTCPConnect reports whether host:port accepts a TCP connection
// within timeout. Used both for the "is a daemon already running"
// check and for the post-spawn readiness wait.
func probeTCPConnect(host string, port int, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// pollUntil retries probe at pollInterval until it succeeds, the
// timeout elapses, or the context is cancelled. The deadline is
// measured on the monotonic clock via time.Since.
//
// Returns nil on success, the context error on cancellation, and
// timeoutErr once the budget is spent.
func pollUntil(ctx context.Context, timeout time.Duration, timeoutErr error, probe func() bool) error {
	start := time.Now()
	for {
		if probe() {
			return nil
		}
		if time.Since(start) >= timeout {
			return timeoutErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// cookieReady reports whether the auth cookie exists as a regular,
// readable file. Tor writes the cookie after it has bound its
// listeners, so this doubles as a cheap liveness signal.
func cookieReady(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	f, err := os.Open(path) //nolint:gosec // Operator-controlled cookie path
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
