package control

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

// scriptedConn is an in-memory transport: canned replies in, written
// commands captured out.
type scriptedConn struct {
	in  *bytes.Buffer
	out bytes.Buffer
}

func newScriptedConn(replies string) *scriptedConn {
	return &scriptedConn{in: bytes.NewBufferString(replies)}
}

func (s *scriptedConn) Read(p []byte) (int, error) {
	if s.in.Len() == 0 {
		return 0, io.EOF
	}
	return s.in.Read(p)
}

func (s *scriptedConn) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

// drip serves its payload one byte per Read so line reassembly across
// chunk boundaries is exercised.
type drip struct {
	payload []byte
	pos     int
	out     bytes.Buffer
}

func (d *drip) Read(p []byte) (int, error) {
	if d.pos >= len(d.payload) {
		return 0, io.EOF
	}
	p[0] = d.payload[d.pos]
	d.pos++
	return 1, nil
}

func (d *drip) Write(p []byte) (int, error) {
	return d.out.Write(p)
}

func TestClassifyLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		line       string
		wantStatus int
		wantKind   lineKind
		wantErr    bool
	}{
		{name: "final success line", line: "250 OK", wantStatus: 250, wantKind: lineFinal},
		{name: "continuation line", line: "250-ServiceID=abc", wantStatus: 250, wantKind: lineContinuation},
		{name: "final failure line", line: "550 Onion address collision", wantStatus: 550, wantKind: lineFinal},
		{name: "too short", line: "25", wantErr: true},
		{name: "non-digit status", line: "25x OK", wantErr: true},
		{name: "bad separator", line: "250+data", wantErr: true},
		{name: "empty line", line: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			status, kind, err := classifyLine(tt.line)
			if tt.wantErr {
				if !errors.Is(err, ErrProtocol) {
					t.Errorf("expected ErrProtocol, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", kind, tt.wantKind)
			}
		})
	}
}

func TestReplyOK(t *testing.T) {
	t.Parallel()

	t.Run("2xx is success", func(t *testing.T) {
		t.Parallel()
		r := &Reply{Status: 250}
		if !r.OK() {
			t.Error("expected 250 to be OK")
		}
	})

	t.Run("251 is still the success class", func(t *testing.T) {
		t.Parallel()
		r := &Reply{Status: 251}
		if !r.OK() {
			t.Error("expected 251 to be OK")
		}
	})

	t.Run("5xx is failure", func(t *testing.T) {
		t.Parallel()
		r := &Reply{Status: 550}
		if r.OK() {
			t.Error("expected 550 to not be OK")
		}
	})

	t.Run("zero value is failure", func(t *testing.T) {
		t.Parallel()
		r := &Reply{}
		if r.OK() {
			t.Error("expected zero-value reply to not be OK")
		}
	})
}

func TestSendCommand(t *testing.T) {
	t.Parallel()

	t.Run("single final line", func(t *testing.T) {
		t.Parallel()
		sc := newScriptedConn("250 OK\r\n")
		conn := NewConn(sc)

		reply, err := conn.SendCommand("GETINFO version")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !reply.OK() {
			t.Error("expected success reply")
		}
		if got := sc.out.String(); got != "GETINFO version\r\n" {
			t.Errorf("command on the wire = %q, want CRLF-terminated", got)
		}
	})

	t.Run("CRLF is not doubled when already present", func(t *testing.T) {
		t.Parallel()
		sc := newScriptedConn("250 OK\r\n")
		conn := NewConn(sc)

		if _, err := conn.SendCommand("QUIT\r\n"); err != nil {
			t.Fatal(err)
		}
		if got := sc.out.String(); got != "QUIT\r\n" {
			t.Errorf("command on the wire = %q", got)
		}
	})

	t.Run("continuation lines are collected in order", func(t *testing.T) {
		t.Parallel()
		sc := newScriptedConn("250-ServiceID=abcdef\r\n250-PrivateKey=ED25519-V3:secret\r\n250 OK\r\n")
		conn := NewConn(sc)

		reply, err := conn.SendCommand("ADD_ONION NEW:ED25519-V3 Port=80,127.0.0.1:8080")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		want := []string{
			"250-ServiceID=abcdef",
			"250-PrivateKey=ED25519-V3:secret",
			"250 OK",
		}
		if len(reply.Lines) != len(want) {
			t.Fatalf("got %d lines, want %d: %v", len(reply.Lines), len(want), reply.Lines)
		}
		for i, line := range want {
			if reply.Lines[i] != line {
				t.Errorf("line %d = %q, want %q", i, reply.Lines[i], line)
			}
		}
	})

	t.Run("lines split across reads are reassembled", func(t *testing.T) {
		t.Parallel()
		d := &drip{payload: []byte("250-meta\r\n250 done\r\n")}
		conn := NewConn(d)

		reply, err := conn.SendCommand("GETINFO x")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(reply.Lines) != 2 || reply.Status != 250 {
			t.Errorf("unexpected reply: %+v", reply)
		}
	})

	t.Run("EOF before final line is a truncated reply", func(t *testing.T) {
		t.Parallel()
		sc := newScriptedConn("250-partial\r\n")
		conn := NewConn(sc)

		_, err := conn.SendCommand("GETINFO x")
		if !errors.Is(err, ErrTruncatedReply) {
			t.Errorf("expected ErrTruncatedReply, got %v", err)
		}
	})

	t.Run("malformed line is a protocol error", func(t *testing.T) {
		t.Parallel()
		sc := newScriptedConn("garbage\r\n")
		conn := NewConn(sc)

		_, err := conn.SendCommand("GETINFO x")
		if !errors.Is(err, ErrProtocol) {
			t.Errorf("expected ErrProtocol, got %v", err)
		}
	})

	t.Run("bytes past the final line are kept for the next reply", func(t *testing.T) {
		t.Parallel()
		sc := newScriptedConn("250 first\r\n250 second\r\n")
		conn := NewConn(sc)

		first, err := conn.SendCommand("GETINFO a")
		if err != nil {
			t.Fatal(err)
		}
		if first.FinalLine() != "250 first" {
			t.Errorf("first reply = %q", first.FinalLine())
		}

		second, err := conn.SendCommand("GETINFO b")
		if err != nil {
			t.Fatal(err)
		}
		if second.FinalLine() != "250 second" {
			t.Errorf("second reply = %q", second.FinalLine())
		}
	})

	t.Run("closed conn refuses commands", func(t *testing.T) {
		t.Parallel()
		conn := NewConn(newScriptedConn(""))
		if err := conn.Close(); err != nil {
			t.Fatal(err)
		}
		if _, err := conn.SendCommand("GETINFO x"); !errors.Is(err, ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}
	})
}

func TestDial(t *testing.T) {
	t.Parallel()

	t.Run("unreachable port returns ErrConnect", func(t *testing.T) {
		t.Parallel()
		// Grab and release an ephemeral port so nothing listens there.
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		port := ln.Addr().(*net.TCPAddr).Port
		_ = ln.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_, err = Dial(ctx, "127.0.0.1", port)
		if !errors.Is(err, ErrConnect) {
			t.Errorf("expected ErrConnect, got %v", err)
		}
	})

	t.Run("listening port connects and closes cleanly", func(t *testing.T) {
		t.Parallel()
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		defer ln.Close()
		go func() {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}()

		port := ln.Addr().(*net.TCPAddr).Port
		conn, err := Dial(context.Background(), "127.0.0.1", port)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := conn.Close(); err != nil {
			t.Errorf("close failed: %v", err)
		}
		// Close must be idempotent.
		if err := conn.Close(); err != nil {
			t.Errorf("second close failed: %v", err)
		}
	})
}
