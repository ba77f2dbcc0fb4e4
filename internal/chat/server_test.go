package chat

import (
	"bufio"
	"net"
	"testing"
	"time"
)

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	srv := NewServer("127.0.0.1:0", nil, discard{})
	if err := srv.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv, srv.listener.Addr().String()
}

func TestServer_GracefulShutdownNotifiesEveryClient(t *testing.T) {
	orig := TransferDelay
	TransferDelay = 0
	t.Cleanup(func() { TransferDelay = orig })

	srv, addr := startTestServer(t)

	var readers []*bufio.Reader
	var conns []net.Conn
	for i := 0; i < 3; i++ {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			t.Fatalf("dial failed: %v", err)
		}
		conns = append(conns, conn)
		readers = append(readers, bufio.NewReader(conn))
		mustReadPrompt(t, readers[i]) // username prompt
	}

	srv.Stop()

	for i, r := range readers {
		line := mustReadLine(t, r)
		if line != "[SERVER] Server shutting down. Goodbye!\n" {
			t.Fatalf("connection %d: unexpected shutdown line: %q", i, line)
		}
		if _, err := r.ReadByte(); err == nil {
			t.Fatalf("connection %d: expected connection to close after the goodbye line", i)
		}
	}

	for _, c := range conns {
		_ = c.Close()
	}
}

func TestServer_RejectsConnectionsBeyondSessionCap(t *testing.T) {
	_, addr := startTestServer(t)

	var conns []net.Conn
	var readers []*bufio.Reader
	for i := 0; i < MaxSessions; i++ {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			t.Fatalf("dial %d failed: %v", i, err)
		}
		conns = append(conns, conn)
		readers = append(readers, bufio.NewReader(conn))
		mustReadPrompt(t, readers[i]) // consume the username prompt so the slot is clearly held
	}
	t.Cleanup(func() {
		for _, c := range conns {
			_ = c.Close()
		}
	})

	overflow, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer overflow.Close()

	r := bufio.NewReader(overflow)
	line := mustReadLine(t, r)
	if line != "[ERROR] Server full. Try again later.\n" {
		t.Fatalf("unexpected line: %q", line)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := r.ReadByte(); err != nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected the overflow connection to be closed")
		}
	}
}
