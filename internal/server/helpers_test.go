package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/wbkim0504/pms-emul/internal/protocol/packet"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.AcceptPause = 0
	cfg.StatusInterval = 0
	cfg.WriteTimeout = time.Second
	return cfg
}

func newTestServer(t *testing.T, cfg Config, opts ...Option) (*Server, *syncBuffer) {
	t.Helper()
	trace := &syncBuffer{}
	opts = append([]Option{WithTrace(trace), WithLogger(zerolog.Nop())}, opts...)
	srv, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv, trace
}

type running struct {
	srv   *Server
	trace *syncBuffer
	addr  string

	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func startServer(t *testing.T, cfg Config, opts ...Option) *running {
	t.Helper()
	srv, trace := newTestServer(t, cfg, opts...)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &running{
		srv:    srv,
		trace:  trace,
		addr:   ln.Addr().String(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		r.err = srv.Serve(ctx, ln)
		close(r.done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-r.done:
		case <-time.After(5 * time.Second):
			t.Errorf("server did not stop")
		}
	})
	return r
}

func (r *running) wait(t *testing.T) error {
	t.Helper()
	select {
	case <-r.done:
		return r.err
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
		return nil
	}
}

func (r *running) dial(t *testing.T, wantLen int) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", r.addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	waitFor(t, func() bool { return r.srv.Registry().Len() == wantLen })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func expectRead(t *testing.T, conn net.Conn, want string) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	buf := make([]byte, len(want))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read %q: %v", want, err)
	}
	if string(buf) != want {
		t.Fatalf("read %q, want %q", buf, want)
	}
}

func expectSilence(t *testing.T, conn net.Conn) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if n > 0 {
		t.Fatalf("unexpected data %q", buf[:n])
	}
	var ne net.Error
	if !errors.As(err, &ne) || !ne.Timeout() {
		t.Fatalf("expected read timeout, got %v", err)
	}
}

func writeAll(t *testing.T, conn net.Conn, b []byte) {
	t.Helper()
	if _, err := conn.Write(b); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func testPacket(t *testing.T) []byte {
	t.Helper()
	su := func(id byte, ess, pru int) packet.SubUnit {
		s := packet.SubUnit{
			ID:  id,
			INV: []byte{0x60, id},
			PCS: []byte{0x70, id},
			LIP: []byte{0x80, id},
		}
		for i := 0; i < ess; i++ {
			s.ESS = append(s.ESS, []byte{0x30 + byte(i), id})
		}
		for i := 0; i < pru; i++ {
			s.PRU = append(s.PRU, []byte{0x40 + byte(i), id})
		}
		return s
	}
	b, err := packet.Encode(packet.Packet{
		Type:     0x11,
		SubUnits: []packet.SubUnit{su(0x21, 2, 1), su(0x22, 1, 2), su(0x23, 0, 0)},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return b
}

// pipeHandler admits one in-memory connection and discards whatever the
// server writes to it. Chunks are fed with h.onChunk so read boundaries are
// exact.
func pipeHandler(t *testing.T, srv *Server) *handler {
	t.Helper()
	local, remote := net.Pipe()
	go func() { _, _ = io.Copy(io.Discard, remote) }()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})
	h := newHandler(srv, local)
	if err := h.connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return h
}

func countOf(s, sub string) int {
	return strings.Count(s, sub)
}
