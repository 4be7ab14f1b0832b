package intake

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu   sync.Mutex
	reqs []Request
}

func (r *recorder) handle(req Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
}

func (r *recorder) snapshot() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Request, len(r.reqs))
	copy(out, r.reqs)
	return out
}

func TestCollector_StartBindsSocket(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	socketPath := shortSocketPath(t)
	c := NewCollector(rec.handle, socketPath)

	if err := c.Start(ctx); err != nil {
		t.Fatalf("start collector: %v", err)
	}

	info, err := os.Stat(socketPath)
	if err != nil {
		t.Fatalf("expected socket at %s: %v", socketPath, err)
	}
	if got := info.Mode().Perm(); got != 0o600 {
		t.Fatalf("expected socket mode 0600, got %v", got)
	}
}

func TestCollector_AcceptsValidRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	socketPath := shortSocketPath(t)
	c := NewCollector(rec.handle, socketPath)
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start collector: %v", err)
	}

	payload := []byte(`{"text":"uptime","auto_enter":false}`)
	if err := sendDatagram(socketPath, payload); err != nil {
		t.Fatalf("send datagram: %v", err)
	}

	waitFor(t, 1*time.Second, func() bool {
		return len(rec.snapshot()) == 1
	})

	got := rec.snapshot()[0]
	if got.Text != "uptime" {
		t.Fatalf("expected text uptime, got %q", got.Text)
	}
	if got.AutoEnter == nil || *got.AutoEnter {
		t.Fatalf("expected auto_enter false, got %v", got.AutoEnter)
	}
}

func TestCollector_PreservesArrivalOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	socketPath := shortSocketPath(t)
	c := NewCollector(rec.handle, socketPath)
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start collector: %v", err)
	}

	for i := 0; i < 3; i++ {
		payload := []byte(fmt.Sprintf(`{"text":"cmd-%d"}`, i))
		if err := sendDatagram(socketPath, payload); err != nil {
			t.Fatalf("send datagram %d: %v", i, err)
		}
	}

	waitFor(t, 1*time.Second, func() bool {
		return len(rec.snapshot()) == 3
	})

	for i, req := range rec.snapshot() {
		want := fmt.Sprintf("cmd-%d", i)
		if req.Text != want {
			t.Fatalf("request %d: expected %q, got %q", i, want, req.Text)
		}
	}
}

func TestCollector_IgnoresMalformedRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	socketPath := shortSocketPath(t)
	c := NewCollector(rec.handle, socketPath)
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start collector: %v", err)
	}

	if err := sendDatagram(socketPath, []byte(`not-json`)); err != nil {
		t.Fatalf("send datagram: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if got := len(rec.snapshot()); got != 0 {
		t.Fatalf("expected 0 requests for malformed payload, got %d", got)
	}
}

func TestCollector_IgnoresBlankText(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	socketPath := shortSocketPath(t)
	c := NewCollector(rec.handle, socketPath)
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start collector: %v", err)
	}

	if err := sendDatagram(socketPath, []byte(`{"text":"   "}`)); err != nil {
		t.Fatalf("send datagram: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if got := len(rec.snapshot()); got != 0 {
		t.Fatalf("expected 0 requests for blank text, got %d", got)
	}
}

func TestCollector_RejectsOversizedPayload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	socketPath := shortSocketPath(t)
	c := NewCollector(rec.handle, socketPath)
	c.MaxPayloadBytes = 64
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start collector: %v", err)
	}

	big := make([]byte, 128)
	for i := range big {
		big[i] = 'a'
	}
	if err := sendDatagram(socketPath, big); err != nil {
		t.Fatalf("send datagram: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if got := len(rec.snapshot()); got != 0 {
		t.Fatalf("expected 0 requests for oversized payload, got %d", got)
	}
}

func TestCollector_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	rec := &recorder{}
	socketPath := shortSocketPath(t)
	c := NewCollector(rec.handle, socketPath)
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start collector: %v", err)
	}

	cancel()
	waitFor(t, 1*time.Second, func() bool {
		return c.isClosed()
	})
}

func sendDatagram(socketPath string, payload []byte) error {
	addr, err := net.ResolveUnixAddr("unixgram", socketPath)
	if err != nil {
		return err
	}
	conn, err := net.DialUnix("unixgram", nil, addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Write(payload)
	return err
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func shortSocketPath(t *testing.T) string {
	t.Helper()
	base := filepath.Join(os.TempDir(), "tc-intake")
	if err := os.MkdirAll(base, 0o700); err != nil {
		t.Fatalf("mkdir temp base: %v", err)
	}
	p := filepath.Join(base, fmt.Sprintf("%d-%d.sock", time.Now().UnixNano(), os.Getpid()))
	t.Cleanup(func() {
		_ = os.Remove(p)
	})
	return p
}
