package chat

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

// memConn 记录写出的帧，可配置为写失败
type memConn struct {
	mu     sync.Mutex
	frames []string
	fail   error
	closed bool
}

func (m *memConn) WriteFrame(frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.frames = append(m.frames, string(frame))
	return nil
}

func (m *memConn) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *memConn) RemoteAddr() string { return "mem" }

func (m *memConn) Frames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.frames...)
}

func (m *memConn) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *memConn) count(substr string) int {
	n := 0
	for _, f := range m.Frames() {
		if strings.Contains(f, substr) {
			n++
		}
	}
	return n
}

func TestClientClose(t *testing.T) {
	conn := &memConn{}
	c := newClient("id1", conn, 1, "alice")
	if c.IsClosed() {
		t.Fatalf("client should be open before Close")
	}

	c.Close()
	c.Close()
	if !c.IsClosed() || !conn.IsClosed() {
		t.Fatalf("client and conn should be closed after Close")
	}
	select {
	case <-c.Done():
	default:
		t.Fatalf("Done should be closed")
	}
}

func TestClientWriteAfterClose(t *testing.T) {
	conn := &memConn{}
	c := newClient("id2", conn, 1, "bob")
	if err := c.Write([]byte("MSG:a\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	c.Close()
	if err := c.Write([]byte("MSG:b\n")); !errors.Is(err, ErrClientClosed) {
		t.Fatalf("expected ErrClientClosed, got %v", err)
	}
	if got := conn.Frames(); len(got) != 1 || got[0] != "MSG:a\n" {
		t.Fatalf("unexpected frames %#v", got)
	}
}
