package command

import (
	"strings"
	"sync"
	"testing"

	"github.com/hongjun500/chat-relay/internal/chat"
)

type memConn struct {
	mu     sync.Mutex
	frames []string
}

func (m *memConn) WriteFrame(frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, string(frame))
	return nil
}
func (m *memConn) Close() error       { return nil }
func (m *memConn) RemoteAddr() string { return "mem" }

func (m *memConn) take() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.frames
	m.frames = nil
	return out
}

func newTestHub(t *testing.T, n int) (*chat.Hub, *Registry, []*chat.Client, []*memConn) {
	t.Helper()
	reg, err := NewBuiltinRegistry()
	if err != nil {
		t.Fatalf("builtins: %v", err)
	}
	hub := chat.NewHub()
	clients := make([]*chat.Client, n)
	conns := make([]*memConn, n)
	for i := 0; i < n; i++ {
		conns[i] = &memConn{}
		clients[i] = hub.Register(conns[i])
	}
	return hub, reg, clients, conns
}

func TestRegistryRegisterValidation(t *testing.T) {
	reg := NewRegistry()
	noop := func(*Context) error { return nil }
	if err := reg.Register(nil); err == nil {
		t.Fatalf("nil command should fail")
	}
	if err := reg.Register(&Command{Name: " ", Handler: noop}); err == nil {
		t.Fatalf("empty name should fail")
	}
	if err := reg.Register(&Command{Name: "a/b", Handler: noop}); err == nil {
		t.Fatalf("name with slash should fail")
	}
	if err := reg.Register(&Command{Name: "Ping", Handler: noop}); err != nil {
		t.Fatalf("register err: %v", err)
	}
	if err := reg.Register(&Command{Name: "ping", Handler: noop}); err == nil {
		t.Fatalf("duplicate should fail")
	}
	if _, ok := reg.Get("PING"); !ok {
		t.Fatalf("lookup should be case-insensitive")
	}
}

func TestSplit(t *testing.T) {
	cases := []struct{ in, name, args string }{
		{"help", "help", ""},
		{"ECHO hello world", "echo", "hello world"},
		{"nick  spaced", "nick", " spaced"},
		{"", "", ""},
	}
	for _, c := range cases {
		name, args := Split(c.in)
		if name != c.name || args != c.args {
			t.Errorf("Split(%q) = %q, %q", c.in, name, args)
		}
	}
}

func TestDispatchUnknown(t *testing.T) {
	hub, reg, clients, conns := newTestHub(t, 2)
	conns[0].take()
	conns[1].take()

	reg.Dispatch(hub, clients[0], "foobar")

	got := conns[0].take()
	if len(got) != 1 || got[0] != "MSG:"+UnknownCommandNotice+"\n" {
		t.Fatalf("unexpected reply %#v", got)
	}
	if other := conns[1].take(); len(other) != 0 {
		t.Fatalf("unknown command must not reach others: %#v", other)
	}
}

func TestDispatchEcho(t *testing.T) {
	hub, reg, clients, conns := newTestHub(t, 1)
	conns[0].take()

	reg.Dispatch(hub, clients[0], "EcHo hello there")
	reg.Dispatch(hub, clients[0], "echo")

	got := conns[0].take()
	want := []string{"MSG:Echo: hello there\n", "MSG:Usage: /echo <message>\n"}
	if strings.Join(got, "") != strings.Join(want, "") {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestDispatchHelp(t *testing.T) {
	hub, reg, clients, conns := newTestHub(t, 1)
	conns[0].take()

	reg.Dispatch(hub, clients[0], "help")

	got := conns[0].take()
	if len(got) != 6 || got[0] != "MSG:Available commands:\n" {
		t.Fatalf("unexpected help %#v", got)
	}
	for _, f := range got {
		if strings.Count(f, "\n") != 1 || !strings.HasPrefix(f, "MSG:") {
			t.Fatalf("help frame not single-line: %q", f)
		}
	}
	if got[5] != "MSG:/quit - Disconnect from server\n" {
		t.Fatalf("unexpected last help line %q", got[5])
	}
}

func TestNickThenUsers(t *testing.T) {
	hub, reg, clients, conns := newTestHub(t, 2)
	conns[0].take()
	conns[1].take()

	reg.Dispatch(hub, clients[0], "nick alice")
	if got := conns[0].take(); len(got) != 0 {
		t.Fatalf("nick announcement should not echo to sender: %#v", got)
	}
	if got := conns[1].take(); len(got) != 1 || got[0] != "MSG:User_0 is now known as alice\n" {
		t.Fatalf("unexpected announcement %#v", got)
	}

	reg.Dispatch(hub, clients[1], "users")
	got := conns[1].take()
	if len(got) != 1 || got[0] != "MSG:Connected users: alice, User_1\n" {
		t.Fatalf("unexpected users reply %#v", got)
	}
	if strings.Contains(got[0], "User_0") {
		t.Fatalf("old name still listed")
	}

	reg.Dispatch(hub, clients[0], "nick")
	if got := conns[0].take(); len(got) != 1 || got[0] != "MSG:Usage: /nick <new_nickname>\n" {
		t.Fatalf("unexpected usage %#v", got)
	}
}

func TestQuitSendsGoodbyeThenDeparture(t *testing.T) {
	hub, reg, clients, conns := newTestHub(t, 3)
	for _, c := range conns {
		c.take()
	}

	reg.Dispatch(hub, clients[0], "quit")

	got := conns[0].take()
	if len(got) != 1 || got[0] != "MSG:Goodbye!\n" {
		t.Fatalf("sender frames %#v", got)
	}
	for i := 1; i < 3; i++ {
		got := conns[i].take()
		if len(got) != 1 || got[0] != "MSG:User_0 has left the chat\n" {
			t.Fatalf("client %d frames %#v", i, got)
		}
	}
	if hub.Count() != 2 {
		t.Fatalf("expected 2 clients left, got %d", hub.Count())
	}

	// 连接处理器退出时会再调用一次 Remove，不应重复广播
	hub.Remove(clients[0].ID)
	if got := conns[1].take(); len(got) != 0 {
		t.Fatalf("duplicate departure: %#v", got)
	}
}
