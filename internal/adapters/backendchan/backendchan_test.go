package backendchan

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/athebyme/linebalancer/internal/core/domain"
	"github.com/athebyme/linebalancer/internal/core/registry"
	"github.com/athebyme/linebalancer/internal/testmocks"
)

func newTestListener(t *testing.T) (*Listener, *registry.Registry) {
	t.Helper()
	reg := registry.New(testmocks.NewNoopLogger(), registry.Policy{
		DefaultMode:    domain.ModeStatic,
		MaxPerBackend:  registry.Unlimited,
		PingIntervalMs: 1000,
	})
	l := New("127.0.0.1:0", reg, testmocks.NewNoopLogger())
	if err := l.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l, reg
}

func dialAndSend(t *testing.T, addr string, line string) string {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(time.Second))
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return ""
	}
	return reply
}

func TestJoinRegistersBackendByPeerIP(t *testing.T) {
	l, reg := newTestListener(t)

	reply := dialAndSend(t, l.ln.Addr().String(), "!join 9001")
	if reply != "!ack\n" {
		t.Fatalf("reply = %q, want !ack", reply)
	}

	snap := reg.Snapshot()
	if len(snap.Backends) != 1 {
		t.Fatalf("len(Backends) = %d, want 1", len(snap.Backends))
	}
	if snap.Backends[0].Backend.Port != 9001 {
		t.Fatalf("registered port = %d, want 9001", snap.Backends[0].Backend.Port)
	}
}

func TestJoinMalformedTooFewTokensIsIgnored(t *testing.T) {
	l, reg := newTestListener(t)

	dialAndSend(t, l.ln.Addr().String(), "!join")
	time.Sleep(50 * time.Millisecond)

	if len(reg.Snapshot().Backends) != 0 {
		t.Fatal("expected malformed !join to register nothing")
	}
}

func TestReportUnknownBackendDropped(t *testing.T) {
	l, reg := newTestListener(t)

	dialAndSend(t, l.ln.Addr().String(), "!report 9999 clients 1 alice@1.2.3.4")
	time.Sleep(50 * time.Millisecond)

	if len(reg.Snapshot().Backends) != 0 {
		t.Fatal("report for unregistered backend must not create one")
	}
}

func TestReportUpdatesLiveClientsForKnownBackend(t *testing.T) {
	l, reg := newTestListener(t)

	addr := l.ln.Addr().String()
	dialAndSend(t, addr, "!join 9001")
	dialAndSend(t, addr, "!report 9001 clients 2 alice@1.2.3.4 bob@5.6.7.8")
	time.Sleep(50 * time.Millisecond)

	snap := reg.Snapshot()
	if got := snap.Backends[0].LiveCount(); got != 2 {
		t.Fatalf("LiveCount() = %d, want 2", got)
	}
}

func TestReportTruncatesToDeclaredCountHint(t *testing.T) {
	l, reg := newTestListener(t)

	addr := l.ln.Addr().String()
	dialAndSend(t, addr, "!join 9001")
	dialAndSend(t, addr, "!report 9001 clients 1 alice@1.2.3.4 bob@5.6.7.8")
	time.Sleep(50 * time.Millisecond)

	if got := reg.Snapshot().Backends[0].LiveCount(); got != 1 {
		t.Fatalf("LiveCount() = %d, want 1 (truncated to declared hint)", got)
	}
}

func TestUnrecognizedLineGetsErr(t *testing.T) {
	l, _ := newTestListener(t)
	reply := dialAndSend(t, l.ln.Addr().String(), "nonsense")
	if reply != "!err\n" {
		t.Fatalf("reply = %q, want !err", reply)
	}
}

func TestSplitNameIP(t *testing.T) {
	cases := []struct {
		in       string
		wantName string
		wantIP   string
	}{
		{"alice@1.2.3.4", "alice", "1.2.3.4"},
		{"bareword", "bareword", "unknown"},
		{"weird@name@1.2.3.4", "weird@name", "1.2.3.4"},
	}
	for _, c := range cases {
		name, ip := splitNameIP(c.in)
		if name != c.wantName || ip != c.wantIP {
			t.Errorf("splitNameIP(%q) = (%q, %q), want (%q, %q)", c.in, name, ip, c.wantName, c.wantIP)
		}
	}
}
