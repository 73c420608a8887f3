// Package clientchan implements the client handshake channel (C4): a
// short-lived TCP listener that reads an optional HELLO line, runs the
// scheduler, and replies with either a backend's host:port or
// NO_SERVER_AVAILABLE.
package clientchan

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/athebyme/linebalancer/internal/core/assignment"
	"github.com/athebyme/linebalancer/internal/core/domain"
	"github.com/athebyme/linebalancer/internal/core/ports"
	"github.com/athebyme/linebalancer/internal/core/registry"
	"github.com/athebyme/linebalancer/internal/core/scheduling"
)

// handshakeTimeout bounds how long the channel waits for a client's
// HELLO line before falling back to defaults.
const handshakeTimeout = time.Second

// Listener accepts client connections, runs the handshake and
// scheduler, and appends to the assignment log.
type Listener struct {
	addr    string
	reg     *registry.Registry
	log     *assignment.Log
	logger  ports.Logger
	ln      net.Listener
	counter atomic.Uint64
}

// New creates a client channel listener bound to addr (not yet
// listening — call Start).
func New(addr string, reg *registry.Registry, log *assignment.Log, logger ports.Logger) *Listener {
	return &Listener{addr: addr, reg: reg, log: log, logger: logger.With("component", "clientchan")}
}

// Start binds the listening socket and launches the accept loop.
func (l *Listener) Start() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return err
	}
	l.ln = ln
	l.logger.Info("listening", "addr", l.addr)
	go l.acceptLoop()
	return nil
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}

func (l *Listener) acceptLoop() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			l.logger.Debug("accept loop stopped", "error", err)
			return
		}
		go l.handle(conn)
	}
}

func (l *Listener) handle(conn net.Conn) {
	defer conn.Close()

	peerIP := peerAddress(conn)
	name, mode, modeGiven := l.readHello(conn)

	if name == "" {
		name = fmt.Sprintf("Client-%d", l.counter.Add(1))
	}

	policy := l.reg.Policy()
	effectiveMode := policy.DefaultMode
	if modeGiven {
		effectiveMode = mode
	}

	if l.reg.IsBanned(peerIP, name) {
		l.logger.Info("denied banned client", "name", name, "ip", peerIP)
		writeLine(conn, "NO_SERVER_AVAILABLE")
		return
	}

	snap := l.reg.Snapshot()
	var chosen domain.Backend
	var ok bool
	if effectiveMode == domain.ModeDynamic {
		chosen, ok = scheduling.SelectDynamic(snap, l.reg.Cursor())
	} else {
		chosen, ok = scheduling.SelectStatic(snap, l.reg.Cursor())
	}

	if !ok {
		l.logger.Info("no candidate for client", "name", name, "mode", effectiveMode)
		writeLine(conn, "NO_SERVER_AVAILABLE")
		return
	}

	writeLine(conn, chosen.String())
	l.log.Append(domain.ClientRecord{
		ClientName: name,
		Mode:       effectiveMode,
		AssignedAt: time.Now().UnixMilli(),
		Backend:    chosen,
		Remote:     conn.RemoteAddr().String(),
	})
}

// readHello reads at most one line within handshakeTimeout. A missing
// line, a line that isn't HELLO, or missing tokens are all tolerated —
// the caller falls back to an auto-name and the default mode.
func (l *Listener) readHello(conn net.Conn) (name string, mode domain.Mode, modeGiven bool) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return "", "", false
	}
	line := scanner.Text()

	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(line)), "HELLO") {
		return "", "", false
	}

	tokens := strings.Fields(line)
	if len(tokens) >= 2 {
		name = tokens[1]
	}
	if len(tokens) >= 3 {
		if m, ok := domain.ParseMode(strings.ToLower(tokens[2])); ok {
			mode, modeGiven = m, true
		}
	}
	return name, mode, modeGiven
}

func peerAddress(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}

func writeLine(conn net.Conn, s string) {
	_, _ = conn.Write([]byte(s + "\n"))
}
