// Package backendchan implements the backend registration channel
// (C3): a TCP listener accepting one request per connection, either a
// "!join" registration or a "!report" live-client list.
package backendchan

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/athebyme/linebalancer/internal/core/domain"
	"github.com/athebyme/linebalancer/internal/core/ports"
	"github.com/athebyme/linebalancer/internal/core/registry"
)

// Listener accepts backend connections and dispatches join/report
// requests against a registry.
type Listener struct {
	addr   string
	reg    *registry.Registry
	logger ports.Logger
	ln     net.Listener
}

// New creates a backend channel listener bound to addr (not yet
// listening — call Start).
func New(addr string, reg *registry.Registry, logger ports.Logger) *Listener {
	return &Listener{addr: addr, reg: reg, logger: logger.With("component", "backendchan")}
}

// Start binds the listening socket and launches the accept loop.
// Returns an error only if the bind itself fails (a fatal startup
// error per the spec's error taxonomy).
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

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}
	line := scanner.Text()

	peerIP := peerAddress(conn)
	trimmed := strings.TrimSpace(line)
	lower := strings.ToLower(trimmed)

	switch {
	case strings.HasPrefix(lower, "!join"):
		l.handleJoin(conn, peerIP, trimmed)
	case strings.HasPrefix(lower, "!report"):
		l.handleReport(peerIP, trimmed)
	default:
		writeLine(conn, "!err")
	}
}

func (l *Listener) handleJoin(conn net.Conn, peerIP, line string) {
	tokens := strings.Fields(line)
	if len(tokens) < 2 {
		l.logger.Warn("malformed !join, too few tokens", "line", line)
		return
	}

	port, err := strconv.Atoi(tokens[len(tokens)-1])
	if err != nil {
		l.logger.Warn("malformed !join, bad port", "line", line, "error", err)
		return
	}

	b := domain.Backend{Address: peerIP, Port: port}
	l.reg.AddBackend(b)
	writeLine(conn, "!ack")
}

func (l *Listener) handleReport(peerIP, line string) {
	tokens := strings.Fields(line)
	// tokens[0] = "!report", tokens[1] = port, tokens[2] = "clients", tokens[3] = n, tokens[4:] = name@ip...
	if len(tokens) < 4 {
		l.logger.Warn("malformed !report, too few tokens", "line", line)
		return
	}

	port, err := strconv.Atoi(tokens[1])
	if err != nil {
		l.logger.Warn("malformed !report, bad port", "line", line, "error", err)
		return
	}

	n, err := strconv.Atoi(tokens[3])
	if err != nil {
		l.logger.Warn("malformed !report, bad count", "line", line, "error", err)
		return
	}

	rest := tokens[4:]
	if n < len(rest) {
		rest = rest[:n]
	}

	clients := make([]domain.LiveClient, 0, len(rest))
	for _, tok := range rest {
		name, ip := splitNameIP(tok)
		clients = append(clients, domain.LiveClient{Name: name, IP: ip, ReportedAt: time.Now().UnixMilli()})
	}

	l.reg.SetReport(domain.Backend{Address: peerIP, Port: port}, clients)
}

// splitNameIP splits a "name@ip" token on the last '@'. A token with
// no '@' is treated as a bare name with an "unknown" ip.
func splitNameIP(tok string) (name, ip string) {
	idx := strings.LastIndex(tok, "@")
	if idx < 0 {
		return tok, "unknown"
	}
	return tok[:idx], tok[idx+1:]
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
