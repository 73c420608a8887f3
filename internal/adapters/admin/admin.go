// Package admin implements the balancer's local administrative
// console (C6): a line-oriented REPL over stdin/stdout that inspects
// and mutates the registry.
package admin

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/athebyme/linebalancer/internal/core/assignment"
	"github.com/athebyme/linebalancer/internal/core/domain"
	"github.com/athebyme/linebalancer/internal/core/ports"
	"github.com/athebyme/linebalancer/internal/core/registry"
)

// Restarter is implemented by the probe loop; the admin console
// notifies it after changing the ping interval.
type Restarter interface {
	Restart()
}

// Console is a single cooperative reader driving synchronous
// mutations against the registry. It never shares a lock across its
// own I/O.
type Console struct {
	reg    *registry.Registry
	log    *assignment.Log
	probe  Restarter
	logger ports.Logger
	in     *bufio.Scanner
	out    io.Writer
}

// New builds an admin console reading commands from in and writing
// output to out.
func New(in io.Reader, out io.Writer, reg *registry.Registry, log *assignment.Log, probe Restarter, logger ports.Logger) *Console {
	return &Console{
		reg:    reg,
		log:    log,
		probe:  probe,
		logger: logger.With("component", "admin"),
		in:     bufio.NewScanner(in),
		out:    out,
	}
}

// Run blocks reading lines until in is exhausted (typically stdin
// closing at process shutdown).
func (c *Console) Run() {
	for c.in.Scan() {
		c.dispatch(c.in.Text())
	}
}

func (c *Console) dispatch(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "servers":
		c.printServers()
	case "live":
		c.printLive()
	case "clients", "recent":
		c.printRecent()
	case "status":
		c.printServers()
		c.printLive()
	case "drain":
		c.cmdDrain(args, true)
	case "undrain":
		c.cmdDrain(args, false)
	case "drained":
		c.printDrained()
	case "setweight":
		c.cmdSetWeight(args)
	case "weights":
		c.printWeights()
	case "mode":
		c.cmdMode(args)
	case "set":
		c.cmdSet(args)
	case "ban":
		c.cmdBan(args, true)
	case "unban":
		c.cmdBan(args, false)
	case "bans":
		c.printBans()
	case "remove":
		c.cmdRemove(args)
	case "clear":
		c.log.Clear()
		fmt.Fprintln(c.out, "assignment log cleared")
	case "help":
		c.printHelp()
	default:
		fmt.Fprintf(c.out, "unknown command %q; type 'help' for a list\n", cmd)
	}
}

func (c *Console) cmdDrain(args []string, drain bool) {
	verb := "undrain"
	if drain {
		verb = "drain"
	}
	if len(args) == 1 && strings.EqualFold(args[0], "all") {
		if drain {
			c.reg.DrainAll()
		} else {
			c.reg.UndrainAll()
		}
		fmt.Fprintf(c.out, "%sed all backends\n", verb)
		return
	}
	if len(args) != 1 {
		fmt.Fprintf(c.out, "usage: %s <host:port> | %s all\n", verb, verb)
		return
	}
	b, err := parseBackend(args[0])
	if err != nil {
		fmt.Fprintln(c.out, err)
		return
	}
	var ok bool
	if drain {
		ok = c.reg.Drain(b)
	} else {
		ok = c.reg.Undrain(b)
	}
	if !ok {
		fmt.Fprintf(c.out, "unknown backend %s\n", b)
		return
	}
	fmt.Fprintf(c.out, "%sed %s\n", verb, b)
}

func (c *Console) cmdSetWeight(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(c.out, "usage: setweight <host:port> <N>")
		return
	}
	b, err := parseBackend(args[0])
	if err != nil {
		fmt.Fprintln(c.out, err)
		return
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintln(c.out, "usage: setweight <host:port> <N>")
		return
	}
	if !c.reg.SetWeight(b, n) {
		fmt.Fprintf(c.out, "unknown backend %s\n", b)
		return
	}
	fmt.Fprintf(c.out, "weight of %s set\n", b)
}

func (c *Console) cmdMode(args []string) {
	if len(args) != 2 || !strings.EqualFold(args[0], "default") {
		fmt.Fprintln(c.out, "usage: mode default <static|dynamic>")
		return
	}
	m, ok := domain.ParseMode(strings.ToLower(args[1]))
	if !ok {
		fmt.Fprintln(c.out, "usage: mode default <static|dynamic>")
		return
	}
	c.reg.SetDefaultMode(m)
	fmt.Fprintf(c.out, "default mode set to %s\n", m)
}

func (c *Console) cmdSet(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(c.out, "usage: set ping <ms> | set maxconn <N>")
		return
	}
	switch strings.ToLower(args[0]) {
	case "ping":
		ms, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintln(c.out, "usage: set ping <ms>")
			return
		}
		clamped := c.reg.SetPingInterval(ms)
		if c.probe != nil {
			c.probe.Restart()
		}
		fmt.Fprintf(c.out, "ping interval set to %dms\n", clamped)
	case "maxconn":
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintln(c.out, "usage: set maxconn <N>")
			return
		}
		c.reg.SetMaxPerBackend(n)
		fmt.Fprintf(c.out, "max per backend set to %d\n", n)
	default:
		fmt.Fprintln(c.out, "usage: set ping <ms> | set maxconn <N>")
	}
}

func (c *Console) cmdBan(args []string, ban bool) {
	verb := "unban"
	if ban {
		verb = "ban"
	}
	if len(args) != 2 {
		fmt.Fprintf(c.out, "usage: %s ip <x> | %s name <x>\n", verb, verb)
		return
	}
	switch strings.ToLower(args[0]) {
	case "ip":
		if ban {
			c.reg.BanIP(args[1])
		} else {
			c.reg.UnbanIP(args[1])
		}
	case "name":
		if ban {
			c.reg.BanName(args[1])
		} else {
			c.reg.UnbanName(args[1])
		}
	default:
		fmt.Fprintf(c.out, "usage: %s ip <x> | %s name <x>\n", verb, verb)
		return
	}
	fmt.Fprintf(c.out, "%sned %s %s\n", verb, args[0], args[1])
}

func (c *Console) cmdRemove(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "usage: remove <host:port>")
		return
	}
	b, err := parseBackend(args[0])
	if err != nil {
		fmt.Fprintln(c.out, err)
		return
	}
	if !c.reg.Remove(b) {
		fmt.Fprintf(c.out, "unknown backend %s\n", b)
		return
	}
	fmt.Fprintf(c.out, "removed %s\n", b)
}

func (c *Console) printServers() {
	snap := c.reg.Snapshot()
	if len(snap.Backends) == 0 {
		fmt.Fprintln(c.out, "no backends registered")
		return
	}
	for _, v := range snap.Backends {
		rtt := "unknown"
		if v.RTTMs != nil {
			rtt = fmt.Sprintf("%dms", *v.RTTMs)
		}
		fmt.Fprintf(c.out, "%s weight=%d drained=%t rtt=%s live=%d\n",
			v.Backend, v.Weight, v.Drained, rtt, v.LiveCount())
	}
}

func (c *Console) printLive() {
	snap := c.reg.Snapshot()
	for _, v := range snap.Backends {
		if len(v.LiveClients) == 0 {
			fmt.Fprintf(c.out, "%s: (no reported clients)\n", v.Backend)
			continue
		}
		fmt.Fprintf(c.out, "%s:\n", v.Backend)
		for _, lc := range v.LiveClients {
			fmt.Fprintf(c.out, "  %s@%s reported_at=%d\n", lc.Name, lc.IP, lc.ReportedAt)
		}
	}
}

func (c *Console) printRecent() {
	recs := c.log.Recent()
	if len(recs) == 0 {
		fmt.Fprintln(c.out, "no assignments recorded")
		return
	}
	for _, r := range recs {
		fmt.Fprintf(c.out, "%d %s mode=%s -> %s remote=%s\n",
			r.AssignedAt, r.ClientName, r.Mode, r.Backend, r.Remote)
	}
}

func (c *Console) printDrained() {
	snap := c.reg.Snapshot()
	any := false
	for _, v := range snap.Backends {
		if v.Drained {
			fmt.Fprintln(c.out, v.Backend)
			any = true
		}
	}
	if !any {
		fmt.Fprintln(c.out, "no backends drained")
	}
}

func (c *Console) printWeights() {
	snap := c.reg.Snapshot()
	for _, v := range snap.Backends {
		fmt.Fprintf(c.out, "%s weight=%d\n", v.Backend, v.Weight)
	}
}

func (c *Console) printBans() {
	ips, names := c.reg.Bans()
	fmt.Fprintf(c.out, "banned ips: %s\n", strings.Join(ips, ", "))
	fmt.Fprintf(c.out, "banned names: %s\n", strings.Join(names, ", "))
}

func (c *Console) printHelp() {
	fmt.Fprint(c.out, `commands:
  servers                                list backends with rtt/weight/drain/live
  live                                   per-backend reported live clients
  clients | recent                       last <=500 assignments
  status                                 servers + live
  drain <h:p> | drain all                drain a backend or all backends
  undrain <h:p> | undrain all            undrain a backend or all backends
  drained                                list drained backends
  setweight <h:p> <N>                    set a backend's weight (clamped >= 1)
  weights                                list backend weights
  mode default <static|dynamic>          change the default selection mode
  set ping <ms>                          set the probe interval (clamped >= 200)
  set maxconn <N>                        set the per-backend live-client cap
  ban ip <x> | ban name <x>              deny future handshakes by ip or name
  unban ip <x> | unban name <x>          lift a ban
  bans                                   list banned ips and names
  remove <h:p>                           drop a backend from the registry
  clear                                  empty the assignment log
  help                                   this summary
`)
}

func parseBackend(s string) (domain.Backend, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return domain.Backend{}, fmt.Errorf("invalid backend %q, expected host:port", s)
	}
	port, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return domain.Backend{}, fmt.Errorf("invalid backend %q, expected host:port", s)
	}
	return domain.Backend{Address: s[:idx], Port: port}, nil
}
