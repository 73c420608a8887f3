// Package registry implements the balancer's authoritative in-memory
// state: the backend set, weights, drain flags, ban lists, live-client
// reports, the RTT cache, and the derived weighted schedule used by
// static round-robin.
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/athebyme/linebalancer/internal/core/domain"
	"github.com/athebyme/linebalancer/internal/core/ports"
)

// Unlimited is the sentinel value for Policy.MaxPerBackend meaning no
// cap is applied.
const Unlimited = -1

// Policy holds the global, single-word-publish configuration knobs.
type Policy struct {
	DefaultMode    domain.Mode
	MaxPerBackend  int // Unlimited, or a value >= 0
	PingIntervalMs int
}

type entry struct {
	weight  int
	drained bool
}

// Registry owns all mutable balancer state. A single RWMutex guards the
// structural fields (backend set, weights, drain flags, derived
// schedule, ban sets, policy); the RTT cache and live-client reports
// each have their own RWMutex. Probe-loop RTT writes take only the RTT
// lock and backend reports take the structural lock only briefly for
// reading; Remove and Snapshot take the RTT and live locks as well.
type Registry struct {
	logger ports.Logger

	mu       sync.RWMutex
	backends map[domain.Backend]*entry
	order    []domain.Backend // registration order, for weighted schedule construction
	schedule []domain.Backend // derived: each backend repeated weight times
	bannedIP map[string]struct{}
	bannedNm map[string]struct{}
	policy   Policy

	cursor atomic.Uint64

	rttMu sync.RWMutex
	rtt   map[domain.Backend]int // ms; absent = unknown

	liveMu sync.RWMutex
	live   map[domain.Backend][]domain.LiveClient
}

// New creates an empty registry with the given initial policy.
func New(logger ports.Logger, initial Policy) *Registry {
	return &Registry{
		logger:   logger.With("component", "registry"),
		backends: make(map[domain.Backend]*entry),
		bannedIP: make(map[string]struct{}),
		bannedNm: make(map[string]struct{}),
		policy:   initial,
		rtt:      make(map[domain.Backend]int),
		live:     make(map[domain.Backend][]domain.LiveClient),
	}
}

// Cursor returns the shared rotating cursor used by static selection.
// Callers must only use atomic operations on it.
func (r *Registry) Cursor() *atomic.Uint64 {
	return &r.cursor
}

// AddBackend registers b if it is new, preserving the existing entry
// (weight, drain flag) if it already exists. Returns true if a new
// entry was created.
func (r *Registry) AddBackend(b domain.Backend) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[b]; exists {
		return false
	}

	r.backends[b] = &entry{weight: 1}
	r.order = append(r.order, b)
	r.rebuildScheduleLocked()
	r.logger.Info("backend registered", "backend", b.String())
	return true
}

// Remove drops b from the registry. It does not close any open
// connection to that backend; the entry simply disappears from future
// scheduling.
func (r *Registry) Remove(b domain.Backend) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[b]; !exists {
		return false
	}
	delete(r.backends, b)
	for i, ob := range r.order {
		if ob == b {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.rebuildScheduleLocked()

	r.rttMu.Lock()
	delete(r.rtt, b)
	r.rttMu.Unlock()

	r.liveMu.Lock()
	delete(r.live, b)
	r.liveMu.Unlock()

	r.logger.Info("backend removed", "backend", b.String())
	return true
}

// SetWeight sets b's weight, clamping any value below 1 up to 1.
// Returns false if b is not registered.
func (r *Registry) SetWeight(b domain.Backend, w int) bool {
	if w < 1 {
		w = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.backends[b]
	if !ok {
		return false
	}
	e.weight = w
	r.rebuildScheduleLocked()
	return true
}

// Drain marks b as drained (never schedulable). Returns false if b is
// not registered.
func (r *Registry) Drain(b domain.Backend) bool { return r.setDrained(b, true) }

// Undrain clears b's drained flag. Returns false if b is not registered.
func (r *Registry) Undrain(b domain.Backend) bool { return r.setDrained(b, false) }

func (r *Registry) setDrained(b domain.Backend, drained bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.backends[b]
	if !ok {
		return false
	}
	e.drained = drained
	return true
}

// DrainAll drains every currently registered backend.
func (r *Registry) DrainAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.backends {
		e.drained = true
	}
}

// UndrainAll clears the drained flag on every registered backend.
func (r *Registry) UndrainAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.backends {
		e.drained = false
	}
}

// SetReport replaces the live-client list for b. Unknown backends are
// dropped with a warning: the balancer never invents a backend from a
// report.
func (r *Registry) SetReport(b domain.Backend, clients []domain.LiveClient) {
	r.mu.RLock()
	_, known := r.backends[b]
	r.mu.RUnlock()
	if !known {
		r.logger.Warn("report for unknown backend dropped", "backend", b.String())
		return
	}

	r.liveMu.Lock()
	r.live[b] = clients
	r.liveMu.Unlock()
}

// SetRTT records the most recently measured RTT, in milliseconds, for b.
func (r *Registry) SetRTT(b domain.Backend, ms int) {
	if ms < 0 {
		ms = 0
	}
	r.rttMu.Lock()
	r.rtt[b] = ms
	r.rttMu.Unlock()
}

// BanIP/BanName/UnbanIP/UnbanName mutate the independent ban sets.
func (r *Registry) BanIP(ip string) {
	r.mu.Lock()
	r.bannedIP[ip] = struct{}{}
	r.mu.Unlock()
}

func (r *Registry) UnbanIP(ip string) {
	r.mu.Lock()
	delete(r.bannedIP, ip)
	r.mu.Unlock()
}

func (r *Registry) BanName(name string) {
	r.mu.Lock()
	r.bannedNm[name] = struct{}{}
	r.mu.Unlock()
}

func (r *Registry) UnbanName(name string) {
	r.mu.Lock()
	delete(r.bannedNm, name)
	r.mu.Unlock()
}

// IsBanned reports whether either the IP or the name is on a ban list.
func (r *Registry) IsBanned(ip, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, byIP := r.bannedIP[ip]
	_, byName := r.bannedNm[name]
	return byIP || byName
}

// Bans returns a snapshot of both ban sets.
func (r *Registry) Bans() (ips []string, names []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for ip := range r.bannedIP {
		ips = append(ips, ip)
	}
	for n := range r.bannedNm {
		names = append(names, n)
	}
	return ips, names
}

// SetDefaultMode changes the mode used when a handshake omits one.
func (r *Registry) SetDefaultMode(m domain.Mode) {
	r.mu.Lock()
	r.policy.DefaultMode = m
	r.mu.Unlock()
}

// SetMaxPerBackend changes the per-backend live-client cap. Pass
// Unlimited to remove the cap.
func (r *Registry) SetMaxPerBackend(n int) {
	if n < 0 {
		n = Unlimited
	}
	r.mu.Lock()
	r.policy.MaxPerBackend = n
	r.mu.Unlock()
}

// SetPingInterval changes the probe period, clamping to a 200ms floor.
// Returns the clamped value actually applied.
func (r *Registry) SetPingInterval(ms int) int {
	if ms < 200 {
		ms = 200
	}
	r.mu.Lock()
	r.policy.PingIntervalMs = ms
	r.mu.Unlock()
	return ms
}

// Policy returns a copy of the current global policy.
func (r *Registry) Policy() Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.policy
}

// BackendAddrs returns a structural snapshot of registered backends,
// for the probe loop's fan-out; it needs nothing beyond identity.
func (r *Registry) BackendAddrs() []domain.Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Backend, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) rebuildScheduleLocked() {
	schedule := make([]domain.Backend, 0, len(r.order))
	for _, b := range r.order {
		e := r.backends[b]
		for i := 0; i < e.weight; i++ {
			schedule = append(schedule, b)
		}
	}
	r.schedule = schedule
}

// BackendView is one backend's state as seen by a single logical
// instant — the shape the scheduler and admin console consume.
type BackendView struct {
	Backend     domain.Backend
	Weight      int
	Drained     bool
	RTTMs       *int
	LiveClients []domain.LiveClient
}

func (v BackendView) LiveCount() int { return len(v.LiveClients) }

// Snapshot is an internally consistent, point-in-time view of the
// registry: the backend set, its weights, drain flags, live counts,
// and RTTs used together by one scheduling decision all come from one
// logical instant.
type Snapshot struct {
	Backends []BackendView
	Schedule []domain.Backend
	Policy   Policy
}

// Snapshot assembles a consistent view of the registry. The structural
// read lock, the RTT lock and the live-client lock are all held until
// the copy is complete (always taken in that order, the same order
// Remove uses), so no mutation can land between the structural pass
// and the RTT/live passes.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	views := make([]BackendView, 0, len(r.order))
	for _, b := range r.order {
		e := r.backends[b]
		views = append(views, BackendView{Backend: b, Weight: e.weight, Drained: e.drained})
	}
	schedule := make([]domain.Backend, len(r.schedule))
	copy(schedule, r.schedule)
	policy := r.policy

	r.rttMu.RLock()
	defer r.rttMu.RUnlock()
	for i := range views {
		if ms, ok := r.rtt[views[i].Backend]; ok {
			v := ms
			views[i].RTTMs = &v
		}
	}

	r.liveMu.RLock()
	defer r.liveMu.RUnlock()
	for i := range views {
		if lc, ok := r.live[views[i].Backend]; ok {
			views[i].LiveClients = lc
		}
	}

	return Snapshot{Backends: views, Schedule: schedule, Policy: policy}
}
