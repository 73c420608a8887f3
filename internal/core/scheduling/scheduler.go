// Package scheduling implements the balancer's two selection policies
// over a registry.Snapshot. It is a pure package: it never touches the
// registry's locks directly, only the atomic cursor handed to it, so
// it can never deadlock against the lock that produced its snapshot.
package scheduling

import (
	"sync/atomic"

	"github.com/athebyme/linebalancer/internal/core/domain"
	"github.com/athebyme/linebalancer/internal/core/registry"
)

// candidates returns every backend in snap that is not drained and
// whose live-client count is strictly below the configured cap (if
// any), preserving snapshot order.
func candidates(snap registry.Snapshot) []registry.BackendView {
	maxPer := snap.Policy.MaxPerBackend
	out := make([]registry.BackendView, 0, len(snap.Backends))
	for _, v := range snap.Backends {
		if v.Drained {
			continue
		}
		if maxPer != registry.Unlimited && v.LiveCount() >= maxPer {
			continue
		}
		out = append(out, v)
	}
	return out
}

func inSet(set []registry.BackendView, b domain.Backend) bool {
	for _, v := range set {
		if v.Backend == b {
			return true
		}
	}
	return false
}

// SelectStatic implements weighted round robin: for each inspection it
// advances cursor atomically and inspects the flattened weighted
// schedule at the cursor's value before that increment, returning the
// first inspected backend that is in the candidate set. It scans at most 2*len(schedule) positions before
// falling back to the first candidate; if the candidate set is empty
// it returns ok=false.
func SelectStatic(snap registry.Snapshot, cursor *atomic.Uint64) (domain.Backend, bool) {
	cands := candidates(snap)
	if len(cands) == 0 {
		return domain.Backend{}, false
	}

	w := snap.Schedule
	if len(w) == 0 {
		return cands[0].Backend, true
	}

	limit := 2 * len(w)
	for i := 0; i < limit; i++ {
		idx := cursor.Add(1) - 1
		b := w[idx%uint64(len(w))]
		if inSet(cands, b) {
			return b, true
		}
	}
	return cands[0].Backend, true
}

// SelectDynamic implements min-RTT selection among the candidate set.
// Backends with unknown RTT are ignored; if none of the candidates has
// a known RTT, it falls through to static selection over the same
// candidate set. Ties are broken by snapshot order (first encountered).
func SelectDynamic(snap registry.Snapshot, cursor *atomic.Uint64) (domain.Backend, bool) {
	cands := candidates(snap)
	if len(cands) == 0 {
		return domain.Backend{}, false
	}

	var best *registry.BackendView
	for i := range cands {
		v := &cands[i]
		if v.RTTMs == nil {
			continue
		}
		if best == nil || *v.RTTMs < *best.RTTMs {
			best = v
		}
	}
	if best != nil {
		return best.Backend, true
	}

	return SelectStatic(snap, cursor)
}
