package scheduling

import (
	"sync/atomic"
	"testing"

	"github.com/athebyme/linebalancer/internal/core/domain"
	"github.com/athebyme/linebalancer/internal/core/registry"
	"github.com/athebyme/linebalancer/internal/testmocks"
)

func buildSnapshot(t *testing.T, weights map[domain.Backend]int, drained map[domain.Backend]bool, rtt map[domain.Backend]int, maxPer int) registry.Snapshot {
	t.Helper()
	r := registry.New(testmocks.NewNoopLogger(), registry.Policy{
		DefaultMode:    domain.ModeStatic,
		MaxPerBackend:  maxPer,
		PingIntervalMs: 1000,
	})
	for b, w := range weights {
		r.AddBackend(b)
		r.SetWeight(b, w)
	}
	for b, d := range drained {
		if d {
			r.Drain(b)
		}
	}
	for b, ms := range rtt {
		r.SetRTT(b, ms)
	}
	return r.Snapshot()
}

func TestSelectStaticNoBackends(t *testing.T) {
	snap := buildSnapshot(t, nil, nil, nil, registry.Unlimited)
	var cursor atomic.Uint64
	if _, ok := SelectStatic(snap, &cursor); ok {
		t.Fatal("expected ok=false with no backends")
	}
}

func TestSelectStaticAllDrained(t *testing.T) {
	a := domain.Backend{Address: "a", Port: 1}
	snap := buildSnapshot(t, map[domain.Backend]int{a: 1}, map[domain.Backend]bool{a: true}, nil, registry.Unlimited)
	var cursor atomic.Uint64
	if _, ok := SelectStatic(snap, &cursor); ok {
		t.Fatal("expected ok=false when all backends drained")
	}
}

func TestSelectStaticRespectsWeightFairness(t *testing.T) {
	a := domain.Backend{Address: "a", Port: 1}
	b := domain.Backend{Address: "b", Port: 2}
	snap := buildSnapshot(t, map[domain.Backend]int{a: 3, b: 1}, nil, nil, registry.Unlimited)

	var cursor atomic.Uint64
	counts := map[domain.Backend]int{}
	for i := 0; i < 40; i++ {
		chosen, ok := SelectStatic(snap, &cursor)
		if !ok {
			t.Fatal("expected a candidate every iteration")
		}
		counts[chosen]++
	}
	// over 10 full passes of a 4-long schedule, a:b should land near 30:10.
	if counts[a] < 20 || counts[b] < 5 {
		t.Fatalf("counts = %+v, expected a to dominate b roughly 3:1", counts)
	}
}

func TestSelectStaticSkipsDrained(t *testing.T) {
	a := domain.Backend{Address: "a", Port: 1}
	b := domain.Backend{Address: "b", Port: 2}
	snap := buildSnapshot(t, map[domain.Backend]int{a: 1, b: 1}, map[domain.Backend]bool{a: true}, nil, registry.Unlimited)

	var cursor atomic.Uint64
	for i := 0; i < 10; i++ {
		chosen, ok := SelectStatic(snap, &cursor)
		if !ok {
			t.Fatal("expected a candidate")
		}
		if chosen != b {
			t.Fatalf("chosen = %s, want %s (a is drained)", chosen, b)
		}
	}
}

func TestSelectDynamicPicksLowestRTT(t *testing.T) {
	a := domain.Backend{Address: "a", Port: 1}
	b := domain.Backend{Address: "b", Port: 2}
	c := domain.Backend{Address: "c", Port: 3}
	snap := buildSnapshot(t,
		map[domain.Backend]int{a: 1, b: 1, c: 1},
		nil,
		map[domain.Backend]int{a: 50, b: 5, c: 20},
		registry.Unlimited)

	var cursor atomic.Uint64
	chosen, ok := SelectDynamic(snap, &cursor)
	if !ok || chosen != b {
		t.Fatalf("chosen = %s, ok=%t, want %s", chosen, ok, b)
	}
}

func TestSelectDynamicFallsBackToStaticWithoutRTT(t *testing.T) {
	a := domain.Backend{Address: "a", Port: 1}
	snap := buildSnapshot(t, map[domain.Backend]int{a: 1}, nil, nil, registry.Unlimited)

	var cursor atomic.Uint64
	chosen, ok := SelectDynamic(snap, &cursor)
	if !ok || chosen != a {
		t.Fatalf("chosen = %s, ok=%t, want %s (fallback to static)", chosen, ok, a)
	}
}

func TestSelectStaticMaxPerBackendZeroExcludesEveryone(t *testing.T) {
	a := domain.Backend{Address: "a", Port: 1}
	r := registry.New(testmocks.NewNoopLogger(), registry.Policy{
		DefaultMode:    domain.ModeStatic,
		MaxPerBackend:  0,
		PingIntervalMs: 1000,
	})
	r.AddBackend(a)
	r.SetReport(a, []domain.LiveClient{{Name: "x"}})
	snap := r.Snapshot()

	var cursor atomic.Uint64
	if _, ok := SelectStatic(snap, &cursor); ok {
		t.Fatal("expected no candidates once live count reaches a cap of 0")
	}
}
