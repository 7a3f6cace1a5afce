package story

import (
	"strings"
	"testing"
)

func TestAllocateDistinctNarrationUpToFullPool(t *testing.T) {
	d := DefaultDistributor()
	for n := 5; n <= 75; n++ {
		allocations := Allocate(nil, d.Distribute(n))
		if len(allocations) != n {
			t.Fatalf("n=%d: got %d allocations", n, len(allocations))
		}
		seen := make(map[string]int, n)
		for i, a := range allocations {
			if prev, dup := seen[a.Narration]; dup {
				t.Fatalf("n=%d: allocation %d repeats narration of %d: %q", n, i, prev, a.Narration)
			}
			seen[a.Narration] = i
		}
	}
}

func TestAllocateOverflowAddsPartSuffix(t *testing.T) {
	pool := DefaultTables().Pool
	allocations := Allocate(pool, ActDistribution{17, 1, 1, 1, 1})
	first := pool.Entries(ActExposition)
	if allocations[0].Narration != first[0].Narration {
		t.Fatalf("first allocation = %q", allocations[0].Narration)
	}
	want := first[0].Narration + " (파트 16)"
	if allocations[15].Narration != want {
		t.Fatalf("allocation 15 = %q, want %q", allocations[15].Narration, want)
	}
	if !strings.HasSuffix(allocations[16].Narration, " (파트 17)") {
		t.Fatalf("allocation 16 = %q", allocations[16].Narration)
	}
	if allocations[15].Mood != first[0].Mood || allocations[15].Camera != first[0].Camera {
		t.Fatalf("overflow entry should reuse base mood and camera, got %+v", allocations[15])
	}
	if allocations[17].Act != ActRisingAction || allocations[17].Position != 0 {
		t.Fatalf("act cursor not reset: %+v", allocations[17])
	}
	if got := pool.Entries(ActExposition)[0].Narration; got != first[0].Narration {
		t.Fatalf("pool mutated: %q", got)
	}
}

func TestAllocateCyclesPalette(t *testing.T) {
	entries := DefaultTables().Pool.Entries(ActExposition)
	if len(entries) != PoolSizePerAct {
		t.Fatalf("expected %d entries, got %d", PoolSizePerAct, len(entries))
	}
	if entries[0].Mood != "mysterious" || entries[0].Camera != "slow_zoom_in" || entries[0].KoreanMood != "신비로운" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[5].Mood != entries[0].Mood || entries[10].Camera != entries[0].Camera {
		t.Fatalf("palette should repeat every five entries")
	}
}
