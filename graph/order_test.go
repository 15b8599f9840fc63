package graph_test

import (
	"testing"

	"github.com/pakstream/packlink"
	"github.com/pakstream/packlink/graph"
)

func TestOrderPackagesChain(t *testing.T) {
	// C depends on B depends on A: ranks must satisfy A < B < C.
	a, b, c := packlink.PackageID(1), packlink.PackageID(2), packlink.PackageID(3)
	deps := map[packlink.PackageID][]packlink.PackageID{
		c: {b},
		b: {a},
	}

	ranks := graph.OrderPackages([]packlink.PackageID{c, a, b}, func(id packlink.PackageID) []packlink.PackageID {
		return deps[id]
	})

	if len(ranks) != 3 {
		t.Fatalf("got %d ranks, want 3", len(ranks))
	}
	if !(ranks[a] < ranks[b] && ranks[b] < ranks[c]) {
		t.Errorf("ranks = a:%d b:%d c:%d, want a < b < c", ranks[a], ranks[b], ranks[c])
	}
}

func TestOrderPackagesIndependentTieBreak(t *testing.T) {
	// No edges: ranks follow package id order.
	ids := []packlink.PackageID{30, 10, 20}
	ranks := graph.OrderPackages(ids, func(packlink.PackageID) []packlink.PackageID { return nil })

	if !(ranks[10] == 0 && ranks[20] == 1 && ranks[30] == 2) {
		t.Errorf("ranks = %v, want id order", ranks)
	}
}

func TestOrderPackagesCycleTerminates(t *testing.T) {
	a, b := packlink.PackageID(1), packlink.PackageID(2)
	deps := map[packlink.PackageID][]packlink.PackageID{
		a: {b},
		b: {a},
	}

	ranks := graph.OrderPackages([]packlink.PackageID{a, b}, func(id packlink.PackageID) []packlink.PackageID {
		return deps[id]
	})

	if len(ranks) != 2 {
		t.Fatalf("got %d ranks, want 2", len(ranks))
	}
	if ranks[a] == ranks[b] {
		t.Error("cycle members share a rank")
	}
}

func TestOrderPackagesIgnoresUnknownDeps(t *testing.T) {
	a := packlink.PackageID(1)
	ranks := graph.OrderPackages([]packlink.PackageID{a}, func(packlink.PackageID) []packlink.PackageID {
		return []packlink.PackageID{99} // not in the set
	})

	if ranks[a] != 0 {
		t.Errorf("rank = %d, want 0", ranks[a])
	}
}

func TestOrderPackagesDeterminism(t *testing.T) {
	ids := []packlink.PackageID{5, 3, 9, 1}
	deps := map[packlink.PackageID][]packlink.PackageID{
		9: {5, 3},
		5: {1},
		3: {1},
	}
	lookup := func(id packlink.PackageID) []packlink.PackageID { return deps[id] }

	first := graph.OrderPackages(ids, lookup)
	for i := 0; i < 10; i++ {
		again := graph.OrderPackages(ids, lookup)
		for id, rank := range first {
			if again[id] != rank {
				t.Fatalf("rank of %d changed between runs: %d vs %d", id, rank, again[id])
			}
		}
	}
}
