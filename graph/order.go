package graph

import (
	"sort"

	"go.uber.org/zap"

	"github.com/pakstream/packlink"
)

// OrderPackages assigns a global load-order rank to every package: a
// depth-first topological walk over the package-level arc graph, where an
// edge runs from a package to each package it depends on. Dependencies rank
// before dependents; ties break by package id, so the result is deterministic
// for a given package set. Cross-package cycles are allowed and broken at the
// first back-edge, since the loader's wait-based external arcs resolve
// genuine circular references at runtime.
//
// deps returns the ids a package depends on; ids absent from the package set
// are ignored.
func OrderPackages(ids []packlink.PackageID, deps func(packlink.PackageID) []packlink.PackageID) map[packlink.PackageID]uint32 {
	sorted := make([]packlink.PackageID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	inSet := make(map[packlink.PackageID]struct{}, len(sorted))
	for _, id := range sorted {
		inSet[id] = struct{}{}
	}

	marks := make(map[packlink.PackageID]mark, len(sorted))
	ranks := make(map[packlink.PackageID]uint32, len(sorted))
	next := uint32(0)

	var visit func(id packlink.PackageID)
	visit = func(id packlink.PackageID) {
		marks[id] = markInProgress

		depIDs := deps(id)
		ordered := make([]packlink.PackageID, 0, len(depIDs))
		for _, dep := range depIDs {
			if _, ok := inSet[dep]; ok && dep != id {
				ordered = append(ordered, dep)
			}
		}
		sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

		for _, dep := range ordered {
			switch marks[dep] {
			case markUnvisited:
				visit(dep)
			case markInProgress:
				Logger().Debug("breaking package-level cycle",
					zap.Uint64("package", uint64(id)),
					zap.Uint64("dependency", uint64(dep)))
			}
		}

		marks[id] = markDone
		ranks[id] = next
		next++
	}

	for _, id := range sorted {
		if marks[id] == markUnvisited {
			visit(id)
		}
	}

	return ranks
}
