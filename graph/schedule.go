package graph

import (
	"sort"

	"go.uber.org/zap"

	"github.com/pakstream/packlink"
	"github.com/pakstream/packlink/format"
)

// Schedule is the result of topologically ordering one package's graph: the
// export bundles the loader executes sequentially, plus the arcs surviving
// into the serialized form.
type Schedule struct {
	Bundles      []format.Bundle
	InternalArcs []format.InternalArc
	ExternalArcs []format.ExternalArc

	// ForcedBreaks counts nodes emitted by the cycle-break rule.
	ForcedBreaks int

	positions []int32
}

// Position returns the flattened bundle position assigned to node n.
func (s *Schedule) Position(n NodeID) int {
	return int(s.positions[n])
}

// Schedule orders the graph into export bundles. The ready queue prefers
// public exports, then declaration order, then construct before populate,
// which makes the result deterministic for a given graph. A stall (every
// unprocessed node still has unmet deps) means a cycle: the unprocessed node
// with the lowest export index is forced onto the bundle and the walk
// continues, so scheduling always terminates.
func (g *Graph) Schedule(pkgName string) *Schedule {
	n := len(g.nodes)
	s := &Schedule{positions: make([]int32, n)}

	indegree := make([]int, n)
	for i := range g.nodes {
		indegree[i] = len(g.nodes[i].deps)
		g.nodes[i].mark = markUnvisited
	}

	ready := make([]NodeID, 0, n)
	for i := range g.nodes {
		if indegree[i] == 0 {
			ready = append(ready, NodeID(i))
		}
	}

	entries := make([]format.BundleEntry, 0, n)
	emit := func(id NodeID) {
		node := &g.nodes[id]
		node.mark = markDone
		s.positions[id] = int32(len(entries))
		entries = append(entries, format.BundleEntry{Export: node.export, Phase: node.phase})
		for _, dep := range node.dependents {
			if g.nodes[dep].mark == markDone {
				continue
			}
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	for len(entries) < n {
		if len(ready) == 0 {
			// Cycle: force the unprocessed node with the lowest id,
			// which is the lowest export index with construct before
			// populate.
			forced := NodeID(-1)
			for i := range g.nodes {
				if g.nodes[i].mark != markDone {
					forced = NodeID(i)
					break
				}
			}
			s.ForcedBreaks++
			Logger().Debug("breaking dependency cycle by forced ordering",
				zap.String("package", pkgName),
				zap.Uint32("export", uint32(g.nodes[forced].export)),
				zap.String("phase", g.nodes[forced].phase.String()))
			emit(forced)
			continue
		}

		best := 0
		for i := 1; i < len(ready); i++ {
			if readyBefore(&g.nodes[ready[i]], ready[i], &g.nodes[ready[best]], ready[best]) {
				best = i
			}
		}
		id := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		if g.nodes[id].mark == markDone {
			// Already forced during a cycle break.
			continue
		}
		emit(id)
	}

	s.Bundles = []format.Bundle{{Entries: entries}}
	s.collectArcs(g)
	return s
}

// readyBefore reports whether node a should leave the ready queue before b:
// public first, then declaration order, then construct before populate (the
// node id encodes the last two).
func readyBefore(a *node, aid NodeID, b *node, bid NodeID) bool {
	if a.public != b.public {
		return a.public
	}
	return aid < bid
}

// collectArcs derives the serialized arc lists from the assigned positions.
// Back-edges of broken cycles are dropped: the forced sequential order is
// what the loader executes, so only forward constraints survive.
func (s *Schedule) collectArcs(g *Graph) {
	for i := range g.nodes {
		to := s.positions[i]
		for _, dep := range g.nodes[i].deps {
			from := s.positions[dep]
			if from < to {
				s.InternalArcs = append(s.InternalArcs, format.InternalArc{
					From: uint32(from),
					To:   uint32(to),
				})
			}
		}
		for _, ext := range g.nodes[i].externals {
			s.ExternalArcs = append(s.ExternalArcs, format.ExternalArc{
				DepPackage: ext.Package,
				DepExport:  ext.Export,
				DepPhase:   ext.Phase,
				ToBundle:   0,
			})
		}
	}

	sort.Slice(s.InternalArcs, func(i, j int) bool {
		a, b := s.InternalArcs[i], s.InternalArcs[j]
		if a.From != b.From {
			return a.From < b.From
		}
		return a.To < b.To
	})
	s.InternalArcs = dedupInternal(s.InternalArcs)

	sort.Slice(s.ExternalArcs, func(i, j int) bool {
		return s.ExternalArcs[i].Less(s.ExternalArcs[j])
	})
	s.ExternalArcs = dedupExternal(s.ExternalArcs)
}

func dedupInternal(arcs []format.InternalArc) []format.InternalArc {
	out := arcs[:0]
	for i, arc := range arcs {
		if i == 0 || arc != arcs[i-1] {
			out = append(out, arc)
		}
	}
	return out
}

func dedupExternal(arcs []format.ExternalArc) []format.ExternalArc {
	out := arcs[:0]
	for i, arc := range arcs {
		if i == 0 || arc != arcs[i-1] {
			out = append(out, arc)
		}
	}
	return out
}

// ExternalDeps returns the distinct package ids the schedule's external arcs
// depend on, in arc order.
func (s *Schedule) ExternalDeps() []packlink.PackageID {
	var out []packlink.PackageID
	seen := make(map[packlink.PackageID]struct{})
	for _, arc := range s.ExternalArcs {
		if _, ok := seen[arc.DepPackage]; !ok {
			seen[arc.DepPackage] = struct{}{}
			out = append(out, arc.DepPackage)
		}
	}
	return out
}
