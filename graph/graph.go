package graph

import (
	"go.uber.org/zap"

	"github.com/pakstream/packlink"
	"github.com/pakstream/packlink/format"
	"github.com/pakstream/packlink/resolve"
)

// NodeID identifies one (export, phase) node. Node ids are dense: export e
// owns nodes 2e (construct) and 2e+1 (populate).
type NodeID int32

// ConstructNode returns the construct-phase node of export e.
func ConstructNode(e packlink.ExportIndex) NodeID { return NodeID(2 * e) }

// PopulateNode returns the populate-phase node of export e.
func PopulateNode(e packlink.ExportIndex) NodeID { return NodeID(2*e + 1) }

// NodeFor returns the node of export e at phase p.
func NodeFor(e packlink.ExportIndex, p packlink.Phase) NodeID {
	if p == packlink.PhasePopulate {
		return PopulateNode(e)
	}
	return ConstructNode(e)
}

// mark tracks visitation state during cycle-safe ordering.
type mark uint8

const (
	markUnvisited mark = iota
	markInProgress
	markDone
)

// ExternalDep is a dependency on another package's export at a given phase.
type ExternalDep struct {
	Package packlink.PackageID
	Export  packlink.ExportIndex
	Phase   packlink.Phase
}

type node struct {
	export     packlink.ExportIndex
	phase      packlink.Phase
	public     bool
	deps       []NodeID // nodes this node waits on
	dependents []NodeID // reverse adjacency
	externals  []ExternalDep
	mark       mark
}

// Graph is the per-package export dependency graph. It is built by one
// worker and read-only afterwards.
type Graph struct {
	nodes []node
}

// New creates a graph for n exports with the mandatory populate-after-
// construct edge already in place for every export.
func New(n int) *Graph {
	g := &Graph{nodes: make([]node, 2*n)}
	for e := 0; e < n; e++ {
		idx := packlink.ExportIndex(e)
		g.nodes[ConstructNode(idx)] = node{export: idx, phase: packlink.PhaseConstruct}
		g.nodes[PopulateNode(idx)] = node{export: idx, phase: packlink.PhasePopulate}
		g.addDep(PopulateNode(idx), ConstructNode(idx))
	}
	return g
}

// NodeCount returns the number of (export, phase) nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// SetPublic marks both nodes of export e as public so the scheduler can
// prioritize them.
func (g *Graph) SetPublic(e packlink.ExportIndex) {
	g.nodes[ConstructNode(e)].public = true
	g.nodes[PopulateNode(e)].public = true
}

// addDep records that from waits on to. Self edges and duplicates are
// ignored.
func (g *Graph) addDep(from, to NodeID) {
	if from == to {
		return
	}
	for _, d := range g.nodes[from].deps {
		if d == to {
			return
		}
	}
	g.nodes[from].deps = append(g.nodes[from].deps, to)
	g.nodes[to].dependents = append(g.nodes[to].dependents, from)
}

// addExternal records an external arc candidate on the node. Duplicates are
// ignored.
func (g *Graph) addExternal(n NodeID, dep ExternalDep) {
	for _, d := range g.nodes[n].externals {
		if d == dep {
			return
		}
	}
	g.nodes[n].externals = append(g.nodes[n].externals, dep)
}

// refSlot names one of the fixed reference slots of an export.
type refSlot struct {
	raw format.RawRef
	// phase the external target must have reached. Owner, class and super
	// only need the target allocated; a template must be fully populated
	// before it can be copied from.
	phase packlink.Phase
}

// Build wires the export graph of one resolved package. Explicit preload
// dependencies from the cook pipeline are merged the same way as reference
// slots. External deps whose import is confirmed missing are dropped.
func Build(pkgName string, res *resolve.Resolved, deps []format.RawDependency) *Graph {
	g := New(len(res.Exports))

	for i := range res.Exports {
		e := packlink.ExportIndex(i)
		if res.Exports[i].Public() {
			g.SetPublic(e)
		}

		raw := res.Raw[i]
		slots := [4]refSlot{
			{raw.Owner, packlink.PhaseConstruct},
			{raw.Class, packlink.PhaseConstruct},
			{raw.Super, packlink.PhaseConstruct},
			{raw.Template, packlink.PhasePopulate},
		}
		for _, slot := range slots {
			// Reference slots constrain the target's construct node
			// inside the package; the slot phase only matters across
			// packages, where the runtime waits on it.
			g.wire(pkgName, res, ConstructNode(e), slot.raw, packlink.PhaseConstruct, slot.phase)
		}
	}

	for _, dep := range deps {
		from := NodeFor(packlink.ExportIndex(dep.FromExport), dep.FromPhase)
		g.wire(pkgName, res, from, dep.Target, dep.ToPhase, dep.ToPhase)
	}

	return g
}

// wire adds the edge or external arc candidate implied by a raw reference.
func (g *Graph) wire(pkgName string, res *resolve.Resolved, from NodeID, ref format.RawRef, internalPhase, externalPhase packlink.Phase) {
	switch {
	case ref.IsExport():
		target := packlink.ExportIndex(ref.ExportIndex())
		g.addDep(from, NodeFor(target, internalPhase))
	case ref.IsImport():
		idx := ref.ImportIndex()
		if idx >= len(res.Imports) {
			return
		}
		imp := res.Imports[idx]
		if imp.Ref.Kind() != packlink.RefPackageImport {
			// Script objects exist before any package loads; nothing
			// to wait on.
			return
		}
		if imp.Missing {
			Logger().Debug("dropping external dep on confirmed-missing import",
				zap.String("package", pkgName),
				zap.String("import", imp.Path))
			return
		}
		g.addExternal(from, ExternalDep{
			Package: imp.Ref.Package(),
			Export:  imp.Ref.Export(),
			Phase:   externalPhase,
		})
	}
}
