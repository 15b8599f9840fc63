package optimizer

import (
	"github.com/pakstream/packlink"
	"github.com/pakstream/packlink/diag"
	"github.com/pakstream/packlink/format"
	"github.com/pakstream/packlink/graph"
	"github.com/pakstream/packlink/names"
	"github.com/pakstream/packlink/resolve"
)

// Package is the per-package node mutated through the pipeline phases and
// immutable once handed to the serializer.
type Package struct {
	ID   packlink.PackageID
	Name string

	// RedirectedFrom is the superseded package name this package replaces,
	// when the build declares one.
	RedirectedFrom string

	// Missing marks a placeholder created for an unparseable buffer.
	Missing bool

	Resolved *resolve.Resolved
	Graph    *graph.Graph
	Schedule *graph.Schedule

	// ImportedPackages is the post-redirect list of direct dependency ids.
	ImportedPackages []packlink.PackageID

	// RedirectImports holds the superseded ids this package used to import
	// before redirect merging rewrote them.
	RedirectImports []packlink.PackageID

	LoadOrder uint32

	Diags diag.Diagnostics

	// rawNames is the cooked name table, kept so serialization can intern
	// lazily: only names the export map references are materialized.
	rawNames []string
	deps     []format.RawDependency
}

// Exports returns the package's resolved export table, or nil for stubs.
func (p *Package) Exports() []format.ExportEntry {
	if p.Resolved == nil {
		return nil
	}
	return p.Resolved.Exports
}

// optimized assembles the serializable form of a fully-processed package.
func (p *Package) optimized() *format.OptimizedPackage {
	out := &format.OptimizedPackage{
		Summary: format.Summary{
			Name:      p.Name,
			ID:        p.ID,
			LoadOrder: p.LoadOrder,
		},
		ImportedPackages: p.ImportedPackages,
	}
	if p.Missing || p.Resolved == nil {
		return out
	}

	table := names.NewRefTable()
	for _, name := range p.rawNames {
		table.Add(name)
	}
	for i := range p.Resolved.Exports {
		table.Intern(p.Resolved.Exports[i].Name)
	}
	out.Names = table.List()

	out.Imports = p.Resolved.Imports
	out.Exports = p.Resolved.Exports
	if p.Schedule != nil {
		out.Bundles = p.Schedule.Bundles
		out.InternalArcs = p.Schedule.InternalArcs
		out.ExternalArcs = p.Schedule.ExternalArcs
	}
	return out
}

// dataSize sums the serialized content payload of all exports.
func (p *Package) dataSize() uint64 {
	var total uint64
	for _, exp := range p.Exports() {
		total += exp.SerialSize
	}
	return total
}
