package format

import (
	"fmt"
	"strings"
)

// Dump renders a deterministic text description of the package, used by the
// inspect tooling and golden tests.
func (pkg *OptimizedPackage) Dump() string {
	var b strings.Builder

	fmt.Fprintf(&b, "package %s id=%016x rank=%d\n", pkg.Name, uint64(pkg.ID), pkg.LoadOrder)

	fmt.Fprintf(&b, "names (%d):\n", len(pkg.Names))
	for i, name := range pkg.Names {
		fmt.Fprintf(&b, "  %d: %s\n", i, name)
	}

	fmt.Fprintf(&b, "imports (%d):\n", len(pkg.Imports))
	for i, imp := range pkg.Imports {
		fmt.Fprintf(&b, "  %d: %s -> %s", i, imp.Path, imp.Ref)
		if imp.Missing {
			b.WriteString(" [missing]")
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "exports (%d):\n", len(pkg.Exports))
	for i, exp := range pkg.Exports {
		fmt.Fprintf(&b, "  %d: %s owner=%s class=%s super=%s template=%s flags=%d size=%d\n",
			i, exp.Name, exp.Owner, exp.Class, exp.Super, exp.Template, exp.Flags, exp.SerialSize)
	}

	for i, bundle := range pkg.Bundles {
		fmt.Fprintf(&b, "bundle %d (%d):\n", i, len(bundle.Entries))
		for j, e := range bundle.Entries {
			fmt.Fprintf(&b, "  %d: %s %d\n", j, e.Phase, e.Export)
		}
	}

	fmt.Fprintf(&b, "internal arcs (%d):\n", len(pkg.InternalArcs))
	for _, arc := range pkg.InternalArcs {
		fmt.Fprintf(&b, "  %d -> %d\n", arc.From, arc.To)
	}

	fmt.Fprintf(&b, "external arcs (%d):\n", len(pkg.ExternalArcs))
	for _, arc := range pkg.ExternalArcs {
		fmt.Fprintf(&b, "  bundle %d <- %016x/%d %s\n",
			arc.ToBundle, uint64(arc.DepPackage), arc.DepExport, arc.DepPhase)
	}

	fmt.Fprintf(&b, "imported packages (%d):\n", len(pkg.ImportedPackages))
	for _, id := range pkg.ImportedPackages {
		fmt.Fprintf(&b, "  %016x\n", uint64(id))
	}

	return b.String()
}

// Dump renders a deterministic text description of the manifest.
func (m *ContainerManifest) Dump() string {
	var b strings.Builder

	fmt.Fprintf(&b, "container build=%s target=%s\n", m.BuildID, m.Target)
	fmt.Fprintf(&b, "entries (%d):\n", len(m.Entries))
	for _, e := range m.Entries {
		fmt.Fprintf(&b, "  %016x %s rank=%d summary=%dB data=%dB imports=%d\n",
			uint64(e.ID), e.Name, e.LoadOrder, e.SummarySize, e.DataSize, len(e.Imported))
	}

	return b.String()
}
