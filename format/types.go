package format

import (
	"github.com/pakstream/packlink"
)

// Buffer magics. Four ASCII bytes, written little-endian.
const (
	MagicLegacy      uint32 = 0x314C4B50 // "PKL1"
	MagicOptimized   uint32 = 0x314F4B50 // "PKO1"
	MagicContainer   uint32 = 0x31434B50 // "PKC1"
	MagicScriptTable uint32 = 0x31534B50 // "PKS1"
)

// Version is the current format version shared by all four layouts.
const Version = 1

// Kind identifies which layout a buffer carries.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindLegacy
	KindOptimized
	KindContainer
	KindScriptTable
)

func (k Kind) String() string {
	switch k {
	case KindLegacy:
		return "legacy"
	case KindOptimized:
		return "optimized"
	case KindContainer:
		return "container"
	case KindScriptTable:
		return "script-table"
	default:
		return "unknown"
	}
}

// RawRef is a legacy index-based reference: zero is null, a positive value n
// points at export n-1 of the same package, a negative value -n points at
// import n-1.
type RawRef int32

// NullRawRef is the absent legacy reference.
const NullRawRef RawRef = 0

// RawExportRef builds a legacy reference to export index i.
func RawExportRef(i int) RawRef { return RawRef(i + 1) }

// RawImportRef builds a legacy reference to import index i.
func RawImportRef(i int) RawRef { return RawRef(-(i + 1)) }

// IsExport reports whether the reference points into the export table.
func (r RawRef) IsExport() bool { return r > 0 }

// IsImport reports whether the reference points into the import table.
func (r RawRef) IsImport() bool { return r < 0 }

// ExportIndex returns the export table index for an export reference.
func (r RawRef) ExportIndex() int { return int(r) - 1 }

// ImportIndex returns the import table index for an import reference.
func (r RawRef) ImportIndex() int { return int(-r) - 1 }

// RawImport is an unresolved import: the full path of the referenced object.
type RawImport struct {
	Path string
}

// ExportFlags carry per-export metadata bits.
type ExportFlags uint32

const (
	// ExportPublic marks an export reachable from outside its package.
	ExportPublic ExportFlags = 1 << 0
	// ExportFiltered marks an export excluded on some build targets.
	ExportFiltered ExportFlags = 1 << 1
)

// RawExport is an export record as cooked: name by table index, references in
// legacy form, and the location of the serialized content payload.
type RawExport struct {
	NameIndex    uint32
	Owner        RawRef
	Class        RawRef
	Super        RawRef
	Template     RawRef
	Flags        ExportFlags
	SerialOffset uint64
	SerialSize   uint64
}

// RawDependency is an explicit preload edge from the cook pipeline: the
// export's FromPhase cannot run until Target has reached ToPhase.
type RawDependency struct {
	FromExport uint32
	FromPhase  packlink.Phase
	ToPhase    packlink.Phase
	Target     RawRef
}

// LegacyPackage is the decoded legacy cooked layout.
type LegacyPackage struct {
	Name      string
	NameTable []string
	Imports   []RawImport
	Exports   []RawExport
	Deps      []RawDependency
}

// ImportEntry is a resolved import: the original path kept for diagnostics,
// the resolved reference, and whether the target was confirmed missing from
// the package set.
type ImportEntry struct {
	Path    string
	Ref     packlink.ObjectRef
	Missing bool
}

// IsScript reports whether the import resolved to a native object.
func (e ImportEntry) IsScript() bool { return e.Ref.Kind() == packlink.RefScriptImport }

// IsPackage reports whether the import resolved to another package's export.
func (e ImportEntry) IsPackage() bool { return e.Ref.Kind() == packlink.RefPackageImport }

// ExportEntry is a fully resolved export record.
type ExportEntry struct {
	Name         string
	Owner        packlink.ObjectRef
	Class        packlink.ObjectRef
	Super        packlink.ObjectRef
	Template     packlink.ObjectRef
	Flags        ExportFlags
	SerialOffset uint64
	SerialSize   uint64
}

// Public reports whether the export is reachable from outside its package.
func (e ExportEntry) Public() bool { return e.Flags&ExportPublic != 0 }

// BundleEntry is one step of an export bundle: run Phase of Export.
type BundleEntry struct {
	Export packlink.ExportIndex
	Phase  packlink.Phase
}

// Bundle is an ordered execution list the loader runs sequentially.
type Bundle struct {
	Entries []BundleEntry
}

// InternalArc records that bundle position From must execute before position
// To within the same package.
type InternalArc struct {
	From uint32
	To   uint32
}

// ExternalArc records that the bundle at ToBundle cannot start until DepPhase
// of DepExport in DepPackage has run.
type ExternalArc struct {
	DepPackage packlink.PackageID
	DepExport  packlink.ExportIndex
	DepPhase   packlink.Phase
	ToBundle   uint32
}

// Less orders arcs by dependency package, export, phase, then bundle.
func (a ExternalArc) Less(b ExternalArc) bool {
	if a.DepPackage != b.DepPackage {
		return a.DepPackage < b.DepPackage
	}
	if a.DepExport != b.DepExport {
		return a.DepExport < b.DepExport
	}
	if a.DepPhase != b.DepPhase {
		return a.DepPhase < b.DepPhase
	}
	return a.ToBundle < b.ToBundle
}

// Summary is the compact per-package header of the optimized layout.
type Summary struct {
	Name      string
	ID        packlink.PackageID
	LoadOrder uint32
}

// OptimizedPackage is the decoded (or to-be-encoded) pre-linked layout.
type OptimizedPackage struct {
	Summary
	Names            []string
	Imports          []ImportEntry
	Exports          []ExportEntry
	Bundles          []Bundle
	InternalArcs     []InternalArc
	ExternalArcs     []ExternalArc
	ImportedPackages []packlink.PackageID
}

// ManifestEntry describes one package inside a container.
type ManifestEntry struct {
	ID          packlink.PackageID
	Name        string
	LoadOrder   uint32
	SummarySize uint32
	DataSize    uint64
	Imported    []packlink.PackageID
}

// ContainerManifest aggregates the manifest entries of one deployable content
// unit. Entries are ordered by load-order rank.
type ContainerManifest struct {
	BuildID string
	Target  string
	Entries []ManifestEntry
}

// ScriptEntry maps one native object path to its stable hash.
type ScriptEntry struct {
	Hash packlink.ScriptHash
	Path string
}

// ScriptTable is the process-wide table of native objects, ordered by hash.
type ScriptTable struct {
	Entries []ScriptEntry
}
