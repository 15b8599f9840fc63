package format

import (
	"github.com/pakstream/packlink"
	bin "github.com/pakstream/packlink/format/internal/binary"
)

const (
	importFlagScript  = 1 << 0
	importFlagPackage = 1 << 1
	importFlagMissing = 1 << 2
)

func writeHeader(w *bin.Writer, magic uint32) {
	w.WriteU32LE(magic)
	w.Byte(Version)
}

func writeRawRef(w *bin.Writer, ref RawRef) {
	w.WriteU32LE(uint32(int32(ref)))
}

func writeObjectRef(w *bin.Writer, ref packlink.ObjectRef) {
	w.Byte(byte(ref.Kind()))
	switch ref.Kind() {
	case packlink.RefNull:
	case packlink.RefExport:
		w.WriteU32(uint32(ref.Export()))
	case packlink.RefScriptImport:
		w.WriteU64LE(uint64(ref.Script()))
	case packlink.RefPackageImport:
		w.WriteU64LE(uint64(ref.Package()))
		w.WriteU32(uint32(ref.Export()))
	}
}

// EncodeLegacy serializes a legacy cooked package buffer. The optimizer never
// produces this layout; it exists for the cook pipeline boundary and tests.
func EncodeLegacy(pkg *LegacyPackage) []byte {
	w := bin.NewWriter()
	writeHeader(w, MagicLegacy)

	w.WriteName(pkg.Name)

	w.WriteU32(uint32(len(pkg.NameTable)))
	for _, name := range pkg.NameTable {
		w.WriteName(name)
	}

	w.WriteU32(uint32(len(pkg.Imports)))
	for _, imp := range pkg.Imports {
		w.WriteName(imp.Path)
	}

	w.WriteU32(uint32(len(pkg.Exports)))
	for _, exp := range pkg.Exports {
		w.WriteU32(exp.NameIndex)
		writeRawRef(w, exp.Owner)
		writeRawRef(w, exp.Class)
		writeRawRef(w, exp.Super)
		writeRawRef(w, exp.Template)
		w.WriteU32(uint32(exp.Flags))
		w.WriteU64(exp.SerialOffset)
		w.WriteU64(exp.SerialSize)
	}

	w.WriteU32(uint32(len(pkg.Deps)))
	for _, dep := range pkg.Deps {
		w.WriteU32(dep.FromExport)
		w.Byte(byte(dep.FromPhase))
		w.Byte(byte(dep.ToPhase))
		writeRawRef(w, dep.Target)
	}

	return w.Bytes()
}

// EncodeOptimized serializes an optimized pre-linked package buffer.
// Encoding is deterministic: the same package value always yields the same
// bytes.
func EncodeOptimized(pkg *OptimizedPackage) []byte {
	w := bin.NewWriter()
	writeHeader(w, MagicOptimized)

	w.WriteName(pkg.Name)
	w.WriteU64LE(uint64(pkg.ID))
	w.WriteU32(pkg.LoadOrder)

	w.WriteU32(uint32(len(pkg.Names)))
	for _, name := range pkg.Names {
		w.WriteName(name)
	}

	w.WriteU32(uint32(len(pkg.Imports)))
	for _, imp := range pkg.Imports {
		w.WriteName(imp.Path)
		writeObjectRef(w, imp.Ref)
		var flags byte
		if imp.IsScript() {
			flags |= importFlagScript
		}
		if imp.IsPackage() {
			flags |= importFlagPackage
		}
		if imp.Missing {
			flags |= importFlagMissing
		}
		w.Byte(flags)
	}

	nameIndex := make(map[string]uint32, len(pkg.Names))
	for i, name := range pkg.Names {
		if _, ok := nameIndex[name]; !ok {
			nameIndex[name] = uint32(i)
		}
	}
	w.WriteU32(uint32(len(pkg.Exports)))
	for _, exp := range pkg.Exports {
		w.WriteU32(nameIndex[exp.Name])
		writeObjectRef(w, exp.Owner)
		writeObjectRef(w, exp.Class)
		writeObjectRef(w, exp.Super)
		writeObjectRef(w, exp.Template)
		w.WriteU32(uint32(exp.Flags))
		w.WriteU64(exp.SerialOffset)
		w.WriteU64(exp.SerialSize)
	}

	w.WriteU32(uint32(len(pkg.Bundles)))
	for _, b := range pkg.Bundles {
		w.WriteU32(uint32(len(b.Entries)))
		for _, e := range b.Entries {
			w.WriteU32(uint32(e.Export))
			w.Byte(byte(e.Phase))
		}
	}

	w.WriteU32(uint32(len(pkg.InternalArcs)))
	for _, arc := range pkg.InternalArcs {
		w.WriteU32(arc.From)
		w.WriteU32(arc.To)
	}

	w.WriteU32(uint32(len(pkg.ExternalArcs)))
	for _, arc := range pkg.ExternalArcs {
		w.WriteU64LE(uint64(arc.DepPackage))
		w.WriteU32(uint32(arc.DepExport))
		w.Byte(byte(arc.DepPhase))
		w.WriteU32(arc.ToBundle)
	}

	w.WriteU32(uint32(len(pkg.ImportedPackages)))
	for _, id := range pkg.ImportedPackages {
		w.WriteU64LE(uint64(id))
	}

	return w.Bytes()
}

// EncodeContainer serializes a container manifest buffer.
func EncodeContainer(m *ContainerManifest) []byte {
	w := bin.NewWriter()
	writeHeader(w, MagicContainer)

	w.WriteName(m.BuildID)
	w.WriteName(m.Target)

	w.WriteU32(uint32(len(m.Entries)))
	for _, e := range m.Entries {
		w.WriteU64LE(uint64(e.ID))
		w.WriteName(e.Name)
		w.WriteU32(e.LoadOrder)
		w.WriteU32(e.SummarySize)
		w.WriteU64(e.DataSize)
		w.WriteU32(uint32(len(e.Imported)))
		for _, dep := range e.Imported {
			w.WriteU64LE(uint64(dep))
		}
	}

	return w.Bytes()
}

// EncodeScriptTable serializes the script object table buffer. Entries must
// already be ordered by hash.
func EncodeScriptTable(t *ScriptTable) []byte {
	w := bin.NewWriter()
	writeHeader(w, MagicScriptTable)

	w.WriteU32(uint32(len(t.Entries)))
	for _, e := range t.Entries {
		w.WriteU64LE(uint64(e.Hash))
		w.WriteName(e.Path)
	}

	return w.Bytes()
}
