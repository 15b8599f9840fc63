package format

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pakstream/packlink"
	bin "github.com/pakstream/packlink/format/internal/binary"
)

// ErrBadMagic is returned when a buffer does not start with the expected magic.
var ErrBadMagic = errors.New("format: unrecognized magic")

// ErrBadVersion is returned when a buffer's format version is unsupported.
var ErrBadVersion = errors.New("format: unsupported version")

// ErrBadCount is returned when a table count cannot fit in the buffer.
var ErrBadCount = errors.New("format: table count exceeds buffer size")

// ErrBadRef is returned when a reference slot points outside its table.
var ErrBadRef = errors.New("format: reference out of range")

// checkRawRef validates a legacy reference against the declared table sizes.
// Forward export references are legal; references past either table are not.
func checkRawRef(ref RawRef, exports, imports int) error {
	switch {
	case ref.IsExport() && ref.ExportIndex() >= exports:
		return fmt.Errorf("%w: export %d of %d", ErrBadRef, ref.ExportIndex(), exports)
	case ref.IsImport() && ref.ImportIndex() >= imports:
		return fmt.Errorf("%w: import %d of %d", ErrBadRef, ref.ImportIndex(), imports)
	}
	return nil
}

// Detect inspects the magic of data without decoding the rest.
func Detect(data []byte) Kind {
	if len(data) < 4 {
		return KindUnknown
	}
	switch binary.LittleEndian.Uint32(data) {
	case MagicLegacy:
		return KindLegacy
	case MagicOptimized:
		return KindOptimized
	case MagicContainer:
		return KindContainer
	case MagicScriptTable:
		return KindScriptTable
	default:
		return KindUnknown
	}
}

func readHeader(r *bin.Reader, want uint32) error {
	magic, err := r.ReadU32LE()
	if err != nil {
		return r.WrapError("header", err)
	}
	if magic != want {
		return r.WrapError("header", fmt.Errorf("%w: %08x", ErrBadMagic, magic))
	}
	version, err := r.ReadByte()
	if err != nil {
		return r.WrapError("header", err)
	}
	if version != Version {
		return r.WrapError("header", fmt.Errorf("%w: %d", ErrBadVersion, version))
	}
	return nil
}

// readCount reads a table count and rejects counts that cannot possibly fit
// in the remaining buffer, where each record is at least minRecord bytes.
func readCount(r *bin.Reader, section string, minRecord int) (int, error) {
	n, err := r.ReadU32()
	if err != nil {
		return 0, r.WrapError(section, err)
	}
	if int(n)*minRecord > r.Remaining() {
		return 0, r.WrapError(section, fmt.Errorf("%w: %d records, %d bytes left", ErrBadCount, n, r.Remaining()))
	}
	return int(n), nil
}

func readRawRef(r *bin.Reader) (RawRef, error) {
	v, err := r.ReadU32LE()
	if err != nil {
		return 0, err
	}
	return RawRef(int32(v)), nil
}

func readObjectRef(r *bin.Reader) (packlink.ObjectRef, error) {
	kind, err := r.ReadByte()
	if err != nil {
		return packlink.NullRef(), err
	}
	switch packlink.RefKind(kind) {
	case packlink.RefNull:
		return packlink.NullRef(), nil
	case packlink.RefExport:
		idx, err := r.ReadU32()
		if err != nil {
			return packlink.NullRef(), err
		}
		return packlink.ExportRef(packlink.ExportIndex(idx)), nil
	case packlink.RefScriptImport:
		hash, err := r.ReadU64LE()
		if err != nil {
			return packlink.NullRef(), err
		}
		return packlink.ScriptRef(packlink.ScriptHash(hash)), nil
	case packlink.RefPackageImport:
		pkg, err := r.ReadU64LE()
		if err != nil {
			return packlink.NullRef(), err
		}
		idx, err := r.ReadU32()
		if err != nil {
			return packlink.NullRef(), err
		}
		return packlink.PackageRef(packlink.PackageID(pkg), packlink.ExportIndex(idx)), nil
	default:
		return packlink.NullRef(), fmt.Errorf("invalid reference kind %d", kind)
	}
}

// DecodeLegacy parses a legacy cooked package buffer.
func DecodeLegacy(data []byte) (*LegacyPackage, error) {
	r := bin.NewReader(data)
	if err := readHeader(r, MagicLegacy); err != nil {
		return nil, err
	}

	pkg := &LegacyPackage{}
	var err error
	if pkg.Name, err = r.ReadName(); err != nil {
		return nil, r.WrapError("package name", err)
	}

	nameCount, err := readCount(r, "name table", 1)
	if err != nil {
		return nil, err
	}
	pkg.NameTable = make([]string, 0, nameCount)
	for i := 0; i < nameCount; i++ {
		name, err := r.ReadName()
		if err != nil {
			return nil, r.WrapError("name table", err)
		}
		pkg.NameTable = append(pkg.NameTable, name)
	}

	importCount, err := readCount(r, "import table", 1)
	if err != nil {
		return nil, err
	}
	pkg.Imports = make([]RawImport, 0, importCount)
	for i := 0; i < importCount; i++ {
		path, err := r.ReadName()
		if err != nil {
			return nil, r.WrapError("import table", err)
		}
		pkg.Imports = append(pkg.Imports, RawImport{Path: path})
	}

	exportCount, err := readCount(r, "export table", 20)
	if err != nil {
		return nil, err
	}
	pkg.Exports = make([]RawExport, 0, exportCount)
	for i := 0; i < exportCount; i++ {
		var exp RawExport
		nameIdx, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("export table", err)
		}
		if int(nameIdx) >= len(pkg.NameTable) {
			return nil, r.WrapError("export table",
				fmt.Errorf("name index %d out of range (%d names)", nameIdx, len(pkg.NameTable)))
		}
		exp.NameIndex = nameIdx
		for _, ref := range []*RawRef{&exp.Owner, &exp.Class, &exp.Super, &exp.Template} {
			if *ref, err = readRawRef(r); err != nil {
				return nil, r.WrapError("export table", err)
			}
			if err = checkRawRef(*ref, exportCount, len(pkg.Imports)); err != nil {
				return nil, r.WrapError("export table", err)
			}
		}
		flags, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("export table", err)
		}
		exp.Flags = ExportFlags(flags)
		if exp.SerialOffset, err = r.ReadU64(); err != nil {
			return nil, r.WrapError("export table", err)
		}
		if exp.SerialSize, err = r.ReadU64(); err != nil {
			return nil, r.WrapError("export table", err)
		}
		pkg.Exports = append(pkg.Exports, exp)
	}

	depCount, err := readCount(r, "dependency list", 7)
	if err != nil {
		return nil, err
	}
	pkg.Deps = make([]RawDependency, 0, depCount)
	for i := 0; i < depCount; i++ {
		var dep RawDependency
		if dep.FromExport, err = r.ReadU32(); err != nil {
			return nil, r.WrapError("dependency list", err)
		}
		if int(dep.FromExport) >= len(pkg.Exports) {
			return nil, r.WrapError("dependency list",
				fmt.Errorf("export index %d out of range (%d exports)", dep.FromExport, len(pkg.Exports)))
		}
		from, err := r.ReadByte()
		if err != nil {
			return nil, r.WrapError("dependency list", err)
		}
		to, err := r.ReadByte()
		if err != nil {
			return nil, r.WrapError("dependency list", err)
		}
		dep.FromPhase, dep.ToPhase = packlink.Phase(from), packlink.Phase(to)
		if dep.Target, err = readRawRef(r); err != nil {
			return nil, r.WrapError("dependency list", err)
		}
		if err = checkRawRef(dep.Target, len(pkg.Exports), len(pkg.Imports)); err != nil {
			return nil, r.WrapError("dependency list", err)
		}
		pkg.Deps = append(pkg.Deps, dep)
	}

	return pkg, nil
}

// DecodeOptimized parses an optimized pre-linked package buffer.
func DecodeOptimized(data []byte) (*OptimizedPackage, error) {
	r := bin.NewReader(data)
	if err := readHeader(r, MagicOptimized); err != nil {
		return nil, err
	}

	pkg := &OptimizedPackage{}
	var err error
	if pkg.Name, err = r.ReadName(); err != nil {
		return nil, r.WrapError("summary", err)
	}
	id, err := r.ReadU64LE()
	if err != nil {
		return nil, r.WrapError("summary", err)
	}
	pkg.ID = packlink.PackageID(id)
	rank, err := r.ReadU32()
	if err != nil {
		return nil, r.WrapError("summary", err)
	}
	pkg.LoadOrder = rank

	nameCount, err := readCount(r, "name table", 1)
	if err != nil {
		return nil, err
	}
	pkg.Names = make([]string, 0, nameCount)
	for i := 0; i < nameCount; i++ {
		name, err := r.ReadName()
		if err != nil {
			return nil, r.WrapError("name table", err)
		}
		pkg.Names = append(pkg.Names, name)
	}

	importCount, err := readCount(r, "import table", 3)
	if err != nil {
		return nil, err
	}
	pkg.Imports = make([]ImportEntry, 0, importCount)
	for i := 0; i < importCount; i++ {
		var imp ImportEntry
		if imp.Path, err = r.ReadName(); err != nil {
			return nil, r.WrapError("import table", err)
		}
		if imp.Ref, err = readObjectRef(r); err != nil {
			return nil, r.WrapError("import table", err)
		}
		flags, err := r.ReadByte()
		if err != nil {
			return nil, r.WrapError("import table", err)
		}
		imp.Missing = flags&importFlagMissing != 0
		pkg.Imports = append(pkg.Imports, imp)
	}

	exportCount, err := readCount(r, "export map", 8)
	if err != nil {
		return nil, err
	}
	pkg.Exports = make([]ExportEntry, 0, exportCount)
	for i := 0; i < exportCount; i++ {
		var exp ExportEntry
		nameIdx, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("export map", err)
		}
		if int(nameIdx) >= len(pkg.Names) {
			return nil, r.WrapError("export map",
				fmt.Errorf("name index %d out of range (%d names)", nameIdx, len(pkg.Names)))
		}
		exp.Name = pkg.Names[nameIdx]
		for _, ref := range []*packlink.ObjectRef{&exp.Owner, &exp.Class, &exp.Super, &exp.Template} {
			if *ref, err = readObjectRef(r); err != nil {
				return nil, r.WrapError("export map", err)
			}
			if ref.Kind() == packlink.RefExport && int(ref.Export()) >= exportCount {
				return nil, r.WrapError("export map",
					fmt.Errorf("%w: export %d of %d", ErrBadRef, ref.Export(), exportCount))
			}
		}
		flags, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("export map", err)
		}
		exp.Flags = ExportFlags(flags)
		if exp.SerialOffset, err = r.ReadU64(); err != nil {
			return nil, r.WrapError("export map", err)
		}
		if exp.SerialSize, err = r.ReadU64(); err != nil {
			return nil, r.WrapError("export map", err)
		}
		pkg.Exports = append(pkg.Exports, exp)
	}

	bundleCount, err := readCount(r, "bundle headers", 1)
	if err != nil {
		return nil, err
	}
	pkg.Bundles = make([]Bundle, 0, bundleCount)
	for i := 0; i < bundleCount; i++ {
		entryCount, err := readCount(r, "bundle entries", 2)
		if err != nil {
			return nil, err
		}
		b := Bundle{Entries: make([]BundleEntry, 0, entryCount)}
		for j := 0; j < entryCount; j++ {
			idx, err := r.ReadU32()
			if err != nil {
				return nil, r.WrapError("bundle entries", err)
			}
			if int(idx) >= len(pkg.Exports) {
				return nil, r.WrapError("bundle entries",
					fmt.Errorf("export index %d out of range (%d exports)", idx, len(pkg.Exports)))
			}
			phase, err := r.ReadByte()
			if err != nil {
				return nil, r.WrapError("bundle entries", err)
			}
			b.Entries = append(b.Entries, BundleEntry{
				Export: packlink.ExportIndex(idx),
				Phase:  packlink.Phase(phase),
			})
		}
		pkg.Bundles = append(pkg.Bundles, b)
	}

	internalCount, err := readCount(r, "internal arcs", 2)
	if err != nil {
		return nil, err
	}
	pkg.InternalArcs = make([]InternalArc, 0, internalCount)
	for i := 0; i < internalCount; i++ {
		from, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("internal arcs", err)
		}
		to, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("internal arcs", err)
		}
		pkg.InternalArcs = append(pkg.InternalArcs, InternalArc{From: from, To: to})
	}

	externalCount, err := readCount(r, "external arcs", 11)
	if err != nil {
		return nil, err
	}
	pkg.ExternalArcs = make([]ExternalArc, 0, externalCount)
	for i := 0; i < externalCount; i++ {
		var arc ExternalArc
		dep, err := r.ReadU64LE()
		if err != nil {
			return nil, r.WrapError("external arcs", err)
		}
		arc.DepPackage = packlink.PackageID(dep)
		idx, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("external arcs", err)
		}
		arc.DepExport = packlink.ExportIndex(idx)
		phase, err := r.ReadByte()
		if err != nil {
			return nil, r.WrapError("external arcs", err)
		}
		arc.DepPhase = packlink.Phase(phase)
		if arc.ToBundle, err = r.ReadU32(); err != nil {
			return nil, r.WrapError("external arcs", err)
		}
		pkg.ExternalArcs = append(pkg.ExternalArcs, arc)
	}

	importedCount, err := readCount(r, "imported packages", 8)
	if err != nil {
		return nil, err
	}
	pkg.ImportedPackages = make([]packlink.PackageID, 0, importedCount)
	for i := 0; i < importedCount; i++ {
		id, err := r.ReadU64LE()
		if err != nil {
			return nil, r.WrapError("imported packages", err)
		}
		pkg.ImportedPackages = append(pkg.ImportedPackages, packlink.PackageID(id))
	}

	return pkg, nil
}

// DecodeContainer parses a container manifest buffer.
func DecodeContainer(data []byte) (*ContainerManifest, error) {
	r := bin.NewReader(data)
	if err := readHeader(r, MagicContainer); err != nil {
		return nil, err
	}

	m := &ContainerManifest{}
	var err error
	if m.BuildID, err = r.ReadName(); err != nil {
		return nil, r.WrapError("manifest header", err)
	}
	if m.Target, err = r.ReadName(); err != nil {
		return nil, r.WrapError("manifest header", err)
	}

	entryCount, err := readCount(r, "manifest entries", 13)
	if err != nil {
		return nil, err
	}
	m.Entries = make([]ManifestEntry, 0, entryCount)
	for i := 0; i < entryCount; i++ {
		var e ManifestEntry
		id, err := r.ReadU64LE()
		if err != nil {
			return nil, r.WrapError("manifest entries", err)
		}
		e.ID = packlink.PackageID(id)
		if e.Name, err = r.ReadName(); err != nil {
			return nil, r.WrapError("manifest entries", err)
		}
		if e.LoadOrder, err = r.ReadU32(); err != nil {
			return nil, r.WrapError("manifest entries", err)
		}
		if e.SummarySize, err = r.ReadU32(); err != nil {
			return nil, r.WrapError("manifest entries", err)
		}
		if e.DataSize, err = r.ReadU64(); err != nil {
			return nil, r.WrapError("manifest entries", err)
		}
		importedCount, err := readCount(r, "manifest imports", 8)
		if err != nil {
			return nil, err
		}
		e.Imported = make([]packlink.PackageID, 0, importedCount)
		for j := 0; j < importedCount; j++ {
			dep, err := r.ReadU64LE()
			if err != nil {
				return nil, r.WrapError("manifest imports", err)
			}
			e.Imported = append(e.Imported, packlink.PackageID(dep))
		}
		m.Entries = append(m.Entries, e)
	}

	return m, nil
}

// DecodeScriptTable parses a script object table buffer.
func DecodeScriptTable(data []byte) (*ScriptTable, error) {
	r := bin.NewReader(data)
	if err := readHeader(r, MagicScriptTable); err != nil {
		return nil, err
	}

	count, err := readCount(r, "script entries", 9)
	if err != nil {
		return nil, err
	}
	t := &ScriptTable{Entries: make([]ScriptEntry, 0, count)}
	for i := 0; i < count; i++ {
		hash, err := r.ReadU64LE()
		if err != nil {
			return nil, r.WrapError("script entries", err)
		}
		path, err := r.ReadName()
		if err != nil {
			return nil, r.WrapError("script entries", err)
		}
		t.Entries = append(t.Entries, ScriptEntry{Hash: packlink.ScriptHash(hash), Path: path})
	}

	return t, nil
}
