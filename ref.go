package packlink

import "fmt"

// RefKind discriminates the variants of an ObjectRef.
type RefKind uint8

const (
	// RefNull is the absent reference.
	RefNull RefKind = iota
	// RefExport points at an export of the referencing package itself.
	RefExport
	// RefScriptImport points at a native object by its stable path hash.
	RefScriptImport
	// RefPackageImport points at an export of another package.
	RefPackageImport
)

func (k RefKind) String() string {
	switch k {
	case RefNull:
		return "null"
	case RefExport:
		return "export"
	case RefScriptImport:
		return "script"
	case RefPackageImport:
		return "package"
	default:
		return fmt.Sprintf("ref(%d)", uint8(k))
	}
}

// ObjectRef is a tagged reference to an object: null, an export of the same
// package, a native script object, or an export of another package. The two
// statically-resolvable variants (export, script) need no registry lookup at
// load time.
//
// ObjectRef is a value type and is comparable; the zero value is the null
// reference.
type ObjectRef struct {
	pkg    PackageID
	script ScriptHash
	index  ExportIndex
	kind   RefKind
}

// NullRef returns the null reference.
func NullRef() ObjectRef {
	return ObjectRef{}
}

// ExportRef returns a reference to an export of the referencing package.
func ExportRef(index ExportIndex) ObjectRef {
	return ObjectRef{kind: RefExport, index: index}
}

// ScriptRef returns a reference to a native object.
func ScriptRef(hash ScriptHash) ObjectRef {
	return ObjectRef{kind: RefScriptImport, script: hash}
}

// PackageRef returns a reference to an export of another package.
func PackageRef(pkg PackageID, index ExportIndex) ObjectRef {
	return ObjectRef{kind: RefPackageImport, pkg: pkg, index: index}
}

// Kind returns the variant tag.
func (r ObjectRef) Kind() RefKind { return r.kind }

// IsNull reports whether the reference is absent.
func (r ObjectRef) IsNull() bool { return r.kind == RefNull }

// Export returns the export index for RefExport and RefPackageImport refs.
func (r ObjectRef) Export() ExportIndex { return r.index }

// Package returns the owning package id for RefPackageImport refs.
func (r ObjectRef) Package() PackageID { return r.pkg }

// Script returns the native path hash for RefScriptImport refs.
func (r ObjectRef) Script() ScriptHash { return r.script }

func (r ObjectRef) String() string {
	switch r.kind {
	case RefNull:
		return "null"
	case RefExport:
		return fmt.Sprintf("export:%d", r.index)
	case RefScriptImport:
		return fmt.Sprintf("script:%016x", uint64(r.script))
	case RefPackageImport:
		return fmt.Sprintf("package:%016x/%d", uint64(r.pkg), r.index)
	default:
		return "invalid"
	}
}
