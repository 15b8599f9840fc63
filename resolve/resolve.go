package resolve

import (
	"sort"
	"strings"

	"github.com/pakstream/packlink"
	"github.com/pakstream/packlink/diag"
	"github.com/pakstream/packlink/format"
)

// Resolved carries one package's reference resolution results between the
// local pass and the global fixup.
type Resolved struct {
	// Imports has the resolved reference per raw import. Package import
	// refs carry their owning package id after Local; their export index
	// is filled in by Fixup.
	Imports []format.ImportEntry

	// Objects holds the target object name of each package import, used
	// by Fixup to find the export index. Empty for script imports.
	Objects []string

	// Exports has owner/class/super/template resolved to tagged refs.
	Exports []format.ExportEntry

	// Raw keeps the legacy export records so later passes can tell which
	// resolved refs came through the import table.
	Raw []format.RawExport

	// ImportedPackages lists the distinct owning package ids of all
	// package imports, sorted for determinism.
	ImportedPackages []packlink.PackageID
}

// SplitObjectPath separates a full object path into its owning package name
// and the object path within that package ("/Game/Props/Crate.Mesh:Sub" ->
// "/Game/Props/Crate", "Mesh:Sub").
func SplitObjectPath(path string) (pkg, object string) {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return path, ""
}

// objectLeaf returns the last segment of a subobject chain ("Mesh:Sub" ->
// "Sub", "Mesh" -> "Mesh").
func objectLeaf(object string) string {
	if i := strings.LastIndexByte(object, ':'); i >= 0 {
		return object[i+1:]
	}
	return object
}

// IsScriptPath reports whether path names a native object.
func IsScriptPath(path string) bool {
	return len(path) >= len(ScriptPrefix) &&
		strings.EqualFold(path[:len(ScriptPrefix)], ScriptPrefix)
}

// Local resolves one package's raw references. It is pure apart from appends
// to the shared script table and safe to run concurrently across packages.
// Returned diagnostics record script hash collisions; the build continues
// with the first-seen mapping.
func Local(pkg *format.LegacyPackage, scripts *ScriptTable) (*Resolved, diag.Diagnostics) {
	res := &Resolved{
		Imports: make([]format.ImportEntry, 0, len(pkg.Imports)),
		Objects: make([]string, 0, len(pkg.Imports)),
	}
	var diags diag.Diagnostics

	seen := make(map[packlink.PackageID]struct{})
	for _, imp := range pkg.Imports {
		entry := format.ImportEntry{Path: imp.Path}
		object := ""
		if IsScriptPath(imp.Path) {
			hash, collided := scripts.Add(imp.Path)
			entry.Ref = packlink.ScriptRef(hash)
			if collided {
				diags.Add(diag.New(diag.PhaseResolve, diag.KindHashCollision).
					Warning().
					Package(pkg.Name).
					Object(imp.Path).
					Detail("path hash collides with an earlier script path; first-seen mapping kept").
					Build())
			}
		} else {
			pkgName, objPath := SplitObjectPath(imp.Path)
			id := packlink.PackageIDFromName(pkgName)
			entry.Ref = packlink.PackageRef(id, 0)
			object = objectLeaf(objPath)
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				res.ImportedPackages = append(res.ImportedPackages, id)
			}
		}
		res.Imports = append(res.Imports, entry)
		res.Objects = append(res.Objects, object)
	}
	sort.Slice(res.ImportedPackages, func(i, j int) bool {
		return res.ImportedPackages[i] < res.ImportedPackages[j]
	})

	res.Exports = make([]format.ExportEntry, 0, len(pkg.Exports))
	for _, exp := range pkg.Exports {
		entry := format.ExportEntry{
			Name:         pkg.NameTable[exp.NameIndex],
			Owner:        res.resolveRaw(exp.Owner),
			Class:        res.resolveRaw(exp.Class),
			Super:        res.resolveRaw(exp.Super),
			Template:     res.resolveRaw(exp.Template),
			Flags:        exp.Flags,
			SerialOffset: exp.SerialOffset,
			SerialSize:   exp.SerialSize,
		}
		res.Exports = append(res.Exports, entry)
	}
	res.Raw = append(res.Raw, pkg.Exports...)

	return res, diags
}

// resolveRaw maps a legacy reference through the resolved import table.
func (res *Resolved) resolveRaw(ref format.RawRef) packlink.ObjectRef {
	switch {
	case ref.IsExport():
		return packlink.ExportRef(packlink.ExportIndex(ref.ExportIndex()))
	case ref.IsImport():
		idx := ref.ImportIndex()
		if idx >= len(res.Imports) {
			return packlink.NullRef()
		}
		return res.Imports[idx].Ref
	default:
		return packlink.NullRef()
	}
}

// ExportLookup returns the export table of a package by id, or nil when the
// id is not in the package set.
type ExportLookup func(packlink.PackageID) []format.ExportEntry

// Fixup fills in the export index of every package import and marks targets
// that cannot be found anywhere as confirmed missing. It needs a read view of
// every package's export table and runs after the parse barrier. Returned
// diagnostics are warnings; missing targets never fail the pass.
func Fixup(pkgName string, res *Resolved, lookup ExportLookup) diag.Diagnostics {
	var diags diag.Diagnostics

	for i := range res.Imports {
		imp := &res.Imports[i]
		if imp.Ref.Kind() != packlink.RefPackageImport {
			continue
		}

		exports := lookup(imp.Ref.Package())
		if exports == nil {
			imp.Missing = true
			diags.Add(diag.New(diag.PhaseResolve, diag.KindMissingImport).
				Warning().
				Package(pkgName).
				Object(imp.Path).
				Detail("target package not in package set").
				Build())
			continue
		}

		found := false
		for idx, exp := range exports {
			if strings.EqualFold(exp.Name, res.Objects[i]) {
				imp.Ref = packlink.PackageRef(imp.Ref.Package(), packlink.ExportIndex(idx))
				found = true
				break
			}
		}
		if !found {
			imp.Missing = true
			diags.Add(diag.New(diag.PhaseResolve, diag.KindMissingImport).
				Warning().
				Package(pkgName).
				Object(imp.Path).
				Detail("no export %q in target package", res.Objects[i]).
				Build())
		}
	}

	// Export references resolved through the import table before Fixup
	// still carry a pending export index; rewrite them from the raw
	// records now that the import table is final.
	for i := range res.Exports {
		exp := &res.Exports[i]
		raw := res.Raw[i]
		slots := [4]struct {
			raw format.RawRef
			ref *packlink.ObjectRef
		}{
			{raw.Owner, &exp.Owner},
			{raw.Class, &exp.Class},
			{raw.Super, &exp.Super},
			{raw.Template, &exp.Template},
		}
		for _, s := range slots {
			if s.raw.IsImport() && s.raw.ImportIndex() < len(res.Imports) {
				*s.ref = res.Imports[s.raw.ImportIndex()].Ref
			}
		}
	}

	return diags
}
