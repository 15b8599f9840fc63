// Package redirect merges a superseded package's import surface into its
// replacement, rewriting references on every importer.
//
// A merge is verified when every export the importer actually uses exists in
// the replacement by name and class; otherwise it falls back to a positional
// unverified merge with a warning. Cook pipelines must still produce output
// for partially-incompatible redirects, so a shape mismatch is never a hard
// failure.
package redirect

import (
	"strings"

	"go.uber.org/zap"

	"github.com/pakstream/packlink"
	"github.com/pakstream/packlink/diag"
	"github.com/pakstream/packlink/format"
)

// Map maps a superseded package name to its replacement package name.
type Map map[string]string

// Surface is the export surface of one package as seen by redirect
// verification.
type Surface struct {
	ID      packlink.PackageID
	Name    string
	Exports []format.ExportEntry
}

// Merge rewrites the references of one importer from the old surface to its
// replacement. imports is mutated in place. The returned remap records every
// rewritten reference (a null value means the target has no equivalent and
// dependents should drop it) so the caller can rewrite export refs and arcs
// the same way. The boolean reports whether the merge was verified.
//
// Applying the same merge twice is a no-op: after the first pass no import
// references the old package.
func Merge(importer string, imports []format.ImportEntry, from, to Surface) (map[packlink.ObjectRef]packlink.ObjectRef, bool, diag.Diagnostics) {
	var diags diag.Diagnostics
	remap := make(map[packlink.ObjectRef]packlink.ObjectRef)

	used := usedIndices(imports, from.ID)
	if len(used) == 0 {
		return remap, true, nil
	}

	verified := true
	matched := make(map[packlink.ExportIndex]packlink.ExportIndex, len(used))
	for _, idx := range used {
		if int(idx) >= len(from.Exports) {
			verified = false
			break
		}
		want := from.Exports[idx]
		found := false
		for newIdx, exp := range to.Exports {
			if strings.EqualFold(exp.Name, want.Name) && classCompatible(want.Class, exp.Class) {
				matched[idx] = packlink.ExportIndex(newIdx)
				found = true
				break
			}
		}
		if !found {
			verified = false
			break
		}
	}

	if !verified {
		Logger().Warn("redirect surface mismatch, falling back to unverified merge",
			zap.String("importer", importer),
			zap.String("from", from.Name),
			zap.String("to", to.Name))
		diags.Add(diag.New(diag.PhaseRedirect, diag.KindRedirectShape).
			Warning().
			Package(importer).
			Detail("export surface of %s does not cover references to %s; merged positionally",
				to.Name, from.Name).
			Build())
	}

	for i := range imports {
		imp := &imports[i]
		ref := imp.Ref
		if ref.Kind() != packlink.RefPackageImport || ref.Package() != from.ID {
			continue
		}

		var newRef packlink.ObjectRef
		if verified {
			newRef = packlink.PackageRef(to.ID, matched[ref.Export()])
		} else if int(ref.Export()) < len(to.Exports) {
			// Positional best effort: keep the index.
			newRef = packlink.PackageRef(to.ID, ref.Export())
		} else {
			newRef = packlink.NullRef()
			imp.Missing = true
		}

		remap[ref] = newRef
		if !newRef.IsNull() {
			imp.Ref = newRef
			imp.Missing = false
		}
	}

	return remap, verified, diags
}

// usedIndices collects the distinct export indices of pkg referenced by the
// import list, in first-use order.
func usedIndices(imports []format.ImportEntry, pkg packlink.PackageID) []packlink.ExportIndex {
	var out []packlink.ExportIndex
	seen := make(map[packlink.ExportIndex]struct{})
	for _, imp := range imports {
		ref := imp.Ref
		if ref.Kind() != packlink.RefPackageImport || ref.Package() != pkg {
			continue
		}
		if _, ok := seen[ref.Export()]; !ok {
			seen[ref.Export()] = struct{}{}
			out = append(out, ref.Export())
		}
	}
	return out
}

// classCompatible reports whether two class references describe the same
// type. Script classes compare by stable hash; anything else is accepted,
// since cross-package class identity cannot be checked without loading.
func classCompatible(a, b packlink.ObjectRef) bool {
	if a.Kind() == packlink.RefScriptImport && b.Kind() == packlink.RefScriptImport {
		return a == b
	}
	return true
}
