package optimizer

import (
	"errors"

	"github.com/pakstream/packlink"
	"github.com/pakstream/packlink/diag"
	"github.com/pakstream/packlink/format"
	"github.com/pakstream/packlink/resolve"
)

// parseInput decodes one input buffer and runs local resolution. Parse
// failures produce a missing-package stub instead of an error so the global
// passes still have a node for this package.
func (o *Optimizer) parseInput(in Input) *Package {
	switch format.Detect(in.Data) {
	case format.KindLegacy:
		legacy, err := format.DecodeLegacy(in.Data)
		if err != nil {
			return o.stub(in, diag.New(diag.PhaseParse, decodeKind(err)).
				Package(in.Name).
				Cause(err).
				Build())
		}
		return o.fromLegacy(in, legacy)

	case format.KindOptimized:
		opt, err := format.DecodeOptimized(in.Data)
		if err != nil {
			return o.stub(in, diag.New(diag.PhaseParse, decodeKind(err)).
				Package(in.Name).
				Cause(err).
				Build())
		}
		return o.fromOptimized(in, opt)

	default:
		return o.stub(in, diag.New(diag.PhaseParse, diag.KindBadVersion).
			Package(in.Name).
			Detail("buffer is neither a legacy nor an optimized package").
			Build())
	}
}

// decodeKind maps a decode failure onto the diagnostic taxonomy.
func decodeKind(err error) diag.Kind {
	switch {
	case errors.Is(err, format.ErrBadCount):
		return diag.KindBadCount
	case errors.Is(err, format.ErrBadMagic), errors.Is(err, format.ErrBadVersion):
		return diag.KindBadVersion
	case errors.Is(err, format.ErrBadRef):
		return diag.KindInvalidData
	default:
		return diag.KindTruncated
	}
}

func (o *Optimizer) stub(in Input, d *diag.Diagnostic) *Package {
	name := in.Name
	if name == "" {
		name = "<unnamed>"
	}
	p := &Package{
		ID:      packlink.PackageIDFromName(name),
		Name:    name,
		Missing: true,
	}
	p.Diags.Add(d)
	return p
}

func (o *Optimizer) fromLegacy(in Input, legacy *format.LegacyPackage) *Package {
	name := legacy.Name
	if name == "" {
		name = in.Name
	}
	res, diags := resolve.Local(legacy, o.scripts)
	return &Package{
		ID:             packlink.PackageIDFromName(name),
		Name:           name,
		RedirectedFrom: in.RedirectedFrom,
		Resolved:       res,
		Diags:          diags,
		rawNames:       legacy.NameTable,
		deps:           legacy.Deps,
	}
}

// fromOptimized re-opens an already-optimized package, reconstructing the
// resolver view so redirects and rescheduling work the same as for legacy
// input.
func (o *Optimizer) fromOptimized(in Input, opt *format.OptimizedPackage) *Package {
	name := opt.Name
	if name == "" {
		name = in.Name
	}

	res := &resolve.Resolved{
		Imports:          opt.Imports,
		Objects:          make([]string, len(opt.Imports)),
		Exports:          opt.Exports,
		ImportedPackages: opt.ImportedPackages,
	}

	// Script identities must land in the shared table even when the input
	// was optimized before this run.
	var diags diag.Diagnostics
	for i, imp := range opt.Imports {
		if imp.IsScript() {
			if _, collided := o.scripts.Add(imp.Path); collided {
				diags.Add(diag.New(diag.PhaseResolve, diag.KindHashCollision).
					Warning().
					Package(name).
					Object(imp.Path).
					Detail("path hash collides with an earlier script path; first-seen mapping kept").
					Build())
			}
		} else {
			_, object := resolve.SplitObjectPath(imp.Path)
			res.Objects[i] = objectLeafName(object)
		}
	}

	// Rebuild the legacy-form export records: reference slots pointing at
	// the import table are recovered by matching resolved refs.
	importIdx := make(map[packlink.ObjectRef]int, len(opt.Imports))
	for i, imp := range opt.Imports {
		if _, ok := importIdx[imp.Ref]; !ok {
			importIdx[imp.Ref] = i
		}
	}
	res.Raw = make([]format.RawExport, len(opt.Exports))
	for i, exp := range opt.Exports {
		res.Raw[i] = format.RawExport{
			Owner:        rawFromRef(exp.Owner, importIdx),
			Class:        rawFromRef(exp.Class, importIdx),
			Super:        rawFromRef(exp.Super, importIdx),
			Template:     rawFromRef(exp.Template, importIdx),
			Flags:        exp.Flags,
			SerialOffset: exp.SerialOffset,
			SerialSize:   exp.SerialSize,
		}
	}

	return &Package{
		ID:             opt.ID,
		Name:           name,
		RedirectedFrom: in.RedirectedFrom,
		Resolved:       res,
		Diags:          diags,
		rawNames:       opt.Names,
		deps:           depsFromArcs(opt, importIdx),
	}
}

func rawFromRef(ref packlink.ObjectRef, importIdx map[packlink.ObjectRef]int) format.RawRef {
	switch ref.Kind() {
	case packlink.RefExport:
		return format.RawExportRef(int(ref.Export()))
	case packlink.RefScriptImport, packlink.RefPackageImport:
		if idx, ok := importIdx[ref]; ok {
			return format.RawImportRef(idx)
		}
		return format.NullRawRef
	default:
		return format.NullRawRef
	}
}

// depsFromArcs recovers explicit dependency records from previously-scheduled
// arc data, so re-running the scheduler preserves the constraints the
// original cook emitted.
func depsFromArcs(opt *format.OptimizedPackage, importIdx map[packlink.ObjectRef]int) []format.RawDependency {
	entryAt := func(pos uint32) (format.BundleEntry, bool) {
		for _, b := range opt.Bundles {
			if int(pos) < len(b.Entries) {
				return b.Entries[pos], true
			}
			pos -= uint32(len(b.Entries))
		}
		return format.BundleEntry{}, false
	}

	var deps []format.RawDependency
	for _, arc := range opt.InternalArcs {
		from, okFrom := entryAt(arc.To)
		to, okTo := entryAt(arc.From)
		if !okFrom || !okTo {
			continue
		}
		deps = append(deps, format.RawDependency{
			FromExport: uint32(from.Export),
			FromPhase:  from.Phase,
			ToPhase:    to.Phase,
			Target:     format.RawExportRef(int(to.Export)),
		})
	}

	for _, arc := range opt.ExternalArcs {
		if int(arc.ToBundle) >= len(opt.Bundles) || len(opt.Bundles[arc.ToBundle].Entries) == 0 {
			continue
		}
		ref := packlink.PackageRef(arc.DepPackage, arc.DepExport)
		idx, ok := importIdx[ref]
		if !ok {
			continue
		}
		// Bundle-granular: attach the wait to the bundle's first entry.
		first := opt.Bundles[arc.ToBundle].Entries[0]
		deps = append(deps, format.RawDependency{
			FromExport: uint32(first.Export),
			FromPhase:  first.Phase,
			ToPhase:    arc.DepPhase,
			Target:     format.RawImportRef(idx),
		})
	}

	return deps
}

func objectLeafName(object string) string {
	for i := len(object) - 1; i >= 0; i-- {
		if object[i] == ':' {
			return object[i+1:]
		}
	}
	return object
}
