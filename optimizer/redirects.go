package optimizer

import (
	"sort"

	"go.uber.org/zap"

	"github.com/pakstream/packlink"
	"github.com/pakstream/packlink/redirect"
)

// applyRedirects rewrites every importer of a superseded package to point at
// its replacement. It runs after import fixup and before graph construction,
// so the rewritten references shape the arcs and the global load order.
func (o *Optimizer) applyRedirects(pkgs []*Package, universe map[packlink.PackageID]*Package, redirects redirect.Map) {
	merged := make(redirect.Map, len(redirects))
	for from, to := range redirects {
		merged[from] = to
	}
	for _, p := range pkgs {
		if p.RedirectedFrom != "" {
			merged[p.RedirectedFrom] = p.Name
		}
	}
	if len(merged) == 0 {
		return
	}

	byName := make(map[string]*Package, len(universe))
	for _, p := range universe {
		byName[p.Name] = p
	}

	// Deterministic application order.
	fromNames := make([]string, 0, len(merged))
	for from := range merged {
		fromNames = append(fromNames, from)
	}
	sort.Strings(fromNames)

	for _, fromName := range fromNames {
		toName := merged[fromName]
		target, ok := byName[toName]
		if !ok || target.Missing {
			o.log.Warn("redirect target not in package set, skipping",
				zap.String("from", fromName),
				zap.String("to", toName))
			continue
		}

		fromSurface := redirect.Surface{
			ID:   packlink.PackageIDFromName(fromName),
			Name: fromName,
		}
		// When the superseded package is still in the set its export surface
		// enables verified matching; otherwise the merge is positional.
		if old, ok := byName[fromName]; ok && !old.Missing {
			fromSurface.Exports = old.Resolved.Exports
		}
		toSurface := redirect.Surface{
			ID:      target.ID,
			Name:    toName,
			Exports: target.Resolved.Exports,
		}

		for _, p := range pkgs {
			if p.Missing || p == target {
				continue
			}
			o.redirectPackage(p, fromSurface, toSurface)
		}
	}
}

// redirectPackage merges one redirect into one importer and propagates the
// remap through the already-fixed-up export slots and the dependency id list.
func (o *Optimizer) redirectPackage(p *Package, from, to redirect.Surface) {
	remap, _, diags := redirect.Merge(p.Name, p.Resolved.Imports, from, to)
	p.Diags = append(p.Diags, diags...)
	if len(remap) == 0 {
		return
	}

	for i := range p.Resolved.Exports {
		exp := &p.Resolved.Exports[i]
		for _, ref := range []*packlink.ObjectRef{&exp.Owner, &exp.Class, &exp.Super, &exp.Template} {
			if newRef, ok := remap[*ref]; ok {
				*ref = newRef
			}
		}
	}

	p.Resolved.ImportedPackages = rewriteIDs(p.Resolved.ImportedPackages, from.ID, to.ID)
	p.RedirectImports = append(p.RedirectImports, from.ID)
}

// rewriteIDs replaces old with new in a sorted id list, keeping it sorted and
// duplicate-free.
func rewriteIDs(ids []packlink.PackageID, old, new packlink.PackageID) []packlink.PackageID {
	changed := false
	for i, id := range ids {
		if id == old {
			ids[i] = new
			changed = true
		}
	}
	if !changed {
		return ids
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := ids[:0]
	for i, id := range ids {
		if i > 0 && id == ids[i-1] {
			continue
		}
		out = append(out, id)
	}
	return out
}
