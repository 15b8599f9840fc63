package optimizer

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pakstream/packlink"
	"github.com/pakstream/packlink/diag"
	"github.com/pakstream/packlink/format"
	"github.com/pakstream/packlink/graph"
	"github.com/pakstream/packlink/redirect"
	"github.com/pakstream/packlink/resolve"
)

// buildNamespace salts the deterministic build id so packlink build ids can
// never collide with other UUID v5 domains.
var buildNamespace = uuid.MustParse("9f2c41d6-03a8-4cf1-9e6b-5b1a7c80d2e4")

// Input is one package buffer handed to the optimizer, in either layout.
type Input struct {
	// Name is the package name used for missing-package stubs when the
	// buffer itself cannot provide one.
	Name string

	// RedirectedFrom declares that this package supersedes an older one.
	RedirectedFrom string

	Data []byte
}

// Result is the complete output of one optimizer run.
type Result struct {
	// Packages in input order.
	Packages []*Package

	// Buffers holds each package's optimized buffer.
	Buffers map[packlink.PackageID][]byte

	Container     *format.ContainerManifest
	ContainerData []byte

	Scripts     *format.ScriptTable
	ScriptsData []byte
}

// Package returns the processed package with the given name, or nil.
func (r *Result) Package(name string) *Package {
	for _, p := range r.Packages {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Optimizer runs the package-graph optimization pipeline.
// Safe for concurrent use; each Run is independent apart from the shared
// script table.
type Optimizer struct {
	log     *zap.Logger
	scripts *resolve.ScriptTable
	workers int
	target  string
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the pipeline logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Optimizer) { o.log = l }
}

// WithWorkers caps the per-package fan-out. Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithTarget sets the platform identifier stamped into the container
// manifest.
func WithTarget(target string) Option {
	return func(o *Optimizer) { o.target = target }
}

// WithScriptTable shares a script table across optimizer instances. By
// default each Optimizer owns one, which is the process-wide table in the
// usual one-optimizer-per-process build setup.
func WithScriptTable(t *resolve.ScriptTable) Option {
	return func(o *Optimizer) { o.scripts = t }
}

// New creates an Optimizer.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		log:     zap.NewNop(),
		workers: runtime.GOMAXPROCS(0),
		target:  "default",
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.scripts == nil {
		o.scripts = resolve.NewScriptTable()
	}
	return o
}

// ScriptTable exposes the table of native identities accumulated so far.
func (o *Optimizer) ScriptTable() *resolve.ScriptTable {
	return o.scripts
}

// Run executes the full pipeline over one input snapshot. redirects maps
// superseded package names to replacement package names, merged with any
// RedirectedFrom declarations on the inputs. The only error condition is an
// empty package set; all per-package problems surface as diagnostics on the
// returned packages.
func (o *Optimizer) Run(ctx context.Context, inputs []Input, redirects redirect.Map) (*Result, error) {
	if len(inputs) == 0 {
		return nil, diag.New(diag.PhaseContainer, diag.KindEmptyPackageSet).
			Detail("no packages to optimize").
			Build()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase A: parse and locally resolve every package in parallel.
	pkgs := make([]*Package, len(inputs))
	o.forEach(len(inputs), func(i int) {
		pkgs[i] = o.parseInput(inputs[i])
	})

	universe := o.universe(pkgs)
	lookup := func(id packlink.PackageID) []format.ExportEntry {
		p, ok := universe[id]
		if !ok || p.Missing {
			return nil
		}
		return p.Resolved.Exports
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase B: with every export table visible, fix up import indices in
	// parallel.
	o.forEach(len(pkgs), func(i int) {
		p := pkgs[i]
		if p.Missing {
			return
		}
		p.Diags = append(p.Diags, resolve.Fixup(p.Name, p.Resolved, lookup)...)
	})

	// Redirects merge before graph construction so rewritten references
	// flow into the arcs and the load order without any arc surgery.
	o.applyRedirects(pkgs, universe, redirects)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase C: wire the export graphs and schedule bundles in parallel.
	o.forEach(len(pkgs), func(i int) {
		p := pkgs[i]
		if p.Missing {
			return
		}
		p.Graph = graph.Build(p.Name, p.Resolved, p.deps)
		p.Schedule = p.Graph.Schedule(p.Name)
		p.ImportedPackages = importedAfterSchedule(p)
		if p.Schedule.ForcedBreaks > 0 {
			p.Diags.Add(diag.New(diag.PhaseSchedule, diag.KindCycle).
				Warning().
				Package(p.Name).
				Detail("%d dependency cycles broken by forced ordering", p.Schedule.ForcedBreaks).
				Build())
		}
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.assignLoadOrder(pkgs)

	return o.serialize(pkgs, universe)
}

// forEach fans fn out over a bounded worker pool and joins.
func (o *Optimizer) forEach(n int, fn func(int)) {
	sem := make(chan struct{}, o.workers)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i)
		}(i)
	}
	wg.Wait()
}

// universe indexes packages by id. Duplicate ids keep the first package and
// record a diagnostic on the loser.
func (o *Optimizer) universe(pkgs []*Package) map[packlink.PackageID]*Package {
	universe := make(map[packlink.PackageID]*Package, len(pkgs))
	for _, p := range pkgs {
		if prev, ok := universe[p.ID]; ok {
			o.log.Warn("duplicate package id, keeping first",
				zap.String("kept", prev.Name),
				zap.String("dropped", p.Name))
			p.Diags.Add(diag.New(diag.PhaseResolve, diag.KindInvalidData).
				Package(p.Name).
				Detail("package id collides with %s", prev.Name).
				Build())
			continue
		}
		universe[p.ID] = p
	}
	return universe
}

// importedAfterSchedule narrows the import-package-id list to dependencies
// that survived scheduling: a package all of whose imports are confirmed
// missing is dropped, so the list reflects what the loader will actually
// wait on.
func importedAfterSchedule(p *Package) []packlink.PackageID {
	ids := append([]packlink.PackageID(nil), p.Resolved.ImportedPackages...)
	missing := make(map[packlink.PackageID]bool)
	for _, imp := range p.Resolved.Imports {
		if imp.Ref.Kind() != packlink.RefPackageImport {
			continue
		}
		id := imp.Ref.Package()
		if imp.Missing {
			if _, ok := missing[id]; !ok {
				missing[id] = true
			}
		} else {
			missing[id] = false
		}
	}
	out := ids[:0]
	for _, id := range ids {
		if dropped, ok := missing[id]; !ok || !dropped {
			out = append(out, id)
		}
	}
	return out
}

// assignLoadOrder runs the package-level topological sort and stamps ranks.
func (o *Optimizer) assignLoadOrder(pkgs []*Package) {
	ids := make([]packlink.PackageID, 0, len(pkgs))
	byID := make(map[packlink.PackageID]*Package, len(pkgs))
	for _, p := range pkgs {
		if _, ok := byID[p.ID]; ok {
			continue
		}
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	ranks := graph.OrderPackages(ids, func(id packlink.PackageID) []packlink.PackageID {
		return byID[id].ImportedPackages
	})
	for _, p := range pkgs {
		p.LoadOrder = ranks[p.ID]
	}
}

// serialize is the final pure pass: optimized buffers, container manifest,
// script table. Duplicate-id losers are never published: the buffer and the
// manifest entry belong to the package the fixup pass resolved against.
func (o *Optimizer) serialize(pkgs []*Package, universe map[packlink.PackageID]*Package) (*Result, error) {
	res := &Result{
		Packages: pkgs,
		Buffers:  make(map[packlink.PackageID][]byte, len(pkgs)),
	}

	entries := make([]format.ManifestEntry, 0, len(pkgs))
	for _, p := range pkgs {
		if universe[p.ID] != p {
			continue
		}
		buf := format.EncodeOptimized(p.optimized())
		res.Buffers[p.ID] = buf
		entries = append(entries, format.ManifestEntry{
			ID:          p.ID,
			Name:        p.Name,
			LoadOrder:   p.LoadOrder,
			SummarySize: uint32(len(buf)),
			DataSize:    p.dataSize(),
			Imported:    p.ImportedPackages,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].LoadOrder != entries[j].LoadOrder {
			return entries[i].LoadOrder < entries[j].LoadOrder
		}
		return entries[i].ID < entries[j].ID
	})

	res.Container = &format.ContainerManifest{
		BuildID: o.buildID(entries, res.Buffers),
		Target:  o.target,
		Entries: entries,
	}
	res.ContainerData = format.EncodeContainer(res.Container)

	res.Scripts = o.scripts.Table()
	res.ScriptsData = format.EncodeScriptTable(res.Scripts)

	o.log.Info("container built",
		zap.String("target", o.target),
		zap.String("build", res.Container.BuildID),
		zap.Int("packages", len(pkgs)),
		zap.Int("scripts", len(res.Scripts.Entries)),
		zap.Int("script_refs_deduped", o.scripts.Adds()-o.scripts.Len()))

	return res, nil
}

// buildID derives a deterministic UUID v5 from the container contents, so
// re-running the pipeline over unchanged input reproduces the manifest
// byte for byte.
func (o *Optimizer) buildID(entries []format.ManifestEntry, buffers map[packlink.PackageID][]byte) string {
	var seed []byte
	seed = append(seed, o.target...)
	for _, e := range entries {
		var id [8]byte
		for i := 0; i < 8; i++ {
			id[i] = byte(uint64(e.ID) >> (8 * i))
		}
		seed = append(seed, id[:]...)
		seed = append(seed, buffers[e.ID]...)
	}
	return uuid.NewSHA1(buildNamespace, seed).String()
}
