// Package packlink converts per-asset object descriptions into pre-linked
// binary packages that a streaming loader can execute without graph analysis
// at load time.
//
// # Architecture Overview
//
// The library is organized into packages with distinct responsibilities:
//
//	packlink/            Root package with identity types (PackageID, ObjectRef, Phase)
//	├── optimizer/       High-level API: parallel per-package phases, global passes
//	├── format/          Binary layouts: legacy and optimized packages, containers
//	├── names/           Name interning tables
//	├── resolve/         Reference resolution and the script object table
//	├── graph/           Export dependency graphs, bundle scheduling, load ordering
//	├── redirect/        Redirect merging for superseded packages
//	└── diag/            Structured per-package diagnostics
//
// # Quick Start
//
// Optimize a set of cooked packages into a container:
//
//	opt := optimizer.New(optimizer.WithTarget("linux"))
//	res, err := opt.Run(ctx, inputs, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, pkg := range res.Packages {
//	    store(pkg.ID, res.Buffers[pkg.ID])
//	}
//	store(manifestKey, res.ContainerData)
//
// # Determinism
//
// The whole pipeline is a pure function of its input snapshot: running it
// twice over byte-identical inputs produces byte-identical package buffers,
// container manifest, and script object table. Per-package phases fan out
// across workers; determinism does not depend on scheduling order.
//
// # Thread Safety
//
// Optimizer is safe for concurrent use. A Package node is mutated by exactly
// one worker until the join barrier and is read-only afterwards.
package packlink
