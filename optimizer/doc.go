// Package optimizer drives the full pipeline: parse cooked packages, resolve
// references, build and schedule export graphs, merge redirects, fix the
// global load order, and serialize the optimized container.
//
// # Pipeline Shape
//
// Per-package phases (parse, local resolve, graph build, bundle scheduling)
// fan out across a worker pool with no shared mutable state beyond the
// append-only script table. Cross-package phases (import fixup, redirect
// merging, global load ordering, container assembly) run under a single
// serial pass after all workers have joined. The join is a barrier, not a
// lock: nothing mutates concurrently during the global pass.
//
// # Failure Isolation
//
// A package whose buffer cannot be parsed is replaced by a missing-package
// stub carrying the diagnostic that produced it, so global passes still
// terminate and one bad asset cannot abort the build. Only an empty package
// set is an error.
package optimizer
