// Package diag provides structured diagnostics for the optimizer pipeline.
//
// Diagnostics are categorized by Phase (which pipeline stage produced them)
// and Kind (what went wrong). A single bad package never aborts a build:
// stages record diagnostics on the owning package and continue, so callers
// inspect per-package diagnostic lists after the run.
//
// Use the Builder for structured construction:
//
//	d := diag.New(diag.PhaseParse, diag.KindTruncated).
//		Package("/Game/Props/Crate").
//		Detail("export table ends at %d, buffer has %d bytes", end, n).
//		Build()
//
// All diagnostics implement the standard error interface and support
// errors.Is/As.
package diag
