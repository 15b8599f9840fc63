// Package resolve turns legacy index-based references into globally-stable
// tagged object references.
//
// Resolution runs in two passes. Local runs once per package with no shared
// mutable state beyond the append-only script table, so packages resolve in
// parallel: script imports hash to stable ScriptHash values and package
// imports get their owning package id. Fixup runs after all packages have
// parsed and fills in the export index of every package import, marking
// imports whose target cannot be found anywhere as confirmed missing.
package resolve
