// Package format defines the binary layouts produced and consumed by the
// optimizer: the legacy cooked-package layout, the optimized pre-linked
// package layout, the container manifest, and the script object table.
//
// Every buffer starts with a four-byte magic and a format version byte so a
// consumer can refuse buffers it cannot parse instead of misinterpreting
// them. Decoding a truncated or inconsistent buffer fails with a ParseError
// carrying the section and byte position; it never panics.
//
// Encoding is a pure function of the in-memory structures: encoding the same
// value twice yields byte-identical output.
package format
