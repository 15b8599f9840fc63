package diag

import (
	"fmt"
	"strings"
)

// Phase indicates which pipeline stage produced the diagnostic.
type Phase string

const (
	PhaseParse     Phase = "parse"     // header parsing
	PhaseResolve   Phase = "resolve"   // reference resolution
	PhaseGraph     Phase = "graph"     // export graph construction
	PhaseSchedule  Phase = "schedule"  // bundle and load-order scheduling
	PhaseRedirect  Phase = "redirect"  // redirect merging
	PhaseEncode    Phase = "encode"    // optimized buffer serialization
	PhaseContainer Phase = "container" // container manifest assembly
)

// Kind categorizes the diagnostic.
type Kind string

const (
	KindTruncated       Kind = "truncated"        // buffer ends mid-record
	KindBadCount        Kind = "bad_count"        // table counts disagree with buffer contents
	KindBadVersion      Kind = "bad_version"      // unknown magic or format version
	KindInvalidData     Kind = "invalid_data"     // structurally valid but semantically wrong
	KindMissingImport   Kind = "missing_import"   // import target not in the package set
	KindHashCollision   Kind = "hash_collision"   // two native paths share a script hash
	KindCycle           Kind = "cycle"            // dependency cycle broken by forced ordering
	KindRedirectShape   Kind = "redirect_shape"   // redirect target export surface mismatch
	KindEmptyPackageSet Kind = "empty_package_set" // no packages at all; configuration error
)

// Severity distinguishes build-continuing warnings from per-package errors.
type Severity uint8

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is the structured error type used throughout the optimizer.
type Diagnostic struct {
	Cause    error
	Phase    Phase
	Kind     Kind
	Package  string
	Object   string
	Detail   string
	Severity Severity
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(d.Phase))
	b.WriteString("] ")
	b.WriteString(string(d.Kind))

	if d.Package != "" {
		b.WriteString(" in ")
		b.WriteString(d.Package)
	}
	if d.Object != "" {
		b.WriteString(" (")
		b.WriteString(d.Object)
		b.WriteByte(')')
	}
	if d.Detail != "" {
		b.WriteString(": ")
		b.WriteString(d.Detail)
	}
	if d.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(d.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (d *Diagnostic) Unwrap() error {
	return d.Cause
}

// Is matches diagnostics by phase and kind, so callers can test with
// errors.Is(err, &Diagnostic{Phase: p, Kind: k}).
func (d *Diagnostic) Is(target error) bool {
	t, ok := target.(*Diagnostic)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != d.Phase {
		return false
	}
	if t.Kind != "" && t.Kind != d.Kind {
		return false
	}
	return true
}

// Builder provides structured diagnostic construction.
type Builder struct {
	d Diagnostic
}

// New creates a diagnostic builder. Severity defaults to SeverityError.
func New(phase Phase, kind Kind) *Builder {
	return &Builder{d: Diagnostic{Phase: phase, Kind: kind, Severity: SeverityError}}
}

// Warning lowers the severity to SeverityWarning.
func (b *Builder) Warning() *Builder {
	b.d.Severity = SeverityWarning
	return b
}

// Package sets the owning package name.
func (b *Builder) Package(name string) *Builder {
	b.d.Package = name
	return b
}

// Object sets the object path or export name the diagnostic refers to.
func (b *Builder) Object(name string) *Builder {
	b.d.Object = name
	return b
}

// Detail sets the human-readable detail message.
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.d.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.d.Detail = msg
	}
	return b
}

// Cause sets the underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.d.Cause = err
	return b
}

// Build returns the constructed diagnostic.
func (b *Builder) Build() *Diagnostic {
	return &b.d
}

// Diagnostics collects the diagnostics recorded against one package.
type Diagnostics []*Diagnostic

// Add appends a diagnostic.
func (ds *Diagnostics) Add(d *Diagnostic) {
	*ds = append(*ds, d)
}

// HasErrors reports whether any collected diagnostic is an error.
func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Warnings returns only the warning-severity diagnostics.
func (ds Diagnostics) Warnings() Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}
