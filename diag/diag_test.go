package diag_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/pakstream/packlink/diag"
)

func TestDiagnosticError(t *testing.T) {
	tests := []struct {
		name string
		d    *diag.Diagnostic
		want []string
	}{
		{
			name: "full",
			d: diag.New(diag.PhaseParse, diag.KindTruncated).
				Package("/Game/Crate").
				Object("Crate_Mesh").
				Detail("need %d bytes, have %d", 64, 10).
				Cause(io.ErrUnexpectedEOF).
				Build(),
			want: []string{"[parse]", "truncated", "/Game/Crate", "Crate_Mesh", "need 64 bytes, have 10", "unexpected EOF"},
		},
		{
			name: "minimal",
			d:    diag.New(diag.PhaseSchedule, diag.KindCycle).Build(),
			want: []string{"[schedule]", "cycle"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.d.Error()
			for _, part := range tt.want {
				if !strings.Contains(msg, part) {
					t.Errorf("Error() = %q, missing %q", msg, part)
				}
			}
		})
	}
}

func TestDiagnosticIs(t *testing.T) {
	d := diag.New(diag.PhaseResolve, diag.KindMissingImport).Package("/Game/A").Build()

	if !errors.Is(d, &diag.Diagnostic{Phase: diag.PhaseResolve, Kind: diag.KindMissingImport}) {
		t.Error("expected match on phase+kind")
	}
	if !errors.Is(d, &diag.Diagnostic{Kind: diag.KindMissingImport}) {
		t.Error("expected match on kind alone")
	}
	if errors.Is(d, &diag.Diagnostic{Phase: diag.PhaseParse}) {
		t.Error("unexpected match on wrong phase")
	}
}

func TestDiagnosticUnwrap(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	d := diag.New(diag.PhaseParse, diag.KindTruncated).Cause(cause).Build()

	if !errors.Is(d, io.ErrUnexpectedEOF) {
		t.Error("expected unwrap to reach the cause")
	}
}

func TestDiagnosticsSeverity(t *testing.T) {
	var ds diag.Diagnostics
	ds.Add(diag.New(diag.PhaseRedirect, diag.KindRedirectShape).Warning().Build())

	if ds.HasErrors() {
		t.Error("warning-only list reports HasErrors")
	}
	if len(ds.Warnings()) != 1 {
		t.Errorf("Warnings() = %d entries, want 1", len(ds.Warnings()))
	}

	ds.Add(diag.New(diag.PhaseParse, diag.KindBadCount).Build())
	if !ds.HasErrors() {
		t.Error("list with error diagnostic reports no errors")
	}
}
