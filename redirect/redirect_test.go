package redirect_test

import (
	"testing"

	"github.com/pakstream/packlink"
	"github.com/pakstream/packlink/diag"
	"github.com/pakstream/packlink/format"
	"github.com/pakstream/packlink/redirect"
)

var (
	meshClass = packlink.ScriptRef(packlink.ScriptHashFromPath("/Script/Engine.StaticMesh"))
	texClass  = packlink.ScriptRef(packlink.ScriptHashFromPath("/Script/Engine.Texture2D"))
)

func oldSurface() redirect.Surface {
	return redirect.Surface{
		ID:   packlink.PackageIDFromName("/Game/Old"),
		Name: "/Game/Old",
		Exports: []format.ExportEntry{
			{Name: "Foo", Class: meshClass},
			{Name: "Bar", Class: texClass},
		},
	}
}

func TestMergeVerified(t *testing.T) {
	from := oldSurface()
	// Replacement declares the same exports in a different order.
	to := redirect.Surface{
		ID:   packlink.PackageIDFromName("/Game/New"),
		Name: "/Game/New",
		Exports: []format.ExportEntry{
			{Name: "Bar", Class: texClass},
			{Name: "Foo", Class: meshClass},
		},
	}
	imports := []format.ImportEntry{
		{Path: "/Game/Old.Foo", Ref: packlink.PackageRef(from.ID, 0)},
		{Path: "/Game/Old.Bar", Ref: packlink.PackageRef(from.ID, 1)},
		{Path: "/Script/Engine.StaticMesh", Ref: meshClass},
	}

	remap, verified, diags := redirect.Merge("/Game/User", imports, from, to)

	if !verified {
		t.Fatal("expected a verified merge")
	}
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if want := packlink.PackageRef(to.ID, 1); imports[0].Ref != want {
		t.Errorf("Foo ref = %v, want %v", imports[0].Ref, want)
	}
	if want := packlink.PackageRef(to.ID, 0); imports[1].Ref != want {
		t.Errorf("Bar ref = %v, want %v", imports[1].Ref, want)
	}
	if imports[2].Ref != meshClass {
		t.Error("script import was rewritten")
	}
	if len(remap) != 2 {
		t.Errorf("remap has %d entries, want 2", len(remap))
	}
}

func TestMergeUnverifiedFallback(t *testing.T) {
	from := oldSurface()
	// Replacement dropped Bar: shape mismatch.
	to := redirect.Surface{
		ID:   packlink.PackageIDFromName("/Game/New"),
		Name: "/Game/New",
		Exports: []format.ExportEntry{
			{Name: "Foo", Class: meshClass},
		},
	}
	imports := []format.ImportEntry{
		{Path: "/Game/Old.Foo", Ref: packlink.PackageRef(from.ID, 0)},
		{Path: "/Game/Old.Bar", Ref: packlink.PackageRef(from.ID, 1)},
	}

	remap, verified, diags := redirect.Merge("/Game/User", imports, from, to)

	if verified {
		t.Fatal("expected an unverified merge")
	}
	if len(diags) != 1 || diags[0].Kind != diag.KindRedirectShape {
		t.Fatalf("diags = %v, want one redirect_shape warning", diags)
	}
	if diags[0].Severity != diag.SeverityWarning {
		t.Error("shape mismatch must be a warning, not a failure")
	}

	// Positional rewrite: index 0 survives, index 1 has no equivalent.
	if want := packlink.PackageRef(to.ID, 0); imports[0].Ref != want {
		t.Errorf("Foo ref = %v, want positional %v", imports[0].Ref, want)
	}
	if !imports[1].Missing {
		t.Error("out-of-range positional import not marked missing")
	}
	if got := remap[packlink.PackageRef(from.ID, 1)]; !got.IsNull() {
		t.Errorf("remap of dropped export = %v, want null", got)
	}
}

func TestMergeClassMismatchIsUnverified(t *testing.T) {
	from := oldSurface()
	// Same name, different native class.
	to := redirect.Surface{
		ID:   packlink.PackageIDFromName("/Game/New"),
		Name: "/Game/New",
		Exports: []format.ExportEntry{
			{Name: "Foo", Class: texClass},
			{Name: "Bar", Class: texClass},
		},
	}
	imports := []format.ImportEntry{
		{Path: "/Game/Old.Foo", Ref: packlink.PackageRef(from.ID, 0)},
	}

	_, verified, _ := redirect.Merge("/Game/User", imports, from, to)
	if verified {
		t.Error("class mismatch should force the unverified path")
	}
}

func TestMergeIdempotent(t *testing.T) {
	from := oldSurface()
	to := redirect.Surface{
		ID:   packlink.PackageIDFromName("/Game/New"),
		Name: "/Game/New",
		Exports: []format.ExportEntry{
			{Name: "Foo", Class: meshClass},
			{Name: "Bar", Class: texClass},
		},
	}
	imports := []format.ImportEntry{
		{Path: "/Game/Old.Foo", Ref: packlink.PackageRef(from.ID, 0)},
	}

	_, _, _ = redirect.Merge("/Game/User", imports, from, to)
	afterFirst := append([]format.ImportEntry(nil), imports...)

	remap, verified, diags := redirect.Merge("/Game/User", imports, from, to)
	if !verified || len(diags) != 0 || len(remap) != 0 {
		t.Errorf("second merge not a no-op: verified=%v diags=%v remap=%v", verified, diags, remap)
	}
	for i := range imports {
		if imports[i] != afterFirst[i] {
			t.Errorf("import %d changed on second apply: %+v vs %+v", i, imports[i], afterFirst[i])
		}
	}
}

func TestMergeNoReferences(t *testing.T) {
	from := oldSurface()
	to := redirect.Surface{ID: packlink.PackageIDFromName("/Game/New"), Name: "/Game/New"}
	imports := []format.ImportEntry{
		{Path: "/Script/Engine.StaticMesh", Ref: meshClass},
	}

	remap, verified, diags := redirect.Merge("/Game/User", imports, from, to)
	if !verified || len(remap) != 0 || len(diags) != 0 {
		t.Error("importer without references to the old package must be untouched")
	}
}
