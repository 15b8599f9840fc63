package packlink_test

import (
	"testing"

	"github.com/pakstream/packlink"
)

func TestPackageIDCaseInsensitive(t *testing.T) {
	a := packlink.PackageIDFromName("/Game/Maps/Forest")
	b := packlink.PackageIDFromName("/game/maps/forest")
	if a != b {
		t.Errorf("ids differ for case variants: %x vs %x", a, b)
	}
	if a == packlink.InvalidPackageID {
		t.Error("derived id equals the invalid sentinel")
	}
}

func TestPackageIDDistinct(t *testing.T) {
	a := packlink.PackageIDFromName("/game/a")
	b := packlink.PackageIDFromName("/game/b")
	if a == b {
		t.Errorf("distinct names hash to the same id: %x", a)
	}
}

func TestScriptHashStable(t *testing.T) {
	h1 := packlink.ScriptHashFromPath("/Script/Engine.StaticMesh")
	h2 := packlink.ScriptHashFromPath("/script/engine.staticmesh")
	if h1 != h2 {
		t.Error("script hash is case sensitive")
	}
}

func TestObjectRefVariants(t *testing.T) {
	tests := []struct {
		name string
		ref  packlink.ObjectRef
		kind packlink.RefKind
		str  string
	}{
		{"null", packlink.NullRef(), packlink.RefNull, "null"},
		{"export", packlink.ExportRef(3), packlink.RefExport, "export:3"},
		{"script", packlink.ScriptRef(0xAB), packlink.RefScriptImport, "script:00000000000000ab"},
		{"package", packlink.PackageRef(0xCD, 2), packlink.RefPackageImport, "package:00000000000000cd/2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.ref.Kind() != tt.kind {
				t.Errorf("kind = %v, want %v", tt.ref.Kind(), tt.kind)
			}
			if got := tt.ref.String(); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}
		})
	}
}

func TestObjectRefComparable(t *testing.T) {
	if packlink.PackageRef(1, 2) != packlink.PackageRef(1, 2) {
		t.Error("equal package refs do not compare equal")
	}
	if packlink.ExportRef(0) == packlink.NullRef() {
		t.Error("export 0 compares equal to null")
	}
	var zero packlink.ObjectRef
	if !zero.IsNull() {
		t.Error("zero value is not the null reference")
	}
}

func TestPhaseString(t *testing.T) {
	if packlink.PhaseConstruct.String() != "construct" || packlink.PhasePopulate.String() != "populate" {
		t.Error("phase names wrong")
	}
}
