package format_test

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/pakstream/packlink"
	"github.com/pakstream/packlink/format"
)

func legacyFixture() *format.LegacyPackage {
	return &format.LegacyPackage{
		Name:      "/Game/Props/Crate",
		NameTable: []string{"Crate", "CrateMesh"},
		Imports: []format.RawImport{
			{Path: "/Script/Engine.StaticMesh"},
			{Path: "/Game/Materials/Wood.Wood"},
		},
		Exports: []format.RawExport{
			{
				NameIndex:  0,
				Class:      format.RawImportRef(0),
				Flags:      format.ExportPublic,
				SerialSize: 128,
			},
			{
				NameIndex:    1,
				Owner:        format.RawExportRef(0),
				Class:        format.RawImportRef(0),
				Template:     format.RawImportRef(1),
				SerialOffset: 128,
				SerialSize:   64,
			},
		},
		Deps: []format.RawDependency{
			{
				FromExport: 1,
				FromPhase:  packlink.PhasePopulate,
				ToPhase:    packlink.PhasePopulate,
				Target:     format.RawExportRef(0),
			},
		},
	}
}

func optimizedFixture() *format.OptimizedPackage {
	return &format.OptimizedPackage{
		Summary: format.Summary{
			Name:      "/Game/Props/Crate",
			ID:        0xAB,
			LoadOrder: 2,
		},
		Names: []string{"Crate", "CrateMesh"},
		Imports: []format.ImportEntry{
			{Path: "/Script/Engine.StaticMesh", Ref: packlink.ScriptRef(0x1111)},
			{Path: "/Game/Materials/Wood.Wood", Ref: packlink.PackageRef(0xCD, 0)},
			{Path: "/Game/Gone.Gone", Ref: packlink.PackageRef(0xEE, 3), Missing: true},
		},
		Exports: []format.ExportEntry{
			{
				Name:       "Crate",
				Class:      packlink.ScriptRef(0x1111),
				Flags:      format.ExportPublic,
				SerialSize: 128,
			},
			{
				Name:         "CrateMesh",
				Owner:        packlink.ExportRef(0),
				Class:        packlink.ScriptRef(0x1111),
				SerialOffset: 128,
				SerialSize:   64,
			},
		},
		Bundles: []format.Bundle{{Entries: []format.BundleEntry{
			{Export: 0, Phase: packlink.PhaseConstruct},
			{Export: 1, Phase: packlink.PhaseConstruct},
			{Export: 0, Phase: packlink.PhasePopulate},
			{Export: 1, Phase: packlink.PhasePopulate},
		}}},
		InternalArcs: []format.InternalArc{{From: 0, To: 1}, {From: 0, To: 2}, {From: 1, To: 3}},
		ExternalArcs: []format.ExternalArc{
			{DepPackage: 0xCD, DepExport: 0, DepPhase: packlink.PhaseConstruct, ToBundle: 0},
		},
		ImportedPackages: []packlink.PackageID{0xCD},
	}
}

func TestLegacyRoundtrip(t *testing.T) {
	pkg := legacyFixture()
	data := format.EncodeLegacy(pkg)

	if format.Detect(data) != format.KindLegacy {
		t.Fatalf("Detect = %v, want legacy", format.Detect(data))
	}

	got, err := format.DecodeLegacy(data)
	if err != nil {
		t.Fatalf("DecodeLegacy: %v", err)
	}
	if !reflect.DeepEqual(got, pkg) {
		t.Errorf("roundtrip mismatch:\ngot  %+v\nwant %+v", got, pkg)
	}
}

func TestOptimizedRoundtrip(t *testing.T) {
	pkg := optimizedFixture()
	data := format.EncodeOptimized(pkg)

	if format.Detect(data) != format.KindOptimized {
		t.Fatalf("Detect = %v, want optimized", format.Detect(data))
	}

	got, err := format.DecodeOptimized(data)
	if err != nil {
		t.Fatalf("DecodeOptimized: %v", err)
	}
	if !reflect.DeepEqual(got, pkg) {
		t.Errorf("roundtrip mismatch:\ngot  %+v\nwant %+v", got, pkg)
	}
}

func TestEncodeDeterminism(t *testing.T) {
	pkg := optimizedFixture()
	first := format.EncodeOptimized(pkg)
	second := format.EncodeOptimized(pkg)
	if !bytes.Equal(first, second) {
		t.Error("EncodeOptimized is not deterministic")
	}
}

func containerFixture() *format.ContainerManifest {
	return &format.ContainerManifest{
		BuildID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		Target:  "linux",
		Entries: []format.ManifestEntry{
			{ID: 0xAB, Name: "/Game/Props/Crate", LoadOrder: 0, SummarySize: 211, DataSize: 192,
				Imported: []packlink.PackageID{0xCD}},
			{ID: 0xCD, Name: "/Game/Materials/Wood", LoadOrder: 1, SummarySize: 97, DataSize: 40,
				Imported: []packlink.PackageID{}},
		},
	}
}

func TestContainerRoundtrip(t *testing.T) {
	m := containerFixture()
	data := format.EncodeContainer(m)
	if format.Detect(data) != format.KindContainer {
		t.Fatalf("Detect = %v, want container", format.Detect(data))
	}

	got, err := format.DecodeContainer(data)
	if err != nil {
		t.Fatalf("DecodeContainer: %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Errorf("roundtrip mismatch:\ngot  %+v\nwant %+v", got, m)
	}
}

func TestScriptTableRoundtrip(t *testing.T) {
	tbl := &format.ScriptTable{Entries: []format.ScriptEntry{
		{Hash: 0x1111, Path: "/script/engine.staticmesh"},
		{Hash: 0x2222, Path: "/script/engine.texture2d"},
	}}

	data := format.EncodeScriptTable(tbl)
	got, err := format.DecodeScriptTable(data)
	if err != nil {
		t.Fatalf("DecodeScriptTable: %v", err)
	}
	if !reflect.DeepEqual(got, tbl) {
		t.Errorf("roundtrip mismatch:\ngot  %+v\nwant %+v", got, tbl)
	}
}

func TestDecodeBadMagic(t *testing.T) {
	if _, err := format.DecodeLegacy([]byte{0xde, 0xad, 0xbe, 0xef, 0x01}); !errors.Is(err, format.ErrBadMagic) {
		t.Errorf("DecodeLegacy bad magic: got %v, want ErrBadMagic", err)
	}
	if _, err := format.DecodeOptimized(format.EncodeLegacy(legacyFixture())); !errors.Is(err, format.ErrBadMagic) {
		t.Error("DecodeOptimized accepted a legacy buffer")
	}
}

func TestDecodeBadVersion(t *testing.T) {
	data := format.EncodeLegacy(legacyFixture())
	data[4] = 99
	if _, err := format.DecodeLegacy(data); !errors.Is(err, format.ErrBadVersion) {
		t.Errorf("got %v, want ErrBadVersion", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	data := format.EncodeOptimized(optimizedFixture())
	for _, cut := range []int{5, 8, len(data) / 2, len(data) - 1} {
		if _, err := format.DecodeOptimized(data[:cut]); err == nil {
			t.Errorf("DecodeOptimized accepted buffer truncated at %d", cut)
		}
	}
}

func TestDecodeInconsistentCount(t *testing.T) {
	pkg := legacyFixture()
	pkg.Exports[1].NameIndex = 99
	data := format.EncodeLegacy(pkg)
	if _, err := format.DecodeLegacy(data); err == nil {
		t.Error("DecodeLegacy accepted out-of-range name index")
	}
}

func TestDecodeLegacyBadRef(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*format.LegacyPackage)
	}{
		{"owner past export table", func(pkg *format.LegacyPackage) {
			pkg.Exports[0].Owner = format.RawExportRef(5)
		}},
		{"class past import table", func(pkg *format.LegacyPackage) {
			pkg.Exports[1].Class = format.RawImportRef(9)
		}},
		{"dep target past export table", func(pkg *format.LegacyPackage) {
			pkg.Deps[0].Target = format.RawExportRef(7)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := legacyFixture()
			tt.mutate(pkg)
			if _, err := format.DecodeLegacy(format.EncodeLegacy(pkg)); !errors.Is(err, format.ErrBadRef) {
				t.Errorf("got %v, want ErrBadRef", err)
			}
		})
	}
}

func TestDecodeLegacyForwardRef(t *testing.T) {
	// A reference to a later export in the same table is legal.
	pkg := legacyFixture()
	pkg.Exports[0].Owner = format.RawExportRef(1)
	if _, err := format.DecodeLegacy(format.EncodeLegacy(pkg)); err != nil {
		t.Errorf("forward export reference rejected: %v", err)
	}
}

func TestDecodeOptimizedBadExportRef(t *testing.T) {
	pkg := optimizedFixture()
	pkg.Exports[0].Owner = packlink.ExportRef(9)
	if _, err := format.DecodeOptimized(format.EncodeOptimized(pkg)); !errors.Is(err, format.ErrBadRef) {
		t.Errorf("got %v, want ErrBadRef", err)
	}
}

func TestCache(t *testing.T) {
	cache, err := format.NewCache(2)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	pkg := optimizedFixture()
	data := format.EncodeOptimized(pkg)

	first, err := cache.Load(pkg.ID, data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	second, err := cache.Load(pkg.ID, nil) // hit: data not consulted
	if err != nil {
		t.Fatalf("Load (cached): %v", err)
	}
	if first != second {
		t.Error("cache miss on second load of the same id")
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}
}
