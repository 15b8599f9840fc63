package resolve

import (
	"sync"
	"testing"

	"github.com/pakstream/packlink"
	"github.com/pakstream/packlink/diag"
	"github.com/pakstream/packlink/format"
)

func TestScriptTableAdd(t *testing.T) {
	tbl := NewScriptTable()

	h1, collided := tbl.Add("/Script/Engine.StaticMesh")
	h2, _ := tbl.Add("/script/engine.STATICMESH") // case-insensitive identity
	if collided {
		t.Error("first Add reported a collision")
	}
	if h1 != h2 {
		t.Errorf("case variants hash differently: %x vs %x", h1, h2)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
	if tbl.Adds() != 2 {
		t.Errorf("Adds() = %d, want 2", tbl.Adds())
	}

	path, ok := tbl.Lookup(h1)
	if !ok || path != "/script/engine.staticmesh" {
		t.Errorf("Lookup = %q, %v; want normalized path", path, ok)
	}
}

func TestScriptTableCollisionFirstSeenWins(t *testing.T) {
	tbl := NewScriptTable()

	// Force a collision by preseeding the hash slot with a different path.
	hash := packlink.ScriptHashFromPath("/Script/Engine.Texture2D")
	tbl.byHash[hash] = "/script/other.object"

	got, collided := tbl.Add("/Script/Engine.Texture2D")
	if got != hash {
		t.Errorf("Add returned %x, want colliding hash %x", got, hash)
	}
	if !collided {
		t.Error("Add did not report the collision")
	}
	if path, _ := tbl.Lookup(hash); path != "/script/other.object" {
		t.Errorf("first-seen mapping was overwritten: %q", path)
	}
}

func TestLocalReportsScriptHashCollision(t *testing.T) {
	scripts := NewScriptTable()
	hash := packlink.ScriptHashFromPath("/Script/Engine.Texture2D")
	scripts.byHash[hash] = "/script/other.object"

	pkg := &format.LegacyPackage{
		Name:      "/Game/A",
		NameTable: []string{"A"},
		Imports: []format.RawImport{
			{Path: "/Script/Engine.Texture2D"},
		},
		Exports: []format.RawExport{{NameIndex: 0}},
	}

	res, diags := Local(pkg, scripts)

	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	d := diags[0]
	if d.Kind != diag.KindHashCollision || d.Phase != diag.PhaseResolve {
		t.Errorf("diagnostic = %v/%v, want resolve/hash_collision", d.Phase, d.Kind)
	}
	if d.Severity != diag.SeverityWarning {
		t.Errorf("severity = %v, want warning", d.Severity)
	}
	if got := res.Imports[0].Ref; got != packlink.ScriptRef(hash) {
		t.Errorf("import ref = %v, want the first-seen hash", got)
	}
}

func TestScriptTableOrderedSnapshot(t *testing.T) {
	tbl := NewScriptTable()
	tbl.Add("/Script/Engine.Texture2D")
	tbl.Add("/Script/Engine.StaticMesh")
	tbl.Add("/Script/CoreUObject.Class")

	snap := tbl.Table()
	if len(snap.Entries) != 3 {
		t.Fatalf("snapshot has %d entries, want 3", len(snap.Entries))
	}
	for i := 1; i < len(snap.Entries); i++ {
		if snap.Entries[i-1].Hash >= snap.Entries[i].Hash {
			t.Fatal("snapshot entries not strictly ordered by hash")
		}
	}
}

func TestScriptTableConcurrentAdd(t *testing.T) {
	tbl := NewScriptTable()
	paths := []string{
		"/Script/Engine.StaticMesh",
		"/Script/Engine.Texture2D",
		"/Script/CoreUObject.Class",
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, p := range paths {
				tbl.Add(p)
			}
		}()
	}
	wg.Wait()

	if tbl.Len() != len(paths) {
		t.Errorf("Len() = %d, want %d", tbl.Len(), len(paths))
	}
}
