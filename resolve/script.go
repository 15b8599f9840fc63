package resolve

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/pakstream/packlink"
	"github.com/pakstream/packlink/format"
)

// ScriptPrefix marks the namespace of native objects built into the runtime.
const ScriptPrefix = "/Script/"

// ScriptTable is the process-wide table of native object identities. It is an
// append-only log keyed by stable path hash: entries are never removed or
// rewritten, and concurrent Add calls from per-package workers are safe.
type ScriptTable struct {
	mu     sync.RWMutex
	byHash map[packlink.ScriptHash]string
	adds   int
}

// NewScriptTable creates an empty table.
func NewScriptTable() *ScriptTable {
	return &ScriptTable{byHash: make(map[packlink.ScriptHash]string)}
}

// Add records the native object at path and returns its stable hash. Two
// distinct paths hashing to the same value is an ambiguity: the first-seen
// mapping wins, the collision is logged as an error and reported to the
// caller so it can attach a diagnostic to the referencing package.
func (t *ScriptTable) Add(path string) (packlink.ScriptHash, bool) {
	norm := packlink.NormalizePath(path)
	hash := packlink.ScriptHashFromPath(path)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.adds++
	if existing, ok := t.byHash[hash]; ok {
		if existing != norm {
			Logger().Error("script hash collision, keeping first-seen mapping",
				zap.String("existing", existing),
				zap.String("conflicting", norm),
				zap.Uint64("hash", uint64(hash)))
			return hash, true
		}
		return hash, false
	}
	t.byHash[hash] = norm
	return hash, false
}

// Lookup returns the normalized path recorded for hash.
func (t *ScriptTable) Lookup(hash packlink.ScriptHash) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	path, ok := t.byHash[hash]
	return path, ok
}

// Len returns the number of distinct native objects recorded.
func (t *ScriptTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byHash)
}

// Adds returns the total number of Add calls, distinct or not. The difference
// to Len is how many script references were de-duplicated across packages.
func (t *ScriptTable) Adds() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.adds
}

// Table snapshots the entries ordered by hash, so serialization does not
// depend on the order concurrent workers added them.
func (t *ScriptTable) Table() *format.ScriptTable {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := &format.ScriptTable{Entries: make([]format.ScriptEntry, 0, len(t.byHash))}
	for hash, path := range t.byHash {
		out.Entries = append(out.Entries, format.ScriptEntry{Hash: hash, Path: path})
	}
	sort.Slice(out.Entries, func(i, j int) bool {
		return out.Entries[i].Hash < out.Entries[j].Hash
	})
	return out
}
