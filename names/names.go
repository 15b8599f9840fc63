// Package names provides the per-package name interning tables.
//
// A Table deduplicates every string it sees and assigns stable 0-based
// indices in first-seen order. A RefTable additionally separates "known"
// names from "referenced" names so that entries nothing referenced are never
// materialized in the serialized table.
//
// Tables are not safe for concurrent use; each package owns its own table and
// discards it with the package.
package names

// Table interns strings eagerly: every distinct name passed to Intern gets an
// index immediately.
type Table struct {
	byName map[string]uint32
	list   []string
}

// NewTable creates an empty eager table.
func NewTable() *Table {
	return &Table{byName: make(map[string]uint32)}
}

// Intern returns the stable index for name, assigning the next free index on
// first sight.
func (t *Table) Intern(name string) uint32 {
	if idx, ok := t.byName[name]; ok {
		return idx
	}
	idx := uint32(len(t.list))
	t.byName[name] = idx
	t.list = append(t.list, name)
	return idx
}

// Lookup returns the index previously assigned to name.
func (t *Table) Lookup(name string) (uint32, bool) {
	idx, ok := t.byName[name]
	return idx, ok
}

// Name returns the name at idx.
func (t *Table) Name(idx uint32) (string, bool) {
	if int(idx) >= len(t.list) {
		return "", false
	}
	return t.list[idx], true
}

// Len returns the number of interned names.
func (t *Table) Len() int {
	return len(t.list)
}

// List returns the interned names in index order.
func (t *Table) List() []string {
	out := make([]string, len(t.list))
	copy(out, t.list)
	return out
}

// RefTable interns strings lazily: Add registers a name as known without
// assigning an index; Intern assigns indices in reference order, so names that
// were added but never referenced do not appear in the final table.
type RefTable struct {
	known map[string]struct{}
	refs  *Table
}

// NewRefTable creates an empty lazy table.
func NewRefTable() *RefTable {
	return &RefTable{
		known: make(map[string]struct{}),
		refs:  NewTable(),
	}
}

// Add registers name as known without materializing a table entry.
func (t *RefTable) Add(name string) {
	t.known[name] = struct{}{}
}

// Known reports whether name was ever added or referenced.
func (t *RefTable) Known(name string) bool {
	if _, ok := t.known[name]; ok {
		return true
	}
	_, ok := t.refs.Lookup(name)
	return ok
}

// Intern marks name as referenced and returns its index. Indices follow
// reference order, not Add order.
func (t *RefTable) Intern(name string) uint32 {
	return t.refs.Intern(name)
}

// Len returns the number of referenced names.
func (t *RefTable) Len() int {
	return t.refs.Len()
}

// List returns only the referenced names, in index order.
func (t *RefTable) List() []string {
	return t.refs.List()
}
