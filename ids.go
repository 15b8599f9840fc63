package packlink

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// PackageID is the stable identity of a package, derived from its
// case-normalized name. Equal names always produce equal ids, so ids can be
// computed independently on any worker without coordination.
type PackageID uint64

// InvalidPackageID marks the absence of a package.
const InvalidPackageID PackageID = 0

// ExportIndex identifies an export within its owning package's export table.
type ExportIndex uint32

// ScriptHash is the stable identity of a native (script) object, derived from
// its case-normalized full path. It is valid across packages and processes.
type ScriptHash uint64

// Phase is one step of an object's two-step load lifecycle.
type Phase uint8

const (
	// PhaseConstruct allocates the object and links its outer/class chain.
	PhaseConstruct Phase = iota
	// PhasePopulate fills the constructed object with its serialized data.
	PhasePopulate
)

func (p Phase) String() string {
	switch p {
	case PhaseConstruct:
		return "construct"
	case PhasePopulate:
		return "populate"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// NormalizePath lower-cases an object or package path so that identity hashes
// are case-insensitive, matching how the runtime loader compares paths.
func NormalizePath(path string) string {
	return strings.ToLower(path)
}

// PackageIDFromName derives the stable id for a package name.
func PackageIDFromName(name string) PackageID {
	h := fnv.New64a()
	h.Write([]byte(NormalizePath(name)))
	id := PackageID(h.Sum64())
	if id == InvalidPackageID {
		id = 1
	}
	return id
}

// ScriptHashFromPath derives the stable hash for a native object path.
func ScriptHashFromPath(path string) ScriptHash {
	h := fnv.New64a()
	h.Write([]byte(NormalizePath(path)))
	return ScriptHash(h.Sum64())
}
