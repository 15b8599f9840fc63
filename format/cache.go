package format

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pakstream/packlink"
)

// Cache is a bounded cache of decoded optimized packages, keyed by package
// id. Redirect verification and container inspection re-open the same
// buffers repeatedly; the cache keeps decode cost amortized without pinning
// every package in memory.
//
// Safe for concurrent use.
type Cache struct {
	entries *lru.Cache[packlink.PackageID, *OptimizedPackage]
}

// NewCache creates a cache holding up to size decoded packages.
func NewCache(size int) (*Cache, error) {
	entries, err := lru.New[packlink.PackageID, *OptimizedPackage](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// Load returns the decoded package for id, decoding data on a miss.
func (c *Cache) Load(id packlink.PackageID, data []byte) (*OptimizedPackage, error) {
	if pkg, ok := c.entries.Get(id); ok {
		return pkg, nil
	}
	pkg, err := DecodeOptimized(data)
	if err != nil {
		return nil, err
	}
	c.entries.Add(id, pkg)
	return pkg, nil
}

// Len returns the number of cached packages.
func (c *Cache) Len() int {
	return c.entries.Len()
}
