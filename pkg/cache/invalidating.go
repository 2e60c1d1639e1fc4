package cache

import (
	"sync"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/ledger"
)

// AccountCache caches values derived from a single ledger account and drops them
// as soon as a committed transaction writes that account.
//
// A value read from the ledger is stored with SetIfUnchanged and the version taken
// before the read, so a write committed while the value was being built is never
// cached over.
type AccountCache[V any] struct {
	lru *Cache[core.Address, V]

	mu sync.Mutex
	// versions are striped by the first address byte; addresses are keys and hashes.
	versions [256]uint64
}

func NewAccountCache[V any](size int, metricName string) *AccountCache[V] {
	return &AccountCache[V]{lru: NewLRUCache[core.Address, V](size, metricName)}
}

func (c *AccountCache[V]) Get(addr core.Address) (V, bool) {
	return c.lru.Get(addr)
}

// Version must be taken before reading the account the cached value is built from.
func (c *AccountCache[V]) Version(addr core.Address) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[addr[0]]
}

// SetIfUnchanged stores v unless addr was written after version was taken.
func (c *AccountCache[V]) SetIfUnchanged(addr core.Address, version uint64, v V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[addr[0]] != version {
		return false
	}
	c.lru.Set(addr, v)
	return true
}

func (c *AccountCache[V]) Invalidate(addrs ...core.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range addrs {
		c.versions[a[0]]++
		c.lru.Delete(a)
	}
}

// Observe is a ledger.Observer.
func (c *AccountCache[V]) Observe(r ledger.Receipt) {
	if !r.Success {
		return
	}
	c.Invalidate(r.Written...)
}
