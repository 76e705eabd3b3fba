package storage

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kestrelraster/tilestore/internal/tilepkg"
)

// cache is a bounded in-memory tile cache backed by
// github.com/hashicorp/golang-lru/v2, the pack's LRU dependency
// (contributed by noisetorch's vendor chain; promoted here to a direct
// dependency since it is exactly the bounded-recency cache this handler
// needs). Evicted tiles are Unref'd so their COW-shared bytes can be freed
// once no other Tile value still references them.
type cache struct {
	lru *lru.Cache[tileKey, *tilepkg.Tile]
}

func newCache(maxEntries int) *cache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	c := &cache{}
	l, err := lru.NewWithEvict(maxEntries, func(_ tileKey, t *tilepkg.Tile) {
		_ = t.Unref()
	})
	if err != nil {
		// Only returned by golang-lru when size <= 0, which we've already
		// guarded against above.
		panic(err)
	}
	c.lru = l
	return c
}

func (c *cache) get(key tileKey) (*tilepkg.Tile, bool) {
	return c.lru.Get(key)
}

// put installs t under key, Ref'ing it so the cache owns one reference for
// as long as the entry survives eviction.
func (c *cache) put(key tileKey, t *tilepkg.Tile) {
	c.lru.Add(key, t.Ref())
}

func (c *cache) remove(key tileKey) {
	c.lru.Remove(key)
}

func (c *cache) resize(size int) {
	c.lru.Resize(size)
}

func (c *cache) len() int {
	return c.lru.Len()
}

func (c *cache) purge() {
	c.lru.Purge()
}
