package storage

import (
	"sync"

	"github.com/kestrelraster/tilestore/internal/tilepkg"
)

// Backend is the external, persistent source of truth for level-0 tiles.
// Higher mipmap levels are never read from or written to a Backend — they
// are always synthesized on demand by the zoom handler (spec.md glossary:
// "level 0 is authoritative; higher levels are on-demand 2x2 downscales").
type Backend interface {
	Get(x, y int32) (*tilepkg.Tile, error)
	Set(x, y int32, t *tilepkg.Tile) error
	Exist(x, y int32) (bool, error)
	Void(x, y int32) error
	Flush() error
}

// MemBackend is an in-memory Backend, used by tests and by callers that
// don't need on-disk persistence (internal/gflow.FileBackend is the
// persistent counterpart).
type MemBackend struct {
	mu    sync.RWMutex
	tiles map[tileKey]*tilepkg.Tile
}

// NewMemBackend returns an empty in-memory backend.
func NewMemBackend() *MemBackend {
	return &MemBackend{tiles: make(map[tileKey]*tilepkg.Tile)}
}

func (b *MemBackend) Get(x, y int32) (*tilepkg.Tile, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tiles[tileKey{x, y, 0}]
	if !ok {
		return nil, nil
	}
	return t, nil
}

func (b *MemBackend) Set(x, y int32, t *tilepkg.Tile) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tiles[tileKey{x, y, 0}] = t
	return nil
}

func (b *MemBackend) Exist(x, y int32) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.tiles[tileKey{x, y, 0}]
	return ok, nil
}

func (b *MemBackend) Void(x, y int32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tiles, tileKey{x, y, 0})
	return nil
}

func (b *MemBackend) Flush() error { return nil }
