// Package tilepkg implements the fixed-size, ref-counted pixel tile with
// multi-reader/single-writer locking and copy-on-write sharing (spec.md
// §4.1). A tile's damage bitmap tracks which of its 64 subregions are known
// stale and must be re-synthesized before read.
package tilepkg

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrDoubleUnref is returned by Unref when a tile's refcount would go
// negative — a programming error in the caller.
var ErrDoubleUnref = errors.New("tilepkg: unref of already-released tile")

// sharedBytes is the COW-shared underlying byte buffer. share counts how
// many *Tile values currently reference this same array; Lock physically
// clones the data the moment share > 1, per spec.md's "manual COW with
// reference-counting" translation note.
type sharedBytes struct {
	data  []byte
	share atomic.Int32
}

// Tile is a single fixed-size block of pixel data plus its lock and damage
// state. The zero Tile is not valid; use New or Dup.
type Tile struct {
	X, Y, Z int32 // tile-grid indices; Z is the mipmap level

	size       int
	isZeroTile bool

	mu      sync.Mutex
	cond    *sync.Cond
	readers int
	writer  bool

	shared *sharedBytes

	damage   uint64 // 64-region "known stale" bitmap; 0 == fully clean
	refcount atomic.Int32

	storage interface{} // opaque back-pointer to owning storage/cache entry
}

// New allocates a fresh, unlocked tile of size zeroed bytes with a
// reference count of 1.
func New(size int) *Tile {
	t := &Tile{
		size:   size,
		shared: &sharedBytes{data: make([]byte, size)},
	}
	t.shared.share.Store(1)
	t.cond = sync.NewCond(&t.mu)
	t.refcount.Store(1)
	return t
}

// Size returns the tile's fixed byte size.
func (t *Tile) Size() int { return t.size }

// IsZeroTile reports whether this tile is a dup of the process-global
// shared zero tile.
func (t *Tile) IsZeroTile() bool { return t.isZeroTile }

// Damage returns the current damage bitmap.
func (t *Tile) Damage() uint64 { return t.damage }

// SetDamage overwrites the damage bitmap (used by callers recording
// rect-level damage explicitly, e.g. buffer write paths using UnlockNoVoid).
func (t *Tile) SetDamage(d uint64) { t.damage = d }

// IsClean reports whether the tile has no outstanding damage.
func (t *Tile) IsClean() bool { return t.damage == 0 }

// Storage returns the opaque back-pointer installed by Storage/SetStorage.
func (t *Tile) Storage() interface{} { return t.storage }

// SetStorage installs the opaque back-pointer to the owning tile storage.
func (t *Tile) SetStorage(s interface{}) { t.storage = s }

// Ref increments the tile's process-lifetime reference count.
func (t *Tile) Ref() *Tile {
	t.refcount.Add(1)
	return t
}

// Unref decrements the reference count. The final unref releases the
// underlying byte buffer unless it is a shared zero block (those are
// immortal and excluded from per-tile lifetime accounting).
func (t *Tile) Unref() error {
	n := t.refcount.Add(-1)
	if n < 0 {
		return ErrDoubleUnref
	}
	if n == 0 && !t.isZeroTile {
		t.shared.share.Add(-1)
		t.shared = nil
	}
	return nil
}

// Dup clones t into a new Tile value that shares the same underlying byte
// buffer (the COW trick): no bytes are copied until a writer locks one of
// the sharing tiles.
func (t *Tile) Dup() *Tile {
	t.shared.share.Add(1)
	d := &Tile{
		X: t.X, Y: t.Y, Z: t.Z,
		size:       t.size,
		isZeroTile: t.isZeroTile,
		shared:     t.shared,
		damage:     t.damage,
	}
	d.cond = sync.NewCond(&d.mu)
	d.refcount.Store(1)
	return d
}

// ReadLock acquires a read (shared) lock, blocking while a writer holds it.
func (t *Tile) ReadLock() {
	t.mu.Lock()
	for t.writer {
		t.cond.Wait()
	}
	t.readers++
	t.mu.Unlock()
}

// ReadUnlock releases a read lock.
func (t *Tile) ReadUnlock() {
	t.mu.Lock()
	t.readers--
	if t.readers == 0 {
		t.cond.Broadcast()
	}
	t.mu.Unlock()
}

// Lock acquires an exclusive write lock, blocking for all readers and any
// other writer. If the tile's byte buffer is currently shared (COW) with
// another Tile value, it is physically duplicated before the lock is
// granted, so the caller always writes into private bytes.
func (t *Tile) Lock() {
	t.mu.Lock()
	for t.writer || t.readers > 0 {
		t.cond.Wait()
	}
	t.writer = true
	if t.isZeroTile || t.shared.share.Load() > 1 {
		t.unshareLocked()
	}
	t.mu.Unlock()
}

// unshareLocked performs the physical COW clone. Caller must hold t.mu.
func (t *Tile) unshareLocked() {
	old := t.shared
	newData := make([]byte, t.size)
	copy(newData, old.data)
	old.share.Add(-1)
	t.shared = &sharedBytes{data: newData}
	t.shared.share.Store(1)
	t.isZeroTile = false
}

// Unlock releases the write lock and marks the tile damaged-everywhere, so
// that lower mipmap levels know to re-synthesize from it.
func (t *Tile) Unlock() {
	t.damage = ^uint64(0)
	t.unlockCommon()
}

// UnlockNoVoid releases the write lock without marking damage; used by
// callers (e.g. buffer.Set) that record damage explicitly at rect
// granularity instead of relying on the blanket unlock sink.
func (t *Tile) UnlockNoVoid() {
	t.unlockCommon()
}

func (t *Tile) unlockCommon() {
	t.mu.Lock()
	t.writer = false
	t.cond.Broadcast()
	t.mu.Unlock()
}

// MarkAsStored tells the backend/cache this tile's bytes need not be
// persisted (e.g. it is a duplicate of data already on disk).
func (t *Tile) MarkAsStored() {
	// Tracked via damage==0; a tile with no damage and a backing store is
	// considered stored. No separate flag is needed beyond that invariant,
	// mirroring spec.md's "damage bits refer to subregions not guaranteed
	// current" definition.
	t.damage = 0
}

// Data returns the tile's raw byte buffer. Callers must hold an appropriate
// read or write lock.
func (t *Tile) Data() []byte {
	return t.shared.data
}

// shareCount exposes the underlying share counter for tests/diagnostics.
func (t *Tile) shareCount() int32 {
	return t.shared.share.Load()
}
