package storage

import (
	"fmt"
	"sync/atomic"

	"github.com/kestrelraster/tilestore/internal/pixfmt"
	"github.com/kestrelraster/tilestore/internal/tilepkg"
)

// hotEntry is the single most-recently-accessed (key, tile) pair, published
// lock-free so that repeated access to the same tile (the overwhelmingly
// common case for iterator row-walks) skips the cache lookup entirely.
// Grounded on the teacher's DiskTileStore.readFile atomic.Pointer[os.File]
// publish-once-read-many idiom (internal/tile/diskstore.go), adapted here
// to a publish-many/invalidate-on-write pointer instead of a write-once one.
type hotEntry struct {
	key  tileKey
	tile *tilepkg.Tile
}

// TileStorage composes the cache, zoom, empty, and backend handlers behind
// a single Command entry point (spec.md §4.2), plus any user-installed
// Handlers consulted first.
type TileStorage struct {
	TileW, TileH int
	Format       pixfmt.Format

	tileSize     int
	backend      Backend
	cache        *cache
	zoomHandler  *zoom
	emptyHandler *empty
	userHandlers []Handler

	hot atomic.Pointer[hotEntry]
}

// Config configures a new TileStorage.
type Config struct {
	TileW, TileH int
	Format       pixfmt.Format
	Backend      Backend // may be nil (purely synthetic/in-memory storage)
	CacheEntries int     // 0 uses a sensible default
	Handlers     []Handler
}

// New builds a TileStorage with the standard cache -> zoom -> empty ->
// backend chain. The handler chain itself needs no central lock: the LRU
// cache and Backend are each independently safe for concurrent use, and
// the zoom handler's recursion back into Get never re-enters a shared
// mutex, so the "recursive mutex" the original uses to let a zoom
// synthesis call back into the same storage instance has no Go
// translation here — there is simply nothing to recursively lock.
func New(cfg Config) *TileStorage {
	tileSize := cfg.TileW * cfg.TileH * cfg.Format.BytesPerPixel()
	return &TileStorage{
		TileW:        cfg.TileW,
		TileH:        cfg.TileH,
		Format:       cfg.Format,
		tileSize:     tileSize,
		backend:      cfg.Backend,
		cache:        newCache(cfg.CacheEntries),
		zoomHandler:  newZoom(cfg.TileW, cfg.TileH, cfg.Format),
		emptyHandler: newEmpty(tileSize, cfg.Backend),
		userHandlers: cfg.Handlers,
	}
}

// Command dispatches cmd through any user handlers first (in installation
// order; a handler declines by returning ErrNotHandled), then through the
// built-in chain.
func (ts *TileStorage) Command(cmd Command, x, y, z int32, arg any) (any, error) {
	for _, h := range ts.userHandlers {
		v, err := h.Command(cmd, x, y, z, arg)
		if err != ErrNotHandled {
			return v, err
		}
	}
	switch cmd {
	case CmdGet:
		return ts.Get(x, y, z)
	case CmdSet:
		sa, ok := arg.(SetArg)
		if !ok || sa.Tile == nil {
			return nil, fmt.Errorf("storage: CmdSet requires a SetArg with a non-nil Tile")
		}
		return nil, ts.Set(x, y, z, sa.Tile)
	case CmdVoid:
		return nil, ts.Void(x, y, z)
	case CmdExist:
		return ts.Exist(x, y, z)
	case CmdFlush:
		return nil, ts.Flush()
	case CmdCopy:
		ca, ok := arg.(CopyArg)
		if !ok || ca.Dst == nil {
			return nil, fmt.Errorf("storage: CmdCopy requires a CopyArg with a non-nil Dst")
		}
		return nil, ts.Copy(x, y, z, ca)
	default:
		return nil, fmt.Errorf("storage: unknown command %v", cmd)
	}
}

// Get returns the tile at (x, y, z), synthesizing it from lower mip levels
// (z >= 1) or pulling it from cache/backend/zero-fill (z == 0) if it is
// not already cached.
func (ts *TileStorage) Get(x, y, z int32) (*tilepkg.Tile, error) {
	key := tileKey{x, y, z}
	if hot := ts.hot.Load(); hot != nil && hot.key == key {
		return hot.tile, nil
	}
	if t, ok := ts.cache.get(key); ok {
		ts.publishHot(key, t)
		return t, nil
	}

	var t *tilepkg.Tile
	var err error
	if z >= 1 {
		t, err = ts.zoomHandler.synthesize(x, y, z, ts.Get)
	} else {
		t, err = ts.emptyHandler.get(x, y, z)
	}
	if err != nil {
		return nil, err
	}
	t.X, t.Y, t.Z = x, y, z
	ts.cache.put(key, t)
	ts.publishHot(key, t)
	return t, nil
}

// Set installs t at (x, y, z) in the cache and, for level 0, writes it
// through to the backend.
func (ts *TileStorage) Set(x, y, z int32, t *tilepkg.Tile) error {
	key := tileKey{x, y, z}
	t.X, t.Y, t.Z = x, y, z
	ts.cache.put(key, t)
	ts.invalidateHot(key)
	if z == 0 && ts.backend != nil {
		return ts.backend.Set(x, y, t)
	}
	return nil
}

// Void discards any cached/backend-resident copy of (x, y, z).
func (ts *TileStorage) Void(x, y, z int32) error {
	key := tileKey{x, y, z}
	ts.cache.remove(key)
	ts.invalidateHot(key)
	if z == 0 && ts.backend != nil {
		return ts.backend.Void(x, y)
	}
	return nil
}

// Exist reports whether (x, y, z) has actual data backing it: cached,
// backend-resident (level 0), or synthesizable (level >= 1, since a parent
// tile is always derivable — possibly entirely from zero-filled children).
func (ts *TileStorage) Exist(x, y, z int32) (bool, error) {
	key := tileKey{x, y, z}
	if _, ok := ts.cache.get(key); ok {
		return true, nil
	}
	if z >= 1 {
		return true, nil
	}
	if ts.backend != nil {
		return ts.backend.Exist(x, y)
	}
	return false, nil
}

// Flush forces any backend-held buffering to durable storage.
func (ts *TileStorage) Flush() error {
	if ts.backend == nil {
		return nil
	}
	return ts.backend.Flush()
}

// Copy fetches the tile at (x, y, z) and installs a COW Dup of it at
// (arg.X2, arg.Y2, arg.Z2) in arg.Dst, without touching pixel bytes.
func (ts *TileStorage) Copy(x, y, z int32, arg CopyArg) error {
	t, err := ts.Get(x, y, z)
	if err != nil {
		return err
	}
	_, err = arg.Dst.Command(CmdSet, arg.X2, arg.Y2, arg.Z2, SetArg{Tile: t.Dup()})
	return err
}

// NewTile allocates a fresh, zeroed tile sized for this storage's tile
// dimensions and pixel format.
func (ts *TileStorage) NewTile() *tilepkg.Tile {
	return tilepkg.New(ts.tileSize)
}

// Resize adjusts the cache's maximum entry count.
func (ts *TileStorage) Resize(entries int) {
	ts.cache.resize(entries)
}

func (ts *TileStorage) publishHot(key tileKey, t *tilepkg.Tile) {
	ts.hot.Store(&hotEntry{key: key, tile: t})
}

// invalidateHot clears the hot pointer if (and only if) it currently holds
// key, via CAS so a concurrent Get publishing a different tile in the same
// slot is never clobbered.
func (ts *TileStorage) invalidateHot(key tileKey) {
	for {
		cur := ts.hot.Load()
		if cur == nil || cur.key != key {
			return
		}
		if ts.hot.CompareAndSwap(cur, nil) {
			return
		}
	}
}
