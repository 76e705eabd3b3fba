package tilepkg

import "sync"

// ZeroTileThreshold is the largest tile size (in bytes) for which a single
// process-global zero-filled tile is shared rather than allocated fresh per
// request: 128x128 pixels at up to 4 float64 (8-byte) components.
const ZeroTileThreshold = 128 * 128 * 4 * 8

var (
	zeroMu    sync.Mutex
	zeroTiles = map[int]*Tile{}
)

// SharedZeroTile returns a Dup of the process-global zero-filled tile for
// the given size, lazily creating the master the first time a size is
// requested. Sizes above ZeroTileThreshold always allocate a fresh zeroed
// tile instead of sharing, since the whole point of sharing is to save
// memory on small, frequently-requested tiles.
//
// Dups of the shared zero tile report IsZeroTile() until a write lock
// unshares them. The storage cache bounds its entry count only and keeps no
// byte-size account, so these dups take a cache entry like any other tile.
func SharedZeroTile(size int) *Tile {
	if size > ZeroTileThreshold {
		return New(size)
	}
	zeroMu.Lock()
	master, ok := zeroTiles[size]
	if !ok {
		master = New(size)
		master.isZeroTile = true
		zeroTiles[size] = master
	}
	zeroMu.Unlock()
	return master.Dup()
}
