// Package buffer implements the Buffer view (spec.md's "Buffer" type in
// §3): an apparently infinite 2-D raster backed by a tile storage, with an
// advertised extent, a valid-data sub-rect (abyss) with an edge policy for
// out-of-bounds reads, an integer shift letting several buffers share one
// storage at different origins, and a soft pixel format that may differ
// from the storage's own. Grounded on the teacher's internal/tile package,
// whose per-tile render loops (resample.go) and tile lifecycle
// (tiledata.go) play the same role this package's read/write paths play
// here, generalized from a fixed web-mercator raster tile grid to an
// arbitrary-origin, arbitrary-format, multi-level tiled buffer.
package buffer

import (
	"fmt"
	"sync"

	"github.com/kestrelraster/tilestore/internal/geom"
	"github.com/kestrelraster/tilestore/internal/pixfmt"
	"github.com/kestrelraster/tilestore/internal/storage"
)

// AbyssPolicy selects how out-of-abyss reads are filled (spec.md §3).
type AbyssPolicy int

const (
	AbyssNone AbyssPolicy = iota
	AbyssBlack
	AbyssWhite
	AbyssClamp
	AbyssLoop
)

// Buffer is a view (extent + abyss + shift + format) over a TileStorage.
type Buffer struct {
	storage *storage.TileStorage

	extent geom.Rect
	abyss  geom.Rect

	shiftX, shiftY int

	softFormat pixfmt.Format

	shared bool // marked when opened for multi-process access; writes flush

	filePath string // set by Open/Load; non-empty if this buffer is backed by a gflow file

	mu sync.Mutex // coarse buffer-level lock, acquired by internal/iterator

	// defaultAbyssForSampling carries the policy requested by the Get call
	// currently in progress, so the resampler's context-rect fetches (which
	// go through bufferSource, not through Get) apply the same policy.
	defaultAbyssForSampling AbyssPolicy
}

// New constructs a Buffer over st, with extent and abyss both set to
// extent, zero shift, and soft format equal to the storage's base format.
func New(st *storage.TileStorage, extent geom.Rect) *Buffer {
	return &Buffer{
		storage:    st,
		extent:     extent,
		abyss:      extent,
		softFormat: st.Format,
	}
}

// NewForBackend builds a fresh TileStorage over backend and wraps it in a
// Buffer, for callers that don't need to share a TileStorage across
// multiple buffers.
func NewForBackend(cfg storage.Config, extent geom.Rect) *Buffer {
	return New(storage.New(cfg), extent)
}

// CreateSubBuffer returns a new Buffer sharing b's storage and shift, with
// extent clipped to the intersection of rect and b's extent, and abyss
// clipped likewise.
func (b *Buffer) CreateSubBuffer(rect geom.Rect) *Buffer {
	sub := &Buffer{
		storage:    b.storage,
		extent:     geom.Intersect(b.extent, rect),
		abyss:      geom.Intersect(b.abyss, rect),
		shiftX:     b.shiftX,
		shiftY:     b.shiftY,
		softFormat: b.softFormat,
	}
	return sub
}

// Dup returns a new Buffer with identical extent, abyss, shift, and format
// over a fresh in-memory TileStorage, into which b's extent is copied with
// Copy, so aligned tiles arrive as COW duplicates (tilepkg.Tile.Dup). No
// pixel bytes are copied until a write through either buffer unshares a
// tile, and writes through one buffer are never visible through the other.
// A read error from b's storage stops the copy, leaving the rest of the
// dup unwritten.
func (b *Buffer) Dup() *Buffer {
	st := storage.New(storage.Config{
		TileW:   b.storage.TileW,
		TileH:   b.storage.TileH,
		Format:  b.storage.Format,
		Backend: storage.NewMemBackend(),
	})
	d := &Buffer{
		storage:    st,
		extent:     b.extent,
		abyss:      b.abyss,
		shiftX:     b.shiftX,
		shiftY:     b.shiftY,
		softFormat: b.softFormat,
	}
	_ = b.Copy(b.extent, d, b.extent)
	return d
}

// Extent returns the buffer's advertised logical rectangle.
func (b *Buffer) Extent() geom.Rect { return b.extent }

// SetExtent changes the buffer's advertised logical rectangle.
func (b *Buffer) SetExtent(r geom.Rect) { b.extent = r }

// Abyss returns the buffer's valid-data sub-rectangle.
func (b *Buffer) Abyss() geom.Rect { return b.abyss }

// SetAbyss changes the buffer's valid-data sub-rectangle.
func (b *Buffer) SetAbyss(r geom.Rect) { b.abyss = r }

// GetFormat returns the buffer's advertised (soft) pixel format.
func (b *Buffer) GetFormat() pixfmt.Format { return b.softFormat }

// SetFormat changes the buffer's advertised pixel format; existing storage
// bytes are unaffected; conversion happens at read/write time.
func (b *Buffer) SetFormat(f pixfmt.Format) { b.softFormat = f }

// SetShift sets the integer offset from buffer-logical to tile-grid
// coordinates, letting two buffers share a storage with different origins.
func (b *Buffer) SetShift(x, y int) { b.shiftX, b.shiftY = x, y }

// MarkShared flags the buffer as open for multi-process access, so writes
// are followed by a flush (spec.md §4.5's "shared-buffer write").
func (b *Buffer) MarkShared(shared bool) { b.shared = shared }

// Flush forces the underlying storage's backend to durable state.
func (b *Buffer) Flush() error { return b.storage.Flush() }

// tileDims returns the storage's fixed tile dimensions.
func (b *Buffer) tileDims() (int, int) { return b.storage.TileW, b.storage.TileH }

// TileDims exposes the storage's fixed tile dimensions, used by
// internal/iterator to compute the origin grid for a multi-buffer scan.
func (b *Buffer) TileDims() (int, int) { return b.tileDims() }

// Shift returns the buffer's integer offset from buffer-logical to
// tile-grid coordinates.
func (b *Buffer) Shift() (int, int) { return b.shiftX, b.shiftY }

// Lock acquires the buffer-level lock used by internal/iterator's Start to
// serialize a scan against concurrent extent/abyss/format changes. This is
// coarser than, and independent of, the per-tile locks in internal/tilepkg.
func (b *Buffer) Lock() { b.mu.Lock() }

// Unlock releases the buffer-level lock acquired by Lock.
func (b *Buffer) Unlock() { b.mu.Unlock() }

// levelPoint converts a buffer-logical pixel coordinate into the storage's
// level-L pixel coordinate space: shift to tile-grid origin, then scale
// down by 2^L (floor), per the tile-index invariant of spec.md §3.
func (b *Buffer) levelPoint(px, py, level int) (int, int) {
	x := px + b.shiftX
	y := py + b.shiftY
	if level > 0 {
		d := 1 << uint(level)
		x = geom.FloorDiv(x, d)
		y = geom.FloorDiv(y, d)
	}
	return x, y
}

// levelRect converts a buffer-logical rect into level-L pixel space. Note
// this floors both the origin and the (exclusive) far corner independently,
// so the returned rect may be a pixel larger than rect's true footprint at
// that level; callers clip against level-scaled tile data, which is benign.
func (b *Buffer) levelRect(r geom.Rect, level int) geom.Rect {
	x0, y0 := b.levelPoint(r.Left(), r.Top(), level)
	x1, y1 := b.levelPoint(r.Right()-1, r.Bottom()-1, level)
	return geom.Rect{X: x0, Y: y0, W: x1 - x0 + 1, H: y1 - y0 + 1}
}

func (b *Buffer) bpp() int { return b.storage.Format.BytesPerPixel() }

func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer(extent=%v abyss=%v shift=(%d,%d) format=%s)",
		b.extent, b.abyss, b.shiftX, b.shiftY, b.softFormat.Name())
}
