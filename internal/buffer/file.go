package buffer

import (
	"fmt"

	"github.com/kestrelraster/tilestore/internal/geom"
	"github.com/kestrelraster/tilestore/internal/gflow"
	"github.com/kestrelraster/tilestore/internal/pixfmt"
	"github.com/kestrelraster/tilestore/internal/storage"
)

// Open loads an existing on-disk buffer from path, or starts a fresh one
// if the file does not yet exist, backed directly by a gflow.FileBackend
// (spec.md §6's Open/Save API). The returned Buffer's extent and format
// come from the file's header once one exists.
func Open(path string, tileW, tileH int, format pixfmt.Format) (*Buffer, error) {
	fb, err := gflow.OpenFileBackend(path, format.Name(), tileW, tileH, format.BytesPerPixel())
	if err != nil {
		return nil, fmt.Errorf("buffer: open %s: %w", path, err)
	}
	extent := geom.Rect{X: fb.OriginX(), Y: fb.OriginY(), W: fb.Width(), H: fb.Height()}
	st := storage.New(storage.Config{TileW: tileW, TileH: tileH, Format: format, Backend: fb})
	b := New(st, extent)
	b.MarkShared(true)
	b.filePath = path
	return b, nil
}

// Save persists b's entire extent to path: every level-0 tile the extent
// touches is synced to a gflow.FileBackend, which is then flushed to disk
// as a single file (spec.md §6's Save; this package only ever writes a
// file in one shot, never incrementally — see DESIGN.md).
func (b *Buffer) Save(path string) error {
	fb, err := gflow.OpenFileBackend(path, b.softFormat.Name(), b.storage.TileW, b.storage.TileH, b.softFormat.BytesPerPixel())
	if err != nil {
		return fmt.Errorf("buffer: save %s: %w", path, err)
	}
	fb.SetRect(b.extent.W, b.extent.H, b.extent.X, b.extent.Y)

	tw, th := b.storage.TileW, b.storage.TileH
	shifted := b.extent.Translate(b.shiftX, b.shiftY)
	txMin := geom.FloorDiv(shifted.Left(), tw)
	txMax := geom.FloorDiv(shifted.Right()-1, tw)
	tyMin := geom.FloorDiv(shifted.Top(), th)
	tyMax := geom.FloorDiv(shifted.Bottom()-1, th)

	for ty := tyMin; ty <= tyMax; ty++ {
		for tx := txMin; tx <= txMax; tx++ {
			t, err := b.storage.Get(int32(tx), int32(ty), 0)
			if err != nil {
				return err
			}
			if err := fb.Set(int32(tx), int32(ty), t); err != nil {
				return err
			}
		}
	}
	return fb.Flush()
}

// Load is Open followed by MarkShared(false): a one-shot, non-live read of
// a file's contents into a standalone in-memory buffer, for callers that
// don't intend to write the result back.
func Load(path string, tileW, tileH int, format pixfmt.Format) (*Buffer, error) {
	b, err := Open(path, tileW, tileH, format)
	if err != nil {
		return nil, err
	}
	b.MarkShared(false)
	return b, nil
}
