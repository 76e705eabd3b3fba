package gflow

import (
	"fmt"
	"io"
	"sort"
)

// tileEntry is one tile queued for a Writer.Save call.
type tileEntry struct {
	X, Y, Z int32
	Data    []byte
}

// Writer assembles a gflow file: header, raw tile payloads, and their
// singly-linked index chain. Grounded on the teacher's
// internal/pmtiles.Writer, which likewise buffers entries in memory and
// emits them in one final pass — adapted from PMTiles' dedup-by-hash,
// varint-delta directory to this format's simpler fixed-width, Morton
// ordered index chain (no tile deduplication: spec.md's compression and
// COW layers already own that concern upstream of this format).
type Writer struct {
	formatName  string
	tileW       int
	tileH       int
	bpp         int
	width       int
	height      int
	originX     int
	originY     int
	tiles       []tileEntry
}

// NewWriter begins a new file for tiles of the given pixel format name,
// tile geometry, and bytes-per-pixel.
func NewWriter(formatName string, tileW, tileH, bpp int) *Writer {
	return &Writer{formatName: formatName, tileW: tileW, tileH: tileH, bpp: bpp}
}

// SetRect records the saved buffer rectangle embedded in the header.
func (w *Writer) SetRect(width, height, x, y int) {
	w.width, w.height, w.originX, w.originY = width, height, x, y
}

// AddTile queues a raw (uncompressed) tile payload for inclusion. data
// must be exactly tileW*tileH*bpp bytes.
func (w *Writer) AddTile(x, y, z int32, data []byte) error {
	want := w.tileW * w.tileH * w.bpp
	if len(data) != want {
		return fmt.Errorf("gflow: tile (%d,%d,%d) has %d bytes, want %d", x, y, z, len(data), want)
	}
	w.tiles = append(w.tiles, tileEntry{X: x, Y: y, Z: z, Data: data})
	return nil
}

// Save writes the header, tile payloads, and index chain to w in one
// sequential pass, sorted by level then Morton order for on-disk spatial
// locality.
func (w *Writer) Save(dst io.Writer) error {
	sorted := make([]tileEntry, len(w.tiles))
	copy(sorted, w.tiles)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Z != sorted[j].Z {
			return sorted[i].Z < sorted[j].Z
		}
		return mortonEncode(sorted[i].X, sorted[i].Y) < mortonEncode(sorted[j].X, sorted[j].Y)
	})

	var payloadLen uint64
	for _, e := range sorted {
		payloadLen += uint64(len(e.Data))
	}
	indexStart := uint64(HeaderSize) + payloadLen

	h := NewHeader(w.formatName, w.tileW, w.tileH, w.bpp, w.width, w.height, w.originX, w.originY)
	if len(sorted) > 0 {
		h.Next = indexStart
	}
	if _, err := dst.Write(h.MarshalBinary()); err != nil {
		return fmt.Errorf("gflow: write header: %w", err)
	}

	offsets := make([]uint64, len(sorted))
	offset := uint64(HeaderSize)
	for i, e := range sorted {
		offsets[i] = offset
		if _, err := dst.Write(e.Data); err != nil {
			return fmt.Errorf("gflow: write tile payload: %w", err)
		}
		offset += uint64(len(e.Data))
	}

	for i, e := range sorted {
		next := uint64(0)
		if i+1 < len(sorted) {
			next = indexStart + uint64(i+1)*tileBlockSize
		}
		rec := BufferTile{
			Block:  BufferBlock{Length: tileBlockSize, Next: next, Flags: BlockTile},
			X:      e.X,
			Y:      e.Y,
			Z:      e.Z,
			Offset: offsets[i],
		}
		if _, err := dst.Write(rec.MarshalBinary()); err != nil {
			return fmt.Errorf("gflow: write index record: %w", err)
		}
	}
	return nil
}
