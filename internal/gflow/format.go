// Package gflow implements the on-disk tiled buffer file format of
// spec.md §4.8: a fixed little-endian header, a singly-linked chain of
// BufferBlock-headed index records (TILE and FREE_TILE kinds), and raw
// (uncompressed — the buffer/codec layer owns compression) tile payloads
// laid out in Morton (Z-order) order for spatial locality.
//
// The original gegl-buffer-save.c/gegl-buffer-load.c write and read
// GeglBufferHeader/GeglBufferBlock/GeglBufferTile with plain write()/read()
// on the raw struct — no GUINT32_TO_BE or similar byte-swap ever appears —
// so the wire format is native-endian on every real GEGL target, i.e.
// little-endian; this package follows suit explicitly rather than leaving
// it to host byte order, per spec.md §6's "Little-endian integers
// throughout".
//
// Grounded on the teacher's internal/pmtiles package: header.go's
// fixed-layout binary.Read/Write struct marshaling, writer.go's
// append-payload-then-build-index two-pass shape, and reader.go's
// offset/length tile lookup — adapted from PMTiles' varint-delta/gzip
// directory to this format's simpler fixed-width, singly-linked block
// chain (PMTiles' own layout is already little-endian, same as here).
// Morton order is the bit-interleave counterpart of the teacher's
// Hilbert-curve tile sort (internal/coord/hilbert.go).
package gflow

import (
	"encoding/binary"
	"fmt"
)

// Magic identifies a gflow file.
const Magic = "GEGL"

// HeaderFlag is the only defined header flags value (spec.md names no
// others).
const HeaderFlag = 1

// HeaderSize is the fixed byte size of the header: magic(4) + flags(4) +
// next(8) + tile_w,tile_h,bpp(4 each) + width,height,x,y(4 each) +
// description(64).
const HeaderSize = 4 + 4 + 8 + 4*3 + 4*4 + 64

// Block flag values; only these two are defined by spec.md. An unknown
// flag value's record is still followed via its Next pointer but its body
// is never interpreted as a tile reference.
const (
	BlockTile     uint32 = 1
	BlockFreeTile uint32 = 2
)

// blockHeaderSize is the common BufferBlock header: length(4) + next(8) +
// flags(4).
const blockHeaderSize = 4 + 8 + 4

// tileBlockSize is a full BufferTile record: the common header plus
// x, y, z (4 each) and offset(8).
const tileBlockSize = blockHeaderSize + 4 + 4 + 4 + 8

// Header is the file's fixed little-endian header.
type Header struct {
	Flags               uint32
	Next                uint64
	TileW, TileH, BPP   uint32
	Width, Height, X, Y uint32
	Description         [64]byte
}

// NewHeader builds a header for a buffer of the given tile geometry and
// saved rect, with a formatted description string per spec.md §4.8.
func NewHeader(formatName string, tileW, tileH, bpp, width, height, x, y int) Header {
	h := Header{
		Flags:  HeaderFlag,
		TileW:  uint32(tileW),
		TileH:  uint32(tileH),
		BPP:    uint32(bpp),
		Width:  uint32(width),
		Height: uint32(height),
		X:      uint32(x),
		Y:      uint32(y),
	}
	desc := fmt.Sprintf("%s\x00%dx%d %dbpp\n%dx%d\n\n\n\n\n\n\n\n\n", formatName, tileW, tileH, bpp, width, height)
	n := copy(h.Description[:], desc)
	for i := n; i < len(h.Description); i++ {
		h.Description[i] = 0
	}
	return h
}

// MarshalBinary serializes the header to its fixed 108-byte wire form.
func (h Header) MarshalBinary() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Flags)
	binary.LittleEndian.PutUint64(buf[8:16], h.Next)
	binary.LittleEndian.PutUint32(buf[16:20], h.TileW)
	binary.LittleEndian.PutUint32(buf[20:24], h.TileH)
	binary.LittleEndian.PutUint32(buf[24:28], h.BPP)
	binary.LittleEndian.PutUint32(buf[28:32], h.Width)
	binary.LittleEndian.PutUint32(buf[32:36], h.Height)
	binary.LittleEndian.PutUint32(buf[36:40], h.X)
	binary.LittleEndian.PutUint32(buf[40:44], h.Y)
	copy(buf[44:108], h.Description[:])
	return buf
}

// ParseHeader parses a HeaderSize-byte buffer into a Header.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("gflow: header too short: %d bytes, need %d", len(buf), HeaderSize)
	}
	if string(buf[0:4]) != Magic {
		return Header{}, fmt.Errorf("gflow: bad magic %q", buf[0:4])
	}
	h := Header{
		Flags:  binary.LittleEndian.Uint32(buf[4:8]),
		Next:   binary.LittleEndian.Uint64(buf[8:16]),
		TileW:  binary.LittleEndian.Uint32(buf[16:20]),
		TileH:  binary.LittleEndian.Uint32(buf[20:24]),
		BPP:    binary.LittleEndian.Uint32(buf[24:28]),
		Width:  binary.LittleEndian.Uint32(buf[28:32]),
		Height: binary.LittleEndian.Uint32(buf[32:36]),
		X:      binary.LittleEndian.Uint32(buf[36:40]),
		Y:      binary.LittleEndian.Uint32(buf[40:44]),
	}
	copy(h.Description[:], buf[44:108])
	return h, nil
}

// BufferBlock is the common header shared by every index record.
type BufferBlock struct {
	Length uint32
	Next   uint64
	Flags  uint32
}

// BufferTile extends BufferBlock with the tile's grid coordinates and the
// absolute file offset of its raw payload.
type BufferTile struct {
	Block   BufferBlock
	X, Y, Z int32
	Offset  uint64
}

// MarshalBinary serializes a BufferTile record to its fixed wire form.
func (t BufferTile) MarshalBinary() []byte {
	buf := make([]byte, tileBlockSize)
	binary.LittleEndian.PutUint32(buf[0:4], t.Block.Length)
	binary.LittleEndian.PutUint64(buf[4:12], t.Block.Next)
	binary.LittleEndian.PutUint32(buf[12:16], t.Block.Flags)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(t.X))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(t.Y))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(t.Z))
	binary.LittleEndian.PutUint64(buf[28:36], t.Offset)
	return buf
}

// ParseBlockHeader parses just the common BufferBlock header, letting the
// caller decide (from Flags) whether to parse the rest of the record.
func ParseBlockHeader(buf []byte) (BufferBlock, error) {
	if len(buf) < blockHeaderSize {
		return BufferBlock{}, fmt.Errorf("gflow: block header too short: %d bytes, need %d", len(buf), blockHeaderSize)
	}
	return BufferBlock{
		Length: binary.LittleEndian.Uint32(buf[0:4]),
		Next:   binary.LittleEndian.Uint64(buf[4:12]),
		Flags:  binary.LittleEndian.Uint32(buf[12:16]),
	}, nil
}

// ParseBufferTile parses a full BufferTile record, given its already
// parsed block header and the bytes following it.
func ParseBufferTile(block BufferBlock, rest []byte) (BufferTile, error) {
	if len(rest) < tileBlockSize-blockHeaderSize {
		return BufferTile{}, fmt.Errorf("gflow: tile record too short: %d bytes", len(rest))
	}
	return BufferTile{
		Block:  block,
		X:      int32(binary.LittleEndian.Uint32(rest[0:4])),
		Y:      int32(binary.LittleEndian.Uint32(rest[4:8])),
		Z:      int32(binary.LittleEndian.Uint32(rest[8:12])),
		Offset: binary.LittleEndian.Uint64(rest[12:20]),
	}, nil
}
