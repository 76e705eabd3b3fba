package gflow

import (
	"fmt"
	"io"
)

// Entry describes one tile recovered from a file's index chain.
type Entry struct {
	X, Y, Z int32
	Data    []byte
}

// Reader parses a gflow file's header and index chain, and fetches tile
// payloads by random access. Grounded on the teacher's
// internal/pmtiles.Reader, which likewise parses a fixed header then
// walks a directory structure to resolve tile bytes — adapted from
// PMTiles' single contiguous directory to this format's singly-linked
// block chain, which is walked once at Open time into the same kind of
// in-memory offset map PMTiles builds from its directory.
type Reader struct {
	r      io.ReaderAt
	Header Header

	entries []Entry
}

// Open parses r's header and follows its index chain to EOF (Next == 0),
// loading every tile payload it finds along the way. Unrecognized block
// flags are skipped: only the Next offset of their common BufferBlock
// header is trusted, never their body.
func Open(r io.ReaderAt) (*Reader, error) {
	hbuf := make([]byte, HeaderSize)
	if _, err := r.ReadAt(hbuf, 0); err != nil {
		return nil, fmt.Errorf("gflow: read header: %w", err)
	}
	h, err := ParseHeader(hbuf)
	if err != nil {
		return nil, err
	}

	rd := &Reader{r: r, Header: h}
	tileSize := int(h.TileW) * int(h.TileH) * int(h.BPP)

	offset := h.Next
	for offset != 0 {
		bbuf := make([]byte, blockHeaderSize)
		if _, err := r.ReadAt(bbuf, int64(offset)); err != nil {
			return nil, fmt.Errorf("gflow: read block header at %d: %w", offset, err)
		}
		block, err := ParseBlockHeader(bbuf)
		if err != nil {
			return nil, err
		}

		if block.Flags == BlockTile {
			rest := make([]byte, tileBlockSize-blockHeaderSize)
			if _, err := r.ReadAt(rest, int64(offset)+blockHeaderSize); err != nil {
				return nil, fmt.Errorf("gflow: read tile record at %d: %w", offset, err)
			}
			bt, err := ParseBufferTile(block, rest)
			if err != nil {
				return nil, err
			}
			data := make([]byte, tileSize)
			if _, err := r.ReadAt(data, int64(bt.Offset)); err != nil {
				return nil, fmt.Errorf("gflow: read tile payload at %d: %w", bt.Offset, err)
			}
			rd.entries = append(rd.entries, Entry{X: bt.X, Y: bt.Y, Z: bt.Z, Data: data})
		}
		// BlockFreeTile and any unrecognized flag are silently skipped; the
		// chain is followed regardless.

		if block.Next == offset {
			return nil, fmt.Errorf("gflow: index chain self-loop at offset %d", offset)
		}
		offset = block.Next
	}
	return rd, nil
}

// Entries returns every tile recovered from the index chain.
func (r *Reader) Entries() []Entry { return r.entries }
