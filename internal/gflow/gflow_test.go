package gflow

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/kestrelraster/tilestore/internal/tilepkg"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := NewHeader("R'G'B'A u8", 64, 64, 4, 256, 256, 10, -20)
	buf := h.MarshalBinary()
	if len(buf) != HeaderSize {
		t.Fatalf("MarshalBinary produced %d bytes, want %d", len(buf), HeaderSize)
	}
	if string(buf[0:4]) != Magic {
		t.Fatalf("magic = %q, want %q", buf[0:4], Magic)
	}
	got, err := ParseHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.TileW != 64 || got.TileH != 64 || got.BPP != 4 {
		t.Fatalf("tile geometry mismatch: %+v", got)
	}
	if got.Width != 256 || got.Height != 256 || got.X != 10 || int32(got.Y) != -20 {
		t.Fatalf("rect mismatch: %+v", got)
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter("R'G'B'A u8", 4, 4, 4)
	w.SetRect(8, 4, 0, 0)

	tileSize := 4 * 4 * 4
	mk := func(fill byte) []byte {
		d := make([]byte, tileSize)
		for i := range d {
			d[i] = fill
		}
		return d
	}
	if err := w.AddTile(1, 0, 0, mk(1)); err != nil {
		t.Fatal(err)
	}
	if err := w.AddTile(0, 0, 0, mk(0)); err != nil {
		t.Fatal(err)
	}
	if err := w.AddTile(0, 0, 1, mk(9)); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := w.Save(&buf); err != nil {
		t.Fatal(err)
	}

	rd, err := Open(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if rd.Header.TileW != 4 || rd.Header.TileH != 4 || rd.Header.BPP != 4 {
		t.Fatalf("header geometry mismatch: %+v", rd.Header)
	}
	entries := rd.Entries()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	// Level 0 entries must sort before level 1.
	if entries[len(entries)-1].Z != 1 {
		t.Fatalf("expected level-1 tile last, got order %+v", entries)
	}
	found := map[[2]int32]byte{}
	for _, e := range entries {
		if e.Z != 0 {
			continue
		}
		found[[2]int32{e.X, e.Y}] = e.Data[0]
	}
	if found[[2]int32{0, 0}] != 0 || found[[2]int32{1, 0}] != 1 {
		t.Fatalf("tile payloads mismatched: %+v", found)
	}
}

func TestWriterAddTileRejectsWrongSize(t *testing.T) {
	w := NewWriter("Y u8", 4, 4, 1)
	if err := w.AddTile(0, 0, 0, make([]byte, 3)); err == nil {
		t.Fatal("expected error for mismatched payload size")
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.gflow")

	fb, err := OpenFileBackend(path, "R'G'B'A u8", 4, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	tile := tilepkg.New(4 * 4 * 4)
	tile.Lock()
	for i := range tile.Data() {
		tile.Data()[i] = byte(i % 251)
	}
	tile.UnlockNoVoid()

	if err := fb.Set(2, 3, tile); err != nil {
		t.Fatal(err)
	}
	fb.SetRect(16, 16, 0, 0)
	if err := fb.Flush(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist after Flush: %v", err)
	}

	fb2, err := OpenFileBackend(path, "R'G'B'A u8", 4, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := fb2.Exist(2, 3)
	if err != nil || !ok {
		t.Fatalf("Exist(2,3) = %v, %v; want true, nil", ok, err)
	}
	got, err := fb2.Get(2, 3)
	if err != nil || got == nil {
		t.Fatalf("Get(2,3) = %v, %v", got, err)
	}
	got.ReadLock()
	defer got.ReadUnlock()
	for i, b := range got.Data() {
		if b != byte(i%251) {
			t.Fatalf("byte %d: got %d want %d", i, b, byte(i%251))
		}
	}

	if err := fb2.Void(2, 3); err != nil {
		t.Fatal(err)
	}
	if ok, _ := fb2.Exist(2, 3); ok {
		t.Fatal("expected tile to be gone after Void")
	}
}
