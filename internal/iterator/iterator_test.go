package iterator

import (
	"testing"

	"github.com/kestrelraster/tilestore/internal/buffer"
	"github.com/kestrelraster/tilestore/internal/geom"
	"github.com/kestrelraster/tilestore/internal/pixfmt"
	"github.com/kestrelraster/tilestore/internal/storage"
)

func newBuf(t *testing.T, extent geom.Rect) *buffer.Buffer {
	t.Helper()
	st := storage.New(storage.Config{
		TileW: 8, TileH: 8, Format: pixfmt.RGBA8, Backend: storage.NewMemBackend(), CacheEntries: 64,
	})
	return buffer.New(st, extent)
}

// TestPointFilterDoublesValues drives a two-buffer point filter (dst = 2 *
// src, clamped) through the iterator and checks every pixel.
func TestPointFilterDoublesValues(t *testing.T) {
	extent := geom.Rect{X: 0, Y: 0, W: 16, H: 16}
	src := newBuf(t, extent)
	dst := newBuf(t, extent)

	data := make([]byte, 16*16*4)
	for i := range 16 * 16 {
		data[i*4+0] = byte(i % 100)
		data[i*4+3] = 255
	}
	if err := src.Set(extent, 0, pixfmt.RGBA8, data, 16*4); err != nil {
		t.Fatal(err)
	}

	srcSub := &SubIterator{Buf: src, Rect: extent, Mode: Read, Format: pixfmt.RGBA8}
	dstSub := &SubIterator{Buf: dst, Rect: extent, Mode: Write, Format: pixfmt.RGBA8}
	it := New(srcSub, dstSub)
	if err := it.Start(); err != nil {
		t.Fatal(err)
	}
	for {
		ok, err := it.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		sd, dd := srcSub.Data(), dstSub.Data()
		for i := 0; i < len(sd); i += 4 {
			v := int(sd[i]) * 2
			if v > 255 {
				v = 255
			}
			dd[i] = byte(v)
			dd[i+1] = sd[i+1]
			dd[i+2] = sd[i+2]
			dd[i+3] = sd[i+3]
		}
		dstSub.Mark()
	}
	if err := it.Stop(); err != nil {
		t.Fatal(err)
	}

	out := make([]byte, 16*16*4)
	if err := dst.Get(extent, 1.0, pixfmt.RGBA8, out, 16*4, buffer.AbyssNone, buffer.FilterAuto); err != nil {
		t.Fatal(err)
	}
	for i := range 16 * 16 {
		want := (int(data[i*4]) * 2)
		if want > 255 {
			want = 255
		}
		if int(out[i*4]) != want {
			t.Fatalf("pixel %d: want R=%d got R=%d", i, want, out[i*4])
		}
	}
}

// TestStartRejectsIncompatibleTileDims exercises the origin-grid
// compatibility check.
func TestStartRejectsIncompatibleTileDims(t *testing.T) {
	extent := geom.Rect{X: 0, Y: 0, W: 16, H: 16}
	a := newBuf(t, extent)
	st2 := storage.New(storage.Config{TileW: 4, TileH: 4, Format: pixfmt.RGBA8, Backend: storage.NewMemBackend()})
	b := buffer.New(st2, extent)

	it := New(
		&SubIterator{Buf: a, Rect: extent, Mode: Read, Format: pixfmt.RGBA8},
		&SubIterator{Buf: b, Rect: extent, Mode: Read, Format: pixfmt.RGBA8},
	)
	if err := it.Start(); err == nil {
		t.Fatal("expected incompatible tile dims to be rejected")
	}
}

// TestAliasDetectionSharesData verifies two sub-iterators addressing the
// same buffer/rect/format/level are marked aliases and share data.
func TestAliasDetectionSharesData(t *testing.T) {
	extent := geom.Rect{X: 0, Y: 0, W: 8, H: 8}
	buf := newBuf(t, extent)
	s1 := &SubIterator{Buf: buf, Rect: extent, Mode: Read, Format: pixfmt.RGBA8}
	s2 := &SubIterator{Buf: buf, Rect: extent, Mode: Read, Format: pixfmt.RGBA8}
	it := New(s1, s2)
	if err := it.Start(); err != nil {
		t.Fatal(err)
	}
	if s2.aliasOf != 0 {
		t.Fatalf("expected sub 2 to alias sub 0, got aliasOf=%d", s2.aliasOf)
	}
	ok, err := it.Next()
	if err != nil || !ok {
		t.Fatalf("Next failed: ok=%v err=%v", ok, err)
	}
	if &s1.data[0] != &s2.data[0] {
		t.Fatal("aliased sub-iterators should share the same backing data slice")
	}
	_ = it.Stop()
}
