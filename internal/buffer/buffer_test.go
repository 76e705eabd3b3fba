package buffer

import (
	"testing"

	"github.com/kestrelraster/tilestore/internal/geom"
	"github.com/kestrelraster/tilestore/internal/pixfmt"
	"github.com/kestrelraster/tilestore/internal/storage"
)

func newTestBuffer(extent geom.Rect) *Buffer {
	st := storage.New(storage.Config{
		TileW: 8, TileH: 8, Format: pixfmt.RGBA8, Backend: storage.NewMemBackend(), CacheEntries: 64,
	})
	return New(st, extent)
}

func fillPixel(dst []byte, i int, r, g, b2, a byte) {
	dst[i*4+0], dst[i*4+1], dst[i*4+2], dst[i*4+3] = r, g, b2, a
}

// TestRoundTripIdentity covers spec.md's S1: for any rect inside extent and
// abyss, set(rect) then get(rect, 1.0) must reproduce the bytes exactly.
func TestRoundTripIdentity(t *testing.T) {
	buf := newTestBuffer(geom.Rect{X: 0, Y: 0, W: 32, H: 32})
	rect := geom.Rect{X: 3, Y: 5, W: 10, H: 6}
	src := make([]byte, rect.W*rect.H*4)
	for i := range rect.W * rect.H {
		fillPixel(src, i, byte(i), byte(i*2), byte(i*3), 255)
	}
	if err := buf.Set(rect, 0, pixfmt.RGBA8, src, rect.W*4); err != nil {
		t.Fatal(err)
	}
	dst := make([]byte, rect.W*rect.H*4)
	if err := buf.Get(rect, 1.0, pixfmt.RGBA8, dst, rect.W*4, AbyssNone, FilterAuto); err != nil {
		t.Fatal(err)
	}
	for i := range src {
		if src[i] != dst[i] {
			t.Fatalf("round-trip mismatch at byte %d: wrote %d got %d", i, src[i], dst[i])
		}
	}
}

// TestAbyssNoneZeroesOutside covers S2's NONE case.
func TestAbyssNoneZeroesOutside(t *testing.T) {
	buf := newTestBuffer(geom.Rect{X: 0, Y: 0, W: 20, H: 20})
	buf.SetAbyss(geom.Rect{X: 5, Y: 5, W: 10, H: 10})

	rect := geom.Rect{X: 0, Y: 0, W: 20, H: 20}
	dst := make([]byte, rect.W*rect.H*4)
	if err := buf.Get(rect, 1.0, pixfmt.RGBA8, dst, rect.W*4, AbyssNone, FilterAuto); err != nil {
		t.Fatal(err)
	}
	// top-left corner pixel (0,0) is outside abyss -> all zero bytes.
	if dst[0] != 0 || dst[1] != 0 || dst[2] != 0 || dst[3] != 0 {
		t.Fatalf("expected zero bytes outside abyss under NONE, got %v", dst[:4])
	}
}

// TestAbyssBlackFillsOpaqueBlack covers S2's BLACK case.
func TestAbyssBlackFillsOpaqueBlack(t *testing.T) {
	buf := newTestBuffer(geom.Rect{X: 0, Y: 0, W: 20, H: 20})
	buf.SetAbyss(geom.Rect{X: 5, Y: 5, W: 10, H: 10})

	rect := geom.Rect{X: 0, Y: 0, W: 20, H: 20}
	dst := make([]byte, rect.W*rect.H*4)
	if err := buf.Get(rect, 1.0, pixfmt.RGBA8, dst, rect.W*4, AbyssBlack, FilterAuto); err != nil {
		t.Fatal(err)
	}
	if dst[0] != 0 || dst[1] != 0 || dst[2] != 0 || dst[3] != 255 {
		t.Fatalf("expected opaque black outside abyss under BLACK, got %v", dst[:4])
	}
}

// TestAbyssClampProjectsNearestEdge covers spec.md's S3 scenario.
func TestAbyssClampProjectsNearestEdge(t *testing.T) {
	buf := newTestBuffer(geom.Rect{X: 0, Y: 0, W: 100, H: 100})
	buf.SetAbyss(geom.Rect{X: 10, Y: 10, W: 80, H: 80})

	// Write a distinctive value at the abyss origin pixel (10, 10).
	origin := []byte{7, 8, 9, 255}
	if err := buf.Set(geom.Rect{X: 10, Y: 10, W: 1, H: 1}, 0, pixfmt.RGBA8, origin, 4); err != nil {
		t.Fatal(err)
	}

	rect := geom.Rect{X: -5, Y: -5, W: 20, H: 20}
	dst := make([]byte, rect.W*rect.H*4)
	if err := buf.Get(rect, 1.0, pixfmt.RGBA8, dst, rect.W*4, AbyssClamp, FilterAuto); err != nil {
		t.Fatal(err)
	}
	// The top-left 5x5 block must equal the abyss-origin pixel value.
	for row := 0; row < 5; row++ {
		for col := 0; col < 5; col++ {
			off := (row*rect.W + col) * 4
			got := dst[off : off+4]
			for c := 0; c < 4; c++ {
				if got[c] != origin[c] {
					t.Fatalf("CLAMP block (%d,%d) expected %v, got %v", row, col, origin, got)
				}
			}
		}
	}
}

// TestAbyssLoopWraps covers spec.md's S4 scenario.
func TestAbyssLoopWraps(t *testing.T) {
	buf := newTestBuffer(geom.Rect{X: -200, Y: -200, W: 400, H: 400})
	buf.SetAbyss(geom.Rect{X: 10, Y: 10, W: 80, H: 80})

	// Fill the abyss with (x, y, 0, 255) so each pixel's value is unique.
	abyss := buf.Abyss()
	fill := make([]byte, abyss.W*abyss.H*4)
	for row := 0; row < abyss.H; row++ {
		for col := 0; col < abyss.W; col++ {
			i := row*abyss.W + col
			fillPixel(fill, i, byte(abyss.X+col), byte(abyss.Y+row), 0, 255)
		}
	}
	if err := buf.Set(abyss, 0, pixfmt.RGBA8, fill, abyss.W*4); err != nil {
		t.Fatal(err)
	}

	rect := geom.Rect{X: -50, Y: -50, W: 30, H: 30}
	dst := make([]byte, rect.W*rect.H*4)
	if err := buf.Get(rect, 1.0, pixfmt.RGBA8, dst, rect.W*4, AbyssLoop, FilterAuto); err != nil {
		t.Fatal(err)
	}

	wantX := 10 + geom.Mod(-50-10, 80)
	wantY := 10 + geom.Mod(-50-10, 80)
	got := dst[0:4]
	if int(got[0]) != wantX || int(got[1]) != wantY {
		t.Fatalf("LOOP local (0,0) expected pixel (%d,%d), got (%d,%d)", wantX, wantY, got[0], got[1])
	}
}

// TestCopyPreservesDataAcrossBuffers exercises the buffer-to-buffer copy
// fast path between two buffers over the same storage.
func TestCopyPreservesDataAcrossBuffers(t *testing.T) {
	st := storage.New(storage.Config{TileW: 8, TileH: 8, Format: pixfmt.RGBA8, Backend: storage.NewMemBackend(), CacheEntries: 64})
	src := New(st, geom.Rect{X: 0, Y: 0, W: 32, H: 32})
	dst := New(st, geom.Rect{X: 0, Y: 0, W: 32, H: 32})

	rect := geom.Rect{X: 0, Y: 0, W: 8, H: 8}
	data := make([]byte, 8*8*4)
	for i := range 8 * 8 {
		fillPixel(data, i, 200, 100, 50, 255)
	}
	if err := src.Set(rect, 0, pixfmt.RGBA8, data, 8*4); err != nil {
		t.Fatal(err)
	}
	dstRect := geom.Rect{X: 16, Y: 0, W: 8, H: 8}
	if err := src.Copy(rect, dst, dstRect); err != nil {
		t.Fatal(err)
	}
	out := make([]byte, 8*8*4)
	if err := dst.Get(dstRect, 1.0, pixfmt.RGBA8, out, 8*4, AbyssNone, FilterAuto); err != nil {
		t.Fatal(err)
	}
	for i := range out {
		if out[i] != data[i] {
			t.Fatalf("copy mismatch at byte %d: want %d got %d", i, data[i], out[i])
		}
	}
}

// TestGetScaledDownsampleAverages exercises the resampler-driven scaled
// read path against a checkerboard pattern.
func TestGetScaledDownsampleAverages(t *testing.T) {
	buf := newTestBuffer(geom.Rect{X: 0, Y: 0, W: 16, H: 16})
	data := make([]byte, 16*16*4)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			i := y*16 + x
			if (x+y)%2 == 0 {
				fillPixel(data, i, 255, 255, 255, 255)
			} else {
				fillPixel(data, i, 0, 0, 0, 255)
			}
		}
	}
	if err := buf.Set(geom.Rect{X: 0, Y: 0, W: 16, H: 16}, 0, pixfmt.RGBA8, data, 16*4); err != nil {
		t.Fatal(err)
	}
	dst := make([]byte, 4*4*4)
	if err := buf.Get(geom.Rect{X: 0, Y: 0, W: 16, H: 16}, 0.25, pixfmt.RGBA8, dst, 4*4, AbyssNone, "BOX"); err != nil {
		t.Fatal(err)
	}
	// A checkerboard box-averaged down should land near mid-gray everywhere.
	for i := range 16 {
		v := dst[i*4]
		if v < 80 || v > 180 {
			t.Fatalf("expected near mid-gray box downsample at pixel %d, got %d", i, v)
		}
	}
}
