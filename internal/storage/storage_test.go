package storage

import (
	"testing"

	"github.com/kestrelraster/tilestore/internal/pixfmt"
	"github.com/kestrelraster/tilestore/internal/tilepkg"
)

func newTestStorage(t *testing.T) (*TileStorage, *MemBackend) {
	t.Helper()
	be := NewMemBackend()
	ts := New(Config{
		TileW:        4,
		TileH:        4,
		Format:       pixfmt.RGBA8,
		Backend:      be,
		CacheEntries: 16,
	})
	return ts, be
}

func TestGetFallsBackToZeroTile(t *testing.T) {
	ts, _ := newTestStorage(t)
	tile, err := ts.Get(5, 5, 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	tile.ReadLock()
	defer tile.ReadUnlock()
	for _, b := range tile.Data() {
		if b != 0 {
			t.Fatal("expected zero-filled tile for unwritten coordinate")
		}
	}
}

func TestSetThenGetRoundTrips(t *testing.T) {
	ts, _ := newTestStorage(t)
	tile := ts.NewTile()
	tile.Lock()
	for i := range tile.Data() {
		tile.Data()[i] = 0x42
	}
	tile.UnlockNoVoid()

	if err := ts.Set(1, 2, 0, tile); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := ts.Get(1, 2, 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got.ReadLock()
	defer got.ReadUnlock()
	for _, b := range got.Data() {
		if b != 0x42 {
			t.Fatal("round-tripped tile has wrong bytes")
		}
	}
}

func TestSetPersistsToBackend(t *testing.T) {
	ts, be := newTestStorage(t)
	tile := ts.NewTile()
	tile.Lock()
	tile.Data()[0] = 9
	tile.UnlockNoVoid()
	if err := ts.Set(3, 3, 0, tile); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// Evict from cache to force a backend round trip.
	ts.cache.purge()
	ts.invalidateHot(tileKey{3, 3, 0})

	fromBackend, err := be.Get(3, 3)
	if err != nil {
		t.Fatalf("backend Get: %v", err)
	}
	if fromBackend == nil {
		t.Fatal("expected tile to be persisted to backend")
	}
}

func TestZoomSynthesizesFromChildren(t *testing.T) {
	ts, _ := newTestStorage(t)
	child := ts.NewTile()
	child.Lock()
	for i := range child.Data() {
		child.Data()[i] = 0xFF
	}
	child.UnlockNoVoid()
	if err := ts.Set(0, 0, 0, child); err != nil {
		t.Fatalf("Set child: %v", err)
	}

	parent, err := ts.Get(0, 0, 1)
	if err != nil {
		t.Fatalf("Get parent: %v", err)
	}
	parent.ReadLock()
	defer parent.ReadUnlock()
	data := parent.Data()
	// Top-left quadrant (from the written child at 0,0) should be fully
	// opaque white; the other three quadrants (missing children) zero.
	half := ts.TileW / 2
	bpp := ts.Format.BytesPerPixel()
	stride := ts.TileW * bpp
	tl := data[0*stride+0*bpp]
	br := data[(half+1)*stride+(half+1)*bpp]
	if tl != 0xFF {
		t.Fatalf("expected top-left quadrant averaged from written child, got %d", tl)
	}
	if br != 0 {
		t.Fatalf("expected bottom-right quadrant to stay zero (no child), got %d", br)
	}
}

func TestVoidRemovesTile(t *testing.T) {
	ts, be := newTestStorage(t)
	tile := ts.NewTile()
	if err := ts.Set(2, 2, 0, tile); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := ts.Void(2, 2, 0); err != nil {
		t.Fatalf("Void: %v", err)
	}
	if ok, _ := be.Exist(2, 2); ok {
		t.Fatal("expected Void to remove the backend entry")
	}
}

func TestExistReportsSynthesizableHigherLevels(t *testing.T) {
	ts, _ := newTestStorage(t)
	ok, err := ts.Exist(0, 0, 3)
	if err != nil {
		t.Fatalf("Exist: %v", err)
	}
	if !ok {
		t.Fatal("expected level >= 1 tiles to always report existing (synthesizable)")
	}
}

func TestCopyDuplicatesWithoutMutatingSource(t *testing.T) {
	ts, _ := newTestStorage(t)
	src := ts.NewTile()
	src.Lock()
	src.Data()[0] = 0x77
	src.UnlockNoVoid()
	if err := ts.Set(0, 0, 0, src); err != nil {
		t.Fatalf("Set: %v", err)
	}

	dstStorage, _ := newTestStorage(t)
	if err := ts.Copy(0, 0, 0, CopyArg{Dst: dstStorage, X2: 9, Y2: 9, Z2: 0}); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	dst, err := dstStorage.Get(9, 9, 0)
	if err != nil {
		t.Fatalf("Get dst: %v", err)
	}
	dst.ReadLock()
	got := dst.Data()[0]
	dst.ReadUnlock()
	if got != 0x77 {
		t.Fatalf("expected copied byte 0x77, got %#x", got)
	}

	dst.Lock()
	dst.Data()[0] = 0x00
	dst.UnlockNoVoid()

	original, err := ts.Get(0, 0, 0)
	if err != nil {
		t.Fatalf("Get src: %v", err)
	}
	original.ReadLock()
	defer original.ReadUnlock()
	if original.Data()[0] != 0x77 {
		t.Fatal("writing to the copy mutated the original (COW broken)")
	}
}

func TestUserHandlerInterceptsGet(t *testing.T) {
	ts, _ := newTestStorage(t)
	sentinel := tilepkg.New(ts.tileSize)
	ts.userHandlers = append(ts.userHandlers, testHandler{
		onGet: func(x, y, z int32) (*tilepkg.Tile, error) {
			if x == 99 {
				return sentinel, nil
			}
			return nil, ErrNotHandled
		},
	})

	v, err := ts.Command(CmdGet, 99, 0, 0, nil)
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if v.(*tilepkg.Tile) != sentinel {
		t.Fatal("expected user handler's sentinel tile to win")
	}

	// A coordinate the handler declines should still reach the built-in
	// chain.
	v, err = ts.Command(CmdGet, 0, 0, 0, nil)
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if v.(*tilepkg.Tile) == sentinel {
		t.Fatal("user handler should have declined this coordinate")
	}
}

type testHandler struct {
	onGet func(x, y, z int32) (*tilepkg.Tile, error)
}

func (h testHandler) Command(cmd Command, x, y, z int32, arg any) (any, error) {
	if cmd == CmdGet && h.onGet != nil {
		return h.onGet(x, y, z)
	}
	return nil, ErrNotHandled
}
