package gflow

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/kestrelraster/tilestore/internal/tilepkg"
)

// FileBackend is the persistent, on-disk counterpart of
// internal/storage.MemBackend: it implements storage.Backend against a
// gflow file. Level-0 tiles are loaded into memory at Open time (as
// MemBackend already holds its tiles in memory) and the file is rewritten
// whole on Flush; this trades incremental disk I/O for the simplicity of
// reusing gflow.Writer/Reader's whole-file shape, an acceptable tradeoff
// for a format whose level-0 tile set is expected to fit comfortably in
// memory (spec.md never requires partial-file updates).
type FileBackend struct {
	mu sync.Mutex

	path                string
	formatName          string
	tileW, tileH, bpp   int
	width, height, x, y int

	tiles map[[2]int32][]byte
	dirty bool
}

// OpenFileBackend opens path, loading any existing level-0 tiles, or
// starts an empty backend if the file does not yet exist.
func OpenFileBackend(path, formatName string, tileW, tileH, bpp int) (*FileBackend, error) {
	fb := &FileBackend{
		path: path, formatName: formatName,
		tileW: tileW, tileH: tileH, bpp: bpp,
		tiles: make(map[[2]int32][]byte),
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return fb, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gflow: open %s: %w", path, err)
	}
	defer f.Close()

	rd, err := Open(f)
	if err != nil {
		return nil, fmt.Errorf("gflow: load %s: %w", path, err)
	}
	fb.width, fb.height, fb.x, fb.y = int(rd.Header.Width), int(rd.Header.Height), int(rd.Header.X), int(rd.Header.Y)
	for _, e := range rd.Entries() {
		if e.Z == 0 {
			fb.tiles[[2]int32{e.X, e.Y}] = e.Data
		}
	}
	return fb, nil
}

func (fb *FileBackend) Get(x, y int32) (*tilepkg.Tile, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	raw, ok := fb.tiles[[2]int32{x, y}]
	if !ok {
		return nil, nil
	}
	t := tilepkg.New(len(raw))
	t.X, t.Y = x, y
	t.Lock()
	copy(t.Data(), raw)
	t.UnlockNoVoid()
	return t, nil
}

func (fb *FileBackend) Set(x, y int32, t *tilepkg.Tile) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	t.ReadLock()
	buf := make([]byte, len(t.Data()))
	copy(buf, t.Data())
	t.ReadUnlock()
	fb.tiles[[2]int32{x, y}] = buf
	fb.dirty = true
	return nil
}

func (fb *FileBackend) Exist(x, y int32) (bool, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	_, ok := fb.tiles[[2]int32{x, y}]
	return ok, nil
}

func (fb *FileBackend) Void(x, y int32) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	delete(fb.tiles, [2]int32{x, y})
	fb.dirty = true
	return nil
}

// OriginX, OriginY, Width, and Height report the saved buffer rectangle
// loaded from the file's header (zero for a freshly created backend).
func (fb *FileBackend) OriginX() int { return fb.x }
func (fb *FileBackend) OriginY() int { return fb.y }
func (fb *FileBackend) Width() int   { return fb.width }
func (fb *FileBackend) Height() int  { return fb.height }

// SetRect records the saved buffer rectangle written into the header on
// the next Flush.
func (fb *FileBackend) SetRect(width, height, x, y int) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.width, fb.height, fb.x, fb.y = width, height, x, y
	fb.dirty = true
}

// Flush rewrites the entire file from the in-memory tile set, if dirty.
func (fb *FileBackend) Flush() error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if !fb.dirty {
		return nil
	}
	w := NewWriter(fb.formatName, fb.tileW, fb.tileH, fb.bpp)
	w.SetRect(fb.width, fb.height, fb.x, fb.y)
	for k, data := range fb.tiles {
		if err := w.AddTile(k[0], k[1], 0, data); err != nil {
			return err
		}
	}

	tmp := fb.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("gflow: create %s: %w", tmp, err)
	}
	if err := w.Save(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, fb.path); err != nil {
		return fmt.Errorf("gflow: rename %s to %s: %w", tmp, fb.path, err)
	}
	fb.dirty = false
	return nil
}
