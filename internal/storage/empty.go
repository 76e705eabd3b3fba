package storage

import "github.com/kestrelraster/tilestore/internal/tilepkg"

// empty is the last link in the chain: it asks the Backend for the
// requested level-0 tile, and failing that returns a dup of the
// process-global shared zero tile so reads past the edge of written data
// always see well-defined (zero-filled) pixels rather than an error.
type empty struct {
	tileSize int
	backend  Backend
}

func newEmpty(tileSize int, backend Backend) *empty {
	return &empty{tileSize: tileSize, backend: backend}
}

func (e *empty) get(x, y, z int32) (*tilepkg.Tile, error) {
	if z == 0 && e.backend != nil {
		t, err := e.backend.Get(x, y)
		if err != nil {
			return nil, err
		}
		if t != nil {
			return t, nil
		}
	}
	return tilepkg.SharedZeroTile(e.tileSize), nil
}
