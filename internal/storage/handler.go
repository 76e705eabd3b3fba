// Package storage implements the tile handler chain: cache, zoom, empty,
// and backend handlers composed behind a single Command-dispatch interface
// (spec.md §4.2). The chain is read top-down for GET (cache, then
// zoom-synthesis for mip levels above 0, then backend, then the shared
// empty tile) and write-through for SET (always installed in cache and, for
// level 0, forwarded to the backend).
package storage

import "github.com/kestrelraster/tilestore/internal/tilepkg"

// Command identifies the operation a Handler is asked to perform.
type Command int

const (
	CmdGet Command = iota
	CmdSet
	CmdVoid
	CmdExist
	CmdFlush
	CmdCopy
)

func (c Command) String() string {
	switch c {
	case CmdGet:
		return "get"
	case CmdSet:
		return "set"
	case CmdVoid:
		return "void"
	case CmdExist:
		return "exist"
	case CmdFlush:
		return "flush"
	case CmdCopy:
		return "copy"
	default:
		return "unknown"
	}
}

// Handler is a single link in the tile storage chain. User-installed
// handlers are consulted before the built-in cache/zoom/empty/backend
// chain, and may intercept, transform, or decline (by returning
// ErrNotHandled) any command.
type Handler interface {
	Command(cmd Command, x, y, z int32, arg any) (any, error)
}

// ErrNotHandled is returned by a user Handler that declines to service a
// command, letting the built-in chain continue processing it.
var errNotHandled = notHandledErr{}

type notHandledErr struct{}

func (notHandledErr) Error() string { return "storage: command not handled" }

// ErrNotHandled is the sentinel a Handler.Command should return to pass a
// command further down the chain.
var ErrNotHandled error = errNotHandled

// tileKey uniquely identifies a tile's grid position and mipmap level.
type tileKey struct {
	X, Y, Z int32
}

// SetArg and CopyArg carry the parameters that don't fit the (x, y, z) triple.
type SetArg struct {
	Tile *tilepkg.Tile
}

type CopyArg struct {
	Dst  Handler
	X2   int32
	Y2   int32
	Z2   int32
}
