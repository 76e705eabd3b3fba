// Package pixfmt models the external pixel-format / colorspace conversion
// library as an opaque handle plus two black-box entry points. The engine
// above this package never inspects pixel bytes directly: it memcpys them,
// hands them to ConvertPixels/ConvertRows, or hands them to a resampler that
// knows the component layout.
package pixfmt

import "fmt"

// ComponentType identifies the storage type of one pixel component.
type ComponentType int

const (
	U8 ComponentType = iota
	U16
	U32
	F32
	F64
)

func (c ComponentType) size() int {
	switch c {
	case U8:
		return 1
	case U16:
		return 2
	case U32, F32:
		return 4
	case F64:
		return 8
	default:
		return 0
	}
}

// ModelFlags carries boolean properties of a format's color model.
type ModelFlags uint32

const (
	Linear ModelFlags = 1 << iota
	CMYK
	HasAlpha
)

// Format is an opaque pixel-format handle: bytes-per-pixel, component type,
// model flags, and component count. The engine treats it as a black box.
type Format struct {
	name       string
	bpp        int
	component  ComponentType
	components int
	flags      ModelFlags
}

// BytesPerPixel returns the format's fixed pixel size in bytes.
func (f Format) BytesPerPixel() int { return f.bpp }

// Component returns the storage type of each component.
func (f Format) Component() ComponentType { return f.component }

// NumComponents returns the number of components per pixel.
func (f Format) NumComponents() int { return f.components }

// HasFlag reports whether a model flag is set.
func (f Format) HasFlag(flag ModelFlags) bool { return f.flags&flag != 0 }

// Name returns the format's registered name.
func (f Format) Name() string { return f.name }

// IsZero reports whether f is the zero Format (no format set).
func (f Format) IsZero() bool { return f.bpp == 0 }

func (f Format) String() string {
	return fmt.Sprintf("%s(bpp=%d,comp=%d,n=%d)", f.name, f.bpp, f.component, f.components)
}

var registry = map[string]Format{}

func register(name string, comp ComponentType, n int, flags ModelFlags) Format {
	f := Format{
		name:       name,
		bpp:        comp.size() * n,
		component:  comp,
		components: n,
		flags:      flags,
	}
	registry[name] = f
	return f
}

// Built-in formats sufficient to exercise the engine and its test suite
// without depending on an external colour-management library (spec.md §1
// treats the real conversion library as an external black box; these are
// the minimal concrete formats needed to drive the pipeline end to end).
var (
	RGBA8    = register("RGBA8", U8, 4, HasAlpha)
	RGBAU16  = register("RGBAU16", U16, 4, HasAlpha)
	RGBAF32  = register("RGBAF32", F32, 4, HasAlpha|Linear)
	Gray8    = register("Gray8", U8, 1, 0)
	GrayA8   = register("GrayA8", U8, 2, HasAlpha)
	Gray16   = register("Gray16", U16, 1, 0)
	CMYK8    = register("CMYK8", U8, 4, CMYK)
)

// Lookup returns a previously registered format by name.
func Lookup(name string) (Format, bool) {
	f, ok := registry[name]
	return f, ok
}

// Register installs a caller-supplied format under name, returning the
// handle. Permits pluggable formats beyond the built-in set.
func Register(name string, comp ComponentType, numComponents int, flags ModelFlags) Format {
	return register(name, comp, numComponents, flags)
}
