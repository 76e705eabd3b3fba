// Package resample implements the pixel resampling layer (spec.md §4.7):
// nearest, bilinear, cubic (Keys/BC-spline), box, and the EWA-blended
// Lohalo/Nohalo samplers. Samplers never touch tile storage directly —
// they pull already-abyss-resolved pixel values from a Source, so the
// same code drives both internal/buffer's Get path and any future caller.
//
// Grounded on the teacher's 2x box-downscale quadrant loops
// (internal/tile/downsample.go) for the separable-kernel row/column
// structure, and on _examples/oov-downscale's tile-buffer-reuse idiom
// (rgbaTilePool, LCM row tables) for the working-region strip cache,
// generalized from a fixed RGBA8 2x box filter to arbitrary scale and
// arbitrary sampler kernel.
package resample

import (
	"math"

	"github.com/kestrelraster/tilestore/internal/geom"
)

// Source supplies already abyss-resolved pixel values in the universal
// (r, g, b, a) interpolation format for a rectangular region of buffer
// space. Row-major, a.W*a.H*4 float64 values.
type Source interface {
	FetchRegion(r geom.Rect) []float64
}

// ScaleMatrix is the 2x2 inverse Jacobian mapping a unit disk in
// destination space back to source space, used by Box/Lohalo/Nohalo to
// decide how aggressively to low-pass filter.
type ScaleMatrix struct {
	A, B, C, D float64
}

// Identity is the scale matrix for a 1:1 (no scaling) sample.
var Identity = ScaleMatrix{A: 1, D: 1}

// columnNorms returns the Euclidean lengths of the matrix's two columns —
// how far a unit step in each destination axis maps in source space.
func (m ScaleMatrix) columnNorms() (float64, float64) {
	return math.Hypot(m.A, m.C), math.Hypot(m.B, m.D)
}

// singularValues returns the major and minor singular values (major >=
// minor >= 0) of the 2x2 matrix, via the closed-form 2x2 SVD.
func (m ScaleMatrix) singularValues() (major, minor float64) {
	e := (m.A + m.D) / 2
	f := (m.A - m.D) / 2
	g := (m.C + m.B) / 2
	h := (m.C - m.B) / 2
	q := math.Hypot(e, h)
	r := math.Hypot(f, g)
	s1 := q + r
	s2 := math.Abs(q - r)
	if s1 < s2 {
		s1, s2 = s2, s1
	}
	return s1, s2
}

// Sampler evaluates a buffer at floating-point coordinates (corner
// convention: pixel (0,0)'s center is (0.5, 0.5)).
type Sampler interface {
	Name() string
	// ContextRect returns the (odd) width/height of the neighborhood this
	// sampler needs centered on the query point, used by callers to decide
	// how large a working-region strip to keep cached.
	ContextRect() (w, h int)
	// Get evaluates the sampler at (x, y). scale is nil for a plain 1:1 (or
	// upsampling) query; non-nil when the caller wants the sampler's
	// downsampling behavior (Box/Lohalo/Nohalo) to engage.
	Get(src Source, x, y float64, scale *ScaleMatrix) [4]float64
}

// Lookup returns a sampler by name. Valid names: NEAREST, LINEAR, CUBIC,
// BOX, NOHALO, LOHALO. Defaults to LINEAR for an empty/unknown name, matching
// buffer_sampler_new's documented default.
func Lookup(name string) Sampler {
	switch name {
	case "NEAREST":
		return NewNearest()
	case "CUBIC":
		return NewCubic(0.5, 0.25)
	case "BOX":
		return NewBox()
	case "NOHALO":
		return NewNohalo()
	case "LOHALO":
		return NewLohalo()
	default:
		return NewLinear()
	}
}
