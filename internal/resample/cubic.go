package resample

import (
	"math"

	"github.com/kestrelraster/tilestore/internal/geom"
)

// Cubic implements spec.md §4.7's Keys-family BC-spline sampler: a
// separable 4x4 kernel parameterized by (B, C). Default B=0.5,
// C=(1-B)/2=0.25. (Mitchell-Netravali is the B=C=1/3 member of this
// family, used by ewa.go's mitchellNetravali.)
//
// The original accepted a string `type` knob ("cubic"/"catmullrom"/
// "formula") that re-derived (B, C); per the DESIGN NOTES this was a
// deprecated no-op by the time of translation (only the numeric B/C ever
// mattered), so only the numeric constructor is exposed here — see
// DESIGN.md's Open Question resolution.
type Cubic struct {
	b, c float64
}

func NewCubic(b, c float64) *Cubic { return &Cubic{b: b, c: c} }

func (*Cubic) Name() string            { return "CUBIC" }
func (*Cubic) ContextRect() (int, int) { return 5, 5 }

// kernel evaluates the BC-spline weight at parameter t (spec.md §4.7).
func (k *Cubic) kernel(t float64) float64 {
	t = math.Abs(t)
	b, c := k.b, k.c
	switch {
	case t <= 1:
		return ((12-9*b-6*c)*t*t*t + (-18+12*b+6*c)*t*t + (6 - 2*b)) / 6
	case t < 2:
		return ((-b-6*c)*t*t*t + (6*b+30*c)*t*t + (-12*b-48*c)*t + (8*b + 24*c)) / 6
	default:
		return 0
	}
}

func (k *Cubic) Get(src Source, x, y float64, scale *ScaleMatrix) [4]float64 {
	if boxed, ok := tryBoxGet(src, x, y, scale); ok {
		return boxed
	}
	fx0 := x - 0.5
	fy0 := y - 0.5
	ix := floorInt(fx0)
	iy := floorInt(fy0)
	fx := fx0 - float64(ix)
	fy := fy0 - float64(iy)

	// 4x4 stencil centered so that source pixel ix sits at offset 1.
	strip := src.FetchRegion(geom.Rect{X: ix - 1, Y: iy - 1, W: 4, H: 4})
	if len(strip) < 64 {
		return [4]float64{}
	}

	var wx, wy [4]float64
	for i := 0; i < 4; i++ {
		wx[i] = k.kernel(fx - float64(i-1))
		wy[i] = k.kernel(fy - float64(i-1))
	}

	var out [4]float64
	for dy := 0; dy < 4; dy++ {
		var row [4]float64
		rowOff := dy * 4 * 4
		for dx := 0; dx < 4; dx++ {
			off := rowOff + dx*4
			for c := 0; c < 4; c++ {
				row[c] += strip[off+c] * wx[dx]
			}
		}
		for c := 0; c < 4; c++ {
			out[c] += row[c] * wy[dy]
		}
	}
	return out
}
