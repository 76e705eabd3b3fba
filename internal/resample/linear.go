package resample

import "github.com/kestrelraster/tilestore/internal/geom"

// Linear implements spec.md §4.7's bilinear sampler: a 2x2 neighborhood
// around (floor(x-0.5), floor(y-0.5)) weighted by the fractional offsets.
type Linear struct{}

func NewLinear() *Linear { return &Linear{} }

func (*Linear) Name() string           { return "LINEAR" }
func (*Linear) ContextRect() (int, int) { return 3, 3 }

func (*Linear) Get(src Source, x, y float64, scale *ScaleMatrix) [4]float64 {
	if boxed, ok := tryBoxGet(src, x, y, scale); ok {
		return boxed
	}
	fx0 := x - 0.5
	fy0 := y - 0.5
	ix := floorInt(fx0)
	iy := floorInt(fy0)
	fx := fx0 - float64(ix)
	fy := fy0 - float64(iy)

	strip := src.FetchRegion(geom.Rect{X: ix, Y: iy, W: 2, H: 2})
	if len(strip) < 16 {
		return [4]float64{}
	}
	at := func(dx, dy int) [4]float64 {
		off := (dy*2 + dx) * 4
		return [4]float64{strip[off], strip[off+1], strip[off+2], strip[off+3]}
	}
	p00, p10 := at(0, 0), at(1, 0)
	p01, p11 := at(0, 1), at(1, 1)

	w00 := (1 - fx) * (1 - fy)
	w10 := fx * (1 - fy)
	w01 := (1 - fx) * fy
	w11 := fx * fy

	var out [4]float64
	for c := 0; c < 4; c++ {
		out[c] = p00[c]*w00 + p10[c]*w10 + p01[c]*w01 + p11[c]*w11
	}
	return out
}
