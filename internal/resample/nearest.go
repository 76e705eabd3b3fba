package resample

import "github.com/kestrelraster/tilestore/internal/geom"

// Nearest implements spec.md §4.7's Nearest sampler: floor the
// coordinates, fetch that single pixel.
type Nearest struct{}

func NewNearest() *Nearest { return &Nearest{} }

func (*Nearest) Name() string           { return "NEAREST" }
func (*Nearest) ContextRect() (int, int) { return 1, 1 }

func (*Nearest) Get(src Source, x, y float64, _ *ScaleMatrix) [4]float64 {
	ix, iy := floorInt(x), floorInt(y)
	strip := src.FetchRegion(geom.Rect{X: ix, Y: iy, W: 1, H: 1})
	if len(strip) < 4 {
		return [4]float64{}
	}
	return [4]float64{strip[0], strip[1], strip[2], strip[3]}
}

func floorInt(v float64) int {
	i := int(v)
	if v < float64(i) {
		i--
	}
	return i
}
