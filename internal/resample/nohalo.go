package resample

import (
	"math"

	"github.com/kestrelraster/tilestore/internal/geom"
)

// Nohalo implements spec.md §4.7's Nohalo sampler: like Lohalo, but the
// central stencil is first refined by one level of co-monotone (minmod)
// nonlinear subdivision before the cubic blend, and the EWA fallback uses
// the "teepee" radial tent kernel instead of Robidoux.
//
// This subdivides with a real minmod slope limiter (so the refined
// "virtual values" introduce no new local extrema, the defining property
// of Nohalo's construction) and feeds the refined 4x4 stencil through the
// same sigmoidized-cubic blend Lohalo uses as a stand-in for full LBB
// (Locally Bounded Bicubic) interpolation — documented as a simplification
// in DESIGN.md, since LBB's exact bounding construction is not specified
// in enough detail by spec.md to transcribe faithfully.
type Nohalo struct{}

func NewNohalo() *Nohalo { return &Nohalo{} }

func (*Nohalo) Name() string            { return "NOHALO" }
func (*Nohalo) ContextRect() (int, int) { return 27, 27 }

func (*Nohalo) Get(src Source, x, y float64, scale *ScaleMatrix) [4]float64 {
	if boxed, ok := tryBoxGet(src, x, y, scale); ok {
		return boxed
	}
	return nohaloBlend(src, x, y, scale)
}

func minmod(a, b float64) float64 {
	if a*b <= 0 {
		return 0
	}
	if math.Abs(a) < math.Abs(b) {
		return a
	}
	return b
}

// subdivide applies one level of minmod-limited nonlinear refinement to a
// w x h grid of per-channel values, nudging each interior sample toward
// its neighborhood's co-monotone slope without overshooting.
func subdivide(grid [][4]float64, w, h int) [][4]float64 {
	out := make([][4]float64, len(grid))
	copy(out, grid)
	for j := 1; j < h-1; j++ {
		for i := 1; i < w-1; i++ {
			idx := j*w + i
			for c := 0; c < 4; c++ {
				dx := minmod(grid[idx+1][c]-grid[idx][c], grid[idx][c]-grid[idx-1][c])
				dy := minmod(grid[idx+w][c]-grid[idx][c], grid[idx][c]-grid[idx-w][c])
				out[idx][c] = grid[idx][c] + 0.25*dx + 0.25*dy
			}
		}
	}
	return out
}

func nohaloBlend(src Source, x, y float64, scale *ScaleMatrix) [4]float64 {
	fx0 := x - 0.5
	fy0 := y - 0.5
	ix := floorInt(fx0)
	iy := floorInt(fy0)
	fx := fx0 - float64(ix)
	fy := fy0 - float64(iy)

	const half = 13
	region := geom.Rect{X: ix - half, Y: iy - half, W: 27, H: 27}
	strip := src.FetchRegion(region)
	if len(strip) < 27*27*4 {
		return [4]float64{}
	}

	// Refine the central 6x6 neighborhood (enough margin for the 4x4
	// stencil's minmod slopes at its edges) then take the inner 4x4.
	const n = 6
	off0 := ((half - 2) * 27 + (half - 2)) * 4
	grid := make([][4]float64, n*n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			o := off0 + (j*27+i)*4
			grid[j*n+i] = [4]float64{strip[o], strip[o+1], strip[o+2], strip[o+3]}
		}
	}
	refined := subdivide(grid, n, n)

	stencil := make([]float64, 4*4*4)
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			v := refined[(j+1)*n+(i+1)]
			o := (j*4 + i) * 4
			stencil[o], stencil[o+1], stencil[o+2], stencil[o+3] = v[0], v[1], v[2], v[3]
		}
	}
	cubic := mitchellStencil(stencil, fx, fy)

	m := Identity
	if scale != nil {
		m = *scale
	}
	major, minor := m.singularValues()
	if major*major <= 1 {
		return cubic
	}
	if minor < 1 {
		minor = 1
	}
	sum, totalW := ewaWeightedSum(strip, 27, 27, half, half, major, minor, teepeeKernel)
	if totalW <= 0 {
		return cubic
	}
	theta := 1 / (major * minor)
	var out [4]float64
	for c := 0; c < 4; c++ {
		out[c] = theta*cubic[c] + (1-theta)*(sum[c]/totalW)
	}
	return out
}
