package resample

import (
	"math"

	"github.com/kestrelraster/tilestore/internal/geom"
)

// Shared machinery for Lohalo and Nohalo (spec.md §4.7): a sigmoidized
// Mitchell-Netravali cubic blended with a clamped elliptical-weighted-
// average (EWA) correction, weighted by how much real downsampling the
// scale matrix indicates.

const sigmoidC = 3.386

// sigmoid maps [0,1] -> [0,1] by tanh(0.5*C*(p-0.5)), rescaled so that 0
// and 1 map to themselves. Arguments outside [0,1] follow the same tanh
// curve; there is no linear extrapolation beyond the interval.
// mitchellStencil clamps its inputs to [0,1] before calling it.
func sigmoid(p float64) float64 {
	half := sigmoidC / 2
	lo := math.Tanh(-half / 2)
	hi := math.Tanh(half / 2)
	v := math.Tanh(half * (p - 0.5))
	return (v - lo) / (hi - lo)
}

func sigmoidInverse(p float64) float64 {
	half := sigmoidC / 2
	lo := math.Tanh(-half / 2)
	hi := math.Tanh(half / 2)
	v := lo + p*(hi-lo)
	return math.Atanh(v)/half + 0.5
}

var mitchellNetravali = NewCubic(1.0/3, 1.0/3)

// mitchellStencil evaluates the tensor-product Mitchell-Netravali cubic
// over a 4x4 stencil centered at (ix+1, iy+1) with fractional offsets
// (fx, fy), sigmoidizing the RGB channels (not alpha) before blending and
// un-sigmoidizing the result, per spec.md's Lohalo description.
func mitchellStencil(strip []float64, fx, fy float64) [4]float64 {
	var wx, wy [4]float64
	for i := 0; i < 4; i++ {
		wx[i] = mitchellNetravali.kernel(fx - float64(i-1))
		wy[i] = mitchellNetravali.kernel(fy - float64(i-1))
	}
	var out [4]float64
	for dy := 0; dy < 4; dy++ {
		var row [4]float64
		rowOff := dy * 4 * 4
		for dx := 0; dx < 4; dx++ {
			off := rowOff + dx*4
			for c := 0; c < 3; c++ {
				row[c] += sigmoid(clamp01(strip[off+c])) * wx[dx]
			}
			row[3] += strip[off+3] * wx[dx]
		}
		for c := 0; c < 3; c++ {
			out[c] += row[c] * wy[dy]
		}
		out[3] += row[3] * wy[dy]
	}
	for c := 0; c < 3; c++ {
		out[c] = sigmoidInverse(clamp01(out[c]))
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ewaKernel computes the radial weight for squared distance r2 within a
// unit-disk-normalized ellipse, using either the Robidoux constants
// (Lohalo) or the "teepee" radial tent (Nohalo).
type ewaKernel func(r2 float64) float64

// robidouxKernel implements spec.md's clamped-EWA-Robidoux weight:
// w(s,t) = r^2*a3*r + a2*r^2 + a0 inside the unit disk (r = sqrt(r2)),
// (r - r_inner)*(r - 2)^2 in the annulus [1,2), else 0.
func robidouxKernel(r2 float64) float64 {
	const (
		rInner = (-103 - 36*math.Sqrt2) / (7 + 72*math.Sqrt2)
		a3     = -3.0
	)
	a2 := (45739 + 7164*math.Sqrt2) / 10319
	a0 := (-8926 - 14328*math.Sqrt2) / 10319
	r := math.Sqrt(r2)
	switch {
	case r < 1:
		return r2*a3*r + a2*r2 + a0
	case r < 2:
		return (r - rInner) * (r - 2) * (r - 2)
	default:
		return 0
	}
}

// teepeeKernel is Nohalo's EWA fallback: a radial tent (linear falloff)
// instead of Robidoux's cubic-ish profile.
func teepeeKernel(r2 float64) float64 {
	r := math.Sqrt(r2)
	if r >= 2 {
		return 0
	}
	return 1 - r/2
}

// ewaWeightedSum accumulates an elliptical-weighted average over the
// bounding box of the post-clamp ellipse implied by major/minor and the
// rotation-free axis-aligned approximation used throughout this package.
func ewaWeightedSum(strip []float64, w, h, cx, cy int, major, minor float64, kernel ewaKernel) (sum [4]float64, totalW float64) {
	for dy := 0; dy < h; dy++ {
		ry := (float64(dy-cy)) / minor
		for dx := 0; dx < w; dx++ {
			rx := (float64(dx-cx)) / major
			r2 := rx*rx + ry*ry
			if r2 >= 4 {
				continue
			}
			wgt := kernel(r2)
			if wgt <= 0 {
				continue
			}
			off := (dy*w + dx) * 4
			for c := 0; c < 4; c++ {
				sum[c] += strip[off+c] * wgt
			}
			totalW += wgt
		}
	}
	return sum, totalW
}

// ewaBlend implements the shared Lohalo/Nohalo machinery: fetch a 27x27
// context rect, compute the sigmoidized Mitchell-Netravali cubic over the
// central 4x4 stencil, and — when the scale matrix indicates real
// downsampling (top singular value > 1) — blend it with an EWA weighted
// sum over the post-clamp ellipse, per spec.md's blend rule
// out = theta*cubic + (1-theta)/W*ewa.
func ewaBlend(src Source, x, y float64, scale *ScaleMatrix, kernel ewaKernel) [4]float64 {
	fx0 := x - 0.5
	fy0 := y - 0.5
	ix := floorInt(fx0)
	iy := floorInt(fy0)
	fx := fx0 - float64(ix)
	fy := fy0 - float64(iy)

	const half = 13 // (27-1)/2
	region := geom.Rect{X: ix - half, Y: iy - half, W: 27, H: 27}
	strip := src.FetchRegion(region)
	if len(strip) < 27*27*4 {
		return [4]float64{}
	}

	// Central 4x4 stencil for the cubic term sits at offset (half-1, half-1).
	stencilOff := ((half - 1) * 27 + (half - 1)) * 4
	stencilStrip := make([]float64, 4*4*4)
	for dy := 0; dy < 4; dy++ {
		copy(stencilStrip[dy*16:dy*16+16], strip[stencilOff+dy*27*4:stencilOff+dy*27*4+16])
	}
	cubic := mitchellStencil(stencilStrip, fx, fy)

	m := Identity
	if scale != nil {
		m = *scale
	}
	major, minor := m.singularValues()
	if major*major <= 1 {
		// No real downsampling: the cubic term alone is the answer.
		return cubic
	}
	if minor < 1 {
		minor = 1
	}

	sum, totalW := ewaWeightedSum(strip, 27, 27, half, half, major, minor, kernel)
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
