package resample

import "github.com/kestrelraster/tilestore/internal/geom"

// WorkingRegion caches one mipmap level's row_stride x height pixel strip
// (spec.md §4.7's "common machinery" paragraph), re-fetching only when the
// needed context_rect falls outside the cached strip, and growing the
// fetch in the direction of the accumulated query delta to maximize reuse
// during raster-order traversals. Grounded on _examples/oov-downscale's
// rgbaTilePool reuse idiom (rgba8.go), generalized from a fixed-size byte
// pool to a geometry-aware float64 strip cache.
type WorkingRegion struct {
	cached   geom.Rect
	data     []float64
	valid    bool
	lastMinX int
	lastMinY int
	haveLast bool
}

// Levels holds up to 8 per-mipmap-level WorkingRegions, per spec.md's "up
// to 8 mipmap-level working regions" limit.
type Levels struct {
	regions [8]WorkingRegion
}

// Ensure returns a Source-compatible strip covering at least need,
// refetching from src only if need is not already contained in the cached
// strip for level. The grown rect extends in the direction the query
// window last moved (see grow), biasing reuse toward the common
// raster-scan access pattern.
func (l *Levels) Ensure(level int, src Source, need geom.Rect) Source {
	if level < 0 || level >= len(l.regions) {
		return directSource{src}
	}
	r := &l.regions[level]
	if r.valid && r.cached.Contains(need) {
		r.recordDelta(need)
		return r
	}
	grown := r.grow(need)
	data := src.FetchRegion(grown)
	r.cached = grown
	r.data = data
	r.valid = true
	r.recordDelta(need)
	return r
}

func (r *WorkingRegion) recordDelta(need geom.Rect) {
	r.lastMinX, r.lastMinY = need.X, need.Y
	r.haveLast = true
}

// grow extends need in the direction of the last query's movement, so a
// monotonic raster scan tends to re-trigger a fetch far less often than
// once per pixel.
func (r *WorkingRegion) grow(need geom.Rect) geom.Rect {
	pad := 8
	dx, dy := 0, 0
	if r.haveLast {
		if need.X > r.lastMinX {
			dx = 1
		} else if need.X < r.lastMinX {
			dx = -1
		}
		if need.Y > r.lastMinY {
			dy = 1
		} else if need.Y < r.lastMinY {
			dy = -1
		}
	}
	x, y := need.X, need.Y
	w, h := need.W, need.H
	if dx >= 0 {
		w += pad
	} else {
		x -= pad
		w += pad
	}
	if dy >= 0 {
		h += pad
	} else {
		y -= pad
		h += pad
	}
	return geom.Rect{X: x, Y: y, W: w, H: h}
}

// FetchRegion implements Source by slicing the cached strip.
func (r *WorkingRegion) FetchRegion(need geom.Rect) []float64 {
	out := make([]float64, need.W*need.H*4)
	stride := r.cached.W * 4
	for row := 0; row < need.H; row++ {
		srcY := need.Y - r.cached.Y + row
		if srcY < 0 || srcY >= r.cached.H {
			continue
		}
		srcRowOff := srcY * stride
		dstRowOff := row * need.W * 4
		for col := 0; col < need.W; col++ {
			srcX := need.X - r.cached.X + col
			if srcX < 0 || srcX >= r.cached.W {
				continue
			}
			copy(out[dstRowOff+col*4:dstRowOff+col*4+4], r.data[srcRowOff+srcX*4:srcRowOff+srcX*4+4])
		}
	}
	return out
}

type directSource struct{ Source }
