package resample

import (
	"math"
	"testing"

	"github.com/kestrelraster/tilestore/internal/geom"
)

// gridSource is a Source whose pixel values come from a per-pixel function
// over the infinite integer grid, for test purposes.
type gridSource struct {
	w, h int
	at   func(x, y int) [4]float64
}

func (g gridSource) FetchRegion(r geom.Rect) []float64 {
	out := make([]float64, r.W*r.H*4)
	for dy := 0; dy < r.H; dy++ {
		for dx := 0; dx < r.W; dx++ {
			v := g.at(r.X+dx, r.Y+dy)
			off := (dy*r.W + dx) * 4
			copy(out[off:off+4], v[:])
		}
	}
	return out
}

func constSource(v [4]float64) gridSource {
	return gridSource{at: func(x, y int) [4]float64 { return v }}
}

func TestNearestPicksIntegerPixel(t *testing.T) {
	src := gridSource{at: func(x, y int) [4]float64 {
		if x == 3 && y == 4 {
			return [4]float64{1, 0, 0, 1}
		}
		return [4]float64{0, 0, 0, 0}
	}}
	got := NewNearest().Get(src, 3.5, 4.5, nil)
	if got[0] != 1 {
		t.Fatalf("expected to hit pixel (3,4), got %v", got)
	}
}

func TestLinearConstantFieldIsExact(t *testing.T) {
	src := constSource([4]float64{0.5, 0.25, 0.75, 1})
	got := NewLinear().Get(src, 10.3, 7.8, nil)
	want := [4]float64{0.5, 0.25, 0.75, 1}
	for c := range got {
		if math.Abs(got[c]-want[c]) > 1e-9 {
			t.Fatalf("linear sample of constant field should reproduce it exactly, got %v want %v", got, want)
		}
	}
}

func TestCubicConstantFieldIsExact(t *testing.T) {
	src := constSource([4]float64{0.2, 0.4, 0.6, 1})
	got := NewCubic(0.5, 0.25).Get(src, 5.5, 5.5, nil)
	for c := range got {
		if math.Abs(got[c]-[4]float64{0.2, 0.4, 0.6, 1}[c]) > 1e-6 {
			t.Fatalf("cubic sample of constant field should reproduce it (partition of unity), got %v", got)
		}
	}
}

func TestBoxAveragesNeighborhood(t *testing.T) {
	src := gridSource{at: func(x, y int) [4]float64 {
		if (x+y)%2 == 0 {
			return [4]float64{1, 1, 1, 1}
		}
		return [4]float64{0, 0, 0, 0}
	}}
	scale := &ScaleMatrix{A: 4, D: 4}
	got := NewBox().Get(src, 10, 10, scale)
	if got[0] < 0.3 || got[0] > 0.7 {
		t.Fatalf("expected box average of checkerboard near 0.5, got %v", got[0])
	}
}

func TestLohaloConstantFieldIsExact(t *testing.T) {
	src := constSource([4]float64{0.1, 0.2, 0.3, 1})
	got := NewLohalo().Get(src, 20.5, 20.5, nil)
	for c := 0; c < 3; c++ {
		if math.Abs(got[c]-[4]float64{0.1, 0.2, 0.3, 1}[c]) > 1e-3 {
			t.Fatalf("lohalo sample of constant field should stay close to it, got %v", got)
		}
	}
}

func TestNohaloConstantFieldIsExact(t *testing.T) {
	src := constSource([4]float64{0.4, 0.4, 0.4, 1})
	got := NewNohalo().Get(src, 20.5, 20.5, nil)
	for c := 0; c < 3; c++ {
		if math.Abs(got[c]-0.4) > 1e-3 {
			t.Fatalf("nohalo sample of constant field should stay close to it, got %v", got)
		}
	}
}

func TestLookupDefaultsToLinear(t *testing.T) {
	s := Lookup("")
	if s.Name() != "LINEAR" {
		t.Fatalf("expected default sampler LINEAR, got %s", s.Name())
	}
	if Lookup("NOHALO").Name() != "NOHALO" {
		t.Fatal("Lookup(NOHALO) did not resolve")
	}
}

func TestSingularValuesOfIdentity(t *testing.T) {
	major, minor := Identity.singularValues()
	if math.Abs(major-1) > 1e-9 || math.Abs(minor-1) > 1e-9 {
		t.Fatalf("identity matrix should have unit singular values, got %v %v", major, minor)
	}
}

func TestWorkingRegionReusesCachedStrip(t *testing.T) {
	calls := 0
	src := gridSource{at: func(x, y int) [4]float64 { return [4]float64{float64(x), float64(y), 0, 1} }}
	counting := gridSource{at: src.at}
	_ = counting
	var lv Levels
	wrap := countingSource{Source: src, calls: &calls}
	s1 := lv.Ensure(0, wrap, geom.Rect{X: 0, Y: 0, W: 2, H: 2})
	s2 := lv.Ensure(0, wrap, geom.Rect{X: 1, Y: 1, W: 2, H: 2})
	if s1 == nil || s2 == nil {
		t.Fatal("Ensure returned nil source")
	}
	if calls != 1 {
		t.Fatalf("expected the second Ensure to reuse the cached strip (1 underlying fetch), got %d", calls)
	}
}

type countingSource struct {
	Source
	calls *int
}

func (c countingSource) FetchRegion(r geom.Rect) []float64 {
	*c.calls++
	return c.Source.FetchRegion(r)
}
