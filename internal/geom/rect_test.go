package geom

import "testing"

func TestIntersectCommutative(t *testing.T) {
	cases := []struct{ a, b Rect }{
		{Rect{0, 0, 10, 10}, Rect{5, 5, 10, 10}},
		{Rect{0, 0, 10, 10}, Rect{20, 20, 5, 5}},
		{Rect{-5, -5, 10, 10}, Rect{0, 0, 3, 3}},
	}
	for _, c := range cases {
		if Intersect(c.a, c.b) != Intersect(c.b, c.a) {
			t.Errorf("Intersect(%v,%v) != Intersect(%v,%v)", c.a, c.b, c.b, c.a)
		}
	}
}

func TestSubtractAreaConservation(t *testing.T) {
	cases := []struct{ m, s Rect }{
		{Rect{0, 0, 10, 10}, Rect{2, 2, 4, 4}},
		{Rect{0, 0, 10, 10}, Rect{-5, -5, 20, 20}},
		{Rect{0, 0, 10, 10}, Rect{100, 100, 5, 5}},
		{Rect{0, 0, 10, 10}, Rect{-5, 2, 20, 4}},
	}
	for _, c := range cases {
		pieces := Subtract(c.m, c.s)
		sum := 0
		for _, p := range pieces {
			sum += p.Area()
		}
		want := c.m.Area() - Intersect(c.m, c.s).Area()
		if sum != want {
			t.Errorf("Subtract(%v,%v) area = %d, want %d", c.m, c.s, sum, want)
		}
		// Verify non-overlap.
		for i := range pieces {
			for j := i + 1; j < len(pieces); j++ {
				if !Intersect(pieces[i], pieces[j]).IsEmpty() {
					t.Errorf("pieces overlap: %v and %v", pieces[i], pieces[j])
				}
			}
		}
	}
}

func TestEmptyRectNoOp(t *testing.T) {
	empty := Rect{0, 0, 0, 5}
	if !empty.IsEmpty() {
		t.Fatal("expected empty")
	}
	if !Intersect(empty, Rect{0, 0, 10, 10}).IsEmpty() {
		t.Fatal("intersect with empty should be empty")
	}
}

func TestAlignToGrid(t *testing.T) {
	r := Rect{X: 5, Y: 5, W: 10, H: 10}
	aligned := r.AlignToGrid(8, 8)
	want := Rect{X: 0, Y: 0, W: 16, H: 16}
	if aligned != want {
		t.Errorf("AlignToGrid = %v, want %v", aligned, want)
	}
}

func TestAlignToGridNegative(t *testing.T) {
	r := Rect{X: -3, Y: -3, W: 4, H: 4}
	aligned := r.AlignToGrid(8, 8)
	want := Rect{X: -8, Y: -8, W: 16, H: 16}
	if aligned != want {
		t.Errorf("AlignToGrid = %v, want %v", aligned, want)
	}
}

func TestModAlwaysNonNegative(t *testing.T) {
	if Mod(-1, 80) != 79 {
		t.Errorf("Mod(-1,80) = %d, want 79", Mod(-1, 80))
	}
	if Mod(-90, 80) != 70 {
		t.Errorf("Mod(-90,80) = %d, want 70", Mod(-90, 80))
	}
}

func TestUnionIdentity(t *testing.T) {
	r := Rect{1, 2, 3, 4}
	if Union(r, Rect{}) != r {
		t.Errorf("Union with empty should return other operand")
	}
	if Union(Rect{}, r) != r {
		t.Errorf("Union with empty should return other operand")
	}
}

func TestContains(t *testing.T) {
	outer := Rect{0, 0, 100, 100}
	if !outer.Contains(Rect{10, 10, 20, 20}) {
		t.Error("expected contains")
	}
	if outer.Contains(Rect{90, 90, 20, 20}) {
		t.Error("expected not contains")
	}
}
