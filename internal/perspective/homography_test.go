package perspective

import "testing"

func TestSolveHomography_MapsCorners(t *testing.T) {
	from := [4]PixelPoint{{0, 0}, {100, 0}, {100, 50}, {0, 50}}
	to := [4]PixelPoint{{10, 5}, {90, 12}, {110, 70}, {-5, 60}}

	h, ok := SolveHomography(from, to)
	if !ok {
		t.Fatal("SolveHomography reported singular system")
	}

	for i := range from {
		x, y, ok := h.Apply(from[i].X, from[i].Y)
		if !ok {
			t.Fatalf("corner %d maps to infinity", i)
		}
		if !near(x, to[i].X) || !near(y, to[i].Y) {
			t.Errorf("corner %d: got (%v,%v), want %+v", i, x, y, to[i])
		}
	}
}

func TestSolveHomography_Identity(t *testing.T) {
	pts := [4]PixelPoint{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	h, ok := SolveHomography(pts, pts)
	if !ok {
		t.Fatal("SolveHomography reported singular system")
	}
	id := Identity()
	for i := range h {
		if !near(h[i], id[i]) {
			t.Errorf("h[%d]: got %v, want %v", i, h[i], id[i])
		}
	}
}

func TestSolveHomography_Singular(t *testing.T) {
	from := [4]PixelPoint{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	p := PixelPoint{5, 5}
	if _, ok := SolveHomography(from, [4]PixelPoint{p, p, p, p}); ok {
		t.Error("collapsed target should be singular")
	}
}

func TestHomography_Times(t *testing.T) {
	shift := Homography{1, 0, 3, 0, 1, -2, 0, 0, 1}
	scale := Homography{2, 0, 0, 0, 2, 0, 0, 0, 1}

	// scale then shift
	x, y, _ := shift.Times(scale).Apply(1, 1)
	if !near(x, 5) || !near(y, 0) {
		t.Errorf("shift.Times(scale): got (%v,%v), want (5,0)", x, y)
	}

	// shift then scale
	x, y, _ = scale.Times(shift).Apply(1, 1)
	if !near(x, 8) || !near(y, -2) {
		t.Errorf("scale.Times(shift): got (%v,%v), want (8,-2)", x, y)
	}
}

func TestHomography_ApplyAtInfinity(t *testing.T) {
	h := Homography{1, 0, 0, 0, 1, 0, 1, 0, 0}
	if _, _, ok := h.Apply(0, 3); ok {
		t.Error("Apply should report a point at infinity")
	}
}

func near(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-6
}
