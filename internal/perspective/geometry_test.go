package perspective

import "testing"

func TestScale(t *testing.T) {
	tests := []struct {
		name   string
		p      NormalizedPoint
		extent Size
		want   PixelPoint
	}{
		{"origin", NormalizedPoint{0, 0}, Size{1000, 500}, PixelPoint{0, 0}},
		{"far corner", NormalizedPoint{1, 1}, Size{1000, 500}, PixelPoint{1000, 500}},
		{"independent axes", NormalizedPoint{0.1, 0.9}, Size{1000, 200}, PixelPoint{100, 180}},
		{"sub-pixel kept", NormalizedPoint{0.25, 0.5}, Size{3, 3}, PixelPoint{0.75, 1.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Scale(tt.p, tt.extent)
			if !approx(got.X, tt.want.X) || !approx(got.Y, tt.want.Y) {
				t.Errorf("Scale: got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestInset(t *testing.T) {
	r, ok := Inset(Rect{Width: 1000, Height: 800}, 50, 40)
	if !ok {
		t.Fatal("Inset rejected a valid rectangle")
	}
	want := Rect{X: 50, Y: 40, Width: 900, Height: 720}
	if r != want {
		t.Errorf("Inset: got %+v, want %+v", r, want)
	}
}

func TestInset_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		r      Rect
		dx, dy float64
	}{
		{"width consumed", Rect{Width: 10, Height: 10}, 5, 1},
		{"height consumed", Rect{Width: 10, Height: 10}, 1, 6},
		{"empty input", Rect{}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := Inset(tt.r, tt.dx, tt.dy); ok {
				t.Error("Inset should reject non-positive result")
			}
		})
	}
}

func approx(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
