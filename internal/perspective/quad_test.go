package perspective

import (
	"errors"
	"math"
	"testing"
)

func square(size float64) Quadrilateral {
	return Quadrilateral{
		TopLeft:     PixelPoint{0, size},
		TopRight:    PixelPoint{size, size},
		BottomLeft:  PixelPoint{0, 0},
		BottomRight: PixelPoint{size, 0},
	}
}

func TestQuadrilateral_Area(t *testing.T) {
	if got := square(10).Area(); !approx(got, 100) {
		t.Errorf("Area: got %v, want 100", got)
	}

	trapezoid := Quadrilateral{
		TopLeft:     PixelPoint{2, 4},
		TopRight:    PixelPoint{8, 4},
		BottomLeft:  PixelPoint{0, 0},
		BottomRight: PixelPoint{10, 0},
	}
	if got := trapezoid.Area(); !approx(got, 32) {
		t.Errorf("trapezoid Area: got %v, want 32", got)
	}
}

func TestQuadrilateral_Bounds(t *testing.T) {
	q := Quadrilateral{
		TopLeft:     PixelPoint{2, 9},
		TopRight:    PixelPoint{8, 7},
		BottomLeft:  PixelPoint{-1, 1},
		BottomRight: PixelPoint{10, 0},
	}
	want := Rect{X: -1, Y: 0, Width: 11, Height: 9}
	if got := q.Bounds(); got != want {
		t.Errorf("Bounds: got %+v, want %+v", got, want)
	}
}

func TestQuadrilateral_Validate(t *testing.T) {
	p := PixelPoint{5, 5}

	tests := []struct {
		name    string
		q       Quadrilateral
		wantErr bool
	}{
		{"square", square(10), false},
		{"all identical", Quadrilateral{p, p, p, p}, true},
		{"zero area line", Quadrilateral{
			TopLeft: PixelPoint{0, 0}, TopRight: PixelPoint{10, 0},
			BottomLeft: PixelPoint{5, 0}, BottomRight: PixelPoint{20, 0},
		}, true},
		{"three collinear", Quadrilateral{
			TopLeft: PixelPoint{0, 10}, TopRight: PixelPoint{10, 10},
			BottomLeft: PixelPoint{0, 0}, BottomRight: PixelPoint{5, 10},
		}, true},
		{"non-finite", Quadrilateral{
			TopLeft: PixelPoint{math.NaN(), 10}, TopRight: PixelPoint{10, 10},
			BottomLeft: PixelPoint{0, 0}, BottomRight: PixelPoint{10, 0},
		}, true},
		{"non-convex is allowed", Quadrilateral{
			TopLeft: PixelPoint{0, 10}, TopRight: PixelPoint{10, 10},
			BottomLeft: PixelPoint{0, 0}, BottomRight: PixelPoint{3, 7},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrDegenerateGeometry) {
					t.Errorf("Validate: got %v, want ErrDegenerateGeometry", err)
				}
			} else if err != nil {
				t.Errorf("Validate: unexpected error %v", err)
			}
		})
	}
}

func TestNewCandidate_BoundingBoxArea(t *testing.T) {
	c := NewCandidate(NormalizedQuad{
		TopLeft:     NormalizedPoint{0.1, 0.9},
		TopRight:    NormalizedPoint{0.9, 0.9},
		BottomLeft:  NormalizedPoint{0.1, 0.1},
		BottomRight: NormalizedPoint{0.9, 0.1},
	}, 0.8)

	if !approx(c.BoundingBoxArea, 0.64) {
		t.Errorf("BoundingBoxArea: got %v, want 0.64", c.BoundingBoxArea)
	}
	if c.Confidence != 0.8 {
		t.Errorf("Confidence: got %v, want 0.8", c.Confidence)
	}
}
