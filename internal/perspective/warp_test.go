package perspective

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math"
	"sync"
	"testing"
)

// patternImage returns an image whose pixels encode their own coordinates.
func patternImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 37), G: uint8(y * 53), B: uint8((x + y) * 11), A: 255})
		}
	}
	return img
}

func TestRenderer_WarpFullFrameIsIdentity(t *testing.T) {
	src := patternImage(8, 6)
	quad := Quadrilateral{
		TopLeft:     PixelPoint{0, 6},
		TopRight:    PixelPoint{8, 6},
		BottomLeft:  PixelPoint{0, 0},
		BottomRight: PixelPoint{8, 0},
	}

	out, err := NewRenderer().Warp(src, quad, Size{})
	if err != nil {
		t.Fatalf("Warp: %v", err)
	}
	if out.Bounds().Dx() != 8 || out.Bounds().Dy() != 6 {
		t.Fatalf("size: got %v, want 8x6", out.Bounds())
	}
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			if got, want := out.NRGBAAt(x, y), src.NRGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d): got %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestRenderer_WarpYUpOrientation(t *testing.T) {
	// Top half red, bottom half blue in raster order.
	src := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			c := color.NRGBA{B: 255, A: 255}
			if y < 5 {
				c = color.NRGBA{R: 255, A: 255}
			}
			src.SetNRGBA(x, y, c)
		}
	}

	// Upper half of the scene in y-up coordinates.
	quad := Quadrilateral{
		TopLeft:     PixelPoint{0, 10},
		TopRight:    PixelPoint{10, 10},
		BottomLeft:  PixelPoint{0, 6},
		BottomRight: PixelPoint{10, 6},
	}
	out, err := NewRenderer().Warp(src, quad, Size{})
	if err != nil {
		t.Fatalf("Warp: %v", err)
	}
	for y := 0; y < out.Bounds().Dy(); y++ {
		if c := out.NRGBAAt(5, y); c.R != 255 || c.B != 0 {
			t.Errorf("row %d: got %v, want red", y, c)
		}
	}
}

func TestRenderer_WarpNaturalExtent(t *testing.T) {
	src := patternImage(1000, 1000)
	quad := NormalizedQuad{
		TopLeft:     NormalizedPoint{0.1, 0.9},
		TopRight:    NormalizedPoint{0.9, 0.9},
		BottomLeft:  NormalizedPoint{0.1, 0.1},
		BottomRight: NormalizedPoint{0.9, 0.1},
	}.Scale(Size{1000, 1000})

	out, err := NewRenderer().Warp(src, quad, Size{})
	if err != nil {
		t.Fatalf("Warp: %v", err)
	}
	if out.Bounds().Dx() != 800 || out.Bounds().Dy() != 800 {
		t.Errorf("size: got %v, want 800x800", out.Bounds())
	}
}

func TestRenderer_WarpExplicitExtent(t *testing.T) {
	out, err := NewRenderer().Warp(patternImage(40, 40), square(30), Size{Width: 64, Height: 48})
	if err != nil {
		t.Fatalf("Warp: %v", err)
	}
	if out.Bounds().Dx() != 64 || out.Bounds().Dy() != 48 {
		t.Errorf("size: got %v, want 64x48", out.Bounds())
	}
}

func TestRenderer_WarpDeterministic(t *testing.T) {
	src := patternImage(120, 90)
	quad := Quadrilateral{
		TopLeft:     PixelPoint{12.3, 80.1},
		TopRight:    PixelPoint{101.7, 85.4},
		BottomLeft:  PixelPoint{4.2, 7.9},
		BottomRight: PixelPoint{115.5, 3.3},
	}

	r := NewRenderer()
	first, err := r.Warp(src, quad, Size{})
	if err != nil {
		t.Fatalf("Warp: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := r.Warp(src, quad, Size{})
		if err != nil {
			t.Fatalf("Warp %d: %v", i, err)
		}
		if !bytes.Equal(first.Pix, again.Pix) {
			t.Fatalf("Warp %d produced different bytes", i)
		}
	}
}

func TestRenderer_WarpConcurrent(t *testing.T) {
	src := patternImage(64, 64)
	r := NewRenderer()
	want, err := r.Warp(src, square(50), Size{})
	if err != nil {
		t.Fatalf("Warp: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.Warp(src, square(50), Size{})
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(got.Pix, want.Pix) {
				errs <- errors.New("concurrent warp differs")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestRenderer_WarpErrors(t *testing.T) {
	p := PixelPoint{5, 5}

	tests := []struct {
		name           string
		img            image.Image
		quad           Quadrilateral
		wantDegenerate bool
	}{
		{"identical corners", patternImage(10, 10), Quadrilateral{p, p, p, p}, true},
		{"collinear corners", patternImage(10, 10), Quadrilateral{
			TopLeft: PixelPoint{0, 0}, TopRight: PixelPoint{5, 5},
			BottomLeft: PixelPoint{2, 2}, BottomRight: PixelPoint{9, 9},
		}, true},
		{"sub-pixel extent", patternImage(10, 10), Quadrilateral{
			TopLeft: PixelPoint{0, 0.4}, TopRight: PixelPoint{0.4, 0.4},
			BottomLeft: PixelPoint{0, 0}, BottomRight: PixelPoint{0.4, 0},
		}, true},
		{"oversized natural extent", patternImage(10, 10), Quadrilateral{
			TopLeft: PixelPoint{0, 1e9}, TopRight: PixelPoint{1e9, 1e9},
			BottomLeft: PixelPoint{0, 0}, BottomRight: PixelPoint{1e9, 0},
		}, true},
		{"nil image", nil, square(10), false},
		{"empty image", image.NewNRGBA(image.Rectangle{}), square(10), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewRenderer().Warp(tt.img, tt.quad, Size{})
			if !errors.Is(err, ErrRenderFailure) {
				t.Fatalf("got %v, want ErrRenderFailure", err)
			}
			if out != nil {
				t.Error("output should be nil on failure")
			}
			if tt.wantDegenerate && !errors.Is(err, ErrDegenerateGeometry) {
				t.Errorf("got %v, want ErrDegenerateGeometry as well", err)
			}
		})
	}
}

func TestRenderer_WarpRejectsOversizedExtent(t *testing.T) {
	inf := math.Inf(1)

	tests := []struct {
		name   string
		extent Size
	}{
		{"huge", Size{200000, 200000}},
		{"just over the limit", Size{MaxOutputPixels/1024 + 1, 1024}},
		{"infinite width", Size{inf, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewRenderer().Warp(patternImage(10, 10), square(10), tt.extent)
			if !errors.Is(err, ErrRenderFailure) || !errors.Is(err, ErrDegenerateGeometry) {
				t.Fatalf("got %v, want render failure on degenerate geometry", err)
			}
			if out != nil {
				t.Error("output should be nil on failure")
			}
		})
	}

	out, err := NewRenderer().Warp(patternImage(10, 10), square(10), Size{1024, 1024})
	if err != nil {
		t.Fatalf("extent within the limit: %v", err)
	}
	if out.Bounds().Dx() != 1024 || out.Bounds().Dy() != 1024 {
		t.Errorf("size: got %v, want 1024x1024", out.Bounds())
	}
}
