package perspective

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/disintegration/imaging"
)

// MaxOutputPixels bounds the area of any warp output.
const MaxOutputPixels = 1 << 26

// Renderer applies projective warps. It is the shared rendering context for
// all correction requests; Warp calls are serialized by an internal mutex.
type Renderer struct {
	mu sync.Mutex
}

// NewRenderer creates a ready-to-use Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Warp maps quad (y-up pixel coordinates in img's frame) onto a rectangle of
// the given extent and resamples img into it.
//
// A zero or negative extent selects the natural extent of the content: the
// rounded bounding box of the quad. Extents above MaxOutputPixels are
// rejected.
//
// Errors wrap ErrRenderFailure. Degenerate quads additionally wrap
// ErrDegenerateGeometry. For the same image and quad the output is
// byte-identical across calls.
func (r *Renderer) Warp(img image.Image, quad Quadrilateral, extent Size) (*image.NRGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: %w", ErrRenderFailure, ErrInvalidImage)
	}
	if err := quad.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenderFailure, err)
	}

	if !(extent.Width > 0) || !(extent.Height > 0) {
		extent = quad.Bounds().Size()
	}
	if !finite(extent.Width) || !finite(extent.Height) ||
		math.Round(extent.Width)*math.Round(extent.Height) > MaxOutputPixels {
		return nil, fmt.Errorf("%w: %w: output extent %gx%g exceeds %d pixels",
			ErrRenderFailure, ErrDegenerateGeometry, extent.Width, extent.Height, MaxOutputPixels)
	}
	dstW := int(math.Round(extent.Width))
	dstH := int(math.Round(extent.Height))
	if dstW < 1 || dstH < 1 {
		return nil, fmt.Errorf("%w: %w: output extent %dx%d", ErrRenderFailure, ErrDegenerateGeometry, dstW, dstH)
	}

	w, h := float64(dstW), float64(dstH)
	dst := [4]PixelPoint{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}
	toQuad, ok := SolveHomography(dst, quad.Perimeter())
	if !ok {
		return nil, fmt.Errorf("%w: singular transform", ErrRenderFailure)
	}

	// Quad corners are y-up; the source raster is y-down.
	flip := Homography{1, 0, 0, 0, -1, float64(img.Bounds().Dy()), 0, 0, 1}
	m := flip.Times(toQuad)

	r.mu.Lock()
	defer r.mu.Unlock()

	src := imaging.Clone(img)
	out := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	for y := 0; y < dstH; y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+dstW*4]
		for x := 0; x < dstW; x++ {
			sx, sy, ok := m.Apply(float64(x)+0.5, float64(y)+0.5)
			if !ok {
				return nil, fmt.Errorf("%w: pixel (%d,%d) maps to infinity", ErrRenderFailure, x, y)
			}
			sampleBilinear(src, sx-0.5, sy-0.5, row[x*4:x*4+4])
		}
	}
	return out, nil
}

// sampleBilinear writes the interpolated pixel at (fx, fy) into px.
// Coordinates outside the image are clamped to the nearest edge pixel.
func sampleBilinear(src *image.NRGBA, fx, fy float64, px []uint8) {
	b := src.Bounds()
	maxX, maxY := b.Dx()-1, b.Dy()-1

	x0f := math.Floor(fx)
	y0f := math.Floor(fy)
	wx := fx - x0f
	wy := fy - y0f

	x0 := clamp(int(x0f), 0, maxX)
	y0 := clamp(int(y0f), 0, maxY)
	x1 := clamp(int(x0f)+1, 0, maxX)
	y1 := clamp(int(y0f)+1, 0, maxY)

	i00 := y0*src.Stride + x0*4
	i10 := y0*src.Stride + x1*4
	i01 := y1*src.Stride + x0*4
	i11 := y1*src.Stride + x1*4

	for c := 0; c < 4; c++ {
		top := lerp(float64(src.Pix[i00+c]), float64(src.Pix[i10+c]), wx)
		bottom := lerp(float64(src.Pix[i01+c]), float64(src.Pix[i11+c]), wx)
		px[c] = uint8(math.Min(255, math.Max(0, lerp(top, bottom, wy)+0.5)))
	}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

// clamp constrains val to [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
