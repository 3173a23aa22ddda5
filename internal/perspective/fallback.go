package perspective

import (
	"fmt"
	"image"
	"math"
)

// Fractions of the frame used by the synthetic quadrilateral.
const (
	fallbackInset = 0.05

	perturbHorizontalInset = 0.04 // of crop width
	perturbVerticalInset   = 0.04 // of crop height
	perturbVerticalShift   = 0.02 // of crop height
	perturbHorizontalShift = 0.02 // of crop width
)

// FallbackQuad is a synthetic quadrilateral and the crop it lives in.
type FallbackQuad struct {
	// Crop is the inset region of the original frame.
	Crop Rect `json:"crop"`

	// Quad is relative to the crop, whose minimum corner is the origin.
	Quad Quadrilateral `json:"quad"`
}

// SynthesizeFallback builds an orientation-aware quadrilateral for frames
// where no detected candidate is usable.
//
// The frame is inset by 5% on every side, then the edge that sits at the top
// of the upright scene is pulled inward to mimic a receding top edge. Warping
// that quad to the full crop gives a mild flattening effect without any real
// geometric information.
//
// The crop is snapped to whole pixels so the quad, the cropped source and the
// output extent share one frame. Returns ErrEmptyCrop when the inset leaves
// no pixels.
func SynthesizeFallback(extent Size, o Orientation) (FallbackQuad, error) {
	frame := Rect{Width: extent.Width, Height: extent.Height}
	crop, ok := Inset(frame, extent.Width*fallbackInset, extent.Height*fallbackInset)
	if ok {
		crop = snapToPixels(crop)
	}
	if !ok || crop.Width < 1 || crop.Height < 1 {
		return FallbackQuad{}, fmt.Errorf("%w: %gx%g frame", ErrEmptyCrop, extent.Width, extent.Height)
	}

	w, h := crop.Width, crop.Height
	q := Quadrilateral{
		TopLeft:     PixelPoint{X: 0, Y: h},
		TopRight:    PixelPoint{X: w, Y: h},
		BottomLeft:  PixelPoint{X: 0, Y: 0},
		BottomRight: PixelPoint{X: w, Y: 0},
	}

	hInset := w * perturbHorizontalInset
	vInset := h * perturbVerticalInset
	vShift := h * perturbVerticalShift
	hShift := w * perturbHorizontalShift

	switch o.Normalize().class() {
	case classDown:
		q.BottomLeft.X += hInset
		q.BottomRight.X -= hInset
		q.BottomLeft.Y += vShift
		q.BottomRight.Y += vShift
	case classLeft:
		q.TopLeft.X += hShift
		q.BottomLeft.X += hShift
		q.TopLeft.Y -= vInset
		q.BottomLeft.Y += vInset
	case classRight:
		q.TopRight.X -= hShift
		q.BottomRight.X -= hShift
		q.TopRight.Y -= vInset
		q.BottomRight.Y += vInset
	default:
		q.TopLeft.X += hInset
		q.TopRight.X -= hInset
		q.TopLeft.Y -= vShift
		q.TopRight.Y -= vShift
	}

	return FallbackQuad{Crop: crop, Quad: q}, nil
}

// snapToPixels rounds each edge of r to the nearest pixel boundary.
func snapToPixels(r Rect) Rect {
	x0, y0 := math.Round(r.X), math.Round(r.Y)
	x1, y1 := math.Round(r.X+r.Width), math.Round(r.Y+r.Height)
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// PixelRect returns the crop as integer raster bounds relative to b.
// The inset is symmetric, so the y-up and y-down rectangles coincide.
func (f FallbackQuad) PixelRect(b image.Rectangle) image.Rectangle {
	x0, y0 := int(f.Crop.X), int(f.Crop.Y)
	x1, y1 := x0+int(f.Crop.Width), y0+int(f.Crop.Height)
	return image.Rect(x0, y0, x1, y1).Add(b.Min).Intersect(b)
}
