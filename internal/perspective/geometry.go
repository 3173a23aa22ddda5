package perspective

import "math"

// Size is a width/height extent in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NormalizedPoint is a point in [0,1]x[0,1], origin bottom-left.
type NormalizedPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PixelPoint is a sub-pixel position in a y-up pixel frame.
type PixelPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle. (X, Y) is the minimum corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Size returns the extent of the rectangle.
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Scale maps a normalized point into the pixel frame of the given extent.
// Each axis is multiplied independently and no rounding is applied.
func Scale(p NormalizedPoint, extent Size) PixelPoint {
	return PixelPoint{X: p.X * extent.Width, Y: p.Y * extent.Height}
}

// Inset shrinks r by dx on the left and right and by dy on the top and bottom.
// It returns false when the remaining width or height is not positive.
func Inset(r Rect, dx, dy float64) (Rect, bool) {
	out := Rect{
		X:      r.X + dx,
		Y:      r.Y + dy,
		Width:  r.Width - 2*dx,
		Height: r.Height - 2*dy,
	}
	if !(out.Width > 0) || !(out.Height > 0) {
		return Rect{}, false
	}
	return out, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// cross returns the z component of (b-a) x (c-a).
func cross(a, b, c PixelPoint) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
