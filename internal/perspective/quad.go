package perspective

import (
	"fmt"
	"math"
)

// collinearEpsilon is relative to the squared diagonal of the quad's bounds.
const collinearEpsilon = 1e-9

// Quadrilateral is an ordered set of four pixel corners in a y-up frame.
//
// Corners need not form a convex shape, but Validate rejects quads with zero
// area or with three collinear corners, since no projective transform exists
// for them.
type Quadrilateral struct {
	TopLeft     PixelPoint `json:"top_left"`
	TopRight    PixelPoint `json:"top_right"`
	BottomLeft  PixelPoint `json:"bottom_left"`
	BottomRight PixelPoint `json:"bottom_right"`
}

// Perimeter returns the corners in perimeter order: TL, TR, BR, BL.
func (q Quadrilateral) Perimeter() [4]PixelPoint {
	return [4]PixelPoint{q.TopLeft, q.TopRight, q.BottomRight, q.BottomLeft}
}

// Area returns the absolute shoelace area of the perimeter polygon.
func (q Quadrilateral) Area() float64 {
	p := q.Perimeter()
	var sum float64
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return math.Abs(sum) / 2
}

// Bounds returns the axis-aligned bounding rectangle of the corners.
func (q Quadrilateral) Bounds() Rect {
	p := q.Perimeter()
	minX, minY := p[0].X, p[0].Y
	maxX, maxY := p[0].X, p[0].Y
	for _, pt := range p[1:] {
		minX = math.Min(minX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxX = math.Max(maxX, pt.X)
		maxY = math.Max(maxY, pt.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Validate returns an error wrapping ErrDegenerateGeometry when the quad has
// a non-finite corner, zero area, or any three collinear corners.
func (q Quadrilateral) Validate() error {
	p := q.Perimeter()
	for _, pt := range p {
		if !finite(pt.X) || !finite(pt.Y) {
			return fmt.Errorf("%w: non-finite corner", ErrDegenerateGeometry)
		}
	}

	b := q.Bounds()
	scale := b.Width*b.Width + b.Height*b.Height
	if scale == 0 || q.Area() < 1e-6 {
		return fmt.Errorf("%w: zero area", ErrDegenerateGeometry)
	}

	triples := [4][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}}
	for _, t := range triples {
		if math.Abs(cross(p[t[0]], p[t[1]], p[t[2]])) <= collinearEpsilon*scale {
			return fmt.Errorf("%w: collinear corners", ErrDegenerateGeometry)
		}
	}
	return nil
}

// NormalizedQuad is a quadrilateral in normalized detector coordinates.
type NormalizedQuad struct {
	TopLeft     NormalizedPoint `json:"top_left"`
	TopRight    NormalizedPoint `json:"top_right"`
	BottomLeft  NormalizedPoint `json:"bottom_left"`
	BottomRight NormalizedPoint `json:"bottom_right"`
}

// Scale converts the quad into the pixel frame of the given extent.
func (n NormalizedQuad) Scale(extent Size) Quadrilateral {
	return Quadrilateral{
		TopLeft:     Scale(n.TopLeft, extent),
		TopRight:    Scale(n.TopRight, extent),
		BottomLeft:  Scale(n.BottomLeft, extent),
		BottomRight: Scale(n.BottomRight, extent),
	}
}

// BoundingBoxArea returns the normalized area of the quad's bounding box.
func (n NormalizedQuad) BoundingBoxArea() float64 {
	b := n.Scale(Size{Width: 1, Height: 1}).Bounds()
	return b.Width * b.Height
}

// Candidate is one detector observation.
type Candidate struct {
	Quad       NormalizedQuad `json:"quad"`
	Confidence float64        `json:"confidence"`

	// BoundingBoxArea is the normalized area of the quad's axis-aligned box,
	// used for size-based ranking.
	BoundingBoxArea float64 `json:"bounding_box_area"`
}

// NewCandidate builds a Candidate and derives its bounding-box area.
func NewCandidate(q NormalizedQuad, confidence float64) Candidate {
	return Candidate{
		Quad:            q,
		Confidence:      confidence,
		BoundingBoxArea: q.BoundingBoxArea(),
	}
}
