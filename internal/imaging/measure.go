package imaging

import (
	"math"

	"github.com/ironsheep/perspective-mcp/internal/perspective"
)

// QuadMeasurement describes the shape of a quadrilateral in pixels.
type QuadMeasurement struct {
	TopEdge    float64 `json:"top_edge"`
	RightEdge  float64 `json:"right_edge"`
	BottomEdge float64 `json:"bottom_edge"`
	LeftEdge   float64 `json:"left_edge"`
	Area       float64 `json:"area"`

	// AspectRatio is mean horizontal edge over mean vertical edge.
	AspectRatio float64 `json:"aspect_ratio"`

	// SkewDegrees is the largest interior-angle deviation from 90 degrees.
	SkewDegrees float64 `json:"skew_degrees"`
}

// MeasureQuad calculates edge lengths, area and skew for q.
// Values are rounded to two decimals.
func MeasureQuad(q perspective.Quadrilateral) QuadMeasurement {
	p := q.Perimeter() // TL, TR, BR, BL

	top := dist(p[0], p[1])
	right := dist(p[1], p[2])
	bottom := dist(p[2], p[3])
	left := dist(p[3], p[0])

	aspect := 0.0
	if vertical := (left + right) / 2; vertical > 0 {
		aspect = ((top + bottom) / 2) / vertical
	}

	skew := 0.0
	for i := 0; i < 4; i++ {
		prev, cur, next := p[(i+3)%4], p[i], p[(i+1)%4]
		angle := interiorAngle(prev, cur, next)
		skew = math.Max(skew, math.Abs(angle-90))
	}

	return QuadMeasurement{
		TopEdge:     round2(top),
		RightEdge:   round2(right),
		BottomEdge:  round2(bottom),
		LeftEdge:    round2(left),
		Area:        round2(q.Area()),
		AspectRatio: round2(aspect),
		SkewDegrees: round2(skew),
	}
}

func dist(a, b perspective.PixelPoint) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// interiorAngle returns the angle at cur between the edges to prev and next,
// in degrees.
func interiorAngle(prev, cur, next perspective.PixelPoint) float64 {
	ax, ay := prev.X-cur.X, prev.Y-cur.Y
	bx, by := next.X-cur.X, next.Y-cur.Y
	la, lb := math.Hypot(ax, ay), math.Hypot(bx, by)
	if la == 0 || lb == 0 {
		return 0
	}
	cos := (ax*bx + ay*by) / (la * lb)
	return math.Acos(math.Max(-1, math.Min(1, cos))) * 180 / math.Pi
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
