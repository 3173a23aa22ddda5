package detection

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/perspective-mcp/internal/perspective"
)

// Point represents a 2D coordinate in raster space of the analysis image.
type Point struct {
	X, Y int
}

// Defaults for ContourDetector.
const (
	DefaultMaxDimension     = 512
	DefaultBlurRadius       = 1.5
	DefaultEdgeThreshold    = 0.35
	DefaultMinContourPixels = 24
)

// ContourDetector finds document-like quadrilaterals with an in-process
// edge and contour pipeline. It implements perspective.Detector and is safe
// for concurrent use.
type ContourDetector struct {
	// MaxDimension bounds the long side of the analysis image. Larger frames
	// are downscaled first; normalized output coordinates are unaffected.
	MaxDimension int

	// BlurRadius is the Gaussian radius applied before gradient computation.
	BlurRadius float64

	// EdgeThreshold is the minimum Sobel magnitude (luminance in 0-1 units)
	// for a pixel to count as an edge.
	EdgeThreshold float64

	// MinContourPixels discards smaller connected edge groups as noise.
	MinContourPixels int
}

// NewContourDetector returns a detector with the default tuning.
func NewContourDetector() *ContourDetector {
	return &ContourDetector{
		MaxDimension:     DefaultMaxDimension,
		BlurRadius:       DefaultBlurRadius,
		EdgeThreshold:    DefaultEdgeThreshold,
		MinContourPixels: DefaultMinContourPixels,
	}
}

// Detect returns candidates sorted by confidence (highest first), filtered by
// the request options and truncated to MaxObservations.
//
// # Algorithm
//
//  1. Downscale: fit the frame inside MaxDimension x MaxDimension
//  2. Edge Detection: grayscale, Gaussian blur, Sobel magnitude, threshold
//  3. Contour Finding: flood-fill groups of 8-connected edge pixels
//  4. Quad Fitting: the extreme points of each contour along the diagonals
//     (min/max of x+y and x-y) become its four corners
//  5. Scoring: see score
//  6. Filtering: confidence, aspect ratio and minimum size from the request
//
// The orientation does not affect the search; contours are found in stored
// pixel space and returned in normalized y-up coordinates.
func (d *ContourDetector) Detect(req perspective.DetectRequest) ([]perspective.Candidate, error) {
	if req.Image == nil || req.Image.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty frame", perspective.ErrDetectorUnavailable)
	}

	maxDim := d.MaxDimension
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	work := imaging.Fit(req.Image, maxDim, maxDim, imaging.Linear)
	width, height := work.Bounds().Dx(), work.Bounds().Dy()
	if width < 3 || height < 3 {
		return []perspective.Candidate{}, nil
	}

	edges := d.detectEdges(work)
	contours := findContours(edges, width, height, d.minContourPixels())

	tol := math.Max(3, 0.02*math.Hypot(float64(width), float64(height)))
	extent := perspective.Size{Width: float64(width), Height: float64(height)}
	opts := req.Options

	candidates := make([]perspective.Candidate, 0)
	var accepted []perspective.Quadrilateral
	for _, contour := range contours {
		quad, ok := fitQuad(contour, height)
		if !ok {
			continue
		}

		b := quad.Bounds()
		short, long := math.Min(b.Width, b.Height), math.Max(b.Width, b.Height)
		if long <= 0 {
			continue
		}
		aspect := short / long
		if aspect < opts.MinimumAspectRatio || aspect > opts.MaximumAspectRatio {
			continue
		}
		if short/math.Min(extent.Width, extent.Height) < opts.MinimumSize {
			continue
		}

		confidence := score(work, edges, contour, quad, tol)
		if confidence < opts.MinimumConfidence {
			continue
		}
		if nearDuplicate(quad, accepted, tol) {
			continue
		}
		accepted = append(accepted, quad)

		candidates = append(candidates, perspective.NewCandidate(normalize(quad, extent), confidence))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	if opts.MaxObservations > 0 && len(candidates) > opts.MaxObservations {
		candidates = candidates[:opts.MaxObservations]
	}
	return candidates, nil
}

func (d *ContourDetector) minContourPixels() int {
	if d.MinContourPixels > 0 {
		return d.MinContourPixels
	}
	return DefaultMinContourPixels
}

// detectEdges marks pixels whose Sobel gradient magnitude exceeds the
// threshold. Pixels within two of the border are never edges.
func (d *ContourDetector) detectEdges(img image.Image) [][]bool {
	radius := d.BlurRadius
	if radius <= 0 {
		radius = DefaultBlurRadius
	}
	threshold := d.EdgeThreshold
	if threshold <= 0 {
		threshold = DefaultEdgeThreshold
	}

	var smoothed image.Image = blur.Gaussian(effect.Grayscale(img), radius)
	bounds := smoothed.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	lum := make([][]float64, height)
	for y := 0; y < height; y++ {
		lum[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			r, _, _, _ := smoothed.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			lum[y][x] = float64(r>>8) / 255.0
		}
	}

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	edges := make([][]bool, height)
	for y := 0; y < height; y++ {
		edges[y] = make([]bool, width)
		if y < 2 || y >= height-2 {
			continue
		}
		for x := 2; x < width-2; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := lum[y+ky][x+kx]
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			edges[y][x] = math.Sqrt(gx*gx+gy*gy) > threshold
		}
	}
	return edges
}

// findContours finds connected components (contours) in a binary edge image.
//
// Uses flood-fill to group connected edge pixels into contours.
// Connectivity is 8-connected (includes diagonals).
func findContours(edges [][]bool, width, height, minPixels int) [][]Point {
	visited := make([][]bool, height)
	for y := 0; y < height; y++ {
		visited[y] = make([]bool, width)
	}

	contours := make([][]Point, 0)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if edges[y][x] && !visited[y][x] {
				contour := make([]Point, 0)
				floodFill(edges, visited, x, y, width, height, &contour)
				if len(contour) >= minPixels {
					contours = append(contours, contour)
				}
			}
		}
	}

	return contours
}

// floodFill performs iterative flood-fill from a starting point.
//
// Uses a stack-based approach (not recursive) to avoid stack overflow
// on large contours. Marks visited pixels and appends them to the contour.
func floodFill(edges, visited [][]bool, startX, startY, width, height int, contour *[]Point) {
	stack := []Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if visited[p.Y][p.X] || !edges[p.Y][p.X] {
			continue
		}

		visited[p.Y][p.X] = true
		*contour = append(*contour, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
}

// fitQuad picks the contour's extreme points along both diagonals and
// returns them as a y-up quadrilateral. Corners sit on pixel centers.
func fitQuad(contour []Point, height int) (perspective.Quadrilateral, bool) {
	tl, tr, bl, br := contour[0], contour[0], contour[0], contour[0]
	for _, p := range contour[1:] {
		if p.X+p.Y < tl.X+tl.Y {
			tl = p
		}
		if p.X+p.Y > br.X+br.Y {
			br = p
		}
		if p.X-p.Y > tr.X-tr.Y {
			tr = p
		}
		if p.X-p.Y < bl.X-bl.Y {
			bl = p
		}
	}

	toYUp := func(p Point) perspective.PixelPoint {
		return perspective.PixelPoint{X: float64(p.X) + 0.5, Y: float64(height-p.Y) - 0.5}
	}
	quad := perspective.Quadrilateral{
		TopLeft:     toYUp(tl),
		TopRight:    toYUp(tr),
		BottomLeft:  toYUp(bl),
		BottomRight: toYUp(br),
	}
	if quad.Validate() != nil {
		return perspective.Quadrilateral{}, false
	}
	return quad, true
}

// score rates how well quad explains the contour, in [0, 1].
//
//	confidence = 0.8 * fit * coverage + 0.2 * contrast
//
// fit is the fraction of contour pixels within tol of a quad edge. coverage
// is the fraction of points sampled along the quad perimeter that have an
// edge pixel within tol. contrast is the CIE Lab distance between the quad
// interior and the area just outside its edges.
func score(img image.Image, edges [][]bool, contour []Point, quad perspective.Quadrilateral, tol float64) float64 {
	height := len(edges)
	corners := rasterCorners(quad, height)

	near := 0
	for _, p := range contour {
		if distanceToPolygon(float64(p.X)+0.5, float64(p.Y)+0.5, corners) <= tol {
			near++
		}
	}
	fit := float64(near) / float64(len(contour))

	coverage := perimeterCoverage(edges, corners, int(math.Ceil(tol)))
	contrast := labContrast(img, corners, 2*tol)

	return math.Min(1, 0.8*fit*coverage+0.2*contrast)
}

// rasterCorners converts a y-up quad back to y-down raster coordinates in
// perimeter order.
func rasterCorners(quad perspective.Quadrilateral, height int) [4][2]float64 {
	var out [4][2]float64
	for i, p := range quad.Perimeter() {
		out[i] = [2]float64{p.X, float64(height) - p.Y}
	}
	return out
}

func distanceToPolygon(x, y float64, corners [4][2]float64) float64 {
	best := math.Inf(1)
	for i := 0; i < 4; i++ {
		a, b := corners[i], corners[(i+1)%4]
		best = math.Min(best, distanceToSegment(x, y, a[0], a[1], b[0], b[1]))
	}
	return best
}

func distanceToSegment(px, py, ax, ay, bx, by float64) float64 {
	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(px-(ax+t*dx), py-(ay+t*dy))
}

const coverageSamplesPerEdge = 32

func perimeterCoverage(edges [][]bool, corners [4][2]float64, radius int) float64 {
	height := len(edges)
	width := len(edges[0])
	hit, total := 0, 0
	for i := 0; i < 4; i++ {
		a, b := corners[i], corners[(i+1)%4]
		for s := 0; s < coverageSamplesPerEdge; s++ {
			t := (float64(s) + 0.5) / coverageSamplesPerEdge
			cx := int(a[0] + t*(b[0]-a[0]))
			cy := int(a[1] + t*(b[1]-a[1]))
			total++
			if edgeWithin(edges, cx, cy, radius, width, height) {
				hit++
			}
		}
	}
	return float64(hit) / float64(total)
}

func edgeWithin(edges [][]bool, cx, cy, radius, width, height int) bool {
	for y := cy - radius; y <= cy+radius; y++ {
		if y < 0 || y >= height {
			continue
		}
		for x := cx - radius; x <= cx+radius; x++ {
			if x >= 0 && x < width && edges[y][x] {
				return true
			}
		}
	}
	return false
}

// labContrast compares the colour at the quad centroid with samples pushed
// outward from each edge midpoint by offset. Without any sample inside the
// frame it returns a neutral 0.5.
func labContrast(img image.Image, corners [4][2]float64, offset float64) float64 {
	var cx, cy float64
	for _, c := range corners {
		cx += c[0] / 4
		cy += c[1] / 4
	}
	inside, ok := labAt(img, cx, cy)
	if !ok {
		return 0.5
	}

	var sum float64
	n := 0
	for i := 0; i < 4; i++ {
		a, b := corners[i], corners[(i+1)%4]
		mx, my := (a[0]+b[0])/2, (a[1]+b[1])/2
		dx, dy := mx-cx, my-cy
		d := math.Hypot(dx, dy)
		if d == 0 {
			continue
		}
		outside, ok := labAt(img, mx+dx/d*offset, my+dy/d*offset)
		if !ok {
			continue
		}
		sum += inside.DistanceLab(outside)
		n++
	}
	if n == 0 {
		return 0.5
	}
	return math.Min(1, sum/float64(n))
}

func labAt(img image.Image, x, y float64) (colorful.Color, bool) {
	b := img.Bounds()
	px, py := int(x)+b.Min.X, int(y)+b.Min.Y
	if !(image.Point{X: px, Y: py}).In(b) {
		return colorful.Color{}, false
	}
	return colorful.MakeColor(img.At(px, py))
}

// nearDuplicate reports whether every corner of q lies within tol of the
// matching corner of an already accepted quad.
func nearDuplicate(q perspective.Quadrilateral, accepted []perspective.Quadrilateral, tol float64) bool {
	qp := q.Perimeter()
	for _, other := range accepted {
		op := other.Perimeter()
		same := true
		for i := range qp {
			if math.Hypot(qp[i].X-op[i].X, qp[i].Y-op[i].Y) > tol {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}

func normalize(q perspective.Quadrilateral, extent perspective.Size) perspective.NormalizedQuad {
	n := func(p perspective.PixelPoint) perspective.NormalizedPoint {
		return perspective.NormalizedPoint{X: p.X / extent.Width, Y: p.Y / extent.Height}
	}
	return perspective.NormalizedQuad{
		TopLeft:     n(q.TopLeft),
		TopRight:    n(q.TopRight),
		BottomLeft:  n(q.BottomLeft),
		BottomRight: n(q.BottomRight),
	}
}
