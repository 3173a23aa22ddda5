package perspective

import "math"

// Homography is a 3x3 projective transform in row-major order.
type Homography [9]float64

// Identity returns the identity transform.
func Identity() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Apply maps (x, y). It returns false when the point maps to infinity.
func (h Homography) Apply(x, y float64) (float64, float64, bool) {
	denom := h[6]*x + h[7]*y + h[8]
	if denom == 0 {
		return 0, 0, false
	}
	px := (h[0]*x + h[1]*y + h[2]) / denom
	py := (h[3]*x + h[4]*y + h[5]) / denom
	if !finite(px) || !finite(py) {
		return 0, 0, false
	}
	return px, py, true
}

// Times composes two transforms: h.Times(o) maps p to h(o(p)).
func (h Homography) Times(o Homography) Homography {
	var out Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r*3+c] = h[r*3]*o[c] + h[r*3+1]*o[3+c] + h[r*3+2]*o[6+c]
		}
	}
	return out
}

// SolveHomography computes the transform mapping from[i] to to[i].
// It returns false when the 8x8 system is singular.
func SolveHomography(from, to [4]PixelPoint) (Homography, bool) {
	var a [8][8]float64
	var b [8]float64
	for i := 0; i < 4; i++ {
		X, Y := from[i].X, from[i].Y
		x, y := to[i].X, to[i].Y
		r := 2 * i

		// x = (h0 X + h1 Y + h2) / (h6 X + h7 Y + 1)
		a[r] = [8]float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x}
		b[r] = x

		// y = (h3 X + h4 Y + h5) / (h6 X + h7 Y + 1)
		a[r+1] = [8]float64{0, 0, 0, X, Y, 1, -X * y, -Y * y}
		b[r+1] = y
	}

	h, ok := solve8x8(a, b)
	if !ok {
		return Homography{}, false
	}
	return Homography{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}, true
}

// solve8x8 runs Gauss-Jordan elimination with partial pivoting.
func solve8x8(a [8][8]float64, b [8]float64) ([8]float64, bool) {
	for col := 0; col < 8; col++ {
		pivot := col
		maxAbs := math.Abs(a[col][col])
		for r := col + 1; r < 8; r++ {
			if v := math.Abs(a[r][col]); v > maxAbs {
				maxAbs = v
				pivot = r
			}
		}
		if maxAbs < 1e-12 {
			return [8]float64{}, false
		}
		if pivot != col {
			a[col], a[pivot] = a[pivot], a[col]
			b[col], b[pivot] = b[pivot], b[col]
		}

		div := a[col][col]
		for c := col; c < 8; c++ {
			a[col][c] /= div
		}
		b[col] /= div

		for r := 0; r < 8; r++ {
			if r == col {
				continue
			}
			factor := a[r][col]
			if factor == 0 {
				continue
			}
			for c := col; c < 8; c++ {
				a[r][c] -= factor * a[col][c]
			}
			b[r] -= factor * b[col]
		}
	}

	for _, v := range b {
		if !finite(v) {
			return [8]float64{}, false
		}
	}
	return b, true
}
