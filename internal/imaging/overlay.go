package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/perspective-mcp/internal/perspective"
)

// Overlay colours used when no valid colour is supplied.
var (
	defaultOutlineColor   = color.NRGBA{R: 255, G: 0, B: 0, A: 255}
	defaultHighlightColor = color.NRGBA{R: 0, G: 220, B: 0, A: 255}
)

// QuadOverlay draws quad outlines over a copy of img.
//
// Quads are in y-up pixel coordinates of img. The quad at index selected is
// drawn in green, the rest in outlineHex ("#RRGGBB" or "#RRGGBBAA", red when
// empty or invalid). Each outline is labelled with its index next to the
// top-left corner. Pass selected < 0 to highlight nothing.
func QuadOverlay(img image.Image, quads []perspective.Quadrilateral, selected int, outlineHex string) *image.NRGBA {
	result := imaging.Clone(img)
	height := result.Bounds().Dy()

	outline, err := parseHexColor(outlineHex)
	if err != nil {
		outline = defaultOutlineColor
	}

	labelColor := color.NRGBA{255, 255, 255, 255}
	bgColor := color.NRGBA{0, 0, 0, 180}

	for i, q := range quads {
		c := outline
		if i == selected {
			c = defaultHighlightColor
		}

		p := q.Perimeter()
		for j := 0; j < 4; j++ {
			a, b := p[j], p[(j+1)%4]
			drawLine(result,
				int(math.Round(a.X)), height-int(math.Round(a.Y)),
				int(math.Round(b.X)), height-int(math.Round(b.Y)), c)
		}

		tl := q.TopLeft
		drawLabel(result, int(math.Round(tl.X))+3, height-int(math.Round(tl.Y))+3, strconv.Itoa(i), labelColor, bgColor)
	}
	return result
}

// drawLine rasterizes a two-pixel-wide segment with Bresenham's algorithm.
// Pixels outside the image are skipped.
func drawLine(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		setClipped(img, x0, y0, c)
		setClipped(img, x0+1, y0, c)
		setClipped(img, x0, y0+1, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func setClipped(img *image.NRGBA, x, y int, c color.NRGBA) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.SetNRGBA(x, y, c)
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func parseHexColor(hex string) (color.NRGBA, error) {
	if len(hex) == 0 {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}

// drawLabel draws a small digit label with a background box.
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.NRGBA) {
	// 3x5 pixel font for digits
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
	}

	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			setClipped(img, x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					setClipped(img, cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}
