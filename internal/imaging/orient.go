package imaging

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/perspective-mcp/internal/perspective"
)

// ApplyOrientation returns the upright rendering of img, whose stored
// pixels are described by o. Unknown orientations are treated as up.
//
// Transforms follow the camera convention:
//
//	up              -> copy
//	up-mirrored     -> flip horizontally
//	down            -> rotate 180
//	down-mirrored   -> flip vertically
//	left-mirrored   -> transpose
//	right           -> rotate 90 clockwise
//	right-mirrored  -> transverse
//	left            -> rotate 90 counter-clockwise
func ApplyOrientation(img image.Image, o perspective.Orientation) *image.NRGBA {
	switch o.Normalize() {
	case perspective.OrientationUpMirrored:
		return imaging.FlipH(img)
	case perspective.OrientationDown:
		return imaging.Rotate180(img)
	case perspective.OrientationDownMirrored:
		return imaging.FlipV(img)
	case perspective.OrientationLeftMirrored:
		return imaging.Transpose(img)
	case perspective.OrientationRight:
		return imaging.Rotate270(img)
	case perspective.OrientationRightMirrored:
		return imaging.Transverse(img)
	case perspective.OrientationLeft:
		return imaging.Rotate90(img)
	default:
		return imaging.Clone(img)
	}
}
