package perspective

import "errors"

var (
	// ErrDetectorUnavailable is returned by detectors when the backend cannot
	// process the frame at all (device, transport or decode failure).
	ErrDetectorUnavailable = errors.New("quadrilateral detector unavailable")

	// ErrDegenerateGeometry is returned when a quadrilateral has zero area or
	// three collinear corners.
	ErrDegenerateGeometry = errors.New("degenerate quadrilateral")

	// ErrRenderFailure is returned when the warp cannot produce an output image.
	ErrRenderFailure = errors.New("perspective render failed")

	// ErrEmptyCrop is returned when the fallback inset leaves no pixels.
	ErrEmptyCrop = errors.New("inset crop is empty")

	// ErrInvalidImage is returned for images with no pixel backing.
	ErrInvalidImage = errors.New("invalid image")

	// ErrInvalidConfig is returned when a Config is outside its documented ranges.
	ErrInvalidConfig = errors.New("invalid correction config")
)
