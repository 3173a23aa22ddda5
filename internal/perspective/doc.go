// Package perspective implements the perspective correction pipeline that
// flattens a photographed planar document into a full-frame rectangle.
//
// The pipeline is a short state machine driven by Corrector:
//
//  1. Detection: an injected Detector returns zero or more candidate
//     quadrilaterals in normalized coordinates.
//  2. Selection: SelectCandidate picks at most one candidate according to the
//     configured SelectionPolicy (strict single candidate, or largest area).
//  3. Fallback: when nothing is selected and fallback is enabled,
//     SynthesizeFallback builds an orientation-aware synthetic quadrilateral
//     inside a 5% inset crop of the frame.
//  4. Warp: Renderer solves the homography from the quadrilateral to a
//     destination rectangle and resamples the source bilinearly.
//
// Recoverable failures (detector errors, degenerate geometry, render errors)
// never surface as errors from Correct. They degrade to a passthrough Outcome
// that carries the original image with DidApplyCorrection set to false.
//
// # Coordinate System
//
// Normalized points and pixel quadrilaterals use the detector convention:
//   - Origin (0, 0) at the bottom-left corner
//   - X increases rightward
//   - Y increases upward
//
// Raster images use the usual Go convention (origin top-left, Y downward).
// The Renderer converts between the two; callers never flip coordinates.
//
// # Thread Safety
//
// Corrector holds no per-request state and may be shared across goroutines.
// Renderer serializes warps behind a mutex, so one Renderer can back many
// concurrent correction requests.
package perspective
