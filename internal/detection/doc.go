// Package detection provides document quadrilateral detectors.
//
// Both detectors implement perspective.Detector and return candidates in
// normalized, y-up coordinates:
//
//   - ContourDetector: an in-process edge and contour pipeline
//   - RemoteDetector: a msgpack client for an out-of-process model served
//     over a Unix socket
//
// # Contour Pipeline
//
//  1. Downscale: fit the frame within MaxDimension pixels
//  2. Edge Detection: grayscale, Gaussian blur, Sobel gradient threshold
//  3. Contour Finding: 8-connected flood fill over edge pixels
//  4. Quad Fitting: extreme points along both diagonals
//  5. Scoring and Filtering: edge fit, perimeter coverage, Lab contrast,
//     then the thresholds carried by the request
//
// # Confidence Scores
//
// Confidence is in [0, 1]:
//   - 1.0 = every contour pixel lies on the quad and the quad stands out
//     sharply from its surroundings
//   - Values near the default 0.5 threshold indicate a partial or low-contrast
//     outline
//
// # Limitations
//
// The contour detector works best on a document that contrasts with its
// background. Cluttered scenes produce many small contours that the size and
// aspect filters usually reject.
package detection
