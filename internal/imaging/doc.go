// Package imaging provides the raster plumbing around perspective correction.
//
// It covers decoding and caching source images, applying camera
// orientation, encoding results, drawing quad overlays for inspection and
// measuring quadrilaterals.
//
// # Coordinate System
//
// Raster operations use the standard image convention: (0,0) is the top-left
// pixel, X increases rightward and Y increases downward.
//
// Quadrilaterals come from the perspective package and are y-up: (0,0) is
// the bottom-left corner of the image. QuadOverlay converts between the two.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless and never modify their input image.
//
// # Error Handling
//
// Functions return errors for:
//   - File I/O errors during image loading
//   - Data that no registered decoder accepts, or that decodes to zero pixels
//   - Encoding errors during image output
package imaging
