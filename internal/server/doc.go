// Package server implements the MCP (Model Context Protocol) server for
// document perspective correction.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Detection:
//   - image_detect_quadrilaterals: List document candidates, optionally drawn over the image
//   - image_fallback_quad: Show the synthetic quad used when nothing is detected
//
// Rendering:
//   - image_warp_quad: Warp an explicit quad to a rectangle
//   - image_correct_perspective: Run the full detect/select/warp pipeline
//
// # Coordinates
//
// Normalized quads use the unit square with the origin at the bottom-left.
// Pixel quads use the same y-up convention scaled to the image size. Only
// crop_pixels in image_fallback_quad is in y-down raster coordinates.
//
// # Image Caching
//
// Images are cached by path and reused across tool calls for the lifetime of
// the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// image_correct_perspective reports detection and render problems inside a
// successful result (did_apply_correction=false plus error) rather than as
// a JSON-RPC error.
//
// # Usage
//
//	srv := server.New(detection.NewContourDetector())
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
