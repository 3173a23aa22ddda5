package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/perspective-mcp/internal/imaging"
	"github.com/ironsheep/perspective-mcp/internal/perspective"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_correct_perspective").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Printf("Tool %s failed: %v", params.Name, err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Detection
	case "image_detect_quadrilaterals":
		return s.handleDetectQuadrilaterals(args)
	case "image_fallback_quad":
		return s.handleFallbackQuad(args)

	// Rendering
	case "image_warp_quad":
		return s.handleWarpQuad(args)
	case "image_correct_perspective":
		return s.handleCorrectPerspective(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// loadImage returns the cached image at path.
func (s *Server) loadImage(path string) (image.Image, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	return s.cache.Load(path)
}

// save writes img to name below the output directory.
func (s *Server) save(name string, img image.Image) (string, error) {
	if s.store == nil {
		return "", errors.New("output_path requires an output directory")
	}
	return s.store.Save(context.Background(), name, img)
}

func extentOf(img image.Image) perspective.Size {
	b := img.Bounds()
	return perspective.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Correction Config Overrides ===

// configArgs are optional overrides of the server's default Config.
type configArgs struct {
	Policy          string   `json:"policy"`
	MaxObservations *int     `json:"max_observations"`
	MinConfidence   *float64 `json:"min_confidence"`
	MinAspectRatio  *float64 `json:"min_aspect_ratio"`
	MaxAspectRatio  *float64 `json:"max_aspect_ratio"`
	MinSize         *float64 `json:"min_size"`
}

// apply overlays the set fields on base and validates the result.
func (a configArgs) apply(base perspective.Config) (perspective.Config, error) {
	cfg := base
	if a.Policy != "" {
		p, err := perspective.ParseSelectionPolicy(a.Policy)
		if err != nil {
			return cfg, err
		}
		cfg.SelectionPolicy = p
	}
	if a.MaxObservations != nil {
		cfg.MaxObservations = *a.MaxObservations
	}
	if a.MinConfidence != nil {
		cfg.MinimumConfidence = *a.MinConfidence
	}
	if a.MinAspectRatio != nil {
		cfg.MinimumAspectRatio = *a.MinAspectRatio
	}
	if a.MaxAspectRatio != nil {
		cfg.MaximumAspectRatio = *a.MaxAspectRatio
	}
	if a.MinSize != nil {
		cfg.MinimumSize = *a.MinSize
	}
	return cfg, cfg.Validate()
}

// === Detection Handlers ===

type detectArgs struct {
	configArgs
	Path        string `json:"path"`
	Orientation string `json:"orientation"`
	Annotate    bool   `json:"annotate"`
	Color       string `json:"color"`
}

// DetectedQuad is one detector candidate in both coordinate frames.
type DetectedQuad struct {
	Index           int                        `json:"index"`
	Confidence      float64                    `json:"confidence"`
	BoundingBoxArea float64                    `json:"bounding_box_area"`
	Normalized      perspective.NormalizedQuad `json:"normalized"`
	Pixel           perspective.Quadrilateral  `json:"pixel"`
	Measurement     imaging.QuadMeasurement    `json:"measurement"`
}

// DetectResult is returned by image_detect_quadrilaterals.
type DetectResult struct {
	Width      int                  `json:"width"`
	Height     int                  `json:"height"`
	Policy     string               `json:"policy"`
	Count      int                  `json:"count"`
	Candidates []DetectedQuad       `json:"candidates"`
	Selected   *int                 `json:"selected"`
	Overlay    *imaging.ImageResult `json:"overlay,omitempty"`
}

func (s *Server) handleDetectQuadrilaterals(args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if s.detector == nil {
		return nil, fmt.Errorf("%w: no detector configured", perspective.ErrDetectorUnavailable)
	}
	cfg, err := a.apply(s.defaults)
	if err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	candidates, err := s.detector.Detect(perspective.DetectRequest{
		Image:       img,
		Orientation: perspective.ParseOrientation(a.Orientation),
		Options:     cfg.DetectorOptions(),
	})
	if err != nil {
		return nil, err
	}

	extent := extentOf(img)
	result := &DetectResult{
		Width:      img.Bounds().Dx(),
		Height:     img.Bounds().Dy(),
		Policy:     cfg.SelectionPolicy.String(),
		Count:      len(candidates),
		Candidates: make([]DetectedQuad, 0, len(candidates)),
	}
	quads := make([]perspective.Quadrilateral, len(candidates))
	for i, c := range candidates {
		quads[i] = c.Quad.Scale(extent)
		result.Candidates = append(result.Candidates, DetectedQuad{
			Index:           i,
			Confidence:      c.Confidence,
			BoundingBoxArea: c.BoundingBoxArea,
			Normalized:      c.Quad,
			Pixel:           quads[i],
			Measurement:     imaging.MeasureQuad(quads[i]),
		})
	}

	selected := -1
	if best, ok := perspective.SelectCandidate(candidates, cfg.SelectionPolicy); ok {
		for i, c := range candidates {
			if c == best {
				selected = i
				break
			}
		}
		result.Selected = &selected
	}

	if a.Annotate {
		overlay, err := imaging.EncodePNG(imaging.QuadOverlay(img, quads, selected, a.Color))
		if err != nil {
			return nil, err
		}
		result.Overlay = overlay
	}
	return result, nil
}

type fallbackArgs struct {
	Path        string `json:"path"`
	Orientation string `json:"orientation"`
}

// PixelBounds is an integer raster rectangle, y-down, max exclusive.
type PixelBounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// FallbackResult is returned by image_fallback_quad.
type FallbackResult struct {
	Width       int                       `json:"width"`
	Height      int                       `json:"height"`
	Orientation string                    `json:"orientation"`
	Crop        perspective.Rect          `json:"crop"`
	CropPixels  PixelBounds               `json:"crop_pixels"`
	Quad        perspective.Quadrilateral `json:"quad"`
	Measurement imaging.QuadMeasurement   `json:"measurement"`
}

func (s *Server) handleFallbackQuad(args json.RawMessage) (interface{}, error) {
	var a fallbackArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	o := perspective.ParseOrientation(a.Orientation)
	fb, err := perspective.SynthesizeFallback(extentOf(img), o)
	if err != nil {
		return nil, err
	}
	r := fb.PixelRect(img.Bounds())
	b := img.Bounds()

	return &FallbackResult{
		Width:       b.Dx(),
		Height:      b.Dy(),
		Orientation: o.String(),
		Crop:        fb.Crop,
		CropPixels:  PixelBounds{X1: r.Min.X - b.Min.X, Y1: r.Min.Y - b.Min.Y, X2: r.Max.X - b.Min.X, Y2: r.Max.Y - b.Min.Y},
		Quad:        fb.Quad,
		Measurement: imaging.MeasureQuad(fb.Quad),
	}, nil
}

// === Rendering Handlers ===

type warpArgs struct {
	perspective.NormalizedQuad
	Path       string `json:"path"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	OutputPath string `json:"output_path"`
}

// WarpResult is returned by image_warp_quad.
type WarpResult struct {
	*imaging.ImageResult
	Quad      perspective.Quadrilateral `json:"quad"`
	SavedPath string                    `json:"saved_path,omitempty"`
}

// maxWarpDimension bounds each side of an explicit warp output.
const maxWarpDimension = 16384

func (s *Server) handleWarpQuad(args json.RawMessage) (interface{}, error) {
	var a warpArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	for _, p := range []perspective.NormalizedPoint{a.TopLeft, a.TopRight, a.BottomLeft, a.BottomRight} {
		if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
			return nil, fmt.Errorf("corner (%g, %g) is outside the normalized range [0,1]", p.X, p.Y)
		}
	}
	if a.Width < 0 || a.Height < 0 || a.Width > maxWarpDimension || a.Height > maxWarpDimension {
		return nil, fmt.Errorf("invalid output size %dx%d: each side must be in [0,%d]", a.Width, a.Height, maxWarpDimension)
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	quad := a.NormalizedQuad.Scale(extentOf(img))
	warped, err := s.renderer.Warp(img, quad, perspective.Size{Width: float64(a.Width), Height: float64(a.Height)})
	if err != nil {
		return nil, err
	}

	encoded, err := imaging.EncodePNG(warped)
	if err != nil {
		return nil, err
	}
	result := &WarpResult{ImageResult: encoded, Quad: quad}
	if a.OutputPath != "" {
		if result.SavedPath, err = s.save(a.OutputPath, warped); err != nil {
			return nil, err
		}
	}
	return result, nil
}

type correctArgs struct {
	configArgs
	Path             string `json:"path"`
	Orientation      string `json:"orientation"`
	Fallback         *bool  `json:"fallback"`
	ApplyOrientation bool   `json:"apply_orientation"`
	OutputPath       string `json:"output_path"`
}

// CorrectionResult is returned by image_correct_perspective.
type CorrectionResult struct {
	perspective.Outcome
	Orientation string               `json:"orientation"`
	Error       string               `json:"error,omitempty"`
	Image       *imaging.ImageResult `json:"image"`
	SavedPath   string               `json:"saved_path,omitempty"`
}

func (s *Server) handleCorrectPerspective(args json.RawMessage) (interface{}, error) {
	var a correctArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	base := s.defaults
	if a.Fallback != nil {
		base.FallbackEnabled = *a.Fallback
	}
	cfg, err := a.apply(base)
	if err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	o := perspective.ParseOrientation(a.Orientation)
	if a.ApplyOrientation {
		img = imaging.ApplyOrientation(img, o)
		o = perspective.OrientationUp
	}

	out, err := s.corrector.Correct(img, o, cfg)
	if err != nil {
		return nil, err
	}

	encoded, err := imaging.EncodePNG(out.Image)
	if err != nil {
		return nil, err
	}
	result := &CorrectionResult{
		Outcome:     out,
		Orientation: o.String(),
		Image:       encoded,
	}
	if out.Err != nil {
		result.Error = out.Err.Error()
	}
	if a.OutputPath != "" {
		if result.SavedPath, err = s.save(a.OutputPath, out.Image); err != nil {
			return nil, err
		}
	}
	return result, nil
}
