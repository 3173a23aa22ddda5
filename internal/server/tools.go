package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var orientationEnum = []string{
	"up", "up-mirrored", "down", "down-mirrored",
	"left", "left-mirrored", "right", "right-mirrored",
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func orientationProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        orientationEnum,
		"description": "Orientation of the scene relative to the stored pixels (default up). Unknown values are treated as up.",
		"default":     "up",
	}
}

// withConfigProperties adds the correction threshold overrides to props.
func withConfigProperties(props map[string]interface{}) map[string]interface{} {
	props["policy"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"strict", "best_by_area"},
		"description": "strict takes the detector's single observation; best_by_area picks the largest bounding box",
	}
	props["max_observations"] = map[string]interface{}{
		"type":        "integer",
		"description": "Maximum candidates requested from the detector (>= 1, default 8)",
	}
	props["min_confidence"] = map[string]interface{}{
		"type":        "number",
		"description": "Minimum detector confidence, 0-1 (default 0.5)",
	}
	props["min_aspect_ratio"] = map[string]interface{}{
		"type":        "number",
		"description": "Minimum short/long side ratio, 0-1 (default 0.3)",
	}
	props["max_aspect_ratio"] = map[string]interface{}{
		"type":        "number",
		"description": "Maximum short/long side ratio, 0-1 (default 1.0)",
	}
	props["min_size"] = map[string]interface{}{
		"type":        "number",
		"description": "Minimum short side as a fraction of the image's short side (default 0.2)",
	}
	return props
}

func normalizedPointProperty(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"x": map[string]interface{}{"type": "number"},
			"y": map[string]interface{}{"type": "number"},
		},
		"required":    []string{"x", "y"},
		"description": desc,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The decoded image is cached for subsequent operations.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Detection
		{
			Name:        "image_detect_quadrilaterals",
			Description: "Detect document-like quadrilaterals. Returns every candidate in normalized (0-1, origin bottom-left) and pixel coordinates, with edge measurements and the index the selection policy would choose. Set annotate to get an overlay PNG with the candidates outlined.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withConfigProperties(map[string]interface{}{
					"path":        pathProperty(),
					"orientation": orientationProperty(),
					"annotate": map[string]interface{}{
						"type":        "boolean",
						"description": "Return an overlay image with candidates drawn (default false)",
						"default":     false,
					},
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Outline color as hex (default #FF0000). The selected candidate is always green.",
						"default":     "#FF0000",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_fallback_quad",
			Description: "Compute the synthetic quadrilateral used when no document is detected: a 5% inset crop with the scene's top edge pulled inward according to orientation.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":        pathProperty(),
					"orientation": orientationProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Rendering
		{
			Name:        "image_warp_quad",
			Description: "Warp the region inside four normalized corners (0-1, origin bottom-left) onto a rectangle and return it as base64-encoded PNG. Output size defaults to the quad's bounding box.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":         pathProperty(),
					"top_left":     normalizedPointProperty("Top-left corner"),
					"top_right":    normalizedPointProperty("Top-right corner"),
					"bottom_left":  normalizedPointProperty("Bottom-left corner"),
					"bottom_right": normalizedPointProperty("Bottom-right corner"),
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Optional output width in pixels (at most 16384)",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Optional output height in pixels (at most 16384)",
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional file name, relative to the output directory, to save the result",
					},
				},
				"required": []string{"path", "top_left", "top_right", "bottom_left", "bottom_right"},
			},
		},
		{
			Name:        "image_correct_perspective",
			Description: "Run the full correction pipeline: detect, select, warp, or fall back to a synthetic quad. Never fails on detection or render problems; the original image is returned with did_apply_correction=false instead.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withConfigProperties(map[string]interface{}{
					"path":        pathProperty(),
					"orientation": orientationProperty(),
					"fallback": map[string]interface{}{
						"type":        "boolean",
						"description": "Synthesize a quad when nothing is detected (default true)",
					},
					"apply_orientation": map[string]interface{}{
						"type":        "boolean",
						"description": "Rotate the image upright before correcting (default false)",
						"default":     false,
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional file name, relative to the output directory, to save the result",
					},
				}),
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
