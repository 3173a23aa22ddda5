package server

import (
	"testing"
)

func toolByName(t *testing.T, name string) Tool {
	t.Helper()
	for _, tool := range GetToolDefinitions() {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %s not found", name)
	return Tool{}
}

func TestGetToolDefinitions(t *testing.T) {
	expectedTools := []string{
		"image_load",
		"image_dimensions",
		"image_detect_quadrilaterals",
		"image_fallback_quad",
		"image_warp_quad",
		"image_correct_perspective",
	}

	tools := GetToolDefinitions()
	if len(tools) != len(expectedTools) {
		t.Errorf("got %d tools, want %d", len(tools), len(expectedTools))
	}
	for _, name := range expectedTools {
		toolByName(t, name)
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok || props == nil {
				t.Fatal("InputSchema missing 'properties'")
			}

			required, ok := tool.InputSchema["required"].([]string)
			if !ok {
				t.Fatal("'required' should be a string slice")
			}
			hasPath := false
			for _, r := range required {
				if _, ok := props[r]; !ok {
					t.Errorf("required field %q has no property", r)
				}
				if r == "path" {
					hasPath = true
				}
			}
			if !hasPath {
				t.Error("Tool should require 'path' parameter")
			}
		})
	}
}

func TestToolDefinitions_ConfigOverrides(t *testing.T) {
	overrides := []string{"policy", "max_observations", "min_confidence", "min_aspect_ratio", "max_aspect_ratio", "min_size"}

	for _, name := range []string{"image_detect_quadrilaterals", "image_correct_perspective"} {
		t.Run(name, func(t *testing.T) {
			props := toolByName(t, name).InputSchema["properties"].(map[string]interface{})
			for _, key := range overrides {
				if _, ok := props[key]; !ok {
					t.Errorf("missing %q property", key)
				}
			}
		})
	}
}

func TestToolDefinitions_OrientationEnum(t *testing.T) {
	props := toolByName(t, "image_fallback_quad").InputSchema["properties"].(map[string]interface{})
	orientation := props["orientation"].(map[string]interface{})
	enum, ok := orientation["enum"].([]string)
	if !ok {
		t.Fatal("orientation enum should be a string slice")
	}
	if len(enum) != 8 {
		t.Errorf("got %d orientations, want 8", len(enum))
	}
}

func TestToolDefinitions_WarpCorners(t *testing.T) {
	required := toolByName(t, "image_warp_quad").InputSchema["required"].([]string)

	want := map[string]bool{"top_left": true, "top_right": true, "bottom_left": true, "bottom_right": true}
	for _, r := range required {
		delete(want, r)
	}
	for missing := range want {
		t.Errorf("image_warp_quad should require %q", missing)
	}
}
