package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/image/bmp"
)

// solidImage returns an in-memory image filled with c.
func solidImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// writeImage encodes img with enc into dir/name and returns the path.
func writeImage(t *testing.T, dir, name string, img image.Image, enc func(io.Writer, image.Image) error) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := enc(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func encodePNG(w io.Writer, img image.Image) error { return png.Encode(w, img) }

func TestImageCache_Load(t *testing.T) {
	cache := NewImageCache()
	imgPath := writeImage(t, t.TempDir(), "red.png", solidImage(100, 100, color.RGBA{255, 0, 0, 255}), encodePNG)

	img1, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	bounds := img1.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 100 {
		t.Errorf("unexpected dimensions: got %dx%d, want 100x100", bounds.Dx(), bounds.Dy())
	}

	// Second load should return cached image
	img2, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if img1 != img2 {
		t.Error("second Load did not return cached image")
	}
}

func TestImageCache_Load_Errors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "missing.png")},
		{"invalid data", garbage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewImageCache().Load(tt.path); err == nil {
				t.Error("Load should fail")
			}
		})
	}
}

func TestImageCache_ClearAndEvict(t *testing.T) {
	cache := NewImageCache()
	dir := t.TempDir()
	a := writeImage(t, dir, "a.png", solidImage(10, 10, color.White), encodePNG)
	b := writeImage(t, dir, "b.png", solidImage(10, 10, color.Black), encodePNG)

	for _, p := range []string{a, b} {
		if _, err := cache.Load(p); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
	}

	cache.Evict(a)
	cache.Evict("/nonexistent/path")
	cache.mu.RLock()
	_, aCached := cache.images[a]
	_, bCached := cache.images[b]
	cache.mu.RUnlock()
	if aCached || !bCached {
		t.Errorf("after Evict: a cached=%v b cached=%v, want false/true", aCached, bCached)
	}

	cache.Clear()
	cache.mu.RLock()
	count := len(cache.images)
	cache.mu.RUnlock()
	if count != 0 {
		t.Errorf("Clear did not empty cache: %d images remain", count)
	}
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	cache := NewImageCache()
	imgPath := writeImage(t, t.TempDir(), "gray.png", solidImage(50, 50, color.RGBA{128, 128, 128, 255}), encodePNG)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(imgPath); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load error: %v", err)
	}
}

func TestLoadImageInfo(t *testing.T) {
	imgPath := writeImage(t, t.TempDir(), "info.png", solidImage(200, 150, color.RGBA{255, 128, 64, 255}), encodePNG)

	info, err := LoadImageInfo(NewImageCache(), imgPath)
	if err != nil {
		t.Fatalf("LoadImageInfo failed: %v", err)
	}

	if info.Width != 200 || info.Height != 150 {
		t.Errorf("dimensions: got %dx%d, want 200x150", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
	if !info.HasAlpha || info.ColorDepth != "8-bit" {
		t.Errorf("HasAlpha=%v ColorDepth=%s, want true/8-bit", info.HasAlpha, info.ColorDepth)
	}
	if info.FileSizeBytes <= 0 {
		t.Error("FileSizeBytes should be positive")
	}
}

func TestLoadImageInfo_FormatFromContents(t *testing.T) {
	img := solidImage(12, 8, color.RGBA{10, 200, 30, 255})
	dir := t.TempDir()

	tests := []struct {
		name   string
		file   string
		enc    func(io.Writer, image.Image) error
		format string
	}{
		{"png", "a.png", encodePNG, "png"},
		{"jpeg", "b.jpg", func(w io.Writer, i image.Image) error { return jpeg.Encode(w, i, nil) }, "jpeg"},
		{"gif", "c.gif", func(w io.Writer, i image.Image) error { return gif.Encode(w, i, nil) }, "gif"},
		{"bmp", "d.bmp", bmp.Encode, "bmp"},
		{"png with misleading extension", "e.jpg", encodePNG, "png"},
		{"png without extension", "f", encodePNG, "png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeImage(t, dir, tt.file, img, tt.enc)

			info, err := LoadImageInfo(NewImageCache(), path)
			if err != nil {
				t.Fatalf("LoadImageInfo failed: %v", err)
			}
			if info.Format != tt.format {
				t.Errorf("Format: got %s, want %s", info.Format, tt.format)
			}
			if info.Width != 12 || info.Height != 8 {
				t.Errorf("dimensions: got %dx%d, want 12x8", info.Width, info.Height)
			}
		})
	}
}

func TestLoadImageInfo_NonExistent(t *testing.T) {
	if _, err := LoadImageInfo(NewImageCache(), "/nonexistent/image.png"); err == nil {
		t.Error("LoadImageInfo should fail for non-existent file")
	}
}

func TestGetDimensions(t *testing.T) {
	imgPath := writeImage(t, t.TempDir(), "dims.png", solidImage(300, 200, color.Gray{100}), encodePNG)

	dims, err := GetDimensions(NewImageCache(), imgPath)
	if err != nil {
		t.Fatalf("GetDimensions failed: %v", err)
	}
	if dims.Width != 300 || dims.Height != 200 {
		t.Errorf("dimensions: got %dx%d, want 300x200", dims.Width, dims.Height)
	}

	if _, err := GetDimensions(NewImageCache(), "/nonexistent/image.png"); err == nil {
		t.Error("GetDimensions should fail for non-existent file")
	}
}

func TestDecodeBytes(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solidImage(7, 5, color.White)); err != nil {
		t.Fatalf("encode: %v", err)
	}

	img, format, err := DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}
	if format != "png" || img.Bounds().Dx() != 7 || img.Bounds().Dy() != 5 {
		t.Errorf("got %s %v, want png 7x5", format, img.Bounds())
	}

	if _, _, err := DecodeBytes([]byte("definitely not pixels")); err == nil {
		t.Error("DecodeBytes should fail for invalid data")
	}
	if _, _, err := DecodeBytes(nil); err == nil {
		t.Error("DecodeBytes should fail for empty input")
	}
}
