package storage

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

func testImage() *image.NRGBA {
	return imaging.New(24, 16, color.NRGBA{200, 40, 40, 255})
}

func newTestStore(t *testing.T) *FilesystemStore {
	t.Helper()
	fs, err := NewFilesystemStore(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatalf("NewFilesystemStore failed: %v", err)
	}
	return fs
}

func TestNewFilesystemStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if _, err := NewFilesystemStore(dir); err != nil {
		t.Fatalf("NewFilesystemStore failed: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("base directory not created: %v", err)
	}

	if _, err := NewFilesystemStore(""); err == nil {
		t.Error("empty base directory should be rejected")
	}
}

func TestFilesystemStore_Save(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		key  string
	}{
		{"png", "doc.png"},
		{"jpeg", "doc.jpg"},
		{"nested", "2026/10/doc.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := fs.Save(ctx, tt.key, testImage())
			if err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if want := filepath.Join(fs.BaseDir(), tt.key); path != want {
				t.Errorf("path: got %s, want %s", path, want)
			}

			img, err := imaging.Open(path)
			if err != nil {
				t.Fatalf("saved file does not decode: %v", err)
			}
			if img.Bounds().Dx() != 24 || img.Bounds().Dy() != 16 {
				t.Errorf("saved size: got %v, want 24x16", img.Bounds())
			}

			ok, err := fs.Exists(ctx, tt.key)
			if err != nil || !ok {
				t.Errorf("Exists: got %v, %v", ok, err)
			}
		})
	}

	entries, _ := os.ReadDir(fs.BaseDir())
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestFilesystemStore_SaveRejects(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		key        string
		wantInvKey bool
	}{
		{"traversal", "../escape.png", true},
		{"deep traversal", "a/../../escape.png", true},
		{"absolute", "/tmp/escape.png", true},
		{"empty", "", true},
		{"unknown extension", "doc.xyz", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fs.Save(ctx, tt.key, testImage())
			if err == nil {
				t.Fatal("Save should fail")
			}
			if tt.wantInvKey && !errors.Is(err, ErrInvalidKey) {
				t.Errorf("got %v, want ErrInvalidKey", err)
			}
		})
	}

	if _, err := fs.Save(ctx, "empty.png", image.NewNRGBA(image.Rectangle{})); err == nil {
		t.Error("Save should fail for an empty image")
	}
}

func TestFilesystemStore_SaveCancelled(t *testing.T) {
	fs := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := fs.Save(ctx, "doc.png", testImage()); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestFilesystemStore_GetReader(t *testing.T) {
	fs := newTestStore(t)
	ctx := context.Background()

	if _, err := fs.Save(ctx, "read.png", testImage()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rc, err := fs.GetReader(ctx, "read.png")
	if err != nil {
		t.Fatalf("GetReader failed: %v", err)
	}
	defer rc.Close()
	if _, err := imaging.Decode(rc); err != nil {
		t.Errorf("stored data does not decode: %v", err)
	}

	if _, err := fs.GetReader(ctx, "missing.png"); err == nil {
		t.Error("GetReader should fail for missing file")
	}
	if ok, err := fs.Exists(ctx, "missing.png"); ok || err != nil {
		t.Errorf("Exists(missing): got %v, %v", ok, err)
	}
}

func TestNewName(t *testing.T) {
	a := NewName("corrected", "png")
	b := NewName("corrected", ".png")
	if !strings.HasPrefix(a, "corrected-") || !strings.HasSuffix(a, ".png") {
		t.Errorf("unexpected name %q", a)
	}
	if a == b {
		t.Error("names should be unique")
	}
}
