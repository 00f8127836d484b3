package render

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTextRasterizer_Default(t *testing.T) {
	r, err := NewTextRasterizer("", 24)
	if err != nil {
		t.Fatalf("NewTextRasterizer failed: %v", err)
	}

	short := r.Rasterize("Hi")
	long := r.Rasterize("Hello, world")
	if short.Bounds().Dx() >= long.Bounds().Dx() {
		t.Errorf("longer text should be wider: %v vs %v", short.Bounds(), long.Bounds())
	}
	if short.Bounds().Dy() != long.Bounds().Dy() {
		t.Errorf("line height should not depend on text: %v vs %v", short.Bounds(), long.Bounds())
	}

	// 何らかのピクセルが描画されている
	opaque := false
	for i := 3; i < len(long.Pix); i += 4 {
		if long.Pix[i] != 0 {
			opaque = true
			break
		}
	}
	if !opaque {
		t.Error("rasterized text is fully transparent")
	}

	w, h := r.Measure("Hello, world")
	if w != long.Bounds().Dx() || h != long.Bounds().Dy() {
		t.Errorf("Measure = %dx%d, image = %v", w, h, long.Bounds())
	}
}

func TestTextRasterizer_Empty(t *testing.T) {
	r := NewBasicTextRasterizer()
	img := r.Rasterize("")
	if img.Bounds().Dx() < 1 || img.Bounds().Dy() < 1 {
		t.Errorf("empty text should still produce a non-empty image, got %v", img.Bounds())
	}
}

func TestNewTextRasterizer_Errors(t *testing.T) {
	if _, err := NewTextRasterizer(filepath.Join(t.TempDir(), "missing.ttf"), 24); err == nil {
		t.Error("expected error for missing font")
	}

	bad := filepath.Join(t.TempDir(), "bad.ttf")
	if err := os.WriteFile(bad, []byte("not a font"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewTextRasterizer(bad, 24); err == nil {
		t.Error("expected error for invalid font data")
	}
}
