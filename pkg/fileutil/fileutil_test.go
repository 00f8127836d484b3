package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
}

func TestFindFileCaseInsensitive(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "Title.PNG"))

	tests := []struct {
		name     string
		filename string
		wantErr  bool
	}{
		{"exact", "Title.PNG", false},
		{"lower", "title.png", false},
		{"upper", "TITLE.PNG", false},
		{"missing", "other.png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := FindFileCaseInsensitive(tmpDir, tt.filename)
			if tt.wantErr {
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("expected ErrNotFound, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if filepath.Base(path) != "Title.PNG" {
				t.Errorf("expected actual name Title.PNG, got %s", path)
			}
		})
	}
}

func TestResolveAsset_ExtensionOrder(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "bg.bmp"))
	writeFile(t, filepath.Join(tmpDir, "chars", "alice.png"))

	path, ext, err := ResolveAsset(tmpDir, "bg", ".png", ".bmp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ext != ".bmp" || filepath.Base(path) != "bg.bmp" {
		t.Errorf("expected bg.bmp, got %s (%s)", path, ext)
	}

	path, ext, err = ResolveAsset(tmpDir, "chars/ALICE", ".png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ext != ".png" || filepath.Base(path) != "alice.png" {
		t.Errorf("expected alice.png, got %s", path)
	}

	if _, _, err := ResolveAsset(tmpDir, "nothing", ".png", ".bmp"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResolvePath(t *testing.T) {
	if got := ResolvePath("/root", "script.txt"); got != filepath.Join("/root", "script.txt") {
		t.Errorf("unexpected path %s", got)
	}
	if got := ResolvePath("/root", "/abs/script.txt"); got != "/abs/script.txt" {
		t.Errorf("absolute path should be unchanged, got %s", got)
	}
	if got := ResolvePath("", "script.txt"); got != "script.txt" {
		t.Errorf("empty root should be unchanged, got %s", got)
	}
}
