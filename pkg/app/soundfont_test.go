package app

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeDummySoundFont(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("RIFF....sfbk"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
}

func TestFindSoundFont(t *testing.T) {
	t.Run("configured path wins", func(t *testing.T) {
		root := t.TempDir()
		configured := filepath.Join(t.TempDir(), "custom.sf2")
		writeDummySoundFont(t, configured)
		writeDummySoundFont(t, filepath.Join(root, DefaultSoundFontName))

		if got := findSoundFont(configured, root); got != configured {
			t.Errorf("Expected %s, got %s", configured, got)
		}
	})

	t.Run("missing configured path falls back to root", func(t *testing.T) {
		root := t.TempDir()
		want := filepath.Join(root, DefaultSoundFontName)
		writeDummySoundFont(t, want)

		if got := findSoundFont(filepath.Join(root, "missing.sf2"), root); got != want {
			t.Errorf("Expected %s, got %s", want, got)
		}
	})

	t.Run("current directory", func(t *testing.T) {
		dir := t.TempDir()
		writeDummySoundFont(t, filepath.Join(dir, DefaultSoundFontName))
		t.Chdir(dir)

		if got := findSoundFont("", t.TempDir()); got != DefaultSoundFontName {
			t.Errorf("Expected %s, got %s", DefaultSoundFontName, got)
		}
	})

	t.Run("not found", func(t *testing.T) {
		t.Chdir(t.TempDir())
		if got := findSoundFont("", t.TempDir()); got != "" {
			t.Errorf("Expected no SoundFont, got %s", got)
		}
	})
}

func TestLoadSoundFont(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	if sf := loadSoundFont(log, ""); sf != nil {
		t.Error("Expected nil for empty path")
	}

	// 壊れたファイルは MIDI なしで続行する
	path := filepath.Join(t.TempDir(), DefaultSoundFontName)
	writeDummySoundFont(t, path)
	if sf := loadSoundFont(log, path); sf != nil {
		t.Error("Expected nil for invalid SoundFont")
	}
}
