package app

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/zurustar/novella/pkg/audio"
)

// DefaultSoundFontName is the SoundFont filename searched for when the
// project does not configure one.
const DefaultSoundFontName = "GeneralUser-GS.sf2"

// findSoundFont searches for a SoundFont file in the following order:
// 1. The path configured in the project file
// 2. The project root
// 3. Current directory
//
// Returns "" when no SoundFont is found; MIDI music is then disabled.
func findSoundFont(configured, root string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
	}

	if root != "" {
		path := filepath.Join(root, DefaultSoundFontName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	if _, err := os.Stat(DefaultSoundFontName); err == nil {
		return DefaultSoundFontName
	}

	return ""
}

// loadSoundFont parses the SoundFont at path. Failures are logged and
// reported as nil so the game still runs without MIDI.
func loadSoundFont(log *slog.Logger, path string) *meltysynth.SoundFont {
	if path == "" {
		log.Info("No SoundFont found, MIDI playback disabled")
		return nil
	}
	sf, err := audio.LoadSoundFont(path)
	if err != nil {
		log.Warn("Failed to load SoundFont, MIDI playback disabled", "path", path, "error", err)
		return nil
	}
	log.Info("SoundFont loaded", "path", path)
	return sf
}
