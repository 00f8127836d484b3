// Package project loads the TOML project file that configures a novella game.
package project

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/zurustar/novella/pkg/fileutil"
)

// Default values applied to fields the project file leaves empty.
const (
	DefaultBackend      = "opengl"
	DefaultCanvasWidth  = 1920
	DefaultCanvasHeight = 1080
	DefaultTextSize     = 32
	DefaultVolume       = 128
	DefaultScript       = "script.txt"
	DefaultSaveDir      = "saves"
)

// Config is the decoded project file.
type Config struct {
	RenderBackend string   `toml:"render_backend"`
	Modules       []string `toml:"modules"`
	Root          string   `toml:"root"`

	Canvas Canvas      `toml:"canvas"`
	Text   Text        `toml:"text"`
	Audio  Audio       `toml:"audio"`
	Script ScriptFile  `toml:"script"`
	Save   SaveSection `toml:"save"`
}

// Canvas is the fixed logical drawing surface.
type Canvas struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// Text configures the dialogue font.
type Text struct {
	Font string  `toml:"font"`
	Size float64 `toml:"size"`
}

// Audio configures the mixer.
type Audio struct {
	SoundFont string `toml:"soundfont"`
	Volume    *int   `toml:"volume"`
}

// ScriptFile locates the narrative script.
type ScriptFile struct {
	Path     string `toml:"path"`
	Encoding string `toml:"encoding"`
	Watch    bool   `toml:"watch"`
}

// SaveSection locates the built-in save store.
type SaveSection struct {
	Path string `toml:"path"`
}

// Default returns a configuration rooted at root with every default filled in.
func Default(root string) *Config {
	c := &Config{Root: root}
	c.applyDefaults()
	return c
}

// Load reads and validates a project file. Relative paths in the file resolve
// against its root, and a relative root resolves against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)
	switch {
	case c.Root == "":
		c.Root = dir
	case !filepath.IsAbs(c.Root):
		c.Root = filepath.Join(dir, c.Root)
	}
	return c, nil
}

// Parse decodes project TOML, applies defaults and validates the result.
// Unknown keys are rejected so typos surface early.
func Parse(data []byte) (*Config, error) {
	var c Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		var sme *toml.StrictMissingError
		if errors.As(err, &sme) {
			return nil, fmt.Errorf("invalid project file: %s", sme.String())
		}
		return nil, fmt.Errorf("invalid project file: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.RenderBackend == "" {
		c.RenderBackend = DefaultBackend
	}
	c.RenderBackend = strings.ToLower(c.RenderBackend)
	if c.Canvas.Width == 0 {
		c.Canvas.Width = DefaultCanvasWidth
	}
	if c.Canvas.Height == 0 {
		c.Canvas.Height = DefaultCanvasHeight
	}
	if c.Text.Size == 0 {
		c.Text.Size = DefaultTextSize
	}
	if c.Audio.Volume == nil {
		v := DefaultVolume
		c.Audio.Volume = &v
	}
	if c.Script.Path == "" {
		c.Script.Path = DefaultScript
	}
	if c.Script.Encoding == "" {
		c.Script.Encoding = "utf-8"
	}
	c.Script.Encoding = strings.ToLower(c.Script.Encoding)
	if c.Save.Path == "" {
		c.Save.Path = DefaultSaveDir
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.RenderBackend {
	case "opengl", "vulkan":
	default:
		return fmt.Errorf("render_backend must be opengl or vulkan, got %q", c.RenderBackend)
	}
	if c.Canvas.Width < 0 || c.Canvas.Height < 0 {
		return fmt.Errorf("canvas size must be positive, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Text.Size < 0 {
		return fmt.Errorf("text size must be positive, got %v", c.Text.Size)
	}
	switch c.Script.Encoding {
	case "utf-8", "utf8", "shift_jis", "sjis":
	default:
		return fmt.Errorf("unsupported script encoding %q", c.Script.Encoding)
	}
	seen := make(map[string]bool, len(c.Modules))
	for _, m := range c.Modules {
		if m == "" {
			return errors.New("module names must not be empty")
		}
		if seen[m] {
			return fmt.Errorf("module %q listed twice", m)
		}
		seen[m] = true
	}
	return nil
}

// Volume returns the configured start volume.
func (c *Config) Volume() int {
	if c.Audio.Volume == nil {
		return DefaultVolume
	}
	return *c.Audio.Volume
}

// Resolve joins a project-relative path with the root. Absolute paths and
// empty strings are returned unchanged.
func (c *Config) Resolve(p string) string {
	return fileutil.ResolvePath(c.Root, p)
}

// ScriptPath is the absolute location of the script file.
func (c *Config) ScriptPath() string { return c.Resolve(c.Script.Path) }

// SavePath is the directory holding the built-in save database.
func (c *Config) SavePath() string { return c.Resolve(c.Save.Path) }

// FontPath is the configured TrueType font, or "" for the built-in face.
func (c *Config) FontPath() string { return c.Resolve(c.Text.Font) }

// SoundFontPath is the configured SoundFont, or "" when MIDI is disabled.
func (c *Config) SoundFontPath() string { return c.Resolve(c.Audio.SoundFont) }
