package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zurustar/novella/pkg/cli"
	"github.com/zurustar/novella/pkg/project"
)

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer
	app := &Application{stdout: &out}
	if err := app.Run([]string{"--help"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Errorf("help output = %q", out.String())
	}
}

func TestRun_InvalidArgs(t *testing.T) {
	app := New()
	if err := app.Run([]string{"--log-level", "loud"}); err == nil {
		t.Error("Expected error for invalid log level")
	}
}

func TestLoadProject(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(custom, []byte("render_backend = \"vulkan\"\nmodules = [\"saves\"]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	broken := filepath.Join(dir, "broken.toml")
	if err := os.WriteFile(broken, []byte("render_backend = \"directx\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		config      cli.Config
		wantBackend string
		wantRoot    string
		wantErr     bool
	}{
		{
			name:        "no project file",
			config:      cli.Config{},
			wantBackend: project.DefaultBackend,
			wantRoot:    ".",
		},
		{
			name:        "default name missing",
			config:      cli.Config{ProjectDir: dir, ProjectFile: filepath.Join(dir, cli.DefaultProjectFile)},
			wantBackend: project.DefaultBackend,
			wantRoot:    dir,
		},
		{
			name:        "explicit file",
			config:      cli.Config{ProjectFile: custom},
			wantBackend: "vulkan",
			wantRoot:    dir,
		},
		{
			name:    "explicit file missing",
			config:  cli.Config{ProjectFile: filepath.Join(dir, "missing.toml")},
			wantErr: true,
		},
		{
			name:    "invalid file",
			config:  cli.Config{ProjectFile: broken},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proj, err := loadProject(&tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("loadProject: %v", err)
			}
			if proj.RenderBackend != tt.wantBackend {
				t.Errorf("backend = %s, want %s", proj.RenderBackend, tt.wantBackend)
			}
			if proj.Root != tt.wantRoot {
				t.Errorf("root = %s, want %s", proj.Root, tt.wantRoot)
			}
		})
	}
}

func TestEngineConfig(t *testing.T) {
	proj := project.Default("/games/demo")
	proj.Modules = []string{"saves"}
	proj.Text.Font = "fonts/main.ttf"

	tests := []struct {
		name        string
		config      cli.Config
		wantBackend string
	}{
		{name: "project backend", config: cli.Config{}, wantBackend: "opengl"},
		{name: "command line backend", config: cli.Config{Backend: "vulkan"}, wantBackend: "vulkan"},
		{name: "headless", config: cli.Config{Backend: "vulkan", Headless: true}, wantBackend: "headless"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Timeout = 3 * time.Second
			cfg := engineConfig(&tt.config, proj)
			if cfg.Backend != tt.wantBackend {
				t.Errorf("backend = %s, want %s", cfg.Backend, tt.wantBackend)
			}
			if cfg.Root != "/games/demo" || cfg.Width != project.DefaultCanvasWidth || cfg.Height != project.DefaultCanvasHeight {
				t.Errorf("canvas/root = %+v", cfg)
			}
			if cfg.FontPath != filepath.Join("/games/demo", "fonts/main.ttf") {
				t.Errorf("font = %s", cfg.FontPath)
			}
			if cfg.Volume == nil || *cfg.Volume != project.DefaultVolume || cfg.Timeout != 3*time.Second {
				t.Errorf("volume/timeout = %v/%v", cfg.Volume, cfg.Timeout)
			}
			if len(cfg.Modules) != 1 || cfg.Modules[0] != "saves" {
				t.Errorf("modules = %v", cfg.Modules)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	app := &Application{
		config:  &cli.Config{},
		project: project.Default("/games/demo"),
	}
	script, save := app.paths()
	if script != filepath.Join("/games/demo", project.DefaultScript) || save != filepath.Join("/games/demo", project.DefaultSaveDir) {
		t.Errorf("paths = %s, %s", script, save)
	}

	app.config = &cli.Config{ScriptPath: "other.txt", SavePath: "/tmp/saves"}
	script, save = app.paths()
	if script != "other.txt" || save != "/tmp/saves" {
		t.Errorf("override paths = %s, %s", script, save)
	}
}
