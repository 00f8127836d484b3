package module

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type recordingModule struct {
	name     string
	initErr  error
	settings *Settings
	log      *[]string
}

func (m *recordingModule) Init(s *Settings) error {
	m.settings = s
	*m.log = append(*m.log, "init "+m.name)
	return m.initErr
}

func (m *recordingModule) Shutdown() {
	*m.log = append(*m.log, "shutdown "+m.name)
}

type memorySaver struct {
	recordingModule
	data string
}

func (m *memorySaver) Save(data string) error { m.data = data; return nil }
func (m *memorySaver) Load() (string, error)  { return m.data, nil }

func writeCfg(t *testing.T, root, name, content string) {
	t.Helper()
	path := SettingsPath(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestSettings(t *testing.T) {
	s, err := ParseSettings([]byte("top = 1\n[Module]\nName = Physics\n[Settings]\nMaxSlots = 4\nBad = x\n"))
	if err != nil {
		t.Fatalf("ParseSettings: %v", err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"Module/Name", "Physics"},
		{"module/Name", "Physics"},
		{"Settings/MaxSlots", "4"},
		{"top", "1"},
		{"Settings/Missing", "def"},
		{"Nope/Name", "def"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := s.String(tt.key, "def"); got != tt.want {
				t.Errorf("String(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}

	if got := s.Int("Settings/MaxSlots", 10); got != 4 {
		t.Errorf("Int(MaxSlots) = %d, want 4", got)
	}
	if got := s.Int("Settings/Bad", 10); got != 10 {
		t.Errorf("Int(Bad) = %d, want default", got)
	}

	s.Set("Settings/SavePath", "/tmp/saves")
	if !s.Has("Settings/SavePath") || s.String("Settings/SavePath", "") != "/tmp/saves" {
		t.Error("Set did not store the value")
	}
}

func TestLoadSettings_Missing(t *testing.T) {
	s, err := LoadSettings(t.TempDir(), "absent")
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.Has("Module/Name") {
		t.Error("expected empty settings")
	}
}

func TestNew_Unknown(t *testing.T) {
	if _, err := New("does-not-exist"); !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("err = %v, want ErrUnknownModule", err)
	}
}

func TestLoadAll(t *testing.T) {
	var events []string
	Register("test-alpha", func() Module { return &recordingModule{name: "alpha", log: &events} })
	Register("test-broken", func() Module {
		return &recordingModule{name: "broken", log: &events, initErr: errors.New("boom")}
	})
	Register("test-saver", func() Module {
		return &memorySaver{recordingModule: recordingModule{name: "saver", log: &events}}
	})

	root := t.TempDir()
	writeCfg(t, root, "test-alpha", "[Module]\nName = Alpha Module\n")

	set := LoadAll(root, []string{"test-alpha", "missing", "test-broken", "test-saver"},
		WithSavePath("/var/saves"))

	mods := set.Modules()
	if len(mods) != 2 {
		t.Fatalf("loaded %d modules, want 2", len(mods))
	}
	if mods[0].Name != "Alpha Module" || mods[1].Name != "test-saver" {
		t.Errorf("names = %q, %q", mods[0].Name, mods[1].Name)
	}
	sp := set.SaveProvider()
	if sp == nil {
		t.Fatal("expected a save provider")
	}
	saver := sp.(*memorySaver)
	if got := saver.settings.String("Settings/SavePath", ""); got != "/var/saves" {
		t.Errorf("SavePath = %q, want /var/saves", got)
	}

	set.Shutdown()
	want := []string{"init alpha", "init broken", "init saver", "shutdown saver", "shutdown alpha"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, events[i], want[i])
		}
	}
	if set.SaveProvider() != nil {
		t.Error("save provider should be cleared after Shutdown")
	}
}

func TestNilSet(t *testing.T) {
	var s *Set
	if s.SaveProvider() != nil || s.Modules() != nil {
		t.Error("nil set should be empty")
	}
	s.Shutdown()
}

func TestSaves(t *testing.T) {
	root := t.TempDir()
	writeCfg(t, root, SavesName, "[Settings]\nDatabaseName = test.db\nMaxSlots = 3\n")
	dir := filepath.Join(t.TempDir(), "slots")

	set := LoadAll(root, []string{SavesName}, WithSavePath(dir))
	defer set.Shutdown()

	sp := set.SaveProvider()
	if sp == nil {
		t.Fatal("saves module did not load")
	}
	if got := sp.(*Saves).MaxSlots(); got != 3 {
		t.Errorf("MaxSlots = %d, want 3", got)
	}

	if data, err := sp.Load(); err != nil || data != "" {
		t.Fatalf("Load on empty db = %q, %v", data, err)
	}
	if err := sp.Save(`{"command":1}`); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := sp.Save(`{"command":2}`); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if data, _ := sp.Load(); data != `{"command":2}` {
		t.Errorf("Load = %q, want the last save", data)
	}
	if _, err := os.Stat(filepath.Join(dir, "test.db")); err != nil {
		t.Errorf("database not created under SavePath: %v", err)
	}
}

func TestSaves_NotInitialized(t *testing.T) {
	s := &Saves{}
	if err := s.Save("x"); err == nil {
		t.Error("expected error before Init")
	}
	if _, err := s.Load(); err == nil {
		t.Error("expected error before Init")
	}
	s.Shutdown()
}
