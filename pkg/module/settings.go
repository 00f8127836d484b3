package module

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// Settings は "Section/Key" 形式のキーでモジュール設定を参照する
type Settings struct {
	file *ini.File
}

// NewSettings は空の設定を作成する
func NewSettings() *Settings {
	return &Settings{file: ini.Empty()}
}

// ParseSettings は INI 形式のデータから設定を読み込む
func ParseSettings(data []byte) (*Settings, error) {
	f, err := ini.LoadSources(loadOptions(), data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse module settings: %w", err)
	}
	return &Settings{file: f}, nil
}

// LoadSettings は <root>/modules/<name>/<name>.cfg を読み込む
// ファイルが存在しない場合は空の設定を返す
func LoadSettings(root, name string) (*Settings, error) {
	path := SettingsPath(root, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseSettings(data)
}

// SettingsPath はモジュール設定ファイルのパスを返す
func SettingsPath(root, name string) string {
	return filepath.Join(root, "modules", name, name+".cfg")
}

func loadOptions() ini.LoadOptions {
	return ini.LoadOptions{
		InsensitiveSections:     true,
		SkipUnrecognizableLines: true,
	}
}

// Has はキーが存在するかを返す
func (s *Settings) Has(key string) bool {
	sec, k := splitKey(key)
	section, err := s.file.GetSection(sec)
	if err != nil {
		return false
	}
	return section.HasKey(k)
}

// String は値を返す。キーがなければ def を返す
func (s *Settings) String(key, def string) string {
	if !s.Has(key) {
		return def
	}
	sec, k := splitKey(key)
	return s.file.Section(sec).Key(k).String()
}

// Int は整数値を返す。キーがないか数値でなければ def を返す
func (s *Settings) Int(key string, def int) int {
	v := strings.TrimSpace(s.String(key, ""))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Set は値を書き込む
func (s *Settings) Set(key, value string) {
	sec, k := splitKey(key)
	s.file.Section(sec).Key(k).SetValue(value)
}

// "Module/Name" -> ("Module", "Name")。区切りがなければデフォルトセクション
func splitKey(key string) (string, string) {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[:i], key[i+1:]
	}
	return ini.DefaultSection, key
}
