// Package module はコンパイル時に登録されるカスタムモジュールを管理する
package module

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ErrUnknownModule は登録されていないモジュール名を指定した場合のエラー
var ErrUnknownModule = errors.New("unknown module")

// Module はカスタムモジュールの共通インターフェース
type Module interface {
	Init(settings *Settings) error
	Shutdown()
}

// SaveProvider はセーブデータを保存・読み込みできるモジュール
// Load は保存がなければ空文字列を返す
type SaveProvider interface {
	Module
	Save(data string) error
	Load() (string, error)
}

// Factory はモジュールのインスタンスを生成する
type Factory func() Module

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register はモジュールを登録する。同名の登録は上書きされる
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Registered は登録済みモジュール名を昇順で返す
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New は登録済みのファクトリからモジュールを生成する
func New(name string) (Module, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}
	return f(), nil
}

// Loaded は初期化済みのモジュール
type Loaded struct {
	// Name は設定の Module/Name、なければ登録名
	Name   string
	Module Module
}

// Set は設定順に初期化されたモジュールの集合
type Set struct {
	modules []Loaded
	saver   SaveProvider
}

// Option は LoadAll のオプション
type Option func(*loadConfig)

type loadConfig struct {
	log      *slog.Logger
	savePath string
}

// WithLogger はロガーを設定する
func WithLogger(log *slog.Logger) Option {
	return func(c *loadConfig) {
		c.log = log
	}
}

// WithSavePath は Settings/SavePath が未設定のモジュールに渡すセーブ先を設定する
func WithSavePath(path string) Option {
	return func(c *loadConfig) {
		c.savePath = path
	}
}

// LoadAll は names の順にモジュールを生成・初期化する
// 未登録・設定読み込み失敗・初期化失敗のモジュールはログに記録してスキップする
func LoadAll(root string, names []string, opts ...Option) *Set {
	cfg := loadConfig{log: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	set := &Set{}
	for _, name := range names {
		m, err := New(name)
		if err != nil {
			cfg.log.Warn("module not available", "name", name, "error", err)
			continue
		}
		settings, err := LoadSettings(root, name)
		if err != nil {
			cfg.log.Warn("failed to load module settings", "name", name, "error", err)
			continue
		}
		if cfg.savePath != "" && !settings.Has("Settings/SavePath") {
			settings.Set("Settings/SavePath", cfg.savePath)
		}
		display := settings.String("Module/Name", name)
		cfg.log.Info("loading custom module", "name", display)

		if err := m.Init(settings); err != nil {
			cfg.log.Warn("failed to initialize module", "name", display, "error", err)
			continue
		}
		set.modules = append(set.modules, Loaded{Name: display, Module: m})
		if sp, ok := m.(SaveProvider); ok && set.saver == nil {
			set.saver = sp
		}
	}
	return set
}

// Modules は初期化済みモジュールを設定順で返す
func (s *Set) Modules() []Loaded {
	if s == nil {
		return nil
	}
	return s.modules
}

// SaveProvider は最初に見つかったセーブモジュールを返す。なければ nil
func (s *Set) SaveProvider() SaveProvider {
	if s == nil {
		return nil
	}
	return s.saver
}

// Shutdown は初期化と逆順にモジュールを終了する
func (s *Set) Shutdown() {
	if s == nil {
		return
	}
	for i := len(s.modules) - 1; i >= 0; i-- {
		s.modules[i].Module.Shutdown()
	}
	s.modules = nil
	s.saver = nil
}
