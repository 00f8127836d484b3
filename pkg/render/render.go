// Package render は表示リストを描画するバックエンドを提供する
package render

import (
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
)

// 既定の論理キャンバスサイズ
const (
	DefaultWidth  = 1920
	DefaultHeight = 1080
)

// DisplayImage は表示リストの1エントリ（論理キャンバス座標）
type DisplayImage struct {
	Name string `json:"name"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	W    int    `json:"w"`
	H    int    `json:"h"`
}

// DisplayList は描画順に並んだ表示エントリ（後のエントリが手前）
type DisplayList []DisplayImage

// Clone 表示リストの複製を返す
func (l DisplayList) Clone() DisplayList {
	if l == nil {
		return nil
	}
	out := make(DisplayList, len(l))
	copy(out, l)
	return out
}

// Names 表示リストに含まれるリソース名（重複なし、出現順）
func (l DisplayList) Names() []string {
	seen := make(map[string]bool, len(l))
	var names []string
	for _, e := range l {
		if !seen[e.Name] {
			seen[e.Name] = true
			names = append(names, e.Name)
		}
	}
	return names
}

// Config はバックエンドの初期化設定
type Config struct {
	Width          int // 論理キャンバスの幅
	Height         int // 論理キャンバスの高さ
	FramesInFlight int // パイプラインバックエンドの同時処理フレーム数（2以上）
}

func (c Config) withDefaults() Config {
	if c.Width <= 0 {
		c.Width = DefaultWidth
	}
	if c.Height <= 0 {
		c.Height = DefaultHeight
	}
	if c.FramesInFlight < MinFramesInFlight {
		c.FramesInFlight = MinFramesInFlight
	}
	return c
}

// Backend は描画バックエンドの共通契約
//
// 表示リストのうち常駐しているリソースだけを順に描画し、未常駐のエントリは
// エラーにせず読み飛ばす（ローダーが追いつくと表示される）。
type Backend interface {
	// Init 論理キャンバスサイズの描画面を確立する
	Init(cfg Config) error
	// Render 表示リストを描画し、描画したエントリ数を返す
	Render(list DisplayList) (int, error)
	// LoadImage デコード済み画像を常駐させる（常駐済みなら何もしない）
	LoadImage(name string, img image.Image) error
	// RenderText テキスト画像を常駐させる（同じキーは置き換える）
	RenderText(key string, img image.Image, x, y, w, h int) error
	// Unload 常駐リソースを1つ解放する
	Unload(name string)
	// Resident リソースが常駐しているか
	Resident(name string) bool
	// Present 直近に描画したフレームを画面に転送する
	Present(screen *ebiten.Image)
	// Cleanup すべてのリソースを解放する（複数回呼んでも安全）
	Cleanup()
	// Name バックエンド名
	Name() string
}

// Option はバックエンド生成時のオプション
type Option func(*options)

type options struct {
	log *slog.Logger
}

// WithLogger ロガーを設定
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

func buildOptions(opts []Option) options {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	return o
}

// New バックエンド名からバックエンドを生成する
func New(kind string, opts ...Option) (Backend, error) {
	switch strings.ToLower(kind) {
	case "opengl":
		return NewImmediateBackend(opts...), nil
	case "vulkan":
		return NewPipelineBackend(opts...), nil
	case "headless":
		o := buildOptions(opts)
		return NewHeadlessBackend(WithHeadlessLogger(o.log), WithLogOperations(false)), nil
	default:
		return nil, &InitError{Backend: kind, Err: fmt.Errorf("%w: %q", ErrUnknownBackend, kind)}
	}
}
