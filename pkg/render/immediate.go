package render

import (
	"image"
	"log/slog"

	"github.com/hajimehoshi/ebiten/v2"
)

// ImmediateBackend はEbitengineのテクスチャを直接ブリットするバックエンド（"opengl"）
//
// 常駐リソースごとに1枚の *ebiten.Image を持ち、オフスクリーンのキャンバスへ
// 表示リスト順に拡大縮小して描画する。
type ImmediateBackend struct {
	log      *slog.Logger
	cfg      Config
	canvas   *ebiten.Image
	textures map[string]*ebiten.Image
}

// NewImmediateBackend 即時描画バックエンドを作成
func NewImmediateBackend(opts ...Option) *ImmediateBackend {
	o := buildOptions(opts)
	return &ImmediateBackend{
		log:      o.log.With("backend", "opengl"),
		textures: make(map[string]*ebiten.Image),
	}
}

// Name バックエンド名
func (b *ImmediateBackend) Name() string { return "opengl" }

// Init キャンバスを作成
func (b *ImmediateBackend) Init(cfg Config) error {
	b.cfg = cfg.withDefaults()
	if b.canvas != nil {
		b.canvas.Deallocate()
	}
	b.canvas = ebiten.NewImage(b.cfg.Width, b.cfg.Height)
	if b.textures == nil {
		b.textures = make(map[string]*ebiten.Image)
	}
	b.log.Debug("backend initialized", "width", b.cfg.Width, "height", b.cfg.Height)
	return nil
}

// LoadImage 画像をテクスチャとして常駐させる
func (b *ImmediateBackend) LoadImage(name string, img image.Image) error {
	if b.canvas == nil {
		return ErrBackendNotInitialized
	}
	if _, ok := b.textures[name]; ok {
		return nil
	}
	b.textures[name] = ebiten.NewImageFromImage(img)
	return nil
}

// RenderText テキスト画像を常駐させる（既存のキーは置き換え）
func (b *ImmediateBackend) RenderText(key string, img image.Image, x, y, w, h int) error {
	if b.canvas == nil {
		return ErrBackendNotInitialized
	}
	if old, ok := b.textures[key]; ok {
		old.Deallocate()
	}
	b.textures[key] = ebiten.NewImageFromImage(img)
	return nil
}

// Unload テクスチャを解放
func (b *ImmediateBackend) Unload(name string) {
	if tex, ok := b.textures[name]; ok {
		tex.Deallocate()
		delete(b.textures, name)
	}
}

// Resident テクスチャが常駐しているか
func (b *ImmediateBackend) Resident(name string) bool {
	_, ok := b.textures[name]
	return ok
}

// Render 表示リストをキャンバスに描画
func (b *ImmediateBackend) Render(list DisplayList) (int, error) {
	if b.canvas == nil {
		return 0, ErrBackendNotInitialized
	}
	b.canvas.Clear()

	painted := 0
	for _, e := range list {
		tex, ok := b.textures[e.Name]
		if !ok {
			continue
		}
		b.canvas.DrawImage(tex, quadOptions(tex.Bounds(), e))
		painted++
	}
	return painted, nil
}

// quadOptions 矩形 e に合わせてテクスチャを拡大縮小する描画オプション
func quadOptions(src image.Rectangle, e DisplayImage) *ebiten.DrawImageOptions {
	op := &ebiten.DrawImageOptions{}
	sw, sh := src.Dx(), src.Dy()
	if sw > 0 && sh > 0 && e.W > 0 && e.H > 0 {
		op.GeoM.Scale(float64(e.W)/float64(sw), float64(e.H)/float64(sh))
	}
	op.GeoM.Translate(float64(e.X), float64(e.Y))
	op.Filter = ebiten.FilterLinear
	return op
}

// Present キャンバスを画面に転送
func (b *ImmediateBackend) Present(screen *ebiten.Image) {
	if b.canvas == nil || screen == nil {
		return
	}
	screen.DrawImage(b.canvas, nil)
}

// Cleanup すべてのテクスチャとキャンバスを解放
func (b *ImmediateBackend) Cleanup() {
	for name, tex := range b.textures {
		if tex != nil {
			tex.Deallocate()
		}
		delete(b.textures, name)
	}
	if b.canvas != nil {
		b.canvas.Deallocate()
		b.canvas = nil
	}
}
