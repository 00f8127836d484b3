package render

import (
	"image"
	"log/slog"

	"github.com/gogpu/gg"
	"github.com/hajimehoshi/ebiten/v2"
)

// MinFramesInFlight はパイプラインバックエンドの最小フレーム数
const MinFramesInFlight = 2

// frameSlot は1フレーム分のコマンド記録先
type frameSlot struct {
	index   int
	ctx     *gg.Context
	seq     uint64 // 提出したフレーム番号
	painted int
}

// PipelineBackend はフレームリングに描画コマンドを記録して提出するバックエンド（"vulkan"）
//
// 常駐リソースは gg.ImageBuf として保持する。フレームスロットは FramesInFlight 個あり、
// free チャネルがフェンスの役割を果たす。提出済みフレームは inFlight に FIFO で積まれ、
// Present で古い順に回収される。同時に処理中のフレームは最大 FramesInFlight 個。
type PipelineBackend struct {
	log *slog.Logger
	cfg Config

	textures map[string]*gg.ImageBuf

	slots    []*frameSlot
	free     chan *frameSlot
	inFlight chan *frameSlot

	target    *ebiten.Image // 回収済みフレームの転送先
	frameSeq  uint64
	retired   uint64 // 最後に回収したフレーム番号
	outOfDate bool
}

// NewPipelineBackend パイプラインバックエンドを作成
func NewPipelineBackend(opts ...Option) *PipelineBackend {
	o := buildOptions(opts)
	return &PipelineBackend{
		log:      o.log.With("backend", "vulkan"),
		textures: make(map[string]*gg.ImageBuf),
	}
}

// Name バックエンド名
func (b *PipelineBackend) Name() string { return "vulkan" }

// Init フレームリングと転送先を作成
func (b *PipelineBackend) Init(cfg Config) error {
	b.cfg = cfg.withDefaults()
	if b.textures == nil {
		b.textures = make(map[string]*gg.ImageBuf)
	}
	b.createFrames()
	b.log.Debug("backend initialized",
		"width", b.cfg.Width, "height", b.cfg.Height, "frames", b.cfg.FramesInFlight)
	return nil
}

// createFrames フレームスロットを（再）作成する
func (b *PipelineBackend) createFrames() {
	b.destroyFrames()

	n := b.cfg.FramesInFlight
	b.slots = make([]*frameSlot, n)
	b.free = make(chan *frameSlot, n)
	b.inFlight = make(chan *frameSlot, n)
	for i := range b.slots {
		b.slots[i] = &frameSlot{index: i, ctx: gg.NewContext(b.cfg.Width, b.cfg.Height)}
		b.free <- b.slots[i]
	}
	b.target = ebiten.NewImage(b.cfg.Width, b.cfg.Height)
	b.outOfDate = false
}

// destroyFrames フレームスロットと転送先を解放する
func (b *PipelineBackend) destroyFrames() {
	for _, s := range b.slots {
		if s != nil && s.ctx != nil {
			_ = s.ctx.Close()
		}
	}
	b.slots = nil
	b.free = nil
	b.inFlight = nil
	if b.target != nil {
		b.target.Deallocate()
		b.target = nil
	}
}

// Invalidate 描画面を無効化する（ウィンドウのリサイズ時などに呼ぶ）
// 次のRenderでフレームリングが再作成される
func (b *PipelineBackend) Invalidate() {
	b.outOfDate = true
}

// LoadImage 画像を常駐させる
func (b *PipelineBackend) LoadImage(name string, img image.Image) error {
	if b.slots == nil {
		return ErrBackendNotInitialized
	}
	if _, ok := b.textures[name]; ok {
		return nil
	}
	b.textures[name] = gg.ImageBufFromImage(img)
	return nil
}

// RenderText テキスト画像を常駐させる（既存のキーは置き換え）
func (b *PipelineBackend) RenderText(key string, img image.Image, x, y, w, h int) error {
	if b.slots == nil {
		return ErrBackendNotInitialized
	}
	b.textures[key] = gg.ImageBufFromImage(img)
	return nil
}

// Unload 常駐リソースを解放
func (b *PipelineBackend) Unload(name string) {
	delete(b.textures, name)
}

// Resident リソースが常駐しているか
func (b *PipelineBackend) Resident(name string) bool {
	_, ok := b.textures[name]
	return ok
}

// InFlight 提出済みで未回収のフレーム数
func (b *PipelineBackend) InFlight() int {
	if b.inFlight == nil {
		return 0
	}
	return len(b.inFlight)
}

// Render 表示リストを次のフレームスロットに記録して提出する
// 描画面が無効な場合はフレームリングを再作成して1回だけ再試行する
func (b *PipelineBackend) Render(list DisplayList) (int, error) {
	n, err := b.renderFrame(list)
	if err != nil && IsTransient(err) {
		b.log.Debug("recreating frames", "error", err)
		b.createFrames()
		return b.renderFrame(list)
	}
	return n, err
}

func (b *PipelineBackend) renderFrame(list DisplayList) (int, error) {
	if b.slots == nil {
		return 0, ErrBackendNotInitialized
	}
	if b.outOfDate {
		return 0, &BackendError{Op: "acquire", Transient: true, Err: ErrSurfaceOutOfDate}
	}

	slot := b.acquire()

	slot.ctx.Clear()
	painted := 0
	for _, e := range list {
		tex, ok := b.textures[e.Name]
		if !ok {
			continue
		}
		slot.ctx.DrawImageEx(tex, gg.DrawImageOptions{
			X:         float64(e.X),
			Y:         float64(e.Y),
			DstWidth:  float64(e.W),
			DstHeight: float64(e.H),
			Opacity:   1,
		})
		painted++
	}

	b.frameSeq++
	slot.seq = b.frameSeq
	slot.painted = painted
	b.inFlight <- slot
	return painted, nil
}

// acquire 空きスロットを取得する
// 空きがなければ最も古い提出済みフレームの完了を待って回収する
func (b *PipelineBackend) acquire() *frameSlot {
	select {
	case s := <-b.free:
		return s
	default:
	}
	b.retire(<-b.inFlight)
	return <-b.free
}

// retire 完了したフレームを転送先へ書き出してスロットを返却する
func (b *PipelineBackend) retire(s *frameSlot) {
	_ = s.ctx.FlushGPU()
	if rgba, ok := s.ctx.Image().(*image.RGBA); ok && b.target != nil {
		b.target.WritePixels(rgba.Pix)
	}
	b.retired = s.seq
	b.free <- s
}

// Present 最も古い提出済みフレームを回収して画面に転送
func (b *PipelineBackend) Present(screen *ebiten.Image) {
	if b.inFlight == nil {
		return
	}
	select {
	case s := <-b.inFlight:
		b.retire(s)
	default:
	}
	if screen != nil && b.target != nil {
		screen.DrawImage(b.target, nil)
	}
}

// Cleanup 常駐リソースとフレームリングを解放
func (b *PipelineBackend) Cleanup() {
	for name := range b.textures {
		delete(b.textures, name)
	}
	b.destroyFrames()
	b.frameSeq = 0
	b.retired = 0
	b.outOfDate = false
}
