package render

import (
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
)

// OperationRecord はヘッドレスバックエンドが記録した操作
type OperationRecord struct {
	Operation string
	Args      map[string]any
}

// HeadlessBackend は描画を行わず常駐状態と操作だけを記録するバックエンド
// ヘッドレスモードとテストで使用する
type HeadlessBackend struct {
	log           *slog.Logger
	logOperations bool
	recordHistory bool

	cfg         Config
	initialized bool
	resident    map[string]image.Rectangle
	lastPainted []string
	frames      int

	history   []OperationRecord
	historyMu sync.RWMutex
}

// HeadlessOption は HeadlessBackend のオプション
type HeadlessOption func(*HeadlessBackend)

// WithHeadlessLogger ロガーを設定
func WithHeadlessLogger(log *slog.Logger) HeadlessOption {
	return func(h *HeadlessBackend) {
		h.log = log
	}
}

// WithLogOperations 操作のデバッグログを有効/無効にする
func WithLogOperations(enabled bool) HeadlessOption {
	return func(h *HeadlessBackend) {
		h.logOperations = enabled
	}
}

// WithRecordHistory 操作履歴の記録を有効/無効にする
func WithRecordHistory(enabled bool) HeadlessOption {
	return func(h *HeadlessBackend) {
		h.recordHistory = enabled
	}
}

// NewHeadlessBackend ヘッドレスバックエンドを作成
func NewHeadlessBackend(opts ...HeadlessOption) *HeadlessBackend {
	h := &HeadlessBackend{
		log:           slog.Default(),
		logOperations: true,
		resident:      make(map[string]image.Rectangle),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HeadlessBackend) logOperation(operation string, args ...any) {
	if h.logOperations {
		h.log.Debug(fmt.Sprintf("[Headless] %s", operation), args...)
	}
	if !h.recordHistory {
		return
	}
	record := OperationRecord{Operation: operation, Args: make(map[string]any)}
	for i := 0; i < len(args)-1; i += 2 {
		if key, ok := args[i].(string); ok {
			record.Args[key] = args[i+1]
		}
	}
	h.historyMu.Lock()
	h.history = append(h.history, record)
	h.historyMu.Unlock()
}

// History 操作履歴のコピーを返す
func (h *HeadlessBackend) History() []OperationRecord {
	h.historyMu.RLock()
	defer h.historyMu.RUnlock()
	out := make([]OperationRecord, len(h.history))
	copy(out, h.history)
	return out
}

// Name バックエンド名
func (h *HeadlessBackend) Name() string { return "headless" }

// Init 初期化（描画面は作らない）
func (h *HeadlessBackend) Init(cfg Config) error {
	h.cfg = cfg.withDefaults()
	h.initialized = true
	if h.resident == nil {
		h.resident = make(map[string]image.Rectangle)
	}
	h.logOperation("Init", "width", h.cfg.Width, "height", h.cfg.Height)
	return nil
}

// LoadImage 画像サイズだけを記録して常駐扱いにする
func (h *HeadlessBackend) LoadImage(name string, img image.Image) error {
	if !h.initialized {
		return ErrBackendNotInitialized
	}
	if _, ok := h.resident[name]; ok {
		return nil
	}
	h.resident[name] = img.Bounds()
	h.logOperation("LoadImage", "name", name)
	return nil
}

// RenderText テキスト画像を常駐扱いにする
func (h *HeadlessBackend) RenderText(key string, img image.Image, x, y, width, height int) error {
	if !h.initialized {
		return ErrBackendNotInitialized
	}
	h.resident[key] = img.Bounds()
	h.logOperation("RenderText", "key", key, "x", x, "y", y, "w", width, "h", height)
	return nil
}

// Unload 常駐を解除
func (h *HeadlessBackend) Unload(name string) {
	delete(h.resident, name)
	h.logOperation("Unload", "name", name)
}

// Resident 常駐しているか
func (h *HeadlessBackend) Resident(name string) bool {
	_, ok := h.resident[name]
	return ok
}

// Render 常駐エントリを数えて記録する
func (h *HeadlessBackend) Render(list DisplayList) (int, error) {
	if !h.initialized {
		return 0, ErrBackendNotInitialized
	}
	h.lastPainted = h.lastPainted[:0]
	for _, e := range list {
		if _, ok := h.resident[e.Name]; ok {
			h.lastPainted = append(h.lastPainted, e.Name)
		}
	}
	h.frames++
	return len(h.lastPainted), nil
}

// LastPainted 直近のRenderで描画したリソース名（描画順）
func (h *HeadlessBackend) LastPainted() []string {
	out := make([]string, len(h.lastPainted))
	copy(out, h.lastPainted)
	return out
}

// Frames Renderの呼び出し回数
func (h *HeadlessBackend) Frames() int { return h.frames }

// Present 何もしない
func (h *HeadlessBackend) Present(*ebiten.Image) {}

// Cleanup 常駐状態を破棄
func (h *HeadlessBackend) Cleanup() {
	if !h.initialized {
		return
	}
	for name := range h.resident {
		delete(h.resident, name)
	}
	h.initialized = false
	h.logOperation("Cleanup")
}
