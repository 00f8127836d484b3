package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/zurustar/novella/pkg/logger"
)

// DefaultFrameInterval はヘッドレスドライバの1フレームの長さ（60fps 相当）
const DefaultFrameInterval = time.Second / 60

// HeadlessDriver はウィンドウなしで Game と同じフレーム処理を回す
type HeadlessDriver struct {
	engine   *Engine
	interval time.Duration
	auto     bool
	maxFrame int
	events   []Event
	frames   int
	clock    func() time.Time
	log      *slog.Logger
}

// HeadlessOption はヘッドレスドライバの設定
type HeadlessOption func(*HeadlessDriver)

// WithFrameInterval 1フレームの間隔を設定（0 なら待たずに回す）
func WithFrameInterval(d time.Duration) HeadlessOption {
	return func(h *HeadlessDriver) {
		h.interval = d
	}
}

// WithAutoAdvance 入力待ちになったら自動で入力イベントを送る
// 選択肢は常に1番目を選ぶ
func WithAutoAdvance(enabled bool) HeadlessOption {
	return func(h *HeadlessDriver) {
		h.auto = enabled
	}
}

// WithMaxFrames 実行するフレーム数の上限（0 なら無制限）
func WithMaxFrames(n int) HeadlessOption {
	return func(h *HeadlessDriver) {
		h.maxFrame = n
	}
}

// WithClock 現在時刻の取得方法を差し替える
func WithClock(now func() time.Time) HeadlessOption {
	return func(h *HeadlessDriver) {
		h.clock = now
	}
}

// NewHeadlessDriver ヘッドレスドライバを作成
func NewHeadlessDriver(e *Engine, opts ...HeadlessOption) *HeadlessDriver {
	h := &HeadlessDriver{
		engine:   e,
		interval: DefaultFrameInterval,
		clock:    time.Now,
		log:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Feed 次のフレーム以降に処理するイベントを積む（1フレームに1つずつ処理）
func (h *HeadlessDriver) Feed(events ...Event) {
	h.events = append(h.events, events...)
}

// Frames 実行したフレーム数
func (h *HeadlessDriver) Frames() int {
	return h.frames
}

// Step 1フレーム分の処理（イベント1つ → Frame → Render）
func (h *HeadlessDriver) Step() error {
	if len(h.events) > 0 {
		ev := h.events[0]
		h.events = h.events[1:]
		h.engine.HandleEvent(ev)
	} else if h.auto {
		h.autoInput()
	}

	if err := h.engine.Frame(h.clock()); err != nil {
		return err
	}
	if _, err := h.engine.Render(nil); err != nil {
		return err
	}
	h.frames++
	return nil
}

// autoInput メニューなら開始、ポーズなら再開、入力待ちなら進める
func (h *HeadlessDriver) autoInput() {
	e := h.engine
	switch e.Screen() {
	case ScreenMenu:
		start := menuButtons[0]
		e.HandleEvent(Event{Kind: EventClick, X: start.X + 1, Y: start.Y + 1})
	case ScreenPause:
		e.HandleEvent(Event{Kind: EventEscape})
	case ScreenGame:
		if e.VideoPlaying() || e.Status() != StatusIdle {
			return
		}
		e.HandleEvent(Event{Kind: EventChoice, Index: 0})
	}
}

// Run スクリプトの終了・終了要求・ctx のキャンセル・フレーム上限のいずれかまで回す
// 終了要求とキャンセルはエラーにしない
func (h *HeadlessDriver) Run(ctx context.Context) error {
	var ticker *time.Ticker
	if h.interval > 0 {
		ticker = time.NewTicker(h.interval)
		defer ticker.Stop()
	}

	for {
		if ctx.Err() != nil {
			h.log.Info("headless run stopped", "frames", h.frames, "reason", ctx.Err())
			return nil
		}
		if h.maxFrame > 0 && h.frames >= h.maxFrame {
			return nil
		}
		if err := h.Step(); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			return err
		}
		if len(h.events) == 0 && h.engine.Status() == StatusEnded && !h.engine.VideoPlaying() {
			h.log.Info("script ended", "frames", h.frames)
			return nil
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
			case <-ticker.C:
			}
		}
	}
}

// RunHeadless ヘッドレスでゲームを実行する（入力は自動で送る）
func (e *Engine) RunHeadless(ctx context.Context, opts ...HeadlessOption) error {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	opts = append([]HeadlessOption{WithAutoAdvance(true)}, opts...)
	return NewHeadlessDriver(e, opts...).Run(ctx)
}
