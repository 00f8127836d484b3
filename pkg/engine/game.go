package engine

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// 背景色（黒）
var backgroundColor = color.RGBA{0x00, 0x00, 0x00, 0xFF}

// invalidator は描画面の作り直しが必要なバックエンド（vulkan）
type invalidator interface {
	Invalidate()
}

// Game は Ebitengine のゲームインターフェースを実装する
type Game struct {
	ctx    context.Context
	engine *Engine

	outsideW, outsideH int
	keys               []ebiten.Key
}

// NewGame Game を作成
func NewGame(ctx context.Context, e *Engine) *Game {
	return &Game{ctx: ctx, engine: e}
}

// Update 入力を処理して1フレーム進める（Ebitengine が毎フレーム呼び出す）
func (g *Game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	if ebiten.IsWindowBeingClosed() {
		g.engine.HandleEvent(Event{Kind: EventQuit})
	}

	for _, ev := range g.pollEvents() {
		g.engine.HandleEvent(ev)
	}

	if err := g.engine.Frame(time.Now()); err != nil {
		if errors.Is(err, ErrQuit) {
			return ebiten.Termination
		}
		return err
	}
	return nil
}

// pollEvents キーボードとマウスの入力をイベントに変換する
func (g *Game) pollEvents() []Event {
	var events []Event

	g.keys = inpututil.AppendJustPressedKeys(g.keys[:0])
	for _, k := range g.keys {
		switch {
		case k == ebiten.KeyEscape:
			events = append(events, Event{Kind: EventEscape})
		case k == ebiten.KeyF5:
			events = append(events, Event{Kind: EventSave, Slot: QuickSaveSlot})
		case k == ebiten.KeyF9:
			events = append(events, Event{Kind: EventLoad, Slot: QuickSaveSlot})
		case k == ebiten.KeyM && g.engine.Screen() == ScreenPause:
			events = append(events, Event{Kind: EventMusic})
		case k >= ebiten.KeyDigit1 && k <= ebiten.KeyDigit9:
			events = append(events, Event{Kind: EventChoice, Index: int(k - ebiten.KeyDigit1)})
		case k >= ebiten.KeyNumpad1 && k <= ebiten.KeyNumpad9:
			events = append(events, Event{Kind: EventChoice, Index: int(k - ebiten.KeyNumpad1)})
		default:
			events = append(events, Event{Kind: EventAdvance})
		}
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		// Layout が論理キャンバスを返すので座標はそのまま使える
		x, y := ebiten.CursorPosition()
		events = append(events, Event{Kind: EventClick, X: x, Y: y})
	}
	return events
}

// Draw 表示中の画面を描画（Ebitengine が毎フレーム呼び出す）
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)
	// 描画エラーは次の Update で Frame が返す
	_, _ = g.engine.Render(screen)
}

// Layout 論理キャンバスの大きさを返す
// ウィンドウの大きさが変わったら vulkan バックエンドの描画面を作り直す
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.outsideW || outsideHeight != g.outsideH {
		if g.outsideW != 0 {
			g.engine.invalidateSurface()
		}
		g.outsideW, g.outsideH = outsideWidth, outsideHeight
	}
	return g.engine.cfg.Width, g.engine.cfg.Height
}

func (e *Engine) invalidateSurface() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if inv, ok := e.backend.(invalidator); ok {
		inv.Invalidate()
	}
}

// RunGame ウィンドウを開いてゲームループを実行する
func RunGame(ctx context.Context, e *Engine) error {
	game := NewGame(ctx, e)

	ebiten.SetWindowSize(e.cfg.Width/2, e.cfg.Height/2)
	ebiten.SetWindowTitle("novella")
	// アスペクト比を保ったままリサイズを許可（余白はレターボックス）
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowClosingHandled(true)

	if err := ebiten.RunGame(game); err != nil {
		return fmt.Errorf("failed to run game: %w", err)
	}
	return nil
}
