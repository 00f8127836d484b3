package engine

// EventKind は入力イベントの種類
type EventKind int

const (
	// EventAdvance はキー入力（ゲーム画面では次へ進む）
	EventAdvance EventKind = iota
	// EventChoice は数字キー（Index は 0 始まり）
	EventChoice
	// EventClick は左クリック（X, Y は論理キャンバス座標）
	EventClick
	// EventEscape はポーズ画面との切り替え
	EventEscape
	// EventMusic はポーズ画面で pause_music を流す（m キー）
	EventMusic
	// EventSave は Slot に保存（F5）
	EventSave
	// EventLoad は Slot から復元（F9）
	EventLoad
	// EventQuit は終了要求
	EventQuit
)

// Event はループドライバからエンジンへ渡す入力
type Event struct {
	Kind  EventKind
	Index int
	X, Y  int
	Slot  int
}

// QuickSaveSlot は F5/F9 が使うスロット
const QuickSaveSlot = 1

// HandleEvent 入力イベントを処理する
func (e *Engine) HandleEvent(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return
	}

	mode := e.interp.Mode()
	switch ev.Kind {
	case EventQuit:
		e.quit = true

	case EventEscape:
		switch mode {
		case ScreenGame:
			if e.video != nil {
				e.finishVideo()
			}
			e.interp.EnterScreen(ScreenPause)
		case ScreenPause:
			e.interp.EnterScreen(ScreenGame)
		}

	case EventMusic:
		if mode == ScreenPause {
			e.PlayMusic("pause_music", -1)
		}

	case EventAdvance:
		if mode == ScreenGame && e.video == nil {
			e.interp.Input()
		}

	case EventChoice:
		if mode != ScreenGame || e.video != nil {
			return
		}
		if len(e.interp.Choices()) == 0 {
			e.interp.Input()
			return
		}
		e.selectChoice(ev.Index)

	case EventClick:
		e.click(mode, ev.X, ev.Y)

	case EventSave:
		if err := e.saves.Save(ev.Slot); err != nil {
			e.log.Warn("save failed", "slot", ev.Slot, "error", err)
		}

	case EventLoad:
		if err := e.loadLocked(ev.Slot); err != nil {
			e.log.Warn("load failed", "slot", ev.Slot, "error", err)
		}
	}
}

func (e *Engine) click(mode Screen, x, y int) {
	if mode != ScreenGame {
		if b, ok := e.interp.ButtonAt(x, y); ok {
			e.perform(b.Action)
		}
		return
	}
	if e.video != nil {
		return
	}
	if len(e.interp.Choices()) == 0 {
		e.interp.Input()
		return
	}
	if i, ok := e.interp.ChoiceAt(x, y); ok {
		e.selectChoice(i)
	}
}

func (e *Engine) selectChoice(i int) {
	if err := e.interp.SelectChoice(i); err != nil {
		e.log.Warn("choice failed", "index", i+1, "error", err)
	}
}

// perform メニュー項目の動作を実行
func (e *Engine) perform(a Action) {
	switch a {
	case ActionStart, ActionResume:
		e.interp.EnterScreen(ScreenGame)
	case ActionMainMenu:
		e.interp.EnterScreen(ScreenMenu)
	case ActionExit:
		e.quit = true
	}
}
