package engine

import (
	"fmt"

	"github.com/zurustar/novella/pkg/render"
)

// Action はメニュー項目を選んだときの動作
type Action int

const (
	ActionNone Action = iota
	ActionStart
	ActionExit
	ActionResume
	ActionMainMenu
)

// Button はメニュー・ポーズ画面の項目
type Button struct {
	Label      string
	Action     Action
	X, Y, W, H int
}

func (b Button) contains(x, y int) bool {
	return x >= b.X && x <= b.X+b.W && y >= b.Y && y <= b.Y+b.H
}

var (
	menuButtons = []Button{
		{Label: "Start Game", Action: ActionStart, X: 900, Y: 500, W: 200, H: 50},
		{Label: "Exit", Action: ActionExit, X: 900, Y: 600, W: 100, H: 50},
	}
	pauseButtons = []Button{
		{Label: "Resume", Action: ActionResume, X: 900, Y: 500, W: 200, H: 50},
		{Label: "Main Menu", Action: ActionMainMenu, X: 900, Y: 600, W: 200, H: 50},
	}
)

// 画面ごとの背景画像
var screenBackgrounds = map[Screen]string{
	ScreenMenu:  "menu_background",
	ScreenPause: "pause_background",
}

// Buttons 表示中の画面の項目
func (in *Interpreter) Buttons() []Button {
	switch in.state.Mode {
	case ScreenMenu:
		return menuButtons
	case ScreenPause:
		return pauseButtons
	default:
		return nil
	}
}

// ButtonAt 座標にある項目
func (in *Interpreter) ButtonAt(x, y int) (Button, bool) {
	for _, b := range in.Buttons() {
		if b.contains(x, y) {
			return b, true
		}
	}
	return Button{}, false
}

// EnterScreen 画面を切り替える
// メニューは初回のみ、ポーズ画面は入るたびに表示リストを作り直す
func (in *Interpreter) EnterScreen(s Screen) {
	prev := in.state.Mode
	in.state.Mode = s
	switch s {
	case ScreenMenu:
		if len(in.state.Screens[ScreenMenu]) == 0 {
			in.buildScreen(ScreenMenu, menuButtons)
		}
	case ScreenPause:
		in.buildScreen(ScreenPause, pauseButtons)
	}
	if prev != s {
		in.log.Debug("screen changed", "from", prev.String(), "to", s.String())
	}
}

// buildScreen 背景と項目テキストで画面の表示リストを作る
func (in *Interpreter) buildScreen(s Screen, buttons []Button) {
	bg := screenBackgrounds[s]
	list := render.DisplayList{{Name: bg, X: 0, Y: 0, W: in.width, H: in.height}}
	in.host.RequestResource(bg)

	for _, b := range buttons {
		key := fmt.Sprintf("%s_text_%d_%d", s, b.X, b.Y)
		w, h, err := in.host.RenderText(key, b.Label, b.X, b.Y)
		if err != nil {
			in.log.Warn("failed to render menu text", "name", key, "error", err)
			continue
		}
		list = append(list, render.DisplayImage{Name: key, X: b.X, Y: b.Y, W: w, H: h})
	}
	in.state.Screens[s] = list
}
