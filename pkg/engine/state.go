package engine

import (
	"maps"

	"github.com/zurustar/novella/pkg/render"
)

// Screen は表示中の画面
type Screen int

const (
	ScreenMenu Screen = iota
	ScreenGame
	ScreenPause
)

func (s Screen) String() string {
	switch s {
	case ScreenMenu:
		return "menu"
	case ScreenGame:
		return "game"
	case ScreenPause:
		return "pause"
	default:
		return "unknown"
	}
}

// Status はインタプリタの進行状態
type Status int

const (
	// StatusIdle は入力待ち
	StatusIdle Status = iota
	// StatusRunning は自動で次の行へ進める状態
	StatusRunning
	// StatusEnded はスクリプトの末尾に達した状態
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// State はインタプリタの状態（セーブ・ロードの単位）
type State struct {
	PC             int
	Screens        map[Screen]render.DisplayList
	Variables      map[string]int
	Waiting        bool
	AdvancePending bool
	Mode           Screen
}

func newState() State {
	return State{
		Screens: map[Screen]render.DisplayList{
			ScreenMenu:  nil,
			ScreenGame:  nil,
			ScreenPause: nil,
		},
		Variables: make(map[string]int),
		Mode:      ScreenMenu,
	}
}

// clone は呼び出し側が自由に変更できるコピーを返す
func (s State) clone() State {
	c := s
	c.Screens = make(map[Screen]render.DisplayList, len(s.Screens))
	for k, v := range s.Screens {
		c.Screens[k] = v.Clone()
	}
	c.Variables = maps.Clone(s.Variables)
	return c
}

// Choice は choice コマンドで表示された選択肢
type Choice struct {
	Text  string
	Label string
	// X, Y, W, H は選択肢テキストの表示位置（クリック判定に使う）
	X, Y, W, H int
}

// contains は座標が選択肢の矩形内にあるか
func (c Choice) contains(x, y int) bool {
	return x >= c.X && x < c.X+c.W && y >= c.Y && y < c.Y+c.H
}
