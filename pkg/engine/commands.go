package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zurustar/novella/pkg/render"
)

// 台詞・選択肢の表示位置
const (
	dialogX          = 100
	dialogY          = 900
	dialogBackground = "dialog_bg"
	dialogBgWidth    = 1920
	dialogBgHeight   = 200

	choiceX       = 100
	choiceY       = 500
	choiceSpacing = 60
)

// registerDefaultCommands 組み込みコマンドを登録する
func (in *Interpreter) registerDefaultCommands() {
	in.RegisterCommand("show", cmdShow)
	in.RegisterCommand("say", cmdSay)
	in.RegisterCommand("play", cmdPlay)
	in.RegisterCommand("stop_music", func(in *Interpreter, args string) error {
		in.host.StopMusic()
		return nil
	})
	in.RegisterCommand("volume", cmdVolume)
	in.RegisterCommand("clear", func(in *Interpreter, args string) error {
		in.state.Screens[in.state.Mode] = nil
		return nil
	})
	in.RegisterCommand("set", cmdSet)
	in.RegisterCommand("if", cmdIf)
	in.RegisterCommand("loop", cmdLoop)
	// ラベルは読み込み時に登録済み
	in.RegisterCommand("label", func(in *Interpreter, args string) error {
		return nil
	})
	in.RegisterCommand("goto", cmdGoto)
	in.RegisterCommand("choice", cmdChoice)
}

// show image <name> <x> <y> <w> <h>
func cmdShow(in *Interpreter, args string) error {
	fields := strings.Fields(args)
	if len(fields) == 0 || fields[0] != "image" {
		return nil
	}
	if len(fields) < 6 {
		return newScriptError(ErrorBadArgument, "", "show image requires a name and a rect")
	}
	rect, err := parseInts(fields[2:6])
	if err != nil {
		return err
	}
	name := fields[1]
	in.appendImage(render.DisplayImage{Name: name, X: rect[0], Y: rect[1], W: rect[2], H: rect[3]})
	in.host.RequestResource(name)
	return nil
}

// say <text...>
func cmdSay(in *Interpreter, args string) error {
	text := strings.TrimRight(args, " \t")

	in.host.RequestResource(dialogBackground)
	in.appendImage(render.DisplayImage{
		Name: dialogBackground,
		X:    dialogX - 10,
		Y:    dialogY - 10,
		W:    dialogBgWidth,
		H:    dialogBgHeight,
	})
	in.showText(text, dialogX, dialogY)
	in.state.Waiting = true
	return nil
}

// play sound <name> | play music <name> [loops] | play video <name> [x y w h]
func cmdPlay(in *Interpreter, args string) error {
	kind, rest := cutField(args)
	name, rest := cutField(rest)

	switch kind {
	case "sound", "music", "video":
	default:
		return nil
	}
	if name == "" {
		return newScriptError(ErrorBadArgument, "", "play %s requires a name", kind)
	}

	switch kind {
	case "sound":
		in.host.PlaySound(name)
	case "music":
		loops := -1
		if f := strings.Fields(rest); len(f) > 0 {
			n, err := strconv.Atoi(f[0])
			if err != nil {
				return newScriptError(ErrorBadArgument, "", "invalid loop count %q", f[0])
			}
			loops = n
		}
		in.host.PlayMusic(name, loops)
	case "video":
		x, y, w, h := 0, 0, in.width, in.height
		if f := strings.Fields(rest); len(f) >= 4 {
			// 矩形が読めなければ全画面で再生する
			if r, err := parseInts(f[:4]); err == nil {
				x, y, w, h = r[0], r[1], r[2], r[3]
			}
		}
		in.host.PlayVideo(name, x, y, w, h)
		in.state.Waiting = true
	}
	return nil
}

// volume <n>
func cmdVolume(in *Interpreter, args string) error {
	v, _ := cutField(args)
	n, err := strconv.Atoi(v)
	if err != nil {
		return newScriptError(ErrorBadArgument, "", "invalid volume %q", v)
	}
	applied := in.host.SetVolume(n)
	in.log.Debug("volume set", "line", in.line, "requested", n, "applied", applied)
	return nil
}

// set <var> <value>
func cmdSet(in *Interpreter, args string) error {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return newScriptError(ErrorBadArgument, "", "set requires a name and a value")
	}
	v, err := strconv.Atoi(fields[1])
	if err != nil {
		return newScriptError(ErrorBadArgument, "", "invalid value %q for %s", fields[1], fields[0])
	}
	in.state.Variables[fields[0]] = v
	return nil
}

// if <var> <op> <value> <command...>
// 未設定の変数は 0 として比較する
func cmdIf(in *Interpreter, args string) error {
	name, rest := cutField(args)
	op, rest := cutField(rest)
	value, rest := cutField(rest)
	if name == "" || op == "" || value == "" {
		return newScriptError(ErrorBadArgument, "", "if requires a variable, an operator and a value")
	}
	rhs, err := strconv.Atoi(value)
	if err != nil {
		return newScriptError(ErrorBadArgument, "", "invalid value %q in comparison", value)
	}
	ok, err := compare(in.state.Variables[name], op, rhs)
	if err != nil {
		return err
	}
	if ok && rest != "" {
		in.execute(rest)
	}
	return nil
}

func compare(lhs int, op string, rhs int) (bool, error) {
	switch op {
	case ">":
		return lhs > rhs, nil
	case "<":
		return lhs < rhs, nil
	case "=", "==":
		return lhs == rhs, nil
	case ">=":
		return lhs >= rhs, nil
	case "<=":
		return lhs <= rhs, nil
	case "!=":
		return lhs != rhs, nil
	default:
		return false, newScriptError(ErrorBadArgument, "", "unknown operator %q", op)
	}
}

// loop <n> <command...>
// 同じビートの中で n 回続けて実行する
func cmdLoop(in *Interpreter, args string) error {
	count, rest := cutField(args)
	n, err := strconv.Atoi(count)
	if err != nil {
		return newScriptError(ErrorBadArgument, "", "invalid loop count %q", count)
	}
	for i := 0; i < n && rest != ""; i++ {
		in.execute(rest)
	}
	return nil
}

// goto <label>
// 未知のラベルは何もしない（エラーとして記録のみ）
func cmdGoto(in *Interpreter, args string) error {
	name, _ := cutField(args)
	if name == "" {
		return newScriptError(ErrorBadArgument, "", "goto requires a label")
	}
	idx, ok := in.prog.Label(name)
	if !ok {
		return newScriptError(ErrorUnknownLabel, "", "unknown label %q", name)
	}
	in.state.PC = idx
	in.jumped = true
	return nil
}

// choice <option>,<label>[,<option>,<label>...]
// 選択肢を番号付きで表示して入力待ちにする
func cmdChoice(in *Interpreter, args string) error {
	parts := strings.Split(args, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 2 {
		return newScriptError(ErrorBadChoice, "", "choice requires option,label pairs")
	}
	if len(parts)%2 != 0 {
		in.report(newScriptError(ErrorBadChoice, "", "option %q has no label", parts[len(parts)-1]), "choice "+args)
		parts = parts[:len(parts)-1]
	}

	var choices []Choice
	for i := 0; i+1 < len(parts); i += 2 {
		n := len(choices)
		y := choiceY + n*choiceSpacing
		img, ok := in.showText(fmt.Sprintf("%d. %s", n+1, parts[i]), choiceX, y)
		if !ok {
			continue
		}
		choices = append(choices, Choice{
			Text:  parts[i],
			Label: parts[i+1],
			X:     img.X,
			Y:     img.Y,
			W:     img.W,
			H:     img.H,
		})
	}
	if len(choices) == 0 {
		return newScriptError(ErrorBadChoice, "", "no option could be displayed")
	}
	in.choices = choices
	in.state.Waiting = true
	return nil
}

func parseInts(fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, newScriptError(ErrorBadArgument, "", "invalid number %q", f)
		}
		out[i] = n
	}
	return out, nil
}
