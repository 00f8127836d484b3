package engine

import (
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"
	"unicode"

	"github.com/zurustar/novella/pkg/logger"
	"github.com/zurustar/novella/pkg/persist"
	"github.com/zurustar/novella/pkg/render"
	"github.com/zurustar/novella/pkg/script"
)

// Host はコマンドが呼び出す外部機能（リソース・テキスト・音声・動画）
// すべてのメソッドはエンジンのロックを保持した状態で呼ばれるため、
// 実装側でロックを取り直してはならない
type Host interface {
	RequestResource(name string)
	RenderText(key, text string, x, y int) (w, h int, err error)
	PlaySound(name string)
	PlayMusic(name string, loops int)
	StopMusic()
	SetVolume(n int) int
	PlayVideo(name string, x, y, w, h int)
}

// CommandFunc はコマンドの実装。args はコマンド名より後ろの文字列
type CommandFunc func(in *Interpreter, args string) error

// Interpreter はスクリプトを1行ずつ実行する状態機械
// ロックを持たないため、呼び出し側（Engine）が排他制御する
type Interpreter struct {
	prog     *script.Program
	state    State
	host     Host
	commands map[string]CommandFunc

	choices []Choice
	textSeq int
	jumped  bool // 実行中の行で goto が成立したか
	line    int  // 実行中の行番号（1始まり、エラー報告用）

	width, height int
	onError       func(*ScriptError)
	log           *slog.Logger
}

// Option はインタプリタの設定
type Option func(*Interpreter)

// WithLogger ロガーを設定
func WithLogger(log *slog.Logger) Option {
	return func(in *Interpreter) {
		in.log = log
	}
}

// WithCanvas 論理キャンバスの大きさを設定（動画のデフォルト矩形・画面背景に使う）
func WithCanvas(width, height int) Option {
	return func(in *Interpreter) {
		in.width = width
		in.height = height
	}
}

// WithErrorHandler スクリプトエラーの通知先を設定（デフォルトはログ出力）
func WithErrorHandler(fn func(*ScriptError)) Option {
	return func(in *Interpreter) {
		in.onError = fn
	}
}

// NewInterpreter インタプリタを作成
func NewInterpreter(prog *script.Program, host Host, opts ...Option) *Interpreter {
	in := &Interpreter{
		prog:     prog,
		state:    newState(),
		host:     host,
		commands: make(map[string]CommandFunc),
		width:    1920,
		height:   1080,
		log:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.registerDefaultCommands()
	return in
}

// RegisterCommand コマンドを登録（同名は上書き）
func (in *Interpreter) RegisterCommand(name string, fn CommandFunc) {
	in.commands[name] = fn
}

// Program 実行中のスクリプト
func (in *Interpreter) Program() *script.Program {
	return in.prog
}

// SetProgram スクリプトを差し替える（再読み込み）
// PC は 0 に戻り、表示リストと変数は保持される
func (in *Interpreter) SetProgram(prog *script.Program) {
	in.prog = prog
	in.state.PC = 0
	in.state.Waiting = false
	in.state.AdvancePending = false
	in.choices = nil
}

// Status 現在の進行状態
func (in *Interpreter) Status() Status {
	if in.state.PC >= in.prog.Len() {
		return StatusEnded
	}
	if in.state.Waiting {
		return StatusIdle
	}
	return StatusRunning
}

// PC プログラムカウンタ
func (in *Interpreter) PC() int {
	return in.state.PC
}

// State 状態のコピーを返す
func (in *Interpreter) State() State {
	return in.state.clone()
}

// Mode 表示中の画面
func (in *Interpreter) Mode() Screen {
	return in.state.Mode
}

// DisplayList 画面 s の表示リスト（呼び出し側は変更しないこと）
func (in *Interpreter) DisplayList(s Screen) render.DisplayList {
	return in.state.Screens[s]
}

// SetDisplayList 画面 s の表示リストを置き換える
func (in *Interpreter) SetDisplayList(s Screen, list render.DisplayList) {
	in.state.Screens[s] = list
}

// Active 表示中の画面の表示リスト
func (in *Interpreter) Active() render.DisplayList {
	return in.state.Screens[in.state.Mode]
}

// Variable 変数の値（未設定なら 0, false）
func (in *Interpreter) Variable(name string) (int, bool) {
	v, ok := in.state.Variables[name]
	return v, ok
}

// Choices 選択待ちの選択肢
func (in *Interpreter) Choices() []Choice {
	return in.choices
}

// Input 入力イベント。入力待ちなら解除して次の行へ進める
// 選択肢の表示中は選択以外の入力を無視する
func (in *Interpreter) Input() {
	if len(in.choices) > 0 {
		return
	}
	if in.state.Waiting {
		in.state.Waiting = false
	}
	in.state.AdvancePending = true
}

// RequestAdvance 自動進行中に次の行の実行を要求する
func (in *Interpreter) RequestAdvance() {
	if in.Status() == StatusRunning {
		in.state.AdvancePending = true
	}
}

// Tick 進行要求があれば現在の行を1行だけ実行する
// 実行した行は消費され（goto 成立時を除き PC+1）、進行要求は解除される
// 行を実行したら true を返す
func (in *Interpreter) Tick() bool {
	if !in.state.AdvancePending || in.state.Mode != ScreenGame || in.Status() == StatusEnded {
		return false
	}

	pc := in.state.PC
	in.jumped = false
	in.line = pc + 1
	in.execute(in.prog.Line(pc))
	if !in.jumped {
		in.state.PC = pc + 1
	}
	in.state.AdvancePending = false
	return true
}

// SelectChoice i 番目（0始まり）の選択肢を選び、対応するラベルへ移動して進行する
func (in *Interpreter) SelectChoice(i int) error {
	if len(in.choices) == 0 {
		return newScriptError(ErrorBadChoice, "", "no choice pending")
	}
	if i < 0 || i >= len(in.choices) {
		return newScriptError(ErrorBadChoice, "", "choice %d out of range (1-%d)", i+1, len(in.choices))
	}

	c := in.choices[i]
	in.choices = nil
	in.state.Waiting = false
	in.state.AdvancePending = true

	idx, ok := in.prog.Label(c.Label)
	if !ok {
		return newScriptError(ErrorUnknownLabel, c.Label, "unknown label for choice %q", c.Text)
	}
	in.state.PC = idx
	in.log.Debug("choice selected", "index", i+1, "label", c.Label, "pc", idx)
	return nil
}

// ChoiceAt 座標にある選択肢の番号
func (in *Interpreter) ChoiceAt(x, y int) (int, bool) {
	for i, c := range in.choices {
		if c.contains(x, y) {
			return i, true
		}
	}
	return 0, false
}

// Snapshot セーブ用にゲーム画面の状態を取り出す
func (in *Interpreter) Snapshot() persist.Document {
	images := in.state.Screens[ScreenGame].Clone()
	if images == nil {
		images = render.DisplayList{}
	}
	return persist.Document{
		Command:   in.state.PC,
		Images:    images,
		Variables: maps.Clone(in.state.Variables),
	}
}

// Restore セーブデータで PC・ゲーム画面の表示リスト・変数を置き換える
// 表示リストのリソースは再要求され、読み込みが追いつき次第表示される
// 復元後は入力待ちになる
func (in *Interpreter) Restore(doc persist.Document) {
	list := render.DisplayList(doc.Images).Clone()
	vars := maps.Clone(doc.Variables)
	if vars == nil {
		vars = make(map[string]int)
	}

	in.state.PC = doc.Command
	in.state.Screens[ScreenGame] = list
	in.state.Variables = vars
	in.state.Waiting = true
	in.state.AdvancePending = false
	in.choices = nil

	// 復元したテキストと同じキーを新しいテキストに使わない
	for _, img := range list {
		if seq, ok := textSeqOf(img.Name); ok && seq > in.textSeq {
			in.textSeq = seq
		}
	}

	for _, name := range list.Names() {
		in.host.RequestResource(name)
	}
}

// textSeqOf text_<x>_<y>_<連番> の連番を取り出す
func textSeqOf(name string) (int, bool) {
	if !strings.HasPrefix(name, "text_") {
		return 0, false
	}
	i := strings.LastIndexByte(name, '_')
	n, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// execute 1つのコマンドを実行する（if/loop から再帰的に呼ばれる）
func (in *Interpreter) execute(line string) {
	name, args := cutField(line)
	if name == "" {
		return
	}
	cmd, ok := in.commands[name]
	if !ok {
		in.log.Debug("unknown command ignored", "line", in.line, "cmd", name)
		return
	}
	if err := cmd(in, args); err != nil {
		in.report(err, line)
	}
}

// report スクリプトエラーを通知する
func (in *Interpreter) report(err error, command string) {
	se, ok := err.(*ScriptError)
	if !ok {
		se = &ScriptError{Kind: ErrorBadArgument, Message: err.Error()}
	}
	if se.Line == 0 {
		se.Line = in.line
	}
	if se.Command == "" {
		se.Command = command
	}
	if in.onError != nil {
		in.onError(se)
		return
	}
	in.log.Warn("script error", "line", se.Line, "kind", string(se.Kind), "cmd", se.Command, "error", se.Message)
}

// showText テキストを描画して表示リストに追加する
// キーは text_<x>_<y>_<連番>
func (in *Interpreter) showText(text string, x, y int) (render.DisplayImage, bool) {
	in.textSeq++
	key := fmt.Sprintf("text_%d_%d_%d", x, y, in.textSeq)
	w, h, err := in.host.RenderText(key, text, x, y)
	if err != nil {
		in.log.Warn("failed to render text", "line", in.line, "name", key, "error", err)
		return render.DisplayImage{}, false
	}
	img := render.DisplayImage{Name: key, X: x, Y: y, W: w, H: h}
	in.appendImage(img)
	return img, true
}

// appendImage 表示中の画面の表示リストに追加
func (in *Interpreter) appendImage(img render.DisplayImage) {
	mode := in.state.Mode
	in.state.Screens[mode] = append(in.state.Screens[mode], img)
}

// cutField 先頭の空白区切りトークンと残りを返す
func cutField(s string) (string, string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}
