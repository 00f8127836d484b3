package engine

import (
	"errors"
	"fmt"
)

// ErrorKind はスクリプトエラーの種別
type ErrorKind string

const (
	ErrorBadArgument  ErrorKind = "BAD_ARGUMENT"
	ErrorUnknownLabel ErrorKind = "UNKNOWN_LABEL"
	ErrorBadChoice    ErrorKind = "BAD_CHOICE"
)

// ErrQuit はメニューで Exit が選ばれたときにループドライバが返す
var ErrQuit = errors.New("engine quit requested")

// ScriptError は不正なコマンドを表す。コマンドはスキップされ、実行は継続する
type ScriptError struct {
	Kind    ErrorKind
	Line    int // 1 始まりの行番号（不明なら 0）
	Command string
	Message string
}

// Error は error インターフェースを実装する
func (e *ScriptError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] %s at line %d: %q", e.Kind, e.Message, e.Line, e.Command)
	}
	return fmt.Sprintf("[%s] %s: %q", e.Kind, e.Message, e.Command)
}

// IsFatal は常に false（スクリプトエラーで実行は止まらない）
func (e *ScriptError) IsFatal() bool {
	return false
}

func newScriptError(kind ErrorKind, command, format string, args ...any) *ScriptError {
	return &ScriptError{
		Kind:    kind,
		Command: command,
		Message: fmt.Sprintf(format, args...),
	}
}
