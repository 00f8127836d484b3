package render

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownBackend は未知のバックエンド名
	ErrUnknownBackend = errors.New("unknown render backend")
	// ErrBackendNotInitialized はInit前（またはCleanup後）の操作
	ErrBackendNotInitialized = errors.New("render backend not initialized")
	// ErrSurfaceOutOfDate は描画面の再作成が必要な状態（ウィンドウのリサイズなど）
	ErrSurfaceOutOfDate = errors.New("surface out of date")
)

// InitError はバックエンドの初期化失敗（起動を中断する）
type InitError struct {
	Backend string
	Err     error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("render backend %q init failed: %v", e.Backend, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// BackendError は描画・転送時のエラー
// Transient が true の場合、バックエンド内部で再作成して再試行する
type BackendError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *BackendError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("render %s (%s): %v", e.Op, kind, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsTransient errが再試行可能なBackendErrorか判定する
func IsTransient(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Transient
}
