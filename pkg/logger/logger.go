// Package logger はエンジン全体で共有する slog ロガーを管理する
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	globalLogger *slog.Logger
	globalLevel  = new(slog.LevelVar)
	mu           sync.RWMutex
)

// ParseLevel はログレベル文字列を slog.Level に変換する
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

// InitLogger ログレベルに応じてslogを初期化（出力先は標準エラー）
func InitLogger(level string) error {
	return InitLoggerWithWriter(level, os.Stderr)
}

// InitLoggerWithWriter 出力先を指定してslogを初期化
func InitLoggerWithWriter(level string, w io.Writer) error {
	slogLevel, err := ParseLevel(level)
	if err != nil {
		return err
	}
	globalLevel.Set(slogLevel)

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: globalLevel,
	})

	mu.Lock()
	globalLogger = slog.New(handler)
	mu.Unlock()
	slog.SetDefault(globalLogger)

	return nil
}

// SetLevel 実行中にログレベルを変更する
func SetLevel(level slog.Level) {
	globalLevel.Set(level)
}

// Level 現在のログレベルを返す
func Level() slog.Level {
	return globalLevel.Level()
}

// GetLogger グローバルロガーを取得
func GetLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if globalLogger == nil {
		// デフォルトロガーを返す
		return slog.Default()
	}
	return globalLogger
}

// Component はコンポーネント名を付与した子ロガーを返す
func Component(name string) *slog.Logger {
	return GetLogger().With("component", name)
}
