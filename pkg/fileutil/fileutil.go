// Package fileutil resolves project asset files on disk.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound はどの候補ファイルも見つからなかったときのエラー
var ErrNotFound = errors.New("file not found")

// FindFileCaseInsensitive は大文字小文字を無視して dir から filename を探し、実際のパスを返す
//
// Example:
//
//	path, err := FindFileCaseInsensitive("/game/assets", "BG.PNG")
//	// finds "bg.png", "Bg.Png", ...
func FindFileCaseInsensitive(dir, filename string) (string, error) {
	// まず直接アクセスを試みる
	exact := filepath.Join(dir, filename)
	if info, err := os.Stat(exact); err == nil && !info.IsDir() {
		return exact, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	// 大文字小文字を無視して検索
	searchName := strings.ToLower(filename)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(entry.Name()) == searchName {
			return filepath.Join(dir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("%w: %s (searched in %s)", ErrNotFound, filename, dir)
}

// ResolveAsset は論理リソース名に拡張子を順に付けて探し、見つかったパスと拡張子を返す
// 名前には "/" 区切りのサブディレクトリを含めてよい
func ResolveAsset(root, name string, exts ...string) (string, string, error) {
	rel := filepath.FromSlash(name)
	dir := filepath.Join(root, filepath.Dir(rel))
	base := filepath.Base(rel)

	for _, ext := range exts {
		path, err := FindFileCaseInsensitive(dir, base+ext)
		if err == nil {
			return path, ext, nil
		}
	}
	return "", "", fmt.Errorf("%w: %s%v", ErrNotFound, name, exts)
}

// ResolvePath は設定されたパスを root からの相対パスとして解決する（絶対パスはそのまま）
func ResolvePath(root, path string) string {
	if path == "" || filepath.IsAbs(path) || root == "" {
		return path
	}
	return filepath.Join(root, path)
}
