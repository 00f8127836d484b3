package script

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// Program は読み込まれたスクリプトを表す（読み込み後は不変）
type Program struct {
	Path   string         // 読み込み元のパス（Parseの場合は空）
	Lines  []string       // 生の行（解釈は実行時まで遅延）
	Labels map[string]int // ラベル名 → 0始まりの行番号
}

// options はLoad/Parseのオプション
type options struct {
	encoding string
}

// Option はLoad/Parseの動作を変更する
type Option func(*options)

// WithEncoding スクリプトの文字コードを指定（"utf-8" または "shift_jis"）
func WithEncoding(enc string) Option {
	return func(o *options) {
		o.encoding = strings.ToLower(enc)
	}
}

// Load スクリプトファイルを読み込む
func Load(path string, opts ...Option) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}

	p, err := Parse(bytes.NewReader(data), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load script %s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// Parse リーダーからスクリプトを構築する
// 構文検証は行わない。"label" で始まる行だけを索引化する（同名は後勝ち）
func Parse(r io.Reader, opts ...Option) (*Program, error) {
	o := options{encoding: "utf-8"}
	for _, opt := range opts {
		opt(&o)
	}

	switch o.encoding {
	case "", "utf-8", "utf8":
	case "shift_jis", "sjis":
		r = transform.NewReader(r, japanese.ShiftJIS.NewDecoder())
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", o.encoding)
	}

	p := &Program{Labels: make(map[string]int)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if name, ok := labelName(line); ok {
			p.Labels[name] = len(p.Lines)
		}
		p.Lines = append(p.Lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan script: %w", err)
	}

	return p, nil
}

// labelName "label <name>" 行からラベル名を取り出す
func labelName(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "label" {
		return "", false
	}
	return fields[1], true
}

// Len 行数
func (p *Program) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Lines)
}

// Line i行目を返す（範囲外は空文字列）
func (p *Program) Line(i int) string {
	if p == nil || i < 0 || i >= len(p.Lines) {
		return ""
	}
	return p.Lines[i]
}

// Label ラベルの行番号を返す
func (p *Program) Label(name string) (int, bool) {
	if p == nil {
		return 0, false
	}
	idx, ok := p.Labels[name]
	return idx, ok
}
