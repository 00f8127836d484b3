package script

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

func TestParse_LinesVerbatim(t *testing.T) {
	src := "show image bg 0 0 1920 1080\r\nsay  Hello,   world \r\n\nunknown stuff\n"
	p, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"show image bg 0 0 1920 1080", "say  Hello,   world ", "", "unknown stuff"}
	if p.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", p.Len(), len(want))
	}
	for i, w := range want {
		if p.Line(i) != w {
			t.Errorf("Line(%d) = %q, want %q", i, p.Line(i), w)
		}
	}
	if p.Line(-1) != "" || p.Line(len(want)) != "" {
		t.Error("out of range Line should return empty string")
	}
}

func TestParse_Labels(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  map[string]int
	}{
		{
			name:  "単一ラベル",
			lines: []string{"say a", "label start", "say b"},
			want:  map[string]int{"start": 1},
		},
		{
			name:  "同名ラベルは後勝ち",
			lines: []string{"label x", "say a", "label x"},
			want:  map[string]int{"x": 2},
		},
		{
			name:  "前後の空白と余分なトークン",
			lines: []string{"   label  end  ignored tokens", "say a"},
			want:  map[string]int{"end": 0},
		},
		{
			name:  "名前なしラベルは無視",
			lines: []string{"label", "labels x", "say label y"},
			want:  map[string]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(strings.NewReader(strings.Join(tt.lines, "\n")))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(p.Labels) != len(tt.want) {
				t.Errorf("Labels = %v, want %v", p.Labels, tt.want)
			}
			for name, idx := range tt.want {
				got, ok := p.Label(name)
				if !ok || got != idx {
					t.Errorf("Label(%q) = %d, %v; want %d", name, got, ok, idx)
				}
			}
		})
	}
}

func TestParse_ShiftJIS(t *testing.T) {
	content := "say これはShift-JISのテストです\nlabel 分岐"
	encoded, _, err := transform.String(japanese.ShiftJIS.NewEncoder(), content)
	if err != nil {
		t.Fatalf("failed to encode to Shift-JIS: %v", err)
	}

	p, err := Parse(strings.NewReader(encoded), WithEncoding("shift_jis"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Line(0) != "say これはShift-JISのテストです" {
		t.Errorf("Line(0) = %q", p.Line(0))
	}
	if idx, ok := p.Label("分岐"); !ok || idx != 1 {
		t.Errorf("Label(分岐) = %d, %v", idx, ok)
	}
}

func TestParse_UnsupportedEncoding(t *testing.T) {
	if _, err := Parse(strings.NewReader("say a"), WithEncoding("latin1")); err == nil {
		t.Error("expected error for unsupported encoding")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.txt")
	if err := os.WriteFile(path, []byte("label top\nsay hi\ngoto top\n"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Path != path {
		t.Errorf("Path = %q, want %q", p.Path, path)
	}
	if p.Len() != 3 {
		t.Errorf("Len() = %d, want 3", p.Len())
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error should wrap fs.ErrNotExist, got %v", err)
	}
}

func TestNilProgram(t *testing.T) {
	var p *Program
	if p.Len() != 0 || p.Line(0) != "" {
		t.Error("nil program should be empty")
	}
	if _, ok := p.Label("x"); ok {
		t.Error("nil program has no labels")
	}
}
