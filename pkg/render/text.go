package render

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// TextRasterizer はテキストを透明背景の画像に描画する
type TextRasterizer struct {
	mu    sync.Mutex
	face  font.Face
	color color.Color
}

// NewTextRasterizer フォントファイルとサイズからTextRasterizerを作成
// pathが空の場合は組み込みのGo Regularフォントを使用する
func NewTextRasterizer(path string, size float64) (*TextRasterizer, error) {
	data := goregular.TTF
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read font file: %w", err)
		}
	}
	face, err := parseFace(data, size)
	if err != nil {
		return nil, err
	}
	return &TextRasterizer{face: face, color: color.White}, nil
}

// NewBasicTextRasterizer basicfont（7x13）を使用するTextRasterizerを作成
// フォントの読み込みに失敗したときのフォールバック
func NewBasicTextRasterizer() *TextRasterizer {
	return &TextRasterizer{face: basicfont.Face7x13, color: color.White}
}

// parseFace フォントデータからフェイスを作成（.ttcは最初のフォントを使用）
func parseFace(data []byte, size float64) (font.Face, error) {
	tt, err := opentype.Parse(data)
	if err != nil {
		collection, cerr := opentype.ParseCollection(data)
		if cerr != nil {
			return nil, fmt.Errorf("failed to parse font: %w", err)
		}
		if collection.NumFonts() == 0 {
			return nil, fmt.Errorf("font collection is empty")
		}
		tt, err = collection.Font(0)
		if err != nil {
			return nil, fmt.Errorf("failed to get font from collection: %w", err)
		}
	}

	face, err := opentype.NewFace(tt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}

// Measure テキストの描画サイズを返す
func (r *TextRasterizer) Measure(text string) (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.measure(text)
}

func (r *TextRasterizer) measure(text string) (int, int) {
	m := r.face.Metrics()
	w := font.MeasureString(r.face, text).Ceil()
	h := (m.Ascent + m.Descent).Ceil()
	return max(w, 1), max(h, 1)
}

// Rasterize テキストを描画した画像を返す（画像サイズはテキストの大きさ）
func (r *TextRasterizer) Rasterize(text string) *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()

	text = strings.TrimRight(text, "\r\n")
	w, h := r.measure(text)
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(r.color),
		Face: r.face,
		Dot:  fixed.Point26_6{X: 0, Y: r.face.Metrics().Ascent},
	}
	drawer.DrawString(text)
	return img
}
