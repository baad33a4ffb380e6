package label

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"

	"github.com/matzehuels/cellmap/pkg/fonts"
)

// Measurer measures a block of text lines set at size pixels. ok is false
// when the text cannot be measured, for example because it is empty.
type Measurer interface {
	Measure(lines []string, size float64) (w, h float64, ok bool)
}

// EstimateMeasurer measures text with the per-glyph width table used by
// Wrap, without loading a font.
type EstimateMeasurer struct{}

// Measure implements Measurer.
func (EstimateMeasurer) Measure(lines []string, size float64) (w, h float64, ok bool) {
	if len(lines) == 0 || size <= 0 {
		return 0, 0, false
	}
	return MaxWidth(lines) * size * 0.6, float64(len(lines)) * size * LineHeight, true
}

// LineHeight is the line advance in em.
const LineHeight = 1.0

// FontMeasurer measures text with real glyph advances. It is safe for
// concurrent use.
type FontMeasurer struct {
	font *opentype.Font

	mu    sync.Mutex
	faces map[float64]font.Face
}

// NewFontMeasurer parses ttf. A nil ttf selects the Go Regular font.
func NewFontMeasurer(ttf []byte) (*FontMeasurer, error) {
	if ttf == nil {
		ttf = fonts.Regular()
	}
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &FontMeasurer{font: f, faces: make(map[float64]font.Face)}, nil
}

// Measure implements Measurer.
func (m *FontMeasurer) Measure(lines []string, size float64) (w, h float64, ok bool) {
	if len(lines) == 0 || size <= 0 {
		return 0, 0, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	face, err := m.face(size)
	if err != nil {
		return 0, 0, false
	}
	var widest float64
	for _, l := range lines {
		widest = max(widest, float64(font.MeasureString(face, l))/64)
	}
	if widest == 0 {
		return 0, 0, false
	}
	return widest, float64(len(lines)) * size * LineHeight, true
}

func (m *FontMeasurer) face(size float64) (font.Face, error) {
	if f, ok := m.faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(m.font, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, err
	}
	m.faces[size] = f
	return f, nil
}
