package danmaku

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hajimehoshi/ebiten/v2/text/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/font/gofont/goregular"
)

// Font is the text-metrics provider used to size placements. Measurement
// must be deterministic: the same string always yields the same width.
type Font interface {
	MeasureString(text string) (width, height float64)
	LineHeight() float64
}

// --- MonoFont ---

// MonoFont measures every rune with the same advance. It needs no font data,
// which makes it handy for headless runs and tests.
type MonoFont struct {
	Advance float64
	Height  float64
}

// MeasureString returns Advance times the rune count of the widest line.
func (f MonoFont) MeasureString(s string) (width, height float64) {
	lines := strings.Split(s, "\n")
	for _, l := range lines {
		if w := float64(utf8.RuneCountInString(l)) * f.Advance; w > width {
			width = w
		}
	}
	return width, float64(len(lines)) * f.Height
}

// LineHeight returns Height.
func (f MonoFont) LineHeight() float64 {
	return f.Height
}

// --- TTFFont ---

const measureCacheSize = 1024

// TTFFont measures text with Ebitengine's text/v2 shaper. Widths are cached
// per string since comment text repeats often across replays.
type TTFFont struct {
	face  *text.GoTextFace
	lh    float64
	cache *lru.Cache[string, [2]float64]
}

// LoadTTFFont loads a TrueType font from raw TTF/OTF data at the given size
// in pixels.
func LoadTTFFont(ttfData []byte, size float64) (*TTFFont, error) {
	source, err := text.NewGoTextFaceSource(bytes.NewReader(ttfData))
	if err != nil {
		return nil, fmt.Errorf("danmaku: failed to parse TTF data: %w", err)
	}

	face := &text.GoTextFace{Source: source, Size: size}
	m := face.Metrics()

	cache, err := lru.New[string, [2]float64](measureCacheSize)
	if err != nil {
		return nil, fmt.Errorf("danmaku: measure cache: %w", err)
	}

	return &TTFFont{
		face:  face,
		lh:    m.HAscent + m.HDescent + m.HLineGap,
		cache: cache,
	}, nil
}

// DefaultFont loads the Go Regular face at the given pixel size.
func DefaultFont(size float64) (*TTFFont, error) {
	return LoadTTFFont(goregular.TTF, size)
}

// MeasureString returns the width and height of the rendered text.
func (f *TTFFont) MeasureString(s string) (width, height float64) {
	if wh, ok := f.cache.Get(s); ok {
		return wh[0], wh[1]
	}
	w, h := text.Measure(s, f.face, f.lh)
	f.cache.Add(s, [2]float64{w, h})
	return w, h
}

// LineHeight returns the vertical distance between baselines.
func (f *TTFFont) LineHeight() float64 {
	return f.lh
}

// Face returns the underlying GoTextFace for direct text/v2 rendering.
func (f *TTFFont) Face() *text.GoTextFace {
	return f.face
}
