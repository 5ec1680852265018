package gpu

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

const fpsRefresh = 500 * time.Millisecond

// fpsOverlay shows FPS, TPS and the number of placements on screen. The
// text is re-rendered at most every fpsRefresh.
type fpsOverlay struct {
	img  *ebiten.Image
	last time.Time
}

func newFPSOverlay() *fpsOverlay {
	// 120x48 fits three DebugPrint lines.
	return &fpsOverlay{img: ebiten.NewImage(120, 48)}
}

func (o *fpsOverlay) draw(screen *ebiten.Image, onScreen int) {
	if now := time.Now(); now.Sub(o.last) >= fpsRefresh {
		o.last = now
		o.img.Clear()
		// Semi-transparent background for readability
		o.img.Fill(color.RGBA{0, 0, 0, 128})
		ebitenutil.DebugPrint(o.img, fmt.Sprintf("FPS: %.1f\nTPS: %.1f\nOn screen: %d",
			ebiten.ActualFPS(), ebiten.ActualTPS(), onScreen))
	}
	screen.DrawImage(o.img, nil)
}
