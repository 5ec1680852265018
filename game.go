package danmaku

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// Compositor draws the lane table onto a screen image. Implementations live
// in compositor/gpu and compositor/raster.
type Compositor interface {
	Draw(screen *ebiten.Image, lanes *LaneTable)
}

// Game adapts an Engine and a Compositor to ebiten.Game. It is also the
// engine's TickSource: Ebitengine's update loop becomes the engine thread.
type Game struct {
	// ScreenshotDir is where Screenshot writes PNG files.
	ScreenshotDir string

	engine     *Engine
	compositor Compositor
	step       func(time.Time)
	now        func() time.Time

	touchIDs  []ebiten.TouchID
	touchID   ebiten.TouchID
	touching  bool
	lastTouch [2]float64

	screenshotQueue []string
}

// NewGame creates a Game and attaches it to e as its TickSource.
func NewGame(e *Engine, c Compositor) *Game {
	g := &Game{
		ScreenshotDir: "screenshots",
		engine:        e,
		compositor:    c,
		now:           time.Now,
	}
	e.screenshot = g.queueScreenshot
	e.Attach(g)
	return g
}

// Start implements TickSource.
func (g *Game) Start(step func(now time.Time)) {
	g.step = step
}

// Stop implements TickSource. The next Update ends the run loop.
func (g *Game) Stop() {
	g.step = nil
}

// Update implements ebiten.Game.
func (g *Game) Update() error {
	if g.step == nil {
		return ebiten.Termination
	}
	if g.engine.InjectPending() == 0 {
		g.processInput()
	}
	g.step(g.now())
	return nil
}

// Draw implements ebiten.Game.
func (g *Game) Draw(screen *ebiten.Image) {
	if g.compositor != nil {
		g.compositor.Draw(screen, g.engine.Lanes())
	}
	g.flushScreenshots(screen)
}

// Layout implements ebiten.Game. The window size becomes the viewport.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.engine.SetViewport(float64(outsideWidth), float64(outsideHeight))
	return outsideWidth, outsideHeight
}

// processInput feeds the left mouse button, or else the first active touch,
// through the engine's gesture state machine.
func (g *Game) processInput() {
	g.touchIDs = ebiten.AppendTouchIDs(g.touchIDs[:0])

	if g.touching {
		for _, id := range g.touchIDs {
			if id == g.touchID {
				x, y := ebiten.TouchPosition(id)
				g.lastTouch = [2]float64{float64(x), float64(y)}
				g.engine.PointerMove(g.lastTouch[0], g.lastTouch[1])
				return
			}
		}
		g.touching = false
		g.engine.PointerUp(g.lastTouch[0], g.lastTouch[1])
		return
	}
	if len(g.touchIDs) > 0 {
		g.touchID = g.touchIDs[0]
		g.touching = true
		x, y := ebiten.TouchPosition(g.touchID)
		g.lastTouch = [2]float64{float64(x), float64(y)}
		g.engine.PointerDown(g.lastTouch[0], g.lastTouch[1])
		return
	}

	mx, my := ebiten.CursorPosition()
	g.engine.processPointer(float64(mx), float64(my), ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft))
}

// --- Screenshots ---

func (g *Game) queueScreenshot(label string) {
	g.screenshotQueue = append(g.screenshotQueue, label)
}

// flushScreenshots writes the rendered frame once for every queued label.
func (g *Game) flushScreenshots(screen *ebiten.Image) {
	if len(g.screenshotQueue) == 0 {
		return
	}
	defer func() { g.screenshotQueue = g.screenshotQueue[:0] }()

	if err := os.MkdirAll(g.ScreenshotDir, 0o755); err != nil {
		g.engine.log.Warn("screenshot: mkdir failed", slog.String("dir", g.ScreenshotDir), slog.Any("error", err))
		return
	}

	b := screen.Bounds()
	w, h := b.Dx(), b.Dy()
	pixels := make([]byte, 4*w*h)
	screen.ReadPixels(pixels)
	img := unpremultiply(pixels, w, h)

	stamp := time.Now().Format("20060102_150405")
	for _, label := range g.screenshotQueue {
		path := filepath.Join(g.ScreenshotDir, fmt.Sprintf("%s_%s.png", stamp, sanitizeLabel(label)))
		if err := writePNG(path, img); err != nil {
			g.engine.log.Warn("screenshot failed", slog.Any("error", err))
		}
	}
}

// unpremultiply converts premultiplied RGBA pixels to straight-alpha NRGBA.
func unpremultiply(pixels []byte, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i+3 < len(pixels); i += 4 {
		r, g, b, a := pixels[i], pixels[i+1], pixels[i+2], pixels[i+3]
		if a > 0 && a < 255 {
			r = uint8(min(int(r)*255/int(a), 255))
			g = uint8(min(int(g)*255/int(a), 255))
			b = uint8(min(int(b)*255/int(a), 255))
		}
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, a
	}
	return img
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// sanitizeLabel keeps [A-Za-z0-9.-], replaces everything else with '_' and
// maps an empty label to "unlabeled".
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// --- Run ---

// RunConfig configures the window opened by Run.
type RunConfig struct {
	Title  string
	Width  int
	Height int
	// Transparent clears the window to transparent so the overlay can sit
	// over other content.
	Transparent bool
	// Floating keeps the window above others.
	Floating bool
	// ScreenshotDir overrides the Game default.
	ScreenshotDir string
}

// Run opens a window and drives e until the window closes or e is closed.
// Zero Width or Height fall back to the engine's viewport.
func Run(e *Engine, c Compositor, cfg RunConfig) error {
	if cfg.Width <= 0 {
		cfg.Width = int(e.cfg.ViewportWidth)
	}
	if cfg.Height <= 0 {
		cfg.Height = int(e.cfg.ViewportHeight)
	}
	if cfg.Title == "" {
		cfg.Title = "danmaku"
	}

	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowFloating(cfg.Floating)

	g := NewGame(e, c)
	if cfg.ScreenshotDir != "" {
		g.ScreenshotDir = cfg.ScreenshotDir
	}
	err := ebiten.RunGameWithOptions(g, &ebiten.RunGameOptions{ScreenTransparent: cfg.Transparent})
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}
