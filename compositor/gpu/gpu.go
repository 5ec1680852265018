// Package gpu draws danmaku lanes with Ebitengine's GPU-backed images.
//
// Every placement gets a cached capsule texture built once with the vector
// package; text is drawn each frame through text/v2 and bitmaps are uploaded
// on first use. Textures of placements that left the lane table are released
// at the end of the frame that no longer sees them.
package gpu

import (
	"image"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/phanxgames/danmaku"
)

const borderWidth = 1.5

type bitmapKey struct {
	id   uint64
	kind danmaku.AssetKind
}

type bitmapEntry struct {
	src image.Image // identity check: a new bitmap replaces the upload
	img *ebiten.Image
}

// Compositor implements danmaku.Compositor on the GPU.
type Compositor struct {
	// ShowFPS draws a frame-rate overlay in the top-left corner.
	ShowFPS bool

	cfg  danmaku.Config
	font *danmaku.TTFFont

	backgrounds map[uint64]*ebiten.Image
	bitmaps     map[bitmapKey]bitmapEntry
	seen        map[uint64]struct{}

	fps *fpsOverlay
}

// New creates a compositor for placements laid out under cfg. font must be
// the same font the engine measured with, or text will not fit its capsule.
func New(cfg danmaku.Config, font *danmaku.TTFFont) *Compositor {
	return &Compositor{
		cfg:         cfg,
		font:        font,
		backgrounds: make(map[uint64]*ebiten.Image),
		bitmaps:     make(map[bitmapKey]bitmapEntry),
		seen:        make(map[uint64]struct{}),
	}
}

// Draw renders every visible placement onto screen.
func (c *Compositor) Draw(screen *ebiten.Image, lanes *danmaku.LaneTable) {
	b := screen.Bounds()
	view := danmaku.Rect{X: float64(b.Min.X), Y: float64(b.Min.Y), Width: float64(b.Dx()), Height: float64(b.Dy())}
	clear(c.seen)

	lanes.ForEachLane(func(_ int, lane []*danmaku.Placement) {
		for _, p := range lane {
			c.seen[p.ID] = struct{}{}
			if !p.Bounds().Intersects(view) {
				continue
			}
			c.drawPlacement(screen, p)
		}
	})

	c.sweep()

	if c.ShowFPS {
		if c.fps == nil {
			c.fps = newFPSOverlay()
		}
		c.fps.draw(screen, lanes.Count())
	}
}

// Release frees every cached texture.
func (c *Compositor) Release() {
	clear(c.seen)
	c.sweep()
}

func (c *Compositor) drawPlacement(screen *ebiten.Image, p *danmaku.Placement) {
	alpha := float32(p.Alpha)
	layout := danmaku.LayoutOf(p, c.cfg)

	bg := c.background(p)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(p.X, p.Y)
	op.ColorScale.ScaleAlpha(alpha)
	screen.DrawImage(bg, op)

	if img := c.bitmap(p.ID, danmaku.AssetAvatar, p.Avatar); img != nil {
		drawFitted(screen, img, layout.Avatar, alpha)
	} else {
		r := layout.Avatar.Width / 2
		vector.DrawFilledCircle(screen,
			float32(layout.Avatar.X+r), float32(layout.Avatar.Y+r), float32(r),
			danmaku.ColorPlaceholder.WithAlpha(p.Alpha).RGBA(), true)
	}

	c.drawText(screen, p, layout.TextX, alpha)

	if p.Item.HasImage() {
		if img := c.bitmap(p.ID, danmaku.AssetImage, p.Image); img != nil {
			drawFitted(screen, img, layout.Image, alpha)
		}
	}
}

func (c *Compositor) drawText(screen *ebiten.Image, p *danmaku.Placement, x float64, alpha float32) {
	if c.font == nil {
		return
	}
	face := c.font.Face()
	y := p.Y + (p.Height-c.font.LineHeight())/2

	if p.Item.Bordered() {
		drawString(screen, p.Item.Name, face, x, y, danmaku.ColorName, alpha)
		w, _ := c.font.MeasureString(p.Item.Name + "  ")
		x += w
	}
	drawString(screen, p.Item.Body, face, x, y, danmaku.ColorBody, alpha)
}

func drawString(dst *ebiten.Image, s string, face text.Face, x, y float64, clr danmaku.Color, alpha float32) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr.RGBA())
	op.ColorScale.ScaleAlpha(alpha)
	text.Draw(dst, s, face, op)
}

// drawFitted draws img scaled into r.
func drawFitted(dst, img *ebiten.Image, r danmaku.Rect, alpha float32) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	op := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear}
	op.GeoM.Scale(r.Width/float64(b.Dx()), r.Height/float64(b.Dy()))
	op.GeoM.Translate(r.X, r.Y)
	op.ColorScale.ScaleAlpha(alpha)
	dst.DrawImage(img, op)
}

// background returns the cached capsule for p, building it on first use.
func (c *Compositor) background(p *danmaku.Placement) *ebiten.Image {
	if img, ok := c.backgrounds[p.ID]; ok {
		return img
	}
	w := int(math.Ceil(p.Width))
	h := int(math.Ceil(p.Height))
	img := ebiten.NewImage(max(w, 1), max(h, 1))

	inset := 0.0
	if p.Item.Bordered() {
		fillCapsule(img, 0, float64(w), float64(h), func(float64) danmaku.Color { return danmaku.ColorBorder })
		inset = borderWidth
	}
	fillCapsule(img, inset, float64(w), float64(h), func(t float64) danmaku.Color {
		return lerpColor(danmaku.ColorGradientStart, danmaku.ColorGradientEnd, t)
	})

	c.backgrounds[p.ID] = img
	return img
}

// fillCapsule fills a horizontal capsule inset from a w×h box, one pixel
// column at a time so the fill can follow a left-to-right gradient.
func fillCapsule(dst *ebiten.Image, inset, w, h float64, colorAt func(t float64) danmaku.Color) {
	x0, x1 := inset, w-inset
	top, bottom := inset, h-inset
	r := (bottom - top) / 2
	if r <= 0 || x1 <= x0 {
		return
	}
	cy := top + r
	span := x1 - x0
	for x := math.Floor(x0); x < x1; x++ {
		mid := x + 0.5
		half := r
		switch {
		case mid < x0+r:
			dx := x0 + r - mid
			half = math.Sqrt(max(r*r-dx*dx, 0))
		case mid > x1-r:
			dx := mid - (x1 - r)
			half = math.Sqrt(max(r*r-dx*dx, 0))
		}
		if half <= 0 {
			continue
		}
		clr := colorAt((mid - x0) / span).RGBA()
		vector.DrawFilledRect(dst, float32(x), float32(cy-half), 1, float32(2*half), clr, true)
	}
}

func lerpColor(a, b danmaku.Color, t float64) danmaku.Color {
	return danmaku.Color{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
		A: a.A + (b.A-a.A)*t,
	}
}

// bitmap returns the GPU copy of src for placement id, uploading it when it
// is new or changed. Nil src yields nil.
func (c *Compositor) bitmap(id uint64, kind danmaku.AssetKind, src danmaku.Bitmap) *ebiten.Image {
	if src == nil {
		return nil
	}
	if img, ok := src.(*ebiten.Image); ok {
		return img
	}
	key := bitmapKey{id: id, kind: kind}
	if e, ok := c.bitmaps[key]; ok && e.src == src {
		return e.img
	}
	img := ebiten.NewImageFromImage(src)
	if old, ok := c.bitmaps[key]; ok {
		old.img.Deallocate()
	}
	c.bitmaps[key] = bitmapEntry{src: src, img: img}
	return img
}

// sweep releases textures of placements not seen this frame.
func (c *Compositor) sweep() {
	for id, img := range c.backgrounds {
		if _, ok := c.seen[id]; !ok {
			img.Deallocate()
			delete(c.backgrounds, id)
		}
	}
	for key, e := range c.bitmaps {
		if _, ok := c.seen[key.id]; !ok {
			e.img.Deallocate()
			delete(c.bitmaps, key)
		}
	}
}

// cached reports the number of live textures. Used by tests.
func (c *Compositor) cached() int {
	return len(c.backgrounds) + len(c.bitmaps)
}
