// Package raster draws danmaku lanes on the CPU with tdewolff/canvas and
// uploads the finished frame in one WritePixels call. It needs no GPU work
// beyond the upload, and Render can be used headless to produce PNG frames.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/phanxgames/danmaku"
)

// ptPerPx converts pixel sizes to font points at one pixel per millimetre,
// the resolution every frame is rasterized at.
const ptPerPx = 1 / 0.352778

const borderWidth = 1.5

// gradientAngle is the tilt of the capsule gradient in degrees.
const gradientAngle = 30

// Compositor implements danmaku.Compositor with a software rasterizer.
type Compositor struct {
	cfg    danmaku.Config
	family *canvas.FontFamily

	frame *image.RGBA
}

// New creates a compositor using the TrueType data in ttf. Nil ttf uses Go
// Regular.
func New(cfg danmaku.Config, ttf []byte) (*Compositor, error) {
	if ttf == nil {
		ttf = goregular.TTF
	}
	family := canvas.NewFontFamily("danmaku")
	if err := family.LoadFont(ttf, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("raster: load font: %w", err)
	}
	return &Compositor{cfg: cfg, family: family}, nil
}

// Draw renders the lanes at the screen's size and uploads the result.
func (c *Compositor) Draw(screen *ebiten.Image, lanes *danmaku.LaneTable) {
	b := screen.Bounds()
	frame := c.Render(lanes, b.Dx(), b.Dy())
	screen.WritePixels(frame.Pix)
}

// Render rasterizes every visible placement into a w×h frame. The returned
// image is reused by the next call.
func (c *Compositor) Render(lanes *danmaku.LaneTable, w, h int) *image.RGBA {
	cv := canvas.New(float64(w), float64(h))
	ctx := canvas.NewContext(cv)
	ctx.SetCoordSystem(canvas.CartesianIV) // top-left origin, matching the engine

	view := danmaku.Rect{Width: float64(w), Height: float64(h)}
	lanes.ForEachLane(func(_ int, lane []*danmaku.Placement) {
		for _, p := range lane {
			if p.Bounds().Intersects(view) {
				c.drawPlacement(ctx, p)
			}
		}
	})

	out := rasterizer.Draw(cv, canvas.DPMM(1), canvas.DefaultColorSpace)

	if c.frame == nil || c.frame.Bounds().Dx() != w || c.frame.Bounds().Dy() != h {
		c.frame = image.NewRGBA(image.Rect(0, 0, w, h))
	} else {
		clear(c.frame.Pix)
	}
	xdraw.Draw(c.frame, c.frame.Bounds(), out, out.Bounds().Min, xdraw.Src)
	return c.frame
}

func (c *Compositor) drawPlacement(ctx *canvas.Context, p *danmaku.Placement) {
	layout := danmaku.LayoutOf(p, c.cfg)
	r := p.Height / 2

	ctx.SetStrokeColor(color.RGBA{})
	ctx.SetStrokeWidth(0)

	inset := 0.0
	if p.Item.Bordered() {
		ctx.SetFillColor(premul(danmaku.ColorBorder, p.Alpha))
		ctx.DrawPath(p.X, p.Y, canvas.RoundedRectangle(p.Width, p.Height, r))
		inset = borderWidth
	}
	ctx.SetFill(capsuleGradient(p.Width-2*inset, p.Height-2*inset, p.Alpha))
	ctx.DrawPath(p.X+inset, p.Y+inset,
		canvas.RoundedRectangle(p.Width-2*inset, p.Height-2*inset, r-inset))

	if p.Avatar != nil {
		drawFitted(ctx, p.Avatar, layout.Avatar)
	} else {
		ar := layout.Avatar.Width / 2
		ctx.SetFillColor(premul(danmaku.ColorPlaceholder, p.Alpha))
		ctx.DrawPath(layout.Avatar.X+ar, layout.Avatar.Y+ar, canvas.Circle(ar))
	}

	c.drawText(ctx, p, layout.TextX)

	if p.Image != nil && p.Item.HasImage() {
		drawFitted(ctx, p.Image, layout.Image)
	}
}

func (c *Compositor) drawText(ctx *canvas.Context, p *danmaku.Placement, x float64) {
	sizePt := c.cfg.TextSize * ptPerPx
	body := c.family.Face(sizePt, premul(danmaku.ColorBody, p.Alpha), canvas.FontRegular, canvas.FontNormal)
	m := body.Metrics()
	baseline := p.Y + (p.Height-m.LineHeight)/2 + m.Ascent

	if p.Item.Bordered() {
		name := c.family.Face(sizePt, premul(danmaku.ColorName, p.Alpha), canvas.FontRegular, canvas.FontNormal)
		ctx.DrawText(x, baseline, canvas.NewTextLine(name, p.Item.Name, canvas.Left))
		x += name.TextWidth(p.Item.Name + "  ")
	}
	ctx.DrawText(x, baseline, canvas.NewTextLine(body, p.Item.Body, canvas.Left))
}

// capsuleGradient returns the body fill of a w×h capsule in path
// coordinates, tilted by gradientAngle.
func capsuleGradient(w, h, alpha float64) *canvas.LinearGradient {
	rad := gradientAngle * math.Pi / 180
	g := canvas.NewLinearGradient(canvas.Point{}, canvas.Point{X: w * math.Cos(rad), Y: h * math.Sin(rad)})
	g.Add(0, premul(danmaku.ColorGradientStart, alpha))
	g.Add(1, premul(danmaku.ColorGradientEnd, alpha))
	return g
}

// drawFitted draws img scaled to r's width.
func drawFitted(ctx *canvas.Context, img image.Image, r danmaku.Rect) {
	b := img.Bounds()
	if b.Dx() == 0 || r.Width <= 0 {
		return
	}
	ctx.DrawImage(r.X, r.Y, img, canvas.DPMM(float64(b.Dx())/r.Width))
}

func premul(c danmaku.Color, alpha float64) color.RGBA {
	return c.WithAlpha(alpha).RGBA()
}
