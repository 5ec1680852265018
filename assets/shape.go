package assets

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// Fit scales src to a size×size square, letterboxed to keep its aspect.
func Fit(src image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	b := src.Bounds()
	if b.Empty() || size <= 0 {
		return dst
	}
	scale := math.Min(float64(size)/float64(b.Dx()), float64(size)/float64(b.Dy()))
	w := max(int(math.Round(float64(b.Dx())*scale)), 1)
	h := max(int(math.Round(float64(b.Dy())*scale)), 1)
	x := (size - w) / 2
	y := (size - h) / 2
	draw.CatmullRom.Scale(dst, image.Rect(x, y, x+w, y+h), src, b, draw.Src, nil)
	return dst
}

// CircleAvatar centre-crops src to a square, scales it to size×size and
// masks it to a circle with an antialiased edge.
func CircleAvatar(src image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	b := src.Bounds()
	if b.Empty() || size <= 0 {
		return dst
	}
	edge := min(b.Dx(), b.Dy())
	crop := image.Rect(0, 0, edge, edge).Add(image.Pt(
		b.Min.X+(b.Dx()-edge)/2,
		b.Min.Y+(b.Dy()-edge)/2,
	))

	scaled := image.NewRGBA(dst.Bounds())
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, crop, draw.Src, nil)
	draw.DrawMask(dst, dst.Bounds(), scaled, image.Point{}, circleMask{size: size}, image.Point{}, draw.Over)
	return dst
}

// circleMask is an alpha mask of a circle inscribed in a size×size square.
type circleMask struct {
	size int
}

func (m circleMask) ColorModel() color.Model { return color.AlphaModel }

func (m circleMask) Bounds() image.Rectangle { return image.Rect(0, 0, m.size, m.size) }

func (m circleMask) At(x, y int) color.Color {
	r := float64(m.size) / 2
	dx := float64(x) + 0.5 - r
	dy := float64(y) + 0.5 - r
	// One-pixel linear falloff across the rim.
	d := math.Sqrt(dx*dx+dy*dy) - r + 0.5
	switch {
	case d <= 0:
		return color.Alpha{A: 0xff}
	case d >= 1:
		return color.Alpha{}
	}
	return color.Alpha{A: uint8((1 - d) * 0xff)}
}
