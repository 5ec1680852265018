package danmaku

import "image"

// Bitmap is a decoded avatar or image handed back by an AssetBridge.
// Compositors may receive any image.Image, including *ebiten.Image.
type Bitmap = image.Image

// Placement binds an Item to live on-screen geometry. X changes every tick;
// Y, Width, Height and Lane are fixed at creation.
type Placement struct {
	// ID is unique per engine and never reused; asset results carry it so
	// late deliveries for evicted placements can be recognised.
	ID   uint64
	Item Item
	Lane int

	X, Y          float64
	Width, Height float64

	// TextWidth is the measured width of Item.Text().
	TextWidth float64

	// Resolved bitmaps. Nil until the AssetBridge delivers, and nil for good
	// when resolution fails; compositors draw a placeholder instead.
	Avatar Bitmap
	Image  Bitmap

	// Alpha is the fade-in opacity in [0, 1]. Purely visual.
	Alpha float64

	fade *fadeTween
	live bool
}

// Bounds returns the placement's axis-aligned bounding box.
func (p *Placement) Bounds() Rect {
	return Rect{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
}

// TrailingEdge returns the right-hand x coordinate of the placement.
func (p *Placement) TrailingEdge() float64 {
	return p.X + p.Width
}

// Live reports whether the placement is still in its lane.
func (p *Placement) Live() bool {
	return p.live
}

// Layout describes where the fixed parts of a placement sit relative to its
// origin. Both compositors use it so hit boxes and pixels agree.
type Layout struct {
	Avatar Rect // avatar box
	TextX  float64
	Image  Rect // zero when the item has no image
}

// LayoutOf computes the inner layout of p under cfg.
func LayoutOf(p *Placement, cfg Config) Layout {
	var l Layout
	avatarY := p.Y + (p.Height-cfg.AvatarSize)/2
	l.Avatar = Rect{X: p.X + cfg.PaddingLeft, Y: avatarY, Width: cfg.AvatarSize, Height: cfg.AvatarSize}
	l.TextX = l.Avatar.X + cfg.AvatarSize + cfg.PaddingLeft
	if p.Item.HasImage() {
		l.Image = Rect{
			X:      l.TextX + p.TextWidth + cfg.ImageMarginLeft,
			Y:      p.Y + (p.Height-cfg.ImageSize)/2,
			Width:  cfg.ImageSize,
			Height: cfg.ImageSize,
		}
	}
	return l
}

// measureWidth computes the full placement width from the measured text.
func measureWidth(cfg Config, item Item, textWidth float64) float64 {
	w := cfg.PaddingLeft + cfg.AvatarSize + cfg.PaddingLeft + textWidth
	if item.HasImage() {
		w += cfg.ImageMarginLeft + cfg.ImageSize
	}
	return w + cfg.PaddingRight
}
