package danmaku

import "image/color"

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
type Color struct {
	R, G, B, A float64
}

// RGBA converts c to a premultiplied color.RGBA for drawing backends.
func (c Color) RGBA() color.RGBA {
	a := clamp01(c.A)
	return color.RGBA{
		R: uint8(clamp01(c.R)*a*255 + 0.5),
		G: uint8(clamp01(c.G)*a*255 + 0.5),
		B: uint8(clamp01(c.B)*a*255 + 0.5),
		A: uint8(a*255 + 0.5),
	}
}

// WithAlpha returns c with its alpha multiplied by alpha.
func (c Color) WithAlpha(alpha float64) Color {
	c.A *= alpha
	return c
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Palette used by both compositors. Values follow the classic pink capsule
// look: a warm gradient body, a soft red border and an orange user name.
var (
	ColorGradientStart = Color{1, 0xF0 / 255.0, 0xD7 / 255.0, 1}
	ColorGradientEnd   = Color{1, 0xC4 / 255.0, 0xC4 / 255.0, 1}
	ColorBorder        = Color{1, 0xBA / 255.0, 0xBA / 255.0, 1}
	ColorName          = Color{0xE9 / 255.0, 0x59 / 255.0, 0x05 / 255.0, 1}
	ColorBody          = Color{0x33 / 255.0, 0x33 / 255.0, 0x33 / 255.0, 1}
	ColorPlaceholder   = Color{0.85, 0.85, 0.85, 1}
)

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Intersects reports whether r and other overlap.
// Adjacent rectangles (sharing only an edge) are considered intersecting.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width &&
		r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height &&
		r.Y+r.Height >= other.Y
}

// AssetKind tells an AssetBridge which slot of a placement a reference fills,
// so loaders can size and crop accordingly.
type AssetKind uint8

const (
	AssetAvatar AssetKind = iota // round avatar at the leading edge
	AssetImage                   // optional trailing image
)

// String returns the slot name.
func (k AssetKind) String() string {
	switch k {
	case AssetAvatar:
		return "avatar"
	case AssetImage:
		return "image"
	default:
		return "unknown"
	}
}

// EventType identifies an engine notification forwarded to an EventSink.
type EventType uint8

const (
	EventItemComplete     EventType = iota // a placement scrolled past the eviction boundary
	EventItemClicked                       // a click landed on a placement
	EventNeedMore                          // on-screen backlog is running low
	EventPlaybackComplete                  // every backlog item has been shown and evicted
)

// String returns a short lowercase name for the event type.
func (t EventType) String() string {
	switch t {
	case EventItemComplete:
		return "item_complete"
	case EventItemClicked:
		return "item_clicked"
	case EventNeedMore:
		return "need_more"
	case EventPlaybackComplete:
		return "playback_complete"
	default:
		return "unknown"
	}
}
