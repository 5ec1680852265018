package raster

import (
	"image"
	"math"
	"testing"

	"github.com/phanxgames/danmaku"
)

func TestRender(t *testing.T) {
	c, err := New(danmaku.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	lt := danmaku.NewLaneTable(1)
	lt.Append(0, &danmaku.Placement{
		ID: 1, X: 10, Y: 8, Width: 150, Height: 36, Alpha: 1,
		Item: danmaku.Item{Name: "ann", Body: "hello"},
	})

	frame := c.Render(lt, 200, 60)
	if frame.Bounds() != image.Rect(0, 0, 200, 60) {
		t.Fatalf("bounds = %v", frame.Bounds())
	}
	// Inside the capsule, right of the text.
	if a := frame.RGBAAt(150, 26).A; a == 0 {
		t.Error("capsule body not drawn")
	}
	if a := frame.RGBAAt(195, 55).A; a != 0 {
		t.Errorf("empty area alpha = %d, want 0", a)
	}
	// Top-left corner of the bounding box lies outside the rounded end.
	if a := frame.RGBAAt(10, 8).A; a == 255 {
		t.Error("capsule corner is square")
	}

	again := c.Render(danmaku.NewLaneTable(1), 200, 60)
	if again != frame {
		t.Error("frame not reused at the same size")
	}
	if a := again.RGBAAt(150, 26).A; a != 0 {
		t.Error("previous frame not cleared")
	}
}

func TestRenderFadedPlacement(t *testing.T) {
	c, err := New(danmaku.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	lt := danmaku.NewLaneTable(1)
	lt.Append(0, &danmaku.Placement{
		ID: 1, X: 0, Y: 0, Width: 120, Height: 36, Alpha: 0.5,
		Item: danmaku.Item{Body: "x", Variant: danmaku.VariantPlain},
	})

	a := c.Render(lt, 120, 36).RGBAAt(100, 18).A
	if a < 100 || a > 160 {
		t.Errorf("half-faded alpha = %d, want about 128", a)
	}
}

func TestRenderGradient(t *testing.T) {
	c, err := New(danmaku.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	lt := danmaku.NewLaneTable(1)
	lt.Append(0, &danmaku.Placement{
		ID: 1, X: 0, Y: 0, Width: 200, Height: 36, Alpha: 1,
		Item: danmaku.Item{Body: "x", Variant: danmaku.VariantPlain},
	})
	frame := c.Render(lt, 200, 36)

	left := frame.RGBAAt(60, 18)
	right := frame.RGBAAt(185, 18)
	if left.A != 255 || right.A != 255 {
		t.Fatalf("capsule not opaque: left %v, right %v", left, right)
	}
	// Green falls from 0xF0 at the start colour to 0xC4 at the end.
	if int(left.G) < int(right.G)+10 {
		t.Errorf("no gradient: left %v, right %v", left, right)
	}
	if right.G > 0xCC {
		t.Errorf("right edge G = %#x, want near end colour %#x", right.G, 0xC4)
	}
}

func TestCapsuleGradientDirection(t *testing.T) {
	g := capsuleGradient(200, 36, 1)
	if g.Start.X != 0 || g.Start.Y != 0 {
		t.Errorf("start = %v", g.Start)
	}
	if math.Abs(g.End.X-200*math.Cos(math.Pi/6)) > 1e-9 || math.Abs(g.End.Y-18) > 1e-9 {
		t.Errorf("end = %v, want 30 degree tilt", g.End)
	}
}

func TestNewRejectsBadFont(t *testing.T) {
	if _, err := New(danmaku.DefaultConfig(), []byte("nope")); err == nil {
		t.Error("bad font accepted")
	}
}
