package danmaku

import "testing"

func TestMonoFont(t *testing.T) {
	f := MonoFont{Advance: 7, Height: 12}
	w, h := f.MeasureString("héllo")
	if w != 35 || h != 12 {
		t.Errorf("MeasureString = %g, %g", w, h)
	}
	w, h = f.MeasureString("ab\nabcd")
	if w != 28 || h != 24 {
		t.Errorf("multi-line = %g, %g", w, h)
	}
	if f.LineHeight() != 12 {
		t.Errorf("LineHeight = %g", f.LineHeight())
	}
}

func TestDefaultFontMeasuresDeterministically(t *testing.T) {
	f, err := DefaultFont(14)
	if err != nil {
		t.Fatal(err)
	}
	w1, _ := f.MeasureString("hello world")
	w2, _ := f.MeasureString("hello world")
	if w1 <= 0 || w1 != w2 {
		t.Errorf("widths = %g, %g", w1, w2)
	}
	short, _ := f.MeasureString("hi")
	if short >= w1 {
		t.Errorf("short string not narrower: %g >= %g", short, w1)
	}
	if f.LineHeight() <= 0 {
		t.Errorf("LineHeight = %g", f.LineHeight())
	}
	if f.Face() == nil {
		t.Error("Face is nil")
	}
}

func TestLoadTTFFontRejectsGarbage(t *testing.T) {
	if _, err := LoadTTFFont([]byte("not a font"), 12); err == nil {
		t.Error("garbage accepted")
	}
}
