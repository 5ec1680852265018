package danmaku

import "testing"

func TestInjectClickConsumedOnePerTick(t *testing.T) {
	e, p, clicked := clickEngine(t)
	y := p.Y + p.Height/2

	e.InjectClick(150, y)
	if e.InjectPending() != 2 {
		t.Fatalf("InjectPending = %d, want 2", e.InjectPending())
	}

	e.Tick(DefaultTickInterval)
	if e.InjectPending() != 1 || len(*clicked) != 0 {
		t.Fatalf("after press: pending %d, clicks %d", e.InjectPending(), len(*clicked))
	}

	e.Tick(DefaultTickInterval)
	if e.InjectPending() != 0 {
		t.Errorf("InjectPending = %d, want 0", e.InjectPending())
	}
	if len(*clicked) != 1 {
		t.Errorf("clicks = %d, want 1", len(*clicked))
	}
}

func TestInjectDragFrames(t *testing.T) {
	e, p, clicked := clickEngine(t)
	y := p.Y + p.Height/2

	e.InjectDrag(110, y, 180, y, 5)
	if e.InjectPending() != 5 {
		t.Fatalf("InjectPending = %d, want 5", e.InjectPending())
	}
	for e.InjectPending() > 0 {
		e.Tick(DefaultTickInterval)
	}
	if len(*clicked) != 0 {
		t.Errorf("drag clicked: %+v", *clicked)
	}
}

func TestInjectDragMinimumFrames(t *testing.T) {
	e, _, _ := clickEngine(t)
	e.InjectDrag(0, 0, 10, 10, 0)
	if e.InjectPending() != 2 {
		t.Errorf("InjectPending = %d, want 2", e.InjectPending())
	}
}

func TestInjectedClickWhileRunning(t *testing.T) {
	cfg := flatConfig()
	cfg.Lanes = 1
	cfg.Speed = 60
	e := newTestEngine(t, cfg)
	p := e.AddItem(plainItem("x", 200))
	p.X = 100

	var got int
	e.OnItemClicked = func(Item) { got++ }

	// Motion after the press tick moves the placement by one pixel; the
	// release still lands inside it.
	e.InjectClick(150, p.Y+1)
	e.Tick(DefaultTickInterval)
	e.Tick(DefaultTickInterval)
	if got != 1 {
		t.Errorf("clicks = %d, want 1", got)
	}
}
