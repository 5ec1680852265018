package danmaku

import "math"

// gestureState tracks one pointer from press to release so that a short tap
// can be told apart from a drag or scroll.
type gestureState struct {
	down     bool
	startX   float64
	startY   float64
	lastX    float64
	lastY    float64
	dragging bool
}

// PointerDown records a press at (x, y).
func (e *Engine) PointerDown(x, y float64) {
	e.processPointer(x, y, true)
}

// PointerMove records pointer motion while pressed. Motion beyond
// Config.ClickSlop from the press point turns the gesture into a drag.
func (e *Engine) PointerMove(x, y float64) {
	if e.gesture.down {
		e.processPointer(x, y, true)
	}
}

// PointerUp records the release at (x, y). When the gesture stayed within
// Config.ClickSlop the placement under the release point, if any, is
// reported through OnItemClicked.
func (e *Engine) PointerUp(x, y float64) {
	e.processPointer(x, y, false)
}

// processPointer runs the press/move/release state machine.
func (e *Engine) processPointer(x, y float64, pressed bool) {
	g := &e.gesture

	switch {
	case pressed && !g.down:
		g.down = true
		g.startX, g.startY = x, y
		g.lastX, g.lastY = x, y
		g.dragging = false

	case pressed && g.down:
		if !g.dragging && math.Hypot(x-g.startX, y-g.startY) >= e.cfg.ClickSlop {
			g.dragging = true
		}
		g.lastX, g.lastY = x, y

	case !pressed && g.down:
		click := !g.dragging && math.Hypot(x-g.startX, y-g.startY) < e.cfg.ClickSlop
		*g = gestureState{lastX: x, lastY: y}
		if click {
			e.click(x, y)
		}
	}
}

func (e *Engine) click(x, y float64) {
	item, ok := e.HitTest(x, y)
	if !ok {
		return
	}
	e.emit(EventItemClicked, item)
	if e.OnItemClicked != nil {
		e.OnItemClicked(item)
	}
}
