package danmaku

import (
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// fadeTween animates a placement's Alpha from 0 to 1 after it enters.
// It never touches geometry, so motion stays at constant velocity.
type fadeTween struct {
	tween *gween.Tween
	done  bool
}

// newFade returns nil when d is zero, in which case the placement starts
// fully opaque.
func newFade(d time.Duration) *fadeTween {
	if d <= 0 {
		return nil
	}
	return &fadeTween{tween: gween.New(0, 1, float32(d.Seconds()), ease.OutQuad)}
}

// update advances the fade by dt seconds and writes the value to p.Alpha.
// Once finished the placement drops its tween.
func (f *fadeTween) update(p *Placement, dt float64) {
	if f.done {
		return
	}
	val, finished := f.tween.Update(float32(dt))
	p.Alpha = float64(val)
	if finished {
		f.done = true
		p.Alpha = 1
		p.fade = nil
	}
}
