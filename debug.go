package danmaku

import (
	"log/slog"
	"time"
)

// tickStats holds per-tick counters. Only collected when debug mode is on.
type tickStats struct {
	elapsed  time.Duration
	duration time.Duration
	placed   int
	evicted  int
	onScreen int
	pending  int
}

// debugLog writes one debug record per tick.
func (e *Engine) debugLog(stats tickStats) {
	if !e.debug {
		return
	}
	e.log.Debug("tick",
		slog.Duration("elapsed", stats.elapsed),
		slog.Duration("took", stats.duration),
		slog.Int("placed", stats.placed),
		slog.Int("evicted", stats.evicted),
		slog.Int("on_screen", stats.onScreen),
		slog.Int("pending", stats.pending),
	)
	e.debugCheckSpacing()
}

// debugCheckSpacing warns when any neighbour pair in a lane is closer than
// SafeDistance after correction. It should never fire.
func (e *Engine) debugCheckSpacing() {
	safe := e.cfg.SafeDistance
	e.lanes.ForEachLane(func(i int, lane []*Placement) {
		for j := 1; j < len(lane); j++ {
			// Tolerate float rounding from the correction pass.
			if gap := lane[j].X - lane[j-1].TrailingEdge(); gap < safe-1e-6 {
				e.log.Warn("spacing violated",
					slog.Int("lane", i),
					slog.Uint64("older", lane[j-1].ID),
					slog.Uint64("newer", lane[j].ID),
					slog.Float64("gap", gap),
				)
			}
		}
	})
}
