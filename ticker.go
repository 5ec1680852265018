package danmaku

import (
	"context"
	"sync"
	"time"
)

// DefaultTickInterval is roughly one 60 Hz display frame.
const DefaultTickInterval = time.Second / 60

// Ticker is a headless TickSource backed by time.Ticker. It drives an
// engine from its own goroutine, which then becomes the engine thread.
type Ticker struct {
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTicker returns a Ticker firing every interval. A non-positive interval
// uses DefaultTickInterval.
func NewTicker(interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Ticker{interval: interval}
}

// Start begins calling step from a new goroutine. Starting a running Ticker
// does nothing.
func (t *Ticker) Start(step func(now time.Time)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.loop(ctx, step, t.done)
}

func (t *Ticker) loop(ctx context.Context, step func(time.Time), done chan struct{}) {
	defer close(done)
	tk := time.NewTicker(t.interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tk.C:
			step(now)
		}
	}
}

// Stop ends delivery. It does not wait for an in-flight step, so it is safe
// to call from inside one; use Done to wait. Stop is idempotent.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel == nil {
		return
	}
	t.cancel()
	t.cancel = nil
}

// Done returns a channel closed once the delivery goroutine has exited, or
// nil if the Ticker was never started.
func (t *Ticker) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}
