package danmaku

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTickerDeliversUntilStopped(t *testing.T) {
	tk := NewTicker(time.Millisecond)
	if tk.Done() != nil {
		t.Fatal("Done before Start is not nil")
	}

	var n atomic.Int32
	tk.Start(func(time.Time) { n.Add(1) })
	tk.Start(func(time.Time) { t.Error("second Start replaced step") })

	deadline := time.Now().Add(2 * time.Second)
	for n.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if n.Load() < 3 {
		t.Fatalf("steps = %d after 2s", n.Load())
	}

	done := tk.Done()
	tk.Stop()
	tk.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery goroutine did not exit")
	}

	after := n.Load()
	time.Sleep(10 * time.Millisecond)
	if n.Load() != after {
		t.Error("step called after Stop")
	}
}

func TestNewTickerDefaultInterval(t *testing.T) {
	if tk := NewTicker(0); tk.interval != DefaultTickInterval {
		t.Errorf("interval = %v", tk.interval)
	}
}

func TestTickerStopFromStep(t *testing.T) {
	cfg := flatConfig()
	cfg.Speed = 100000
	e := newTestEngine(t, cfg)
	tk := NewTicker(time.Millisecond)

	var once atomic.Bool
	e.OnPlaybackComplete = func() {
		if once.CompareAndSwap(false, true) {
			e.Close()
		}
	}
	e.SetBacklog([]Item{plainItem("a", 10)})
	e.Attach(tk)

	select {
	case <-tk.Done():
	case <-time.After(5 * time.Second):
		tk.Stop()
		t.Fatal("engine did not close itself")
	}
}
