package danmaku

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	m.incPlaced()
	m.incEvicted()
	m.incNeedMore()
	m.incPlaybackComplete()
	m.incAssetFailure()
	m.incStaleAsset()
	m.setOnScreen(3)
	m.setPending(4)
}

func TestMetricsTrackLifecycle(t *testing.T) {
	cfg := flatConfig()
	cfg.Lanes = 2
	e := newTestEngine(t, cfg)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	e.SetMetrics(m)

	e.SetBacklog([]Item{plainItem("a", 100), plainItem("b", 100), plainItem("c", 100)})
	e.Tick(0)
	if got := testutil.ToFloat64(m.Placed); got != 2 {
		t.Errorf("placed = %g, want 2", got)
	}
	if got := testutil.ToFloat64(m.Pending); got != 1 {
		t.Errorf("pending = %g, want 1", got)
	}

	for i := 0; i < 60 && e.Pending()+e.lanes.Count() > 0; i++ {
		e.Tick(time.Second)
	}
	if got := testutil.ToFloat64(m.Evicted); got != 3 {
		t.Errorf("evicted = %g, want 3", got)
	}
	if got := testutil.ToFloat64(m.PlaybackComplete); got != 1 {
		t.Errorf("playback complete = %g, want 1", got)
	}
	if got := testutil.ToFloat64(m.OnScreen); got != 0 {
		t.Errorf("on screen = %g, want 0", got)
	}
	if testutil.ToFloat64(m.NeedMore) == 0 {
		t.Error("need more never counted")
	}
}

func TestNewMetricsRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	n, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatal(err)
	}
	if n != 8 {
		t.Errorf("collectors = %d, want 8", n)
	}
}
