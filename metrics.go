package danmaku

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes engine counters to Prometheus. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Placed           prometheus.Counter
	Evicted          prometheus.Counter
	NeedMore         prometheus.Counter
	PlaybackComplete prometheus.Counter
	AssetFailures    prometheus.Counter
	StaleAssets      prometheus.Counter
	OnScreen         prometheus.Gauge
	Pending          prometheus.Gauge
}

// NewMetrics registers the engine collectors with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Placed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "danmaku",
			Name:      "placements_total",
			Help:      "Comments placed into a lane.",
		}),
		Evicted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "danmaku",
			Name:      "evictions_total",
			Help:      "Comments that scrolled past the eviction boundary.",
		}),
		NeedMore: f.NewCounter(prometheus.CounterOpts{
			Namespace: "danmaku",
			Name:      "need_more_total",
			Help:      "Ticks that requested more comments.",
		}),
		PlaybackComplete: f.NewCounter(prometheus.CounterOpts{
			Namespace: "danmaku",
			Name:      "playback_complete_total",
			Help:      "Backlogs played to the end.",
		}),
		AssetFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "danmaku",
			Name:      "asset_failures_total",
			Help:      "Avatar or image loads that failed.",
		}),
		StaleAssets: f.NewCounter(prometheus.CounterOpts{
			Namespace: "danmaku",
			Name:      "stale_assets_total",
			Help:      "Asset results dropped because their placement was gone.",
		}),
		OnScreen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "danmaku",
			Name:      "placements_active",
			Help:      "Comments currently in a lane.",
		}),
		Pending: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "danmaku",
			Name:      "backlog_pending",
			Help:      "Backlog items not yet placed.",
		}),
	}
}

func (m *Metrics) incPlaced() {
	if m != nil {
		m.Placed.Inc()
	}
}

func (m *Metrics) incEvicted() {
	if m != nil {
		m.Evicted.Inc()
	}
}

func (m *Metrics) incNeedMore() {
	if m != nil {
		m.NeedMore.Inc()
	}
}

func (m *Metrics) incPlaybackComplete() {
	if m != nil {
		m.PlaybackComplete.Inc()
	}
}

func (m *Metrics) incAssetFailure() {
	if m != nil {
		m.AssetFailures.Inc()
	}
}

func (m *Metrics) incStaleAsset() {
	if m != nil {
		m.StaleAssets.Inc()
	}
}

func (m *Metrics) setOnScreen(n int) {
	if m != nil {
		m.OnScreen.Set(float64(n))
	}
}

func (m *Metrics) setPending(n int) {
	if m != nil {
		m.Pending.Set(float64(n))
	}
}
