package ecs

import (
	"testing"
	"time"

	"github.com/phanxgames/danmaku"

	"github.com/yohamta/donburi"
)

func TestNewDonburiSink(t *testing.T) {
	world := donburi.NewWorld()
	if NewDonburiSink(world) == nil {
		t.Fatal("NewDonburiSink returned nil")
	}
}

func TestDonburiSink_Emit(t *testing.T) {
	world := donburi.NewWorld()
	sink := NewDonburiSink(world)

	var received []danmaku.Event
	EngineEventType.Subscribe(world, func(w donburi.World, e danmaku.Event) {
		received = append(received, e)
	})

	sink.Emit(danmaku.Event{Type: danmaku.EventItemClicked, Item: danmaku.Item{Name: "ann", Body: "hi"}})
	sink.Emit(danmaku.Event{Type: danmaku.EventNeedMore})

	if len(received) != 0 {
		t.Fatalf("events delivered before ProcessEvents: %d", len(received))
	}

	// Events are queued until processed.
	EngineEventType.ProcessEvents(world)

	if len(received) != 2 {
		t.Fatalf("expected 2 events, got %d", len(received))
	}
	if received[0].Type != danmaku.EventItemClicked || received[0].Item.Name != "ann" {
		t.Errorf("event 0: %+v", received[0])
	}
	if received[1].Type != danmaku.EventNeedMore {
		t.Errorf("event 1: %+v", received[1])
	}
}

func TestDonburiSink_EngineLifecycle(t *testing.T) {
	world := donburi.NewWorld()

	cfg := danmaku.DefaultConfig()
	cfg.Lanes = 1
	cfg.FadeIn = 0
	e, err := danmaku.NewEngine(cfg, danmaku.MonoFont{Advance: 10, Height: 14}, nil)
	if err != nil {
		t.Fatal(err)
	}
	e.SetEventSink(NewDonburiSink(world))

	counts := map[danmaku.EventType]int{}
	EngineEventType.Subscribe(world, func(w donburi.World, ev danmaku.Event) {
		counts[ev.Type]++
	})

	e.SetBacklog([]danmaku.Item{{Name: "a", Body: "x"}})
	// Scroll far enough for the single item to leave and the run to end.
	for range 10 {
		e.Tick(time.Second)
	}
	EngineEventType.ProcessEvents(world)

	if counts[danmaku.EventItemComplete] != 1 {
		t.Errorf("item complete = %d, want 1", counts[danmaku.EventItemComplete])
	}
	if counts[danmaku.EventPlaybackComplete] != 1 {
		t.Errorf("playback complete = %d, want 1", counts[danmaku.EventPlaybackComplete])
	}
}
