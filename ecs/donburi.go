package ecs

import (
	"github.com/phanxgames/danmaku"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// EngineEventType is the Donburi event type for danmaku engine events.
var EngineEventType = events.NewEventType[danmaku.Event]()

type donburiSink struct {
	world donburi.World
}

// NewDonburiSink creates an EventSink backed by a Donburi world. Events are
// queued on EngineEventType and delivered by ProcessEvents, so systems see
// them on their own schedule rather than inside Engine.Tick.
func NewDonburiSink(world donburi.World) danmaku.EventSink {
	return &donburiSink{world: world}
}

func (s *donburiSink) Emit(event danmaku.Event) {
	EngineEventType.Publish(s.world, event)
}
