// Package ecs provides ECS adapters for danmaku engine events.
//
// The primary adapter is [NewDonburiSink], which bridges engine events (item
// complete, item clicked, need more, playback complete) into a [Donburi]
// world as typed events. Subscribe to [EngineEventType] in your ECS systems
// to receive them.
//
// Usage:
//
//	sink := ecs.NewDonburiSink(world)
//	engine.SetEventSink(sink)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
