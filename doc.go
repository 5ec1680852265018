// Package danmaku is a scrolling comment ("danmaku") overlay engine for
// [Ebitengine].
//
// Comments move right to left across a fixed number of horizontal lanes at
// one constant speed. The engine decides which lane each comment enters,
// keeps a minimum gap between neighbours in a lane, removes comments once
// they are well past the left edge, and reports lifecycle events: a comment
// finished, the caller should supply more, the whole backlog played out, or
// a comment was clicked.
//
// # Quick start
//
// The simplest way to get a window is [Run] with one of the compositors:
//
//	font, _ := danmaku.DefaultFont(14)
//	cfg := danmaku.DefaultConfig()
//	engine, _ := danmaku.NewEngine(cfg, font, nil)
//	engine.SetBacklog(items)
//	danmaku.Run(engine, gpu.New(cfg, font), danmaku.RunConfig{Title: "chat"})
//
// Headless use drives [Engine.Tick] directly or attaches a [Ticker]:
//
//	engine.Tick(16 * time.Millisecond)
//
// # Threading
//
// An Engine is single-threaded. Every method runs on the engine thread,
// which is whichever goroutine the attached [TickSource] calls from, except
// [Engine.Post], which queues a function onto that thread from anywhere.
// Asset results are delivered the same way and are ignored when the
// placement they were requested for is already gone.
//
// # Lanes
//
// A lane is an ordered list of [Placement] values, oldest first. New
// comments enter at the right edge of the viewport. [Engine.AddItem] never
// drops a comment: when no lane has room it enters off screen behind the
// lane that frees up first.
//
// The optional ecs module forwards engine events into a [Donburi] world.
//
// [Ebitengine]: https://ebitengine.org
// [Donburi]: https://github.com/yohamta/donburi
package danmaku
