package danmaku

import (
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"
)

// AssetBridge resolves avatar and image references to bitmaps. Resolve must
// not block; done is called exactly once, from any goroutine, with either a
// bitmap or an error.
type AssetBridge interface {
	Resolve(ref string, kind AssetKind, done func(Bitmap, error))
}

// TickSource drives an engine once per frame. Start begins delivering
// timestamps to step from a single goroutine, one call at a time; Stop ends
// delivery.
type TickSource interface {
	Start(step func(now time.Time))
	Stop()
}

// Event is an engine notification forwarded to an EventSink. Item is the
// zero value for EventNeedMore and EventPlaybackComplete.
type Event struct {
	Type EventType
	Item Item
}

// EventSink receives every engine notification in addition to the callback
// fields. See the ecs module for a Donburi-backed sink.
type EventSink interface {
	Emit(event Event)
}

// Engine schedules comments into lanes and scrolls them at constant speed.
//
// All methods except Post must be called from the engine's single logical
// thread: the attached TickSource, or the caller's own loop when Tick is
// driven by hand. Work from other goroutines goes through Post.
type Engine struct {
	cfg    Config
	font   Font
	assets AssetBridge
	lanes  *LaneTable

	backlog   []Item
	cursor    int
	replaySrc []Item // completed backlog kept for Replay

	live   map[uint64]*Placement
	nextID uint64

	paused    bool
	closed    bool
	lastFrame time.Time // zero after Resume: the next Step integrates nothing
	source    TickSource

	postMu     sync.Mutex
	posted     []func()
	postClosed bool
	runBuf     []func()

	gesture     gestureState
	injectQueue []syntheticPointerEvent
	script      *ScriptRunner
	screenshot  func(label string)

	// Callbacks, nil by default. They run on the engine thread during Tick
	// (or during the pointer call that produced a click) and may call back
	// into the engine.
	OnNeedMore         func()
	OnItemComplete     func(Item)
	OnPlaybackComplete func()
	OnItemClicked      func(Item)

	sink    EventSink
	metrics *Metrics
	log     *slog.Logger
	debug   bool
	evicted []*Placement
}

// NewEngine creates an engine with the given configuration, text metrics and
// asset bridge. font may be nil, in which case a MonoFont sized from
// cfg.TextSize is used; assets may be nil, in which case no bitmaps are ever
// requested.
func NewEngine(cfg Config, font Font, assets AssetBridge) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if font == nil {
		font = MonoFont{Advance: cfg.TextSize * 0.6, Height: cfg.TextSize}
	}
	return &Engine{
		cfg:    cfg,
		font:   font,
		assets: assets,
		lanes:  NewLaneTable(cfg.Lanes),
		live:   make(map[uint64]*Placement),
		log:    slog.New(slog.DiscardHandler),
	}, nil
}

// Config returns the engine's current configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Lanes returns the lane table for compositors. It MUST NOT be mutated.
func (e *Engine) Lanes() *LaneTable {
	return e.lanes
}

// SetViewport updates the visible surface size. Placements already on
// screen keep their geometry; entry and eviction use the new width from the
// next tick on.
func (e *Engine) SetViewport(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	e.cfg.ViewportWidth = width
	e.cfg.ViewportHeight = height
}

// SetLogger replaces the engine's logger. A nil logger discards.
func (e *Engine) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	e.log = l.With(slog.String("component", "danmaku"))
}

// SetMetrics attaches Prometheus collectors. Nil detaches.
func (e *Engine) SetMetrics(m *Metrics) {
	e.metrics = m
}

// SetEventSink sets the optional event bridge.
func (e *Engine) SetEventSink(sink EventSink) {
	e.sink = sink
}

// SetDebugMode enables or disables per-tick debug records on the logger.
func (e *Engine) SetDebugMode(enabled bool) {
	e.debug = enabled
}

// Paused reports whether the engine is paused.
func (e *Engine) Paused() bool {
	return e.paused
}

// Pending returns the number of backlog items not yet placed.
func (e *Engine) Pending() int {
	return len(e.backlog) - e.cursor
}

// Backlog returns a copy of the current backlog.
func (e *Engine) Backlog() []Item {
	return slices.Clone(e.backlog)
}

// --- Backlog control ---

// SetBacklog replaces the backlog, rewinds the cursor and hard-clears every
// lane. Cleared placements do not fire OnItemComplete. Feeding starts
// immediately.
func (e *Engine) SetBacklog(items []Item) {
	if e.closed {
		return
	}
	e.backlog = slices.Clone(items)
	e.replaySrc = nil
	e.cursor = 0
	e.clearLanes()
	e.log.Debug("backlog set", slog.Int("items", len(items)))
	e.feed()
	e.metrics.setPending(e.Pending())
}

// AppendBacklog adds items to the end of the backlog without disturbing
// placements already on screen. This is the usual answer to OnNeedMore.
func (e *Engine) AppendBacklog(items ...Item) {
	if e.closed || len(items) == 0 {
		return
	}
	e.backlog = append(e.backlog, items...)
	e.metrics.setPending(e.Pending())
}

// Replay restarts the current backlog from the beginning. After playback
// completed (which empties the backlog) the completed sequence is replayed.
// Replay does not change the paused state: a paused engine stays paused
// until Resume.
func (e *Engine) Replay() {
	items := e.backlog
	if len(items) == 0 {
		items = e.replaySrc
	}
	e.SetBacklog(items)
}

// --- Pause / resume ---

// Pause freezes motion. Positions are kept exactly. Pausing a paused engine
// does nothing.
func (e *Engine) Pause() {
	if e.paused {
		return
	}
	e.paused = true
	e.log.Debug("paused")
}

// Resume restarts motion. The paused span is never integrated: the next
// Step measures elapsed time from the first frame after Resume.
func (e *Engine) Resume() {
	if !e.paused {
		return
	}
	e.paused = false
	e.lastFrame = time.Time{}
	e.log.Debug("resumed")
}

// --- Tick ---

// Step is the TickSource entry point. It converts a frame timestamp into
// elapsed time since the previous frame and calls Tick.
func (e *Engine) Step(now time.Time) {
	if e.paused {
		e.lastFrame = time.Time{}
		e.Tick(0)
		return
	}
	var elapsed time.Duration
	if !e.lastFrame.IsZero() {
		elapsed = now.Sub(e.lastFrame)
	}
	e.lastFrame = now
	e.Tick(elapsed)
}

// Tick advances the engine by elapsed. Posted work, the script runner and
// one injected pointer event are processed first, even while paused. Motion,
// eviction, feeding and the need-more and completion checks run only while
// not paused.
// elapsed is clamped to [0, Config.MaxElapsed].
func (e *Engine) Tick(elapsed time.Duration) {
	if e.closed {
		return
	}
	e.runPosted()
	if e.script != nil {
		e.script.step(e)
	}
	e.processInjected()
	if e.paused || e.closed {
		return
	}

	var t0 time.Time
	if e.debug {
		t0 = time.Now()
	}

	elapsed = e.clampElapsed(elapsed)
	dt := elapsed.Seconds()
	evicted := e.advance(e.cfg.Speed*dt, dt)
	// Callbacks may close the engine; nothing after them may touch the lanes.
	if e.closed {
		return
	}
	e.enforceSpacing()
	placed := e.feed()
	e.checkNeedMore()
	if e.closed {
		return
	}
	e.checkComplete()
	if e.closed {
		return
	}

	e.metrics.setOnScreen(e.lanes.Count())
	e.metrics.setPending(e.Pending())

	if e.debug {
		e.debugLog(tickStats{
			elapsed:  elapsed,
			duration: time.Since(t0),
			placed:   placed,
			evicted:  evicted,
			onScreen: e.lanes.Count(),
			pending:  e.Pending(),
		})
	}
}

func (e *Engine) clampElapsed(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > e.cfg.MaxElapsed {
		return e.cfg.MaxElapsed
	}
	return d
}

// advance moves every placement left by distance and evicts the ones fully
// past the boundary one viewport width left of the origin. Completion
// callbacks fire after every lane has been compacted.
func (e *Engine) advance(distance, dt float64) int {
	boundary := -e.cfg.ViewportWidth
	e.evicted = e.evicted[:0]

	for i := range e.lanes.lanes {
		lane := e.lanes.lanes[i]
		kept := lane[:0]
		for _, p := range lane {
			p.X -= distance
			if p.fade != nil {
				p.fade.update(p, dt)
			}
			if p.TrailingEdge() < boundary {
				e.evicted = append(e.evicted, p)
				continue
			}
			kept = append(kept, p)
		}
		clear(lane[len(kept):])
		e.lanes.lanes[i] = kept
	}

	n := len(e.evicted)
	for _, p := range e.evicted {
		p.live = false
		delete(e.live, p.ID)
	}
	for _, p := range e.evicted {
		if e.closed {
			break
		}
		e.metrics.incEvicted()
		e.emit(EventItemComplete, p.Item)
		if e.OnItemComplete != nil {
			e.OnItemComplete(p.Item)
		}
	}
	clear(e.evicted)
	e.evicted = e.evicted[:0]
	return n
}

// enforceSpacing walks each lane from tail to head and pushes any newer
// placement forward until its gap to the older neighbour is SafeDistance.
func (e *Engine) enforceSpacing() {
	safe := e.cfg.SafeDistance
	for _, lane := range e.lanes.lanes {
		for j := 1; j < len(lane); j++ {
			minX := lane[j-1].TrailingEdge() + safe
			if lane[j].X < minX {
				lane[j].X = minX
			}
		}
	}
}

// feed places up to FeedBatch backlog items into lanes that can take them at
// the entry point without deferral. Returns the number placed.
func (e *Engine) feed() int {
	placed := 0
	for e.cursor < len(e.backlog) && placed < e.cfg.FeedBatch {
		lane, ok := e.fittingLane()
		if !ok {
			break
		}
		item := e.backlog[e.cursor]
		e.cursor++
		e.place(item, lane, e.cfg.ViewportWidth)
		placed++
	}
	return placed
}

func (e *Engine) checkNeedMore() {
	low := e.cfg.NeedMoreFactor * e.cfg.ViewportWidth
	for i := range e.lanes.lanes {
		if h := e.lanes.Head(i); h != nil && h.TrailingEdge() < low {
			e.metrics.incNeedMore()
			e.emit(EventNeedMore, Item{})
			if e.OnNeedMore != nil {
				e.OnNeedMore()
			}
			return
		}
	}
}

func (e *Engine) checkComplete() {
	if len(e.backlog) == 0 || e.cursor < len(e.backlog) || !e.lanes.Empty() {
		return
	}
	e.replaySrc = e.backlog
	e.backlog = nil
	e.cursor = 0
	e.log.Debug("playback complete", slog.Int("items", len(e.replaySrc)))
	e.metrics.incPlaybackComplete()
	e.emit(EventPlaybackComplete, Item{})
	if e.OnPlaybackComplete != nil {
		e.OnPlaybackComplete()
	}
}

// --- Placement ---

// AddItem places item immediately, bypassing the backlog. Among lanes that
// can host it at the entry point the one whose head reaches furthest right
// wins, ties to the lowest index. When no lane has room the item is not
// dropped: it enters the lane that frees up first, SafeDistance behind that
// lane's head, off the right edge.
func (e *Engine) AddItem(item Item) *Placement {
	if e.closed {
		return nil
	}
	if lane, ok := e.fittingLane(); ok {
		return e.place(item, lane, e.cfg.ViewportWidth)
	}
	lane := e.earliestLane()
	x := e.lanes.Head(lane).TrailingEdge() + e.cfg.SafeDistance
	e.log.Debug("entry deferred", slog.Int("lane", lane), slog.Float64("x", x))
	return e.place(item, lane, x)
}

// fittingLane picks the lane for an item entering at ViewportWidth. A lane
// fits when it is empty or its head ends SafeDistance before the entry
// point. Empty lanes rank below every occupied one.
func (e *Engine) fittingLane() (int, bool) {
	entry := e.cfg.ViewportWidth
	best := -1
	bestEdge := math.Inf(-1)
	for i := range e.lanes.lanes {
		edge := math.Inf(-1)
		if h := e.lanes.Head(i); h != nil {
			edge = h.TrailingEdge()
			if edge+e.cfg.SafeDistance > entry {
				continue
			}
		}
		if best == -1 || edge > bestEdge {
			best = i
			bestEdge = edge
		}
	}
	return best, best >= 0
}

// earliestLane returns the lane whose head trailing edge is smallest. Only
// called when every lane is occupied.
func (e *Engine) earliestLane() int {
	best := 0
	bestEdge := math.Inf(1)
	for i := range e.lanes.lanes {
		if h := e.lanes.Head(i); h != nil && h.TrailingEdge() < bestEdge {
			best = i
			bestEdge = h.TrailingEdge()
		}
	}
	return best
}

func (e *Engine) place(item Item, lane int, x float64) *Placement {
	tw, _ := e.font.MeasureString(item.Text())
	e.nextID++
	p := &Placement{
		ID:        e.nextID,
		Item:      item,
		Lane:      lane,
		X:         x,
		Y:         e.cfg.LaneY(lane),
		Width:     measureWidth(e.cfg, item, tw),
		Height:    e.cfg.ItemHeight,
		TextWidth: tw,
		Alpha:     1,
		live:      true,
	}
	if f := newFade(e.cfg.FadeIn); f != nil {
		p.fade = f
		p.Alpha = 0
	}
	e.lanes.Append(lane, p)
	e.live[p.ID] = p
	e.metrics.incPlaced()
	e.requestAssets(p)
	return p
}

// clearLanes empties every lane without completion callbacks. Asset results
// still in flight for the cleared placements become no-ops.
func (e *Engine) clearLanes() {
	e.lanes.ForEachLane(func(_ int, lane []*Placement) {
		for _, p := range lane {
			p.live = false
		}
	})
	clear(e.live)
	e.lanes.Clear()
	e.metrics.setOnScreen(0)
}

// --- Hit testing ---

// PlacementAt returns the placement under (x, y), scanning each lane from
// its head backward, or nil.
func (e *Engine) PlacementAt(x, y float64) *Placement {
	for _, lane := range e.lanes.lanes {
		for j := len(lane) - 1; j >= 0; j-- {
			if lane[j].Bounds().Contains(x, y) {
				return lane[j]
			}
		}
	}
	return nil
}

// HitTest returns the item under (x, y).
func (e *Engine) HitTest(x, y float64) (Item, bool) {
	if p := e.PlacementAt(x, y); p != nil {
		return p.Item, true
	}
	return Item{}, false
}

// --- Assets ---

func (e *Engine) requestAssets(p *Placement) {
	if e.assets == nil {
		return
	}
	if p.Item.Avatar != "" {
		e.assets.Resolve(p.Item.Avatar, AssetAvatar, e.assetDone(p.ID, AssetAvatar, p.Item.Avatar))
	}
	if p.Item.HasImage() {
		e.assets.Resolve(p.Item.Image, AssetImage, e.assetDone(p.ID, AssetImage, p.Item.Image))
	}
}

// assetDone returns the completion handed to the bridge. It only posts; the
// placement is touched on the engine thread.
func (e *Engine) assetDone(id uint64, kind AssetKind, ref string) func(Bitmap, error) {
	return func(bmp Bitmap, err error) {
		e.Post(func() { e.applyAsset(id, kind, ref, bmp, err) })
	}
}

func (e *Engine) applyAsset(id uint64, kind AssetKind, ref string, bmp Bitmap, err error) {
	p, ok := e.live[id]
	if !ok {
		e.metrics.incStaleAsset()
		e.log.Debug("stale asset dropped", slog.Uint64("placement", id), slog.String("kind", kind.String()))
		return
	}
	if err != nil {
		e.metrics.incAssetFailure()
		e.log.Warn("asset failed", slog.String("kind", kind.String()), slog.String("ref", ref), slog.Any("error", err))
		return
	}
	switch kind {
	case AssetAvatar:
		p.Avatar = bmp
	case AssetImage:
		p.Image = bmp
	}
}

// --- Threading ---

// Post queues fn to run on the engine thread at the start of the next tick.
// It is safe to call from any goroutine. Reports false once the engine is
// closed, in which case fn is discarded.
func (e *Engine) Post(fn func()) bool {
	e.postMu.Lock()
	defer e.postMu.Unlock()
	if e.postClosed {
		return false
	}
	e.posted = append(e.posted, fn)
	return true
}

func (e *Engine) runPosted() {
	e.postMu.Lock()
	e.runBuf, e.posted = e.posted, e.runBuf[:0]
	e.postMu.Unlock()

	for i, fn := range e.runBuf {
		fn()
		e.runBuf[i] = nil
	}
	e.runBuf = e.runBuf[:0]
}

// Attach starts src driving Step. A previously attached source is stopped.
func (e *Engine) Attach(src TickSource) {
	if e.closed {
		return
	}
	if e.source != nil {
		e.source.Stop()
	}
	e.source = src
	src.Start(e.Step)
}

// Close stops the attached tick source, discards queued work and clears
// the lanes. Asset results that arrive later are ignored. Close is
// idempotent.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	if e.source != nil {
		e.source.Stop()
		e.source = nil
	}
	e.postMu.Lock()
	e.postClosed = true
	e.posted = nil
	e.postMu.Unlock()
	e.clearLanes()
}

func (e *Engine) emit(t EventType, item Item) {
	if e.sink != nil {
		e.sink.Emit(Event{Type: t, Item: item})
	}
}
