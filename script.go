package danmaku

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// scriptStep is a single action in a script.
type scriptStep struct {
	Action string  `yaml:"action"`
	Label  string  `yaml:"label,omitempty"`
	X      float64 `yaml:"x,omitempty"`
	Y      float64 `yaml:"y,omitempty"`
	FromX  float64 `yaml:"fromX,omitempty"`
	FromY  float64 `yaml:"fromY,omitempty"`
	ToX    float64 `yaml:"toX,omitempty"`
	ToY    float64 `yaml:"toY,omitempty"`
	Frames int     `yaml:"frames,omitempty"`
	Item   *Item   `yaml:"item,omitempty"`
	Items  []Item  `yaml:"items,omitempty"`
}

type scriptFile struct {
	Steps []scriptStep `yaml:"steps"`
}

var scriptActions = map[string]bool{
	"screenshot": true, "click": true, "drag": true, "wait": true, "tick": true,
	"backlog": true, "append": true, "add": true,
	"pause": true, "resume": true, "replay": true,
}

// ScriptRunner sequences engine calls, injected pointer events and
// screenshots across ticks for automated runs. Attach it with
// Engine.SetScriptRunner.
type ScriptRunner struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool
}

// LoadScript parses a YAML (or JSON) script.
func LoadScript(data []byte) (*ScriptRunner, error) {
	var f scriptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("danmaku: parse script: %w", err)
	}
	if len(f.Steps) == 0 {
		return nil, errors.New("danmaku: parse script: no steps")
	}
	for i, st := range f.Steps {
		if !scriptActions[st.Action] {
			return nil, fmt.Errorf("danmaku: parse script: step %d: unknown action %q", i, st.Action)
		}
		if st.Action == "add" && st.Item == nil {
			return nil, fmt.Errorf("danmaku: parse script: step %d: add needs an item", i)
		}
	}
	return &ScriptRunner{steps: f.Steps}, nil
}

// SetScriptRunner attaches r. Its step runs at the start of every Tick,
// paused or not.
func (e *Engine) SetScriptRunner(r *ScriptRunner) {
	e.script = r
}

// Done reports whether every step has executed.
func (r *ScriptRunner) Done() bool {
	return r.done
}

// step advances the runner by one tick.
func (r *ScriptRunner) step(e *Engine) {
	if r.done {
		return
	}
	// Wait for pending injections to drain before advancing.
	if len(e.injectQueue) > 0 {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "screenshot":
		e.Screenshot(st.Label)
	case "click":
		e.InjectClick(st.X, st.Y)
	case "drag":
		e.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, max(st.Frames, 2))
	case "wait", "tick":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this tick counts as one
		}
	case "backlog":
		e.SetBacklog(st.Items)
	case "append":
		e.AppendBacklog(st.Items...)
	case "add":
		e.AddItem(*st.Item)
	case "pause":
		e.Pause()
	case "resume":
		e.Resume()
	case "replay":
		e.Replay()
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && len(e.injectQueue) == 0 {
		r.done = true
	}
}

// RunScript attaches r and drives e with fixed frame ticks until the script
// finishes or maxFrames ticks have run. It is the headless counterpart of
// running a script under a TickSource.
func RunScript(e *Engine, r *ScriptRunner, frame time.Duration, maxFrames int) error {
	e.SetScriptRunner(r)
	defer e.SetScriptRunner(nil)
	for range maxFrames {
		if r.Done() {
			return nil
		}
		e.Tick(frame)
	}
	if r.Done() {
		return nil
	}
	return fmt.Errorf("danmaku: script unfinished after %d frames", maxFrames)
}

// Screenshot asks the presenting TickSource to capture the next frame under
// label. Without a screenshot handler the request is only logged.
func (e *Engine) Screenshot(label string) {
	if e.screenshot != nil {
		e.screenshot(label)
		return
	}
	e.log.Debug("screenshot skipped, no presenter", "label", label)
}
