package tween

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/motionbridge/internal/thread"
)

// Infinite repeats an animation until it is stopped.
const Infinite = -1

// DefaultDuration is used when Options.Duration is zero.
const DefaultDuration = 300 * time.Millisecond

// DefaultFrameInterval is the frame cadence of a new Engine.
const DefaultFrameInterval = 16 * time.Millisecond

// ErrSpringKeyframes is returned for a spring over more than two keyframes.
var ErrSpringKeyframes = errors.New("tween: spring animations support two keyframes")

// Keyframes maps a property (camel-case, kebab-case or a transform
// shorthand) to its values. A single value animates from the current
// value.
type Keyframes map[string][]string

// Options controls timing.
type Options struct {
	Duration    time.Duration
	Delay       time.Duration
	Repeat      int
	RepeatDelay time.Duration

	// Type is "tween" (default) or "spring".
	Type string
	Ease string

	Stiffness float64
	Damping   float64
	Mass      float64

	// Offsets place the keyframes in [0, 1]; evenly spaced when nil.
	Offsets []float64
}

// Target is what an animation writes to. *element.Element implements it.
type Target interface {
	SetStyleProperty(name, value string)
	GetComputedStyle() map[string]string
}

// Engine runs animations on one execution context.
type Engine struct {
	loop   *thread.Loop
	frame  time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithFrameInterval sets the frame cadence.
func WithFrameInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.frame = d
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine whose frames run on loop.
func NewEngine(loop *thread.Loop, opts ...EngineOption) *Engine {
	e := &Engine{
		loop:   loop,
		frame:  DefaultFrameInterval,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Animation is a running animation.
type Animation struct {
	engine   *Engine
	target   Target
	tracks   []*track
	onUpdate func(float64)
	progress func(elapsed time.Duration) float64
	length   time.Duration
	opts     Options
	start    time.Time

	mu        sync.Mutex
	timer     *time.Timer
	finished  bool
	completed bool
	onFinish  []func()
	done      chan struct{}
}

// Animate starts animating target toward keyframes. The first frame is
// written before Animate returns. Call it on the engine's loop.
func (e *Engine) Animate(target Target, keyframes Keyframes, opts Options) (*Animation, error) {
	if target == nil {
		return nil, errors.New("tween: nil target")
	}
	current := target.GetComputedStyle()

	names := slices.Sorted(maps.Keys(keyframes))
	tracks := make([]*track, 0, len(names))
	for _, name := range names {
		values := keyframes[name]
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoKeyframes, name)
		}
		if len(values) == 1 {
			values = []string{initialValue(name, current), values[0]}
		}
		tr, err := newTrack(name, values, opts.Offsets)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, tr)
	}

	a, err := e.newAnimation(opts, tracks)
	if err != nil {
		return nil, err
	}
	a.target = target
	a.run()
	return a, nil
}

// AnimateValue animates a plain number, reporting each frame to onUpdate.
func (e *Engine) AnimateValue(from, to float64, opts Options, onUpdate func(latest float64)) (*Animation, error) {
	tr, err := newTrack("value", []string{formatNumber(from, ""), formatNumber(to, "")}, nil)
	if err != nil {
		return nil, err
	}
	a, err := e.newAnimation(opts, []*track{tr})
	if err != nil {
		return nil, err
	}
	a.onUpdate = onUpdate
	a.run()
	return a, nil
}

func (e *Engine) newAnimation(opts Options, tracks []*track) (*Animation, error) {
	a := &Animation{
		engine: e,
		tracks: tracks,
		opts:   opts,
		done:   make(chan struct{}),
	}

	if opts.Type == "spring" {
		for _, tr := range tracks {
			if len(tr.offsets) > 2 {
				return nil, fmt.Errorf("%w: %s", ErrSpringKeyframes, tr.name)
			}
		}
		s := newSpring(opts.Stiffness, opts.Damping, opts.Mass)
		a.length = max(s.settle(), time.Millisecond)
		a.progress = func(elapsed time.Duration) float64 {
			if elapsed >= a.length {
				return 1
			}
			return s.at(elapsed.Seconds())
		}
		return a, nil
	}

	ease, err := LookupEase(opts.Ease)
	if err != nil {
		return nil, err
	}
	a.length = opts.Duration
	if a.length <= 0 {
		a.length = DefaultDuration
	}
	a.progress = func(elapsed time.Duration) float64 {
		return ease(clamp01(float64(elapsed) / float64(a.length)))
	}
	return a, nil
}

func initialValue(name string, current map[string]string) string {
	if v, ok := shorthandIdentity[name]; ok {
		return v
	}
	return current[wireName(name)]
}

// run writes the frame at elapsed zero and schedules the rest.
func (a *Animation) run() {
	a.start = a.engine.now()
	a.advance(-a.opts.Delay)
}

// step writes the frame for the current time and schedules the next one.
func (a *Animation) step(_ context.Context) {
	a.mu.Lock()
	if a.finished {
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	a.advance(a.engine.now().Sub(a.start) - a.opts.Delay)
}

func (a *Animation) advance(elapsed time.Duration) {
	if elapsed < 0 {
		a.apply(0)
		a.schedule()
		return
	}

	cycle := a.length + a.opts.RepeatDelay
	iteration := int(elapsed / cycle)
	if a.opts.Repeat != Infinite && iteration > a.opts.Repeat {
		a.apply(1)
		a.finish(true)
		return
	}

	local := elapsed - time.Duration(iteration)*cycle
	if local >= a.length {
		// Holding the last frame between iterations.
		a.apply(1)
		if a.opts.Repeat != Infinite && iteration >= a.opts.Repeat {
			a.finish(true)
			return
		}
	} else {
		a.apply(a.progress(local))
	}
	a.schedule()
}

func (a *Animation) apply(p float64) {
	if a.onUpdate != nil {
		a.onUpdate(a.tracks[0].number(p))
		return
	}

	transform := make(map[string]string)
	for _, tr := range a.tracks {
		v := tr.at(p)
		if isShorthand(tr.name) {
			transform[tr.name] = v
			continue
		}
		a.target.SetStyleProperty(wireName(tr.name), v)
	}
	if len(transform) > 0 {
		a.target.SetStyleProperty("transform", composeTransform(transform))
	}
}

func (a *Animation) schedule() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finished {
		return
	}
	a.timer = a.engine.loop.AfterFunc(a.engine.frame, a.step)
}

func (a *Animation) finish(completed bool) {
	a.mu.Lock()
	if a.finished {
		a.mu.Unlock()
		return
	}
	a.finished = true
	a.completed = completed
	if a.timer != nil {
		a.timer.Stop()
	}
	callbacks := a.onFinish
	a.onFinish = nil
	a.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	close(a.done)
	a.engine.logger.Debug("Animation finished", zap.Bool("completed", completed))
}

// Stop halts the animation where it is. Stopping a finished animation is
// a no-op.
func (a *Animation) Stop() {
	a.finish(false)
}

// Done is closed when the animation completes or is stopped, after the
// OnFinish callbacks have run.
func (a *Animation) Done() <-chan struct{} {
	return a.done
}

// Completed reports whether the animation ran to its end.
func (a *Animation) Completed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.completed
}

// OnFinish registers fn to run once the animation completes or stops. On
// a finished animation fn runs immediately.
func (a *Animation) OnFinish(fn func()) {
	a.mu.Lock()
	if !a.finished {
		a.onFinish = append(a.onFinish, fn)
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()
	fn()
}
