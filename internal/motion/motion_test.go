package motion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/motionbridge/internal/bridge"
	"github.com/GriffinCanCode/motionbridge/internal/element"
	"github.com/GriffinCanCode/motionbridge/internal/motion/tween"
	"github.com/GriffinCanCode/motionbridge/internal/registry"
	"github.com/GriffinCanCode/motionbridge/internal/testutil"
	"github.com/GriffinCanCode/motionbridge/internal/thread"
)

type fixture struct {
	motion *Motion
	bridge *bridge.Bridge
	main   *thread.Loop
	worker *thread.Loop
}

func setup(t *testing.T) *fixture {
	t.Helper()
	reg := registry.New()
	main := bridge.NewMainLoop("main", reg)
	main.Start()
	t.Cleanup(main.Stop)

	worker := thread.New("worker", thread.Background)
	worker.Start()
	t.Cleanup(worker.Stop)

	b := bridge.New(main, reg)
	engine := tween.NewEngine(main, tween.WithFrameInterval(2*time.Millisecond))
	return &fixture{motion: New(b, engine), bridge: b, main: main, worker: worker}
}

// onWorker runs fn on the ordinary context.
func (f *fixture) onWorker(t *testing.T, fn func(ctx context.Context) (any, error)) any {
	t.Helper()
	v, err := f.worker.Do(context.Background(), fn)
	require.NoError(t, err)
	return v
}

type styleTarget struct {
	mu     sync.Mutex
	styles map[string]string
}

func newStyleTarget() *styleTarget {
	return &styleTarget{styles: map[string]string{}}
}

func (s *styleTarget) SetStyleProperty(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.styles[name] = value
}

func (s *styleTarget) GetComputedStyle() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]string{}
	for k, v := range s.styles {
		out[k] = v
	}
	return out
}

func (s *styleTarget) get(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.styles[name]
}

func wait(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("animation did not finish")
	}
}

func TestEntryPointsExportedOnce(t *testing.T) {
	f := setup(t)
	exports := f.bridge.Exports()
	assert.Contains(t, exports, EntryAnimate)
	assert.Contains(t, exports, EntryStagger)
	assert.Equal(t, 2, f.bridge.Registry().Len())
}

func TestAnimateFromOrdinaryContext(t *testing.T) {
	f := setup(t)
	target := newStyleTarget()

	var controls *Controls
	f.onWorker(t, func(ctx context.Context) (any, error) {
		var err error
		controls, err = f.motion.Animate(ctx, target, tween.Keyframes{"opacity": {"0", "1"}}, tween.Options{
			Duration: 100 * time.Millisecond,
			Ease:     "linear",
		})
		return nil, err
	})
	require.NotNil(t, controls)
	assert.Equal(t, 3, f.bridge.Registry().Len(), "stop handle is registered while running")

	wait(t, controls.Finished())
	assert.Equal(t, "1", target.get("opacity"))
	assert.Equal(t, 2, f.bridge.Registry().Len(), "stop handle is released on completion")

	// Stopping after natural completion is a no-op.
	f.onWorker(t, func(ctx context.Context) (any, error) {
		return nil, controls.Stop(ctx)
	})
}

func TestStopFromOrdinaryContext(t *testing.T) {
	f := setup(t)
	target := newStyleTarget()

	controls := f.onWorker(t, func(ctx context.Context) (any, error) {
		return f.motion.Animate(ctx, target, tween.Keyframes{"x": {"0", "100"}}, tween.Options{
			Duration: 10 * time.Millisecond,
			Repeat:   tween.Infinite,
		})
	}).(*Controls)

	f.onWorker(t, func(ctx context.Context) (any, error) {
		return nil, controls.Stop(ctx)
	})
	wait(t, controls.Finished())

	_, ok := f.bridge.Registry().Resolve(controls.Handle())
	assert.False(t, ok)

	f.onWorker(t, func(ctx context.Context) (any, error) {
		return nil, controls.Stop(ctx)
	})
}

func TestStopByHandle(t *testing.T) {
	f := setup(t)
	target := newStyleTarget()

	controls := f.onWorker(t, func(ctx context.Context) (any, error) {
		return f.motion.Animate(ctx, target, tween.Keyframes{"x": {"0", "100"}}, tween.Options{
			Duration: 10 * time.Millisecond,
			Repeat:   tween.Infinite,
		})
	}).(*Controls)
	assert.Equal(t, 1, f.motion.Running())

	ctx := context.Background()
	err := f.motion.Stop(ctx, f.bridge.Exports()[EntryAnimate])
	assert.ErrorIs(t, err, ErrNotAnimation)

	require.NoError(t, f.motion.Stop(ctx, controls.Handle()))
	wait(t, controls.Finished())
	assert.Equal(t, 0, f.motion.Running())

	assert.NoError(t, f.motion.Stop(ctx, controls.Handle()))
	assert.NoError(t, f.motion.Stop(ctx, registry.Handle(9999)))
}

func TestAnimateElement(t *testing.T) {
	f := setup(t)
	native := testutil.NewMockNative(t)
	host := element.NewHost(native, f.main)
	el := host.Wrap("box")

	controls := f.onWorker(t, func(ctx context.Context) (any, error) {
		return f.motion.Animate(ctx, el, tween.Keyframes{"backgroundColor": {"#ff0088", "#0d63f8"}}, tween.Options{
			Duration: 10 * time.Millisecond,
		})
	}).(*Controls)
	wait(t, controls.Finished())

	// Drain the final frame's flush.
	_, err := f.main.Do(context.Background(), func(context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)

	native.AssertCalled(t, "AddInlineStyle", "box", "background-color", "#0d63f8")
	native.AssertCalled(t, "FlushElementTree")
}

func TestAnimateValue(t *testing.T) {
	f := setup(t)

	var (
		mu     sync.Mutex
		latest float64
	)
	controls := f.onWorker(t, func(ctx context.Context) (any, error) {
		return f.motion.AnimateValue(ctx, 0, 100, tween.Options{Duration: 10 * time.Millisecond}, func(v float64) {
			mu.Lock()
			defer mu.Unlock()
			latest = v
		})
	}).(*Controls)
	wait(t, controls.Finished())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 100.0, latest)
}

func TestAnimateRejectsBadArguments(t *testing.T) {
	f := setup(t)

	_, err := f.motion.animate(context.Background(), "box", tween.Keyframes{}, tween.Options{})
	assert.ErrorIs(t, err, ErrArguments)

	_, err = f.motion.animate(context.Background(), newStyleTarget())
	assert.ErrorIs(t, err, ErrArguments)

	_, err = f.motion.Animate(context.Background(), newStyleTarget(), tween.Keyframes{"opacity": {"1"}}, tween.Options{Ease: "wobble"})
	assert.ErrorIs(t, err, tween.ErrUnknownEase)
}

func TestStaggerFacade(t *testing.T) {
	f := setup(t)

	delay := f.onWorker(t, func(ctx context.Context) (any, error) {
		return f.motion.Stagger(ctx, 50*time.Millisecond, tween.StaggerOptions{From: tween.FromCenter})
	}).(tween.DelayFunc)

	assert.Equal(t, 100*time.Millisecond, delay(0, 5))
	assert.Equal(t, time.Duration(0), delay(2, 5))

	_, err := f.motion.Stagger(context.Background(), time.Second, tween.StaggerOptions{From: "nowhere"})
	assert.Error(t, err)
}

func TestFacadeAfterMainStops(t *testing.T) {
	f := setup(t)
	f.main.Stop()

	_, err := f.motion.Stagger(context.Background(), time.Second, tween.StaggerOptions{})
	assert.ErrorIs(t, err, thread.ErrLoopStopped)
}
