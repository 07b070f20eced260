// Package motion exposes the animation engine to ordinary execution
// contexts.
//
// The engine lives on the privileged loop. New exports its entry points
// once; Animate, AnimateValue and Stagger are facades with the same shape
// that run there and hand back results made only of handles and values.
package motion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/motionbridge/internal/bridge"
	"github.com/GriffinCanCode/motionbridge/internal/motion/tween"
	"github.com/GriffinCanCode/motionbridge/internal/registry"
)

// Exported entry point names.
const (
	EntryAnimate = "animate"
	EntryStagger = "stagger"
)

// ErrArguments is returned when an entry point receives arguments of the
// wrong shape.
var ErrArguments = errors.New("motion: invalid arguments")

// ErrNotAnimation is returned by Stop for a bound handle that was not
// issued as an animation's stop handle.
var ErrNotAnimation = errors.New("motion: handle is not an animation")

// Motion holds the facades of the exported entry points.
type Motion struct {
	bridge *bridge.Bridge
	engine *tween.Engine
	logger *zap.Logger

	animate registry.Func
	stagger registry.Func

	mu    sync.Mutex
	stops map[registry.Handle]struct{}
}

// Option configures Motion.
type Option func(*Motion)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Motion) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New exports the entry points on b and returns their facades. engine must
// run on b's privileged loop.
func New(b *bridge.Bridge, engine *tween.Engine, opts ...Option) *Motion {
	m := &Motion{
		bridge: b,
		engine: engine,
		logger: zap.NewNop(),
		stops:  make(map[registry.Handle]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.animate = b.Facade(b.Export(EntryAnimate, m.animateEntry))
	m.stagger = b.Facade(b.Export(EntryStagger, m.staggerEntry))
	return m
}

// Animate starts animating target on the privileged loop.
func (m *Motion) Animate(ctx context.Context, target tween.Target, keyframes tween.Keyframes, opts tween.Options) (*Controls, error) {
	return bridge.As[*Controls](m.animate(ctx, target, keyframes, opts))
}

// AnimateValue animates a number from one value to another. onUpdate runs
// on the privileged loop for every frame.
func (m *Motion) AnimateValue(ctx context.Context, from, to float64, opts tween.Options, onUpdate func(latest float64)) (*Controls, error) {
	return bridge.As[*Controls](m.animate(ctx, from, to, opts, onUpdate))
}

// Stagger computes a stagger schedule on the privileged loop.
func (m *Motion) Stagger(ctx context.Context, each time.Duration, opts tween.StaggerOptions) (tween.DelayFunc, error) {
	return bridge.As[tween.DelayFunc](m.stagger(ctx, each, opts))
}

// Stop halts the animation whose stop handle is h. A handle that is no
// longer bound, such as that of a finished animation, is a no-op. Any
// other bound handle is refused.
func (m *Motion) Stop(ctx context.Context, h registry.Handle) error {
	m.mu.Lock()
	_, ok := m.stops[h]
	m.mu.Unlock()
	if !ok {
		if _, bound := m.bridge.Registry().Resolve(h); bound {
			return fmt.Errorf("%w: %d", ErrNotAnimation, h)
		}
		return nil
	}
	_, err := m.bridge.Facade(h)(ctx)
	return err
}

// Running returns the number of animations with live stop handles.
func (m *Motion) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stops)
}

// animateEntry accepts (target, keyframes, options) or
// (from, to, options, onUpdate).
func (m *Motion) animateEntry(_ context.Context, args ...any) (any, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("%w: animate takes at least 3 arguments, got %d", ErrArguments, len(args))
	}
	opts, ok := args[2].(tween.Options)
	if !ok {
		return nil, fmt.Errorf("%w: options are %T", ErrArguments, args[2])
	}

	var (
		anim *tween.Animation
		err  error
	)
	switch target := args[0].(type) {
	case tween.Target:
		keyframes, ok := args[1].(tween.Keyframes)
		if !ok {
			return nil, fmt.Errorf("%w: keyframes are %T", ErrArguments, args[1])
		}
		anim, err = m.engine.Animate(target, keyframes, opts)
	case float64:
		to, ok := args[1].(float64)
		if !ok {
			return nil, fmt.Errorf("%w: value target is %T", ErrArguments, args[1])
		}
		var onUpdate func(float64)
		if len(args) > 3 {
			onUpdate, _ = args[3].(func(float64))
		}
		if onUpdate == nil {
			onUpdate = func(float64) {}
		}
		anim, err = m.engine.AnimateValue(target, to, opts, onUpdate)
	default:
		return nil, fmt.Errorf("%w: cannot animate %T", ErrArguments, args[0])
	}
	if err != nil {
		return nil, err
	}
	return m.controls(anim), nil
}

func (m *Motion) staggerEntry(_ context.Context, args ...any) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: stagger takes a duration", ErrArguments)
	}
	each, ok := args[0].(time.Duration)
	if !ok {
		return nil, fmt.Errorf("%w: stagger duration is %T", ErrArguments, args[0])
	}
	var opts tween.StaggerOptions
	if len(args) > 1 {
		if opts, ok = args[1].(tween.StaggerOptions); !ok {
			return nil, fmt.Errorf("%w: stagger options are %T", ErrArguments, args[1])
		}
	}
	return tween.Stagger(each, opts)
}

// controls registers the animation's stop capability and ties the entry
// to the animation's lifetime.
func (m *Motion) controls(anim *tween.Animation) *Controls {
	reg := m.bridge.Registry()
	stop := reg.Register(func(context.Context, ...any) (any, error) {
		anim.Stop()
		return nil, nil
	})
	m.mu.Lock()
	m.stops[stop] = struct{}{}
	m.mu.Unlock()

	anim.OnFinish(func() {
		reg.Unregister(stop)
		m.mu.Lock()
		delete(m.stops, stop)
		m.mu.Unlock()
		m.logger.Debug("Released animation controls",
			zap.Uint64("handle", uint64(stop)),
			zap.Bool("completed", anim.Completed()),
		)
	})

	return &Controls{
		stop:     stop,
		facade:   m.bridge.Facade(stop),
		finished: anim.Done(),
	}
}

// Controls is the caller's grip on a running animation. It holds the
// stop handle, never the animation itself.
type Controls struct {
	stop     registry.Handle
	facade   registry.Func
	finished <-chan struct{}
}

// Handle returns the stop handle.
func (c *Controls) Handle() registry.Handle {
	return c.stop
}

// Stop halts the animation. After the animation has finished it does
// nothing.
func (c *Controls) Stop(ctx context.Context) error {
	_, err := c.facade(ctx)
	return err
}

// Finished is closed once the animation completes or is stopped.
func (c *Controls) Finished() <-chan struct{} {
	return c.finished
}
