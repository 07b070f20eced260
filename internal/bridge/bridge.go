// Package bridge redirects calls made on an ordinary execution context to
// implementations registered on the privileged one.
//
// An implementation is exported once under a fixed handle; the facade for
// that handle has the same call shape and runs the implementation on the
// privileged loop, passing arguments and results through unchanged.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/motionbridge/internal/registry"
	"github.com/GriffinCanCode/motionbridge/internal/thread"
)

// ErrWrongType is returned by As when a result has an unexpected type.
var ErrWrongType = errors.New("bridge: unexpected result type")

// Bridge owns the privileged loop and its registry.
type Bridge struct {
	main   *thread.Loop
	reg    *registry.Registry
	logger *zap.Logger

	mu      sync.RWMutex
	exports map[string]registry.Handle
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewMainLoop creates a privileged loop whose tasks resolve handles
// against reg.
func NewMainLoop(name string, reg *registry.Registry, opts ...thread.Option) *thread.Loop {
	opts = append(opts, thread.WithContext(func(ctx context.Context) context.Context {
		return registry.NewContext(ctx, reg)
	}))
	return thread.New(name, thread.Main, opts...)
}

// New creates a bridge. main must be a privileged loop carrying reg, as
// built by NewMainLoop.
func New(main *thread.Loop, reg *registry.Registry, opts ...Option) *Bridge {
	b := &Bridge{
		main:    main,
		reg:     reg,
		logger:  zap.NewNop(),
		exports: make(map[string]registry.Handle),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Main returns the privileged loop.
func (b *Bridge) Main() *thread.Loop {
	return b.main
}

// Registry returns the privileged registry.
func (b *Bridge) Registry() *registry.Registry {
	return b.reg
}

// Export registers fn for the lifetime of the process under name and
// returns its handle. Exporting a name twice keeps the first handle.
func (b *Bridge) Export(name string, fn registry.Func) registry.Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	if h, ok := b.exports[name]; ok {
		b.logger.Warn("Entry point already exported", zap.String("name", name), zap.Uint64("handle", uint64(h)))
		return h
	}
	h := b.reg.Register(fn)
	b.exports[name] = h
	b.logger.Debug("Exported entry point", zap.String("name", name), zap.Uint64("handle", uint64(h)))
	return h
}

// Exports returns the exported entry points by name.
func (b *Bridge) Exports() map[string]registry.Handle {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.exports)
}

// Facade returns a Func that runs whatever h resolves to on the privileged
// loop. Called on the privileged loop it runs inline. An unresolved handle
// yields (nil, nil).
func (b *Bridge) Facade(h registry.Handle) registry.Func {
	invoke := registry.Invoke(h)
	return func(ctx context.Context, args ...any) (any, error) {
		return b.main.Do(ctx, func(mainCtx context.Context) (any, error) {
			return invoke(mainCtx, args...)
		})
	}
}

// RunOnMain runs fn on the privileged loop and waits for it.
func (b *Bridge) RunOnMain(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	return b.main.Do(ctx, fn)
}

// As converts a facade result to T. A nil value converts to the zero T so
// that an unresolved call stays silent.
func As[T any](v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %T, want %T", ErrWrongType, v, zero)
	}
	return t, nil
}
