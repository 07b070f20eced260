// Package registry maps small integer handles to callables so that code in
// one execution context can ask another context to run a function it has no
// direct reference to.
package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/motionbridge/internal/infrastructure/monitoring"
)

// Handle identifies a registered callable within one Registry. Handles are
// positive, strictly increasing and never reused.
type Handle uint64

// Func is the uniform shape of a registered callable.
type Func func(ctx context.Context, args ...any) (any, error)

// ErrUnresolved is returned by Call when a handle has no callable.
var ErrUnresolved = errors.New("registry: handle not registered")

// Registry is the handle table of one execution context.
//
// Handle allocation is lock-free; the table itself is guarded so the
// registry stays correct even though Go contexts run on real threads.
type Registry struct {
	mu      sync.RWMutex
	entries map[Handle]Func
	next    atomic.Uint64

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics publishes registry size and invocation results.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[Handle]Func),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register stores fn under a fresh handle.
func (r *Registry) Register(fn Func) Handle {
	h := r.Reserve()
	r.Set(h, fn)
	return h
}

// Reserve allocates a handle without binding it.
func (r *Registry) Reserve() Handle {
	return Handle(r.next.Add(1))
}

// Set binds h to fn, replacing any previous callable in one step.
func (r *Registry) Set(h Handle, fn Func) {
	if fn == nil {
		r.Unregister(h)
		return
	}
	r.mu.Lock()
	r.entries[h] = fn
	n := len(r.entries)
	r.mu.Unlock()

	r.metrics.SetRegistryEntries(n)
}

// Unregister removes h. Removing an unknown handle is a no-op.
func (r *Registry) Unregister(h Handle) {
	r.mu.Lock()
	_, ok := r.entries[h]
	delete(r.entries, h)
	n := len(r.entries)
	r.mu.Unlock()

	if ok {
		r.metrics.SetRegistryEntries(n)
	}
}

// Resolve looks h up without side effects.
func (r *Registry) Resolve(h Handle) (Func, bool) {
	r.mu.RLock()
	fn, ok := r.entries[h]
	r.mu.RUnlock()
	return fn, ok
}

// Len returns the number of bound handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Call resolves h and runs it, reporting ErrUnresolved on a miss.
func (r *Registry) Call(ctx context.Context, h Handle, args ...any) (any, error) {
	fn, ok := r.Resolve(h)
	r.metrics.RecordInvocation(ok)
	if !ok {
		return nil, ErrUnresolved
	}
	return fn(ctx, args...)
}

type registryKey struct{}

// NewContext returns a context carrying r as the current context's registry.
func NewContext(ctx context.Context, r *Registry) context.Context {
	return context.WithValue(ctx, registryKey{}, r)
}

// FromContext returns the registry of the current execution context.
func FromContext(ctx context.Context) *Registry {
	if ctx == nil {
		return nil
	}
	r, _ := ctx.Value(registryKey{}).(*Registry)
	return r
}

// Invoke returns a Func that resolves h against the registry of whichever
// context calls it. A missing registry or handle degrades silently: the call
// has no effect and returns (nil, nil). Use Registry.Call to tell the two
// outcomes apart.
func Invoke(h Handle) Func {
	return func(ctx context.Context, args ...any) (any, error) {
		r := FromContext(ctx)
		if r == nil {
			return nil, nil
		}
		fn, ok := r.Resolve(h)
		r.metrics.RecordInvocation(ok)
		if !ok {
			r.logger.Debug("Unresolved handle", zap.Uint64("handle", uint64(h)))
			return nil, nil
		}
		return fn(ctx, args...)
	}
}
