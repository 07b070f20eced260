package thread

import (
	"context"
	"sync"
)

// Future is a single-assignment deferred result.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

// NewFuture returns a pending future and the function that settles it.
// Only the first call to settle has any effect.
func NewFuture[T any]() (*Future[T], func(T, error)) {
	f := &Future[T]{done: make(chan struct{})}
	return f, f.settle
}

// Resolved returns an already settled future.
func Resolved[T any](value T, err error) *Future[T] {
	f, settle := NewFuture[T]()
	settle(value, err)
	return f
}

func (f *Future[T]) settle(value T, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Done is closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result returns the settled value and error. ok is false while pending.
func (f *Future[T]) Result() (value T, err error, ok bool) {
	select {
	case <-f.done:
		return f.value, f.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

// Await blocks until the future settles or ctx is done. Never await on the
// loop that is expected to settle the future.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then runs fn on loop once the future settles.
func (f *Future[T]) Then(loop *Loop, fn func(ctx context.Context, value T, err error)) {
	go func() {
		select {
		case <-f.done:
		case <-loop.Context().Done():
			return
		}
		loop.Post(func(ctx context.Context) {
			fn(ctx, f.value, f.err)
		})
	}()
}
