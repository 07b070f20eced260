package hooks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/motionbridge/internal/registry"
	"github.com/GriffinCanCode/motionbridge/internal/thread"
)

func named(name string) registry.Func {
	return func(context.Context, ...any) (any, error) { return name, nil }
}

func startMain(t *testing.T, reg *registry.Registry) *thread.Loop {
	t.Helper()
	l := thread.New("main", thread.Main, thread.WithContext(func(ctx context.Context) context.Context {
		return registry.NewContext(ctx, reg)
	}))
	l.Start()
	t.Cleanup(l.Stop)
	return l
}

func onLoop(t *testing.T, l *thread.Loop, fn func(ctx context.Context)) {
	t.Helper()
	_, err := l.Do(context.Background(), func(ctx context.Context) (any, error) {
		fn(ctx)
		return nil, nil
	})
	require.NoError(t, err)
}

func TestScopeDisposeOrder(t *testing.T) {
	s := NewScope()
	var order []int
	s.OnDispose(func() { order = append(order, 1) })
	s.OnDispose(func() { order = append(order, 2) })

	s.Dispose()
	s.Dispose()

	assert.Equal(t, []int{2, 1}, order)
	assert.True(t, s.Disposed())

	ran := false
	s.OnDispose(func() { ran = true })
	assert.True(t, ran, "disposer added after teardown runs immediately")
}

func TestHandleStableAcrossRenders(t *testing.T) {
	reg := registry.New()
	main := startMain(t, reg)
	owner := NewScope()
	hook := UseRegistered(owner, reg)

	var h1, h2 registry.Handle
	onLoop(t, main, func(ctx context.Context) { h1 = hook.Update(ctx, named("f1")) })
	onLoop(t, main, func(ctx context.Context) { h2 = hook.Update(ctx, named("f2")) })

	assert.Equal(t, h1, h2)
	assert.Equal(t, hook.Handle(), h1)

	v, err := reg.Call(context.Background(), h1)
	require.NoError(t, err)
	assert.Equal(t, "f2", v, "latest callable wins")
}

func TestUpdateOutsidePrivilegedContextIsNoop(t *testing.T) {
	reg := registry.New()
	bg := thread.New("bg", thread.Background)
	bg.Start()
	t.Cleanup(bg.Stop)

	owner := NewScope()
	hook := UseRegistered(owner, reg)

	onLoop(t, bg, func(ctx context.Context) { hook.Update(ctx, named("f")) })
	hook.Update(context.Background(), named("f"))

	assert.False(t, hook.Registered())
	assert.Equal(t, 0, reg.Len())

	// Disposing an owner that never registered leaves the registry alone.
	other := reg.Register(named("other"))
	owner.Dispose()
	_, ok := reg.Resolve(other)
	assert.True(t, ok)
}

func TestDisposeUnregisters(t *testing.T) {
	reg := registry.New()
	main := startMain(t, reg)
	owner := NewScope()
	hook := UseRegistered(owner, reg)

	onLoop(t, main, func(ctx context.Context) { hook.Update(ctx, named("f")) })
	require.Equal(t, 1, reg.Len())

	owner.Dispose()
	assert.Equal(t, 0, reg.Len())
	assert.False(t, hook.Registered())

	// Invoking through the handle after teardown has no effect.
	var v any
	onLoop(t, main, func(ctx context.Context) {
		v, _ = registry.Invoke(hook.Handle())(ctx)
	})
	assert.Nil(t, v)

	// Renders after teardown do not resurrect the entry.
	onLoop(t, main, func(ctx context.Context) { hook.Update(ctx, named("late")) })
	assert.Equal(t, 0, reg.Len())
}

func TestOwnersGetDistinctHandles(t *testing.T) {
	reg := registry.New()
	a := UseRegistered(NewScope(), reg)
	b := UseRegistered(NewScope(), reg)
	assert.NotEqual(t, a.Handle(), b.Handle())
}
