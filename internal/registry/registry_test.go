package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/motionbridge/internal/infrastructure/monitoring"
)

func constant(v any) Func {
	return func(context.Context, ...any) (any, error) { return v, nil }
}

func TestRegisterResolve(t *testing.T) {
	r := New()
	h := r.Register(constant("f"))

	fn, ok := r.Resolve(h)
	require.True(t, ok)
	v, err := fn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "f", v)
	assert.Equal(t, 1, r.Len())
}

func TestHandlesStrictlyIncrease(t *testing.T) {
	r := New()
	h1 := r.Register(constant(1))
	h2 := r.Register(constant(2))
	h3 := r.Reserve()
	h4 := r.Register(constant(4))

	assert.Greater(t, uint64(h1), uint64(0))
	assert.Greater(t, h2, h1)
	assert.Greater(t, h3, h2)
	assert.Greater(t, h4, h3)
}

func TestHandlesNeverReused(t *testing.T) {
	r := New()
	h1 := r.Register(constant(1))
	r.Unregister(h1)
	h2 := r.Register(constant(2))
	assert.NotEqual(t, h1, h2)
}

func TestUnregisterIdempotent(t *testing.T) {
	r := New()
	h := r.Register(constant("x"))

	r.Unregister(h)
	r.Unregister(h)
	r.Unregister(Handle(9999))

	_, ok := r.Resolve(h)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestSetReplaces(t *testing.T) {
	r := New()
	h := r.Register(constant("f1"))
	r.Set(h, constant("f2"))

	v, err := r.Call(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, "f2", v)
	assert.Equal(t, 1, r.Len())

	r.Set(h, nil)
	_, ok := r.Resolve(h)
	assert.False(t, ok)
}

func TestCallUnresolved(t *testing.T) {
	r := New()
	_, err := r.Call(context.Background(), Handle(42))
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestInvokeResolvesAgainstCurrentContext(t *testing.T) {
	mainReg := New()
	otherReg := New()

	h := mainReg.Register(func(_ context.Context, args ...any) (any, error) {
		return args[0].(int) + args[1].(int), nil
	})

	call := Invoke(h)

	v, err := call(NewContext(context.Background(), mainReg), 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	// The same handle means nothing in a context with a different registry.
	v, err = call(NewContext(context.Background(), otherReg), 2, 3)
	assert.NoError(t, err)
	assert.Nil(t, v)

	// No registry at all degrades the same way.
	v, err = call(context.Background(), 2, 3)
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func TestInvokeAfterUnregisterHasNoEffect(t *testing.T) {
	r := New()
	calls := 0
	h := r.Register(func(context.Context, ...any) (any, error) {
		calls++
		return nil, nil
	})
	ctx := NewContext(context.Background(), r)

	_, _ = Invoke(h)(ctx)
	r.Unregister(h)
	_, _ = Invoke(h)(ctx)

	assert.Equal(t, 1, calls)
}

func TestInvokeSeesLatestBinding(t *testing.T) {
	r := New()
	h := r.Reserve()
	ctx := NewContext(context.Background(), r)
	call := Invoke(h)

	r.Set(h, constant("f1"))
	v, _ := call(ctx)
	assert.Equal(t, "f1", v)

	r.Set(h, constant("f2"))
	v, _ = call(ctx)
	assert.Equal(t, "f2", v)
}

func TestConcurrentRegistration(t *testing.T) {
	r := New()
	const n = 64

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		handles = make(map[Handle]bool)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := r.Register(constant(i))
			mu.Lock()
			handles[h] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Len(t, handles, n)
	assert.Equal(t, n, r.Len())
}

func TestMetricsTrackSizeAndMisses(t *testing.T) {
	m := monitoring.NewMetrics()
	r := New(WithMetrics(m))
	ctx := NewContext(context.Background(), r)

	h := r.Register(constant(1))
	r.Register(constant(2))
	r.Unregister(h)
	_, _ = Invoke(h)(ctx)

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.RegistryEntries)
	assert.Equal(t, int64(1), snap.UnresolvedCalls)
}
