package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFailed = errors.New("failed")

func outcome(success bool) func() error {
	return func() error {
		if success {
			return nil
		}
		return errFailed
	}
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		requests []bool // true = success
		want     State
	}{
		{
			name:     "stays closed on successes",
			settings: Settings{Interval: time.Minute, Timeout: time.Minute},
			requests: []bool{true, true, true},
			want:     StateClosed,
		},
		{
			name: "opens after consecutive failures",
			settings: Settings{
				ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 3 },
			},
			requests: []bool{false, false, false},
			want:     StateOpen,
		},
		{
			name: "success resets the failure streak",
			settings: Settings{
				ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 3 },
			},
			requests: []bool{false, false, true, false, false},
			want:     StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("test", tt.settings)
			for _, success := range tt.requests {
				_ = b.Do(outcome(success))
			}
			assert.Equal(t, tt.want, b.State())
		})
	}
}

func TestBreakerDoReturnsCallError(t *testing.T) {
	b := New("test", Settings{})
	assert.NoError(t, b.Do(outcome(true)))
	assert.ErrorIs(t, b.Do(outcome(false)), errFailed)

	counts := b.Counts()
	assert.Equal(t, uint32(2), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.TotalFailures)
}

func TestBreakerRejectsWhileOpen(t *testing.T) {
	b := New("test", Settings{
		Timeout:     time.Minute,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})
	_ = b.Do(outcome(false))
	require.Equal(t, StateOpen, b.State())

	called := false
	err := b.Do(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerHalfOpen(t *testing.T) {
	newOpen := func(t *testing.T) *Breaker {
		b := New("test", Settings{
			MaxRequests: 2,
			Timeout:     10 * time.Millisecond,
			ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		})
		_ = b.Do(outcome(false))
		require.Equal(t, StateOpen, b.State())
		require.Eventually(t, func() bool { return b.State() == StateHalfOpen }, time.Second, 5*time.Millisecond)
		return b
	}

	t.Run("closes after enough probe successes", func(t *testing.T) {
		b := newOpen(t)
		require.NoError(t, b.Do(outcome(true)))
		assert.Equal(t, StateHalfOpen, b.State())
		require.NoError(t, b.Do(outcome(true)))
		assert.Equal(t, StateClosed, b.State())
	})

	t.Run("reopens on probe failure", func(t *testing.T) {
		b := newOpen(t)
		_ = b.Do(outcome(false))
		assert.Equal(t, StateOpen, b.State())
	})

	t.Run("limits concurrent probes", func(t *testing.T) {
		b := newOpen(t)
		release := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = b.Do(func() error {
					<-release
					return nil
				})
			}()
		}
		require.Eventually(t, func() bool { return b.Counts().Requests == 2 }, time.Second, time.Millisecond)
		assert.ErrorIs(t, b.Do(outcome(true)), ErrTooManyRequests)
		close(release)
		wg.Wait()
	})
}

func TestBreakerIsFailure(t *testing.T) {
	ignored := errors.New("client error")
	b := New("test", Settings{
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		IsFailure:   func(err error) bool { return err != nil && !errors.Is(err, ignored) },
	})

	assert.ErrorIs(t, b.Do(func() error { return ignored }), ignored)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, uint32(1), b.Counts().TotalSuccesses)
}

func TestBreakerStateChangeCallback(t *testing.T) {
	var (
		mu          sync.Mutex
		transitions []string
	)
	b := New("api", Settings{
		Timeout:     10 * time.Millisecond,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		OnStateChange: func(name string, from, to State) {
			mu.Lock()
			defer mu.Unlock()
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})

	_ = b.Do(outcome(false))
	require.Eventually(t, func() bool { return b.State() == StateHalfOpen }, time.Second, 5*time.Millisecond)
	require.NoError(t, b.Do(outcome(true)))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"api:closed->open",
		"api:open->half-open",
		"api:half-open->closed",
	}, transitions)
}

func TestBreakerPanicCountsAsFailure(t *testing.T) {
	b := New("test", Settings{
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})
	assert.Panics(t, func() {
		_ = b.Do(func() error { panic("boom") })
	})
	assert.Equal(t, StateOpen, b.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
