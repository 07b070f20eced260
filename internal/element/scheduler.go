package element

import (
	"sync"

	"github.com/GriffinCanCode/motionbridge/internal/infrastructure/monitoring"
)

// Deferrer runs a callback at the end of the current turn.
// *thread.Loop implements it.
type Deferrer interface {
	QueueMicrotask(fn func())
}

// Flusher materializes pending native writes.
type Flusher interface {
	FlushElementTree()
}

// Scheduler coalesces flush requests into at most one pending flush per
// execution context. It has two states, idle and pending.
type Scheduler struct {
	deferrer Deferrer
	flusher  Flusher
	metrics  *monitoring.Metrics

	mu      sync.Mutex
	pending bool
}

// NewScheduler creates an idle scheduler.
func NewScheduler(deferrer Deferrer, flusher Flusher, metrics *monitoring.Metrics) *Scheduler {
	return &Scheduler{
		deferrer: deferrer,
		flusher:  flusher,
		metrics:  metrics,
	}
}

// Schedule requests a flush at the end of the current turn. While a flush
// is pending further requests are no-ops.
func (s *Scheduler) Schedule() {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = true
	s.mu.Unlock()

	s.deferrer.QueueMicrotask(s.flush)
}

// Pending reports whether a flush is scheduled.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Scheduler) flush() {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()

	s.flusher.FlushElementTree()
	s.metrics.RecordFlush()
}
