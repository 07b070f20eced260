// Package hooks binds registry entries to the lifecycle of an owner, the
// way a component keeps a callable registered for as long as it is mounted.
package hooks

import "sync"

// Owner is anything with a teardown phase hooks can attach to.
type Owner interface {
	OnDispose(fn func())
}

// Scope is a minimal Owner: disposers run once, newest first.
type Scope struct {
	mu        sync.Mutex
	disposers []func()
	disposed  bool
}

// NewScope creates a live scope.
func NewScope() *Scope {
	return &Scope{}
}

// OnDispose registers fn to run when the scope is disposed. Registering on
// an already disposed scope runs fn immediately.
func (s *Scope) OnDispose(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		fn()
		return
	}
	s.disposers = append(s.disposers, fn)
	s.mu.Unlock()
}

// Dispose tears the scope down. Later calls are no-ops.
func (s *Scope) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	disposers := s.disposers
	s.disposers = nil
	s.mu.Unlock()

	for i := len(disposers) - 1; i >= 0; i-- {
		disposers[i]()
	}
}

// Disposed reports whether Dispose has run.
func (s *Scope) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}
