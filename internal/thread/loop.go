package thread

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/motionbridge/internal/infrastructure/monitoring"
)

// Kind identifies the role of an execution context.
type Kind int

const (
	// Background is an ordinary, logic-owning context.
	Background Kind = iota
	// Main is the privileged, UI-owning context.
	Main
)

func (k Kind) String() string {
	switch k {
	case Main:
		return "main"
	default:
		return "background"
	}
}

var (
	// ErrLoopStopped is returned when work is submitted to a stopped loop.
	ErrLoopStopped = errors.New("thread: loop stopped")
)

// PanicError wraps a panic recovered while running a task.
type PanicError struct {
	Loop  string
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in loop %s: %v", e.Loop, e.Value)
}

// Task is a unit of work executed on a loop.
type Task func(ctx context.Context)

type loopKey struct{}

// Loop is a single-threaded event loop.
type Loop struct {
	name    string
	kind    Kind
	logger  *zap.Logger
	metrics *monitoring.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	tasks      []Task
	microtasks []func()
	stopped    bool

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the loop logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics records task counts and durations.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(l *Loop) {
		l.metrics = m
	}
}

// WithContext installs values into the base context every task receives.
func WithContext(decorate func(context.Context) context.Context) Option {
	return func(l *Loop) {
		l.ctx = decorate(l.ctx)
	}
}

// New creates a loop. Call Start before posting work that must run.
func New(name string, kind Kind, opts ...Option) *Loop {
	l := &Loop{
		name:   name,
		kind:   kind,
		logger: zap.NewNop(),
		ctx:    context.Background(),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.ctx = context.WithValue(l.ctx, loopKey{}, l)
	l.ctx, l.cancel = context.WithCancel(l.ctx)
	l.logger = l.logger.With(zap.String("loop", name), zap.Stringer("kind", kind))
	return l
}

// Name returns the loop name.
func (l *Loop) Name() string {
	return l.name
}

// Kind returns the loop kind.
func (l *Loop) Kind() Kind {
	return l.kind
}

// Context returns the base context handed to every task.
func (l *Loop) Context() context.Context {
	return l.ctx
}

// Start launches the loop goroutine. Calling Start twice is a no-op.
func (l *Loop) Start() {
	l.once.Do(func() {
		go l.run()
	})
}

// Stop stops accepting work, cancels the loop context and waits for the
// goroutine to exit. Queued tasks that have not started are dropped.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.stopped = true
	l.tasks = nil
	l.mu.Unlock()

	l.cancel()
	l.once.Do(func() { close(l.done) })
	l.signal()
	<-l.done
}

// Post enqueues a task. It never blocks; false means the loop is stopped.
func (l *Loop) Post(task Task) bool {
	if task == nil {
		return false
	}
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.tasks = append(l.tasks, task)
	l.mu.Unlock()
	l.signal()
	return true
}

// QueueMicrotask defers fn to the end of the current turn. Microtasks
// queued outside a task run as a turn of their own.
func (l *Loop) QueueMicrotask(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.microtasks = append(l.microtasks, fn)
	l.mu.Unlock()
	l.signal()
}

// Do runs fn on the loop and waits for it. When ctx already belongs to this
// loop fn runs inline, so a task may call Do on its own loop safely.
func (l *Loop) Do(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	if FromContext(ctx) == l {
		return fn(ctx)
	}

	type result struct {
		value any
		err   error
	}
	done := make(chan result, 1)
	ok := l.Post(func(taskCtx context.Context) {
		var r result
		defer func() {
			if rec := recover(); rec != nil {
				done <- result{err: &PanicError{Loop: l.name, Value: rec, Stack: string(debug.Stack())}}
				panic(rec)
			}
			done <- r
		}()
		r.value, r.err = fn(taskCtx)
	})
	if !ok {
		return nil, ErrLoopStopped
	}

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, ErrLoopStopped
	}
}

// AfterFunc posts task to the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, task Task) *time.Timer {
	return time.AfterFunc(d, func() {
		l.Post(task)
	})
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) run() {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.tasks = nil
		l.microtasks = nil
		l.mu.Unlock()
		close(l.done)
	}()

	for {
		select {
		case <-l.wake:
		case <-l.ctx.Done():
			return
		}

		for {
			task, ok := l.nextTask()
			if !ok {
				break
			}
			l.execute(task)
			l.drainMicrotasks()
			if l.ctx.Err() != nil {
				return
			}
		}
		l.drainMicrotasks()
	}
}

func (l *Loop) nextTask() (Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.tasks) == 0 || l.stopped {
		return nil, false
	}
	task := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	return task, true
}

func (l *Loop) nextMicrotask() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.microtasks) == 0 {
		return nil, false
	}
	fn := l.microtasks[0]
	l.microtasks[0] = nil
	l.microtasks = l.microtasks[1:]
	return fn, true
}

func (l *Loop) drainMicrotasks() {
	for {
		fn, ok := l.nextMicrotask()
		if !ok {
			return
		}
		l.execute(func(context.Context) { fn() })
	}
}

// execute runs a task, recovering from panics so one bad task cannot take
// the context down.
func (l *Loop) execute(task Task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Task panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
		l.metrics.RecordLoopTask(l.name, time.Since(start))
	}()
	task(l.ctx)
}

// FromContext returns the loop that owns ctx, or nil outside any loop.
func FromContext(ctx context.Context) *Loop {
	if ctx == nil {
		return nil
	}
	l, _ := ctx.Value(loopKey{}).(*Loop)
	return l
}

// IsMain reports whether ctx belongs to the privileged context.
func IsMain(ctx context.Context) bool {
	l := FromContext(ctx)
	return l != nil && l.kind == Main
}
