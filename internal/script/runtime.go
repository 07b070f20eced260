package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/motionbridge/internal/bridge"
	"github.com/GriffinCanCode/motionbridge/internal/element"
	"github.com/GriffinCanCode/motionbridge/internal/hooks"
	"github.com/GriffinCanCode/motionbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/motionbridge/internal/motion"
	"github.com/GriffinCanCode/motionbridge/internal/thread"
)

// Runtime is a goja VM owned by the privileged loop.
type Runtime struct {
	vm      *goja.Runtime
	config  Config
	bridge  *bridge.Bridge
	loop    *thread.Loop
	host    *element.Host
	motion  *motion.Motion
	logger  *zap.Logger
	metrics *monitoring.Metrics

	elementKey *goja.Symbol
	owners     *hooks.Scope
	started    time.Time

	// Loop-confined.
	timers     map[int64]*time.Timer
	nextTimer  int64
	animations map[*motion.Controls]struct{}
	run        *Result
	closed     bool

	consoleMu sync.Mutex
	console   []LogEntry
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the runtime logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records script runs.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(r *Runtime) {
		r.metrics = m
	}
}

// New creates a runtime on b's privileged loop. host must defer its
// flushes on the same loop.
func New(b *bridge.Bridge, host *element.Host, m *motion.Motion, config Config, opts ...Option) (*Runtime, error) {
	r := &Runtime{
		config:     config,
		bridge:     b,
		loop:       b.Main(),
		host:       host,
		motion:     m,
		logger:     zap.NewNop(),
		elementKey: goja.NewSymbol("element"),
		owners:     hooks.NewScope(),
		started:    time.Now(),
		timers:     make(map[int64]*time.Timer),
		animations: make(map[*motion.Controls]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.reset(); err != nil {
		return nil, err
	}
	return r, nil
}

// Execute runs source on the privileged loop with the configured timeout.
// The result carries console output produced while the run was on the
// stack; later output is available from Console.
func (r *Runtime) Execute(ctx context.Context, source string) (*Result, error) {
	result := &Result{
		RunID:   uuid.NewString(),
		Console: []LogEntry{},
	}
	start := time.Now()

	_, err := r.bridge.RunOnMain(ctx, func(context.Context) (any, error) {
		return nil, r.execute(ctx, result, source)
	})
	result.Duration = time.Since(start)

	status := "ok"
	switch {
	case errors.Is(err, ErrTimeout):
		status = "timeout"
	case err != nil:
		status = "error"
	}
	r.metrics.RecordScriptRun(status, result.Duration)

	if err != nil {
		result.Error = err.Error()
		r.logger.Warn("Script failed",
			zap.String("run_id", result.RunID),
			zap.Duration("duration", result.Duration),
			zap.Error(err),
		)
		return result, err
	}
	r.logger.Debug("Script executed",
		zap.String("run_id", result.RunID),
		zap.Duration("duration", result.Duration),
		zap.Int("console", len(result.Console)),
	)
	return result, nil
}

// execute runs on the loop.
func (r *Runtime) execute(ctx context.Context, result *Result, source string) error {
	if r.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		var timeout <-chan time.Time
		if r.config.Timeout > 0 {
			timer := time.NewTimer(r.config.Timeout)
			defer timer.Stop()
			timeout = timer.C
		}
		select {
		case <-timeout:
			r.vm.Interrupt(ErrTimeout)
		case <-ctx.Done():
			r.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	r.run = result
	val, err := r.vm.RunScript(result.RunID, source)
	r.run = nil

	close(done)
	<-exited
	r.vm.ClearInterrupt()

	if err != nil {
		return unwrapInterrupt(err)
	}
	result.Value = r.exportValue(val)
	return nil
}

func unwrapInterrupt(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return cause
		}
	}
	return err
}

// Console returns the retained console history.
func (r *Runtime) Console() []LogEntry {
	r.consoleMu.Lock()
	defer r.consoleMu.Unlock()
	return append([]LogEntry{}, r.console...)
}

// Reset replaces the VM, dropping script globals and pending timers and
// stopping animations the scripts started. Handles registered by earlier
// runs stay bound.
func (r *Runtime) Reset(ctx context.Context) error {
	_, err := r.loop.Do(ctx, func(context.Context) (any, error) {
		if r.closed {
			return nil, ErrClosed
		}
		r.stopTimers()
		r.stopAnimations()
		return nil, r.reset()
	})
	return err
}

// Close disposes owner-scoped handles and stops timers.
func (r *Runtime) Close() error {
	closeOnLoop := func(context.Context) (any, error) {
		if r.closed {
			return nil, nil
		}
		r.closed = true
		r.stopTimers()
		r.stopAnimations()
		r.owners.Dispose()
		r.vm = nil
		return nil, nil
	}
	_, err := r.loop.Do(context.Background(), closeOnLoop)
	if errors.Is(err, thread.ErrLoopStopped) {
		_, err = closeOnLoop(context.Background())
	}
	return err
}

func (r *Runtime) reset() error {
	r.vm = goja.New()
	if r.config.MaxCallStackSize > 0 {
		r.vm.SetMaxCallStackSize(r.config.MaxCallStackSize)
	}
	return r.setupGlobals()
}

func (r *Runtime) stopTimers() {
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}

func (r *Runtime) stopAnimations() {
	for c := range r.animations {
		if err := c.Stop(r.loop.Context()); err != nil {
			r.logger.Debug("Animation stop failed", zap.Uint64("handle", uint64(c.Handle())), zap.Error(err))
		}
		delete(r.animations, c)
	}
}

// appendConsole records an entry against the current run, if any.
func (r *Runtime) appendConsole(level, msg string) {
	entry := LogEntry{
		Level:   level,
		Message: msg,
		Time:    time.Now(),
	}
	if r.run != nil {
		entry.RunID = r.run.RunID
		r.run.Console = append(r.run.Console, entry)
	}

	r.consoleMu.Lock()
	r.console = append(r.console, entry)
	if limit := r.config.MaxConsole; limit > 0 && len(r.console) > limit {
		r.console = append([]LogEntry{}, r.console[len(r.console)-limit:]...)
	}
	r.consoleMu.Unlock()

	r.logger.Debug("Script console", zap.String("level", level), zap.String("message", msg))
}

// callback runs a script function outside of Execute. Exceptions are
// reported to the console.
func (r *Runtime) callback(kind string, fn goja.Callable, args ...goja.Value) {
	if r.closed {
		return
	}
	if _, err := fn(goja.Undefined(), args...); err != nil {
		r.logger.Warn("Script callback failed", zap.String("kind", kind), zap.Error(err))
		r.appendConsole("error", fmt.Sprintf("uncaught in %s: %v", kind, err))
	}
}

// exportValue converts a VM value to plain Go data. Elements export as
// their description; other objects go through JSON.stringify.
func (r *Runtime) exportValue(val goja.Value) any {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	obj, ok := val.(*goja.Object)
	if !ok {
		return val.Export()
	}
	if el, ok := r.elementOf(obj); ok {
		return el.String()
	}
	if _, isFunc := goja.AssertFunction(obj); isFunc {
		return "[function]"
	}
	s, err := r.stringify(obj)
	if err != nil {
		return obj.String()
	}
	var out any
	if err := sonic.UnmarshalString(s, &out); err != nil {
		return s
	}
	return out
}

func (r *Runtime) stringify(v goja.Value) (string, error) {
	stringify, ok := goja.AssertFunction(r.vm.Get("JSON").ToObject(r.vm).Get("stringify"))
	if !ok {
		return "", errors.New("JSON.stringify unavailable")
	}
	out, err := stringify(goja.Undefined(), v)
	if err != nil {
		return "", err
	}
	if goja.IsUndefined(out) {
		return "", errors.New("value is not serializable")
	}
	return out.String(), nil
}

// format renders console arguments the way a browser console would.
func (r *Runtime) format(args []goja.Value) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		obj, ok := arg.(*goja.Object)
		if !ok {
			parts = append(parts, arg.String())
			continue
		}
		if el, ok := r.elementOf(obj); ok {
			parts = append(parts, el.String())
			continue
		}
		if _, isFunc := goja.AssertFunction(obj); !isFunc && obj.ClassName() != "Error" {
			if s, err := r.stringify(obj); err == nil {
				parts = append(parts, s)
				continue
			}
		}
		parts = append(parts, arg.String())
	}
	return strings.Join(parts, " ")
}

// throw raises err as a script exception.
func (r *Runtime) throw(err error) {
	panic(r.vm.NewGoError(err))
}
