package script

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/motionbridge/internal/hooks"
	"github.com/GriffinCanCode/motionbridge/internal/motion/tween"
	"github.com/GriffinCanCode/motionbridge/internal/registry"
)

// setupGlobals installs the script environment on a fresh VM.
func (r *Runtime) setupGlobals() error {
	vm := r.vm

	// Remove dangerous globals
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	if r.config.EnableConsole {
		console := vm.NewObject()
		for _, level := range []string{"log", "info", "warn", "error", "debug"} {
			if err := console.Set(level, r.makeConsoleFunc(level)); err != nil {
				return err
			}
		}
		if err := vm.Set("console", console); err != nil {
			return err
		}
	}

	document := vm.NewObject()
	_ = document.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return r.wrapElement(r.host.QuerySelector(call.Argument(0).String()))
	})
	_ = document.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return r.wrapElements(r.host.QuerySelectorAll(call.Argument(0).String()))
	})
	_ = document.Set("documentElement", r.wrapElement(r.host.Document()))

	window := vm.NewObject()
	_ = window.Set("getComputedStyle", func(call goja.FunctionCall) goja.Value {
		el, ok := r.elementOf(call.Argument(0))
		if !ok {
			r.throw(fmt.Errorf("getComputedStyle: argument is not an element"))
		}
		return vm.ToValue(el.GetComputedStyle())
	})
	_ = window.Set("document", document)

	performance := vm.NewObject()
	_ = performance.Set("now", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(float64(time.Since(r.started)) / float64(time.Millisecond))
	})

	globals := map[string]any{
		"lynx":             document,
		"document":         document,
		"window":           window,
		"performance":      performance,
		"queueMicrotask":   r.queueMicrotask,
		"setTimeout":       r.setTimeout,
		"clearTimeout":     r.clearTimeout,
		"registerCallable": r.registerCallable,
		"runOnRegistered":  r.runOnRegistered,
		"useRegistered":    r.useRegistered,
		"animate":          r.animate,
		"stagger":          r.stagger,
	}
	for name, v := range globals {
		if err := vm.Set(name, v); err != nil {
			return err
		}
	}

	// Easing names are exposed as globals so scripts can write
	// { ease: circInOut }.
	for _, name := range tween.Easings() {
		if err := vm.Set(name, name); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		r.appendConsole(level, r.format(call.Arguments))
		return goja.Undefined()
	}
}

func (r *Runtime) function(v goja.Value, what string) goja.Callable {
	fn, ok := goja.AssertFunction(v)
	if !ok {
		r.throw(fmt.Errorf("%s: argument is not a function", what))
	}
	return fn
}

func (r *Runtime) queueMicrotask(call goja.FunctionCall) goja.Value {
	fn := r.function(call.Argument(0), "queueMicrotask")
	r.loop.QueueMicrotask(func() {
		r.callback("microtask", fn)
	})
	return goja.Undefined()
}

func (r *Runtime) setTimeout(call goja.FunctionCall) goja.Value {
	fn := r.function(call.Argument(0), "setTimeout")
	delay := time.Duration(call.Argument(1).ToFloat() * float64(time.Millisecond))
	args := append([]goja.Value{}, call.Arguments[min(2, len(call.Arguments)):]...)

	r.nextTimer++
	id := r.nextTimer
	r.timers[id] = r.loop.AfterFunc(max(delay, 0), func(context.Context) {
		if _, ok := r.timers[id]; !ok {
			return
		}
		delete(r.timers, id)
		r.callback("timeout", fn, args...)
	})
	return r.vm.ToValue(id)
}

func (r *Runtime) clearTimeout(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()
	if t, ok := r.timers[id]; ok {
		t.Stop()
		delete(r.timers, id)
	}
	return goja.Undefined()
}

// callable adapts a script function to a registry entry. Calls from other
// contexts hop onto the loop; calls on the loop run inline.
func (r *Runtime) callable(fn goja.Callable) registry.Func {
	return func(ctx context.Context, args ...any) (any, error) {
		return r.loop.Do(ctx, func(context.Context) (any, error) {
			if r.closed {
				return nil, ErrClosed
			}
			values := make([]goja.Value, len(args))
			for i, a := range args {
				values[i] = r.toValue(a)
			}
			res, err := fn(goja.Undefined(), values...)
			if err != nil {
				return nil, err
			}
			return r.exportValue(res), nil
		})
	}
}

// registerCallable(fn) registers fn for the process lifetime.
func (r *Runtime) registerCallable(call goja.FunctionCall) goja.Value {
	fn := r.function(call.Argument(0), "registerCallable")
	h := r.bridge.Registry().Register(r.callable(fn))
	return r.vm.ToValue(uint64(h))
}

// runOnRegistered(h) returns a function forwarding its arguments to
// whatever h resolves to. An unresolved handle returns undefined.
func (r *Runtime) runOnRegistered(call goja.FunctionCall) goja.Value {
	invoke := registry.Invoke(registry.Handle(call.Argument(0).ToInteger()))
	return r.vm.ToValue(func(inner goja.FunctionCall) goja.Value {
		args := make([]any, len(inner.Arguments))
		for i, a := range inner.Arguments {
			args[i] = r.exportArg(a)
		}
		res, err := invoke(r.loop.Context(), args...)
		if err != nil {
			r.throw(err)
		}
		return r.toValue(res)
	})
}

// useRegistered() returns an owner-scoped registration:
// { handle, update(fn), dispose() }.
func (r *Runtime) useRegistered(goja.FunctionCall) goja.Value {
	owner := hooks.NewScope()
	r.owners.OnDispose(owner.Dispose)
	hook := hooks.UseRegistered(owner, r.bridge.Registry())

	obj := r.vm.NewObject()
	_ = obj.Set("handle", uint64(hook.Handle()))
	_ = obj.Set("update", func(call goja.FunctionCall) goja.Value {
		fn := r.function(call.Argument(0), "update")
		return r.vm.ToValue(uint64(hook.Update(r.loop.Context(), r.callable(fn))))
	})
	_ = obj.Set("dispose", func(goja.FunctionCall) goja.Value {
		owner.Dispose()
		return goja.Undefined()
	})
	return obj
}

// exportArg converts a script argument for Go code. Elements pass as
// *element.Element.
func (r *Runtime) exportArg(v goja.Value) any {
	if el, ok := r.elementOf(v); ok {
		return el
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}
