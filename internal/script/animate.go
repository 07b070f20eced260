package script

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/motionbridge/internal/element"
	"github.com/GriffinCanCode/motionbridge/internal/motion"
	"github.com/GriffinCanCode/motionbridge/internal/motion/tween"
)

func seconds(v goja.Value) time.Duration {
	return time.Duration(v.ToFloat() * float64(time.Second))
}

func isNumber(v goja.Value) bool {
	switch v.Export().(type) {
	case int64, float64:
		return true
	default:
		return false
	}
}

func present(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
}

// keyframeValue renders a keyframe as CSS text. Bare numbers keep no unit;
// the engine adds the property's default unit.
func keyframeValue(v goja.Value) string {
	switch n := v.Export().(type) {
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return v.String()
	}
}

// animate(target, keyframes, options) or animate(from, to, options).
// target is an element, an array of elements or a selector.
func (r *Runtime) animate(call goja.FunctionCall) goja.Value {
	ctx := r.loop.Context()
	first := call.Argument(0)

	opts, hooks, err := r.animationOptions(call.Argument(2))
	if err != nil {
		r.throw(err)
	}

	if isNumber(first) {
		if hooks.onUpdate == nil {
			hooks.onUpdate = func(float64) {}
		}
		c, err := r.motion.AnimateValue(ctx, first.ToFloat(), call.Argument(1).ToFloat(), opts, hooks.onUpdate)
		if err != nil {
			r.throw(err)
		}
		return r.controlsObject([]*motion.Controls{c})
	}

	targets := r.targets(first)
	keyframes := r.keyframes(call.Argument(1))
	controls := make([]*motion.Controls, 0, len(targets))
	for i, el := range targets {
		o := opts
		if hooks.delay != nil {
			o.Delay = hooks.delay(i, len(targets))
		}
		c, err := r.motion.Animate(ctx, el, keyframes, o)
		if err != nil {
			r.throw(err)
		}
		controls = append(controls, c)
	}
	return r.controlsObject(controls)
}

type animationHooks struct {
	onUpdate func(float64)
	delay    func(index, total int) time.Duration
}

func (r *Runtime) animationOptions(v goja.Value) (tween.Options, animationHooks, error) {
	var (
		opts  tween.Options
		hooks animationHooks
	)
	if !present(v) {
		return opts, hooks, nil
	}
	obj := v.ToObject(r.vm)

	for _, key := range obj.Keys() {
		val := obj.Get(key)
		if !present(val) {
			continue
		}
		switch key {
		case "duration":
			opts.Duration = seconds(val)
		case "delay":
			if fn, ok := goja.AssertFunction(val); ok {
				hooks.delay = func(index, total int) time.Duration {
					res, err := fn(goja.Undefined(), r.vm.ToValue(index), r.vm.ToValue(total))
					if err != nil {
						r.throw(err)
					}
					return seconds(res)
				}
				continue
			}
			opts.Delay = seconds(val)
		case "repeat":
			if n := val.ToFloat(); math.IsInf(n, 1) {
				opts.Repeat = tween.Infinite
			} else {
				opts.Repeat = int(n)
			}
		case "repeatDelay":
			opts.RepeatDelay = seconds(val)
		case "type":
			opts.Type = val.String()
		case "ease":
			opts.Ease = val.String()
		case "stiffness":
			opts.Stiffness = val.ToFloat()
		case "damping":
			opts.Damping = val.ToFloat()
		case "mass":
			opts.Mass = val.ToFloat()
		case "times":
			if err := r.vm.ExportTo(val, &opts.Offsets); err != nil {
				return opts, hooks, fmt.Errorf("animate: times: %w", err)
			}
		case "onUpdate":
			fn, ok := goja.AssertFunction(val)
			if !ok {
				return opts, hooks, fmt.Errorf("animate: onUpdate is not a function")
			}
			hooks.onUpdate = func(latest float64) {
				r.callback("onUpdate", fn, r.vm.ToValue(latest))
			}
		}
	}
	return opts, hooks, nil
}

func (r *Runtime) targets(v goja.Value) []*element.Element {
	if el, ok := r.elementOf(v); ok {
		return []*element.Element{el}
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		if present(v) {
			return r.host.QuerySelectorAll(v.String())
		}
		r.throw(fmt.Errorf("animate: no target"))
	}
	if obj.ClassName() != "Array" {
		r.throw(fmt.Errorf("animate: cannot animate %s", obj.ClassName()))
	}
	n := int(obj.Get("length").ToInteger())
	els := make([]*element.Element, 0, n)
	for i := 0; i < n; i++ {
		if el, ok := r.elementOf(obj.Get(strconv.Itoa(i))); ok {
			els = append(els, el)
		}
	}
	return els
}

func (r *Runtime) keyframes(v goja.Value) tween.Keyframes {
	obj, ok := v.(*goja.Object)
	if !ok {
		r.throw(fmt.Errorf("animate: keyframes must be an object"))
	}
	kf := make(tween.Keyframes)
	for _, key := range obj.Keys() {
		val := obj.Get(key)
		if !present(val) {
			continue
		}
		list, isObj := val.(*goja.Object)
		if !isObj || list.ClassName() != "Array" {
			kf[key] = []string{keyframeValue(val)}
			continue
		}
		n := int(list.Get("length").ToInteger())
		values := make([]string, 0, n)
		for i := 0; i < n; i++ {
			values = append(values, keyframeValue(list.Get(strconv.Itoa(i))))
		}
		kf[key] = values
	}
	return kf
}

// controlsObject exposes { stop(), finished } where finished is a Promise
// settled once every animation has ended. The animations are stopped when
// the VM is reset or closed.
func (r *Runtime) controlsObject(controls []*motion.Controls) goja.Value {
	vm := r.vm
	obj := vm.NewObject()
	_ = obj.Set("stop", func(goja.FunctionCall) goja.Value {
		for _, c := range controls {
			if err := c.Stop(r.loop.Context()); err != nil {
				r.throw(err)
			}
		}
		return goja.Undefined()
	})

	promise, resolve, _ := vm.NewPromise()
	_ = obj.Set("finished", promise)
	for _, c := range controls {
		r.animations[c] = struct{}{}
	}
	go func() {
		for _, c := range controls {
			<-c.Finished()
		}
		r.loop.Post(func(context.Context) {
			for _, c := range controls {
				delete(r.animations, c)
			}
			if r.closed || r.vm != vm {
				return
			}
			if err := resolve(goja.Undefined()); err != nil {
				r.appendConsole("error", err.Error())
			}
		})
	}()
	return obj
}

// stagger(each, { startDelay, from, ease }) returns (index, total) =>
// delay in seconds.
func (r *Runtime) stagger(call goja.FunctionCall) goja.Value {
	opts := tween.StaggerOptions{}
	if o := call.Argument(1); present(o) {
		obj := o.ToObject(r.vm)
		if v := obj.Get("startDelay"); present(v) {
			opts.Start = seconds(v)
		}
		if v := obj.Get("from"); present(v) {
			if isNumber(v) {
				opts.From = tween.FromIndex
				opts.Index = int(v.ToInteger())
			} else {
				opts.From = v.String()
			}
		}
		if v := obj.Get("ease"); present(v) {
			opts.Ease = v.String()
		}
	}

	delay, err := r.motion.Stagger(r.loop.Context(), seconds(call.Argument(0)), opts)
	if err != nil {
		r.throw(err)
	}
	return r.vm.ToValue(func(inner goja.FunctionCall) goja.Value {
		index := int(inner.Argument(0).ToInteger())
		total := 1
		if t := inner.Argument(1); present(t) {
			total = int(t.ToInteger())
		}
		return r.vm.ToValue(delay(index, total).Seconds())
	})
}
