package script

import (
	"context"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/motionbridge/internal/element"
)

// styleAccessors are the named properties of el.style.
var styleAccessors = []string{
	"backgroundColor", "color", "fontSize", "width", "height", "margin",
	"padding", "display", "position", "top", "left", "right", "bottom",
}

// elementOf returns the element behind a script value.
func (r *Runtime) elementOf(v goja.Value) (*element.Element, bool) {
	obj, ok := v.(*goja.Object)
	if !ok || obj == nil {
		return nil, false
	}
	inner := obj.GetSymbol(r.elementKey)
	if inner == nil || goja.IsUndefined(inner) {
		return nil, false
	}
	el, ok := inner.Export().(*element.Element)
	return el, ok && el != nil
}

// toValue converts Go data for a script, wrapping elements.
func (r *Runtime) toValue(v any) goja.Value {
	switch v := v.(type) {
	case nil:
		return goja.Undefined()
	case *element.Element:
		return r.wrapElement(v)
	case []*element.Element:
		return r.wrapElements(v)
	default:
		return r.vm.ToValue(v)
	}
}

func (r *Runtime) wrapElements(els []*element.Element) goja.Value {
	items := make([]any, len(els))
	for i, el := range els {
		items[i] = r.wrapElement(el)
	}
	return r.vm.NewArray(items...)
}

// wrapElement builds the script view of el. The native reference never
// reaches the script; the element itself is kept under a private symbol.
func (r *Runtime) wrapElement(el *element.Element) goja.Value {
	if el == nil {
		return goja.Null()
	}
	vm := r.vm
	obj := vm.NewObject()
	_ = obj.SetSymbol(r.elementKey, el)

	methods := map[string]func(goja.FunctionCall) goja.Value{
		"setAttribute": func(call goja.FunctionCall) goja.Value {
			el.SetAttribute(call.Argument(0).String(), r.exportArg(call.Argument(1)))
			return goja.Undefined()
		},
		"getAttribute": func(call goja.FunctionCall) goja.Value {
			v := el.GetAttribute(call.Argument(0).String())
			if v == nil {
				return goja.Null()
			}
			return vm.ToValue(v)
		},
		"getAttributeNames": func(goja.FunctionCall) goja.Value {
			return vm.ToValue(el.GetAttributeNames())
		},
		"setStyleProperty": func(call goja.FunctionCall) goja.Value {
			el.SetStyleProperty(call.Argument(0).String(), call.Argument(1).String())
			return goja.Undefined()
		},
		"setStyleProperties": func(call goja.FunctionCall) goja.Value {
			el.SetStyleProperties(r.styleProperties(call.Argument(0))...)
			return goja.Undefined()
		},
		"getComputedStyle": func(goja.FunctionCall) goja.Value {
			return vm.ToValue(el.GetComputedStyle())
		},
		"querySelector": func(call goja.FunctionCall) goja.Value {
			return r.wrapElement(el.QuerySelector(call.Argument(0).String()))
		},
		"querySelectorAll": func(call goja.FunctionCall) goja.Value {
			return r.wrapElements(el.QuerySelectorAll(call.Argument(0).String()))
		},
		"invoke": func(call goja.FunctionCall) goja.Value {
			params, _ := r.exportArg(call.Argument(1)).(map[string]any)
			return r.invoke(el, call.Argument(0).String(), params)
		},
		"toString": func(goja.FunctionCall) goja.Value {
			return vm.ToValue(el.String())
		},
	}
	for name, fn := range methods {
		_ = obj.Set(name, fn)
	}
	_ = obj.Set("style", r.styleObject(el))
	return obj
}

// styleProperties reads a plain object in key order, skipping undefined
// entries.
func (r *Runtime) styleProperties(v goja.Value) []element.StyleProperty {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	keys := obj.Keys()
	props := make([]element.StyleProperty, 0, len(keys))
	for _, k := range keys {
		val := obj.Get(k)
		if val == nil || goja.IsUndefined(val) {
			continue
		}
		props = append(props, element.StyleProperty{Name: k, Value: val.String()})
	}
	return props
}

func (r *Runtime) styleObject(el *element.Element) *goja.Object {
	vm := r.vm
	style := el.Style()
	obj := vm.NewObject()

	for _, name := range styleAccessors {
		getter := vm.ToValue(func(goja.FunctionCall) goja.Value {
			return vm.ToValue(style.Get(name))
		})
		setter := vm.ToValue(func(call goja.FunctionCall) goja.Value {
			style.Set(name, call.Argument(0).String())
			return goja.Undefined()
		})
		_ = obj.DefineAccessorProperty(name, getter, setter, goja.FLAG_FALSE, goja.FLAG_TRUE)
	}
	_ = obj.Set("setProperty", func(call goja.FunctionCall) goja.Value {
		style.SetProperty(call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	_ = obj.Set("getPropertyValue", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(style.GetPropertyValue(call.Argument(0).String()))
	})
	return obj
}

// invoke calls a native UI method and returns a Promise settled on a
// later turn of the loop.
func (r *Runtime) invoke(el *element.Element, method string, params map[string]any) goja.Value {
	promise, resolve, reject := r.vm.NewPromise()
	vm := r.vm

	el.Invoke(method, params).Then(r.loop, func(_ context.Context, data any, err error) {
		if r.closed || r.vm != vm {
			return
		}
		var settleErr error
		if err != nil {
			settleErr = reject(vm.NewGoError(err))
		} else {
			settleErr = resolve(data)
		}
		if settleErr != nil {
			r.logger.Warn("Promise reaction failed", zap.String("method", method), zap.Error(settleErr))
			r.appendConsole("error", settleErr.Error())
		}
	})
	return vm.ToValue(promise)
}
