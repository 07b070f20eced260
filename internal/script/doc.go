/*
Package script runs main-thread scripts against the element tree.

# Overview

A Runtime owns one goja VM bound to the privileged loop. Every entry into
the VM (Execute, timers, microtasks, promise reactions, registered
callables) happens as a task on that loop, so scripts see the same
single-threaded model as the element layer:

  - Writes through element bindings apply immediately and coalesce into
    one flush per turn
  - invoke returns a Promise settled on a later turn
  - Callables registered from a script are reachable through the
    registry by handle from any execution context

# Globals

	console              log, info, warn, error, debug
	registerCallable     fn -> handle (process lifetime)
	runOnRegistered      handle -> function calling whatever the handle resolves to
	useRegistered        owner-scoped handle with update(fn) and dispose()
	lynx, document       querySelector, querySelectorAll
	window               getComputedStyle(el)
	queueMicrotask       runs fn at the end of the current turn
	setTimeout           fn, ms -> id; clearTimeout(id)
	performance          now() in milliseconds
	animate, stagger     motion entry points; times in seconds

Node-style globals (require, process, module, exports) are removed.

# Usage Example

	rt, err := script.New(b, host, m, script.DefaultConfig())
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := rt.Execute(ctx, `
		const box = lynx.querySelector('#box');
		animate(box, { rotate: 90 }, { type: 'spring', repeat: Infinity });
	`)
*/
package script
