/*
Package thread provides the execution contexts the runtime is built on.

# Overview

A Loop is a single-threaded, cooperative event loop running on its own
goroutine. Two kinds exist:

  - Main: the privileged context. It owns the native element tree, the
    callable registry and every Element view.
  - Background: ordinary logic contexts. They never touch native nodes
    directly and reach the main context only through handles.

Work enters a loop as tasks (Post, Do, AfterFunc). After every task the
loop drains its microtask queue, so anything queued with QueueMicrotask
runs after the current synchronous turn and before the next task. The
element flush scheduler relies on exactly that boundary.

# Context Values

Every task receives a context.Context that carries the loop itself
(FromContext, IsMain) and whatever values were installed with WithContext.
The main loop carries its callable registry this way, which is how a
handle is resolved against the registry of the context that is currently
running.

# Usage Example

	main := thread.New("main", thread.Main, thread.WithLogger(logger))
	main.Start()
	defer main.Stop()

	v, err := main.Do(ctx, func(ctx context.Context) (any, error) {
		return thread.IsMain(ctx), nil
	})
*/
package thread
