package hooks

import (
	"context"
	"sync"

	"github.com/GriffinCanCode/motionbridge/internal/registry"
	"github.com/GriffinCanCode/motionbridge/internal/thread"
)

// Registered keeps one owner's callable reachable through a stable handle.
//
// Create it once per owner (the equivalent of a ref that survives renders)
// and call Update on every render:
//
//	func (c *box) Init(owner hooks.Owner) {
//	    c.onTap = hooks.UseRegistered(owner, reg)
//	}
//
//	func (c *box) Render(ctx context.Context) {
//	    h := c.onTap.Update(ctx, c.handleTap)
//	    // hand h to code running in another context
//	}
type Registered struct {
	reg    *registry.Registry
	handle registry.Handle

	mu         sync.Mutex
	registered bool
	disposed   bool
}

// UseRegistered allocates the owner's handle and unregisters it from reg
// when the owner is disposed.
func UseRegistered(owner Owner, reg *registry.Registry) *Registered {
	r := &Registered{
		reg:    reg,
		handle: reg.Reserve(),
	}
	owner.OnDispose(r.dispose)
	return r
}

// Handle returns the owner's handle. It never changes.
func (r *Registered) Handle() registry.Handle {
	return r.handle
}

// Update binds the handle to fn when ctx is the privileged context and is a
// no-op anywhere else. Go funcs carry no comparable identity, so every
// update on the privileged context rebinds; the handle stays the same.
func (r *Registered) Update(ctx context.Context, fn registry.Func) registry.Handle {
	if !thread.IsMain(ctx) || fn == nil {
		return r.handle
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return r.handle
	}
	r.reg.Set(r.handle, fn)
	r.registered = true
	return r.handle
}

// Registered reports whether the handle is currently bound.
func (r *Registered) Registered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registered
}

func (r *Registered) dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disposed = true
	if !r.registered {
		return
	}
	r.reg.Unregister(r.handle)
	r.registered = false
}
