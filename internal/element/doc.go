// Package element provides the view type for one native UI node owned by
// the privileged context.
//
// An Element never exposes its native reference. Writes reach the native
// layer immediately while the signal that materializes them is coalesced by
// a Scheduler into one flush per turn:
//
//	host := element.NewHost(tree, mainLoop)
//	box := host.QuerySelector("#box")
//	box.SetAttribute("text", "A")
//	box.SetStyleProperty("backgroundColor", "red")
//	box.SetAttribute("text", "B")
//	// one FlushElementTree after the current task
//
// Elements are not safe for use outside the privileged context.
package element
