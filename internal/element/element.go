package element

import (
	"fmt"
	"maps"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/motionbridge/internal/thread"
)

// Element is a view of one native node. It does not own the node.
type Element struct {
	host   *Host
	ref    NodeRef
	styles map[string]string
}

// StyleProperty is one style write.
type StyleProperty struct {
	Name  string
	Value string
}

// Kebab converts a camel-case property name to its wire form by putting a
// hyphen before every upper-case letter and lower-casing it. Names without
// upper-case letters are returned unchanged.
func Kebab(name string) string {
	if strings.IndexFunc(name, unicode.IsUpper) < 0 {
		return name
	}
	var b strings.Builder
	b.Grow(len(name) + 4)
	for _, r := range name {
		if unicode.IsUpper(r) {
			b.WriteByte('-')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SetAttribute writes an attribute and schedules a flush.
func (e *Element) SetAttribute(name string, value any) {
	e.host.native.SetAttribute(e.ref, name, value)
	e.host.metrics.RecordMutation("attribute")
	e.host.scheduler.Schedule()
}

// SetStyleProperty writes one inline style property and schedules a flush.
func (e *Element) SetStyleProperty(name, value string) {
	property := Kebab(name)
	e.host.native.AddInlineStyle(e.ref, property, value)
	e.styles[property] = value
	e.host.metrics.RecordMutation("style")
	e.host.scheduler.Schedule()
}

// SetStyleProperties applies props in order.
func (e *Element) SetStyleProperties(props ...StyleProperty) {
	for _, p := range props {
		e.SetStyleProperty(p.Name, p.Value)
	}
}

var computedDefaults = map[string]string{
	"display":          "flex",
	"position":         "relative",
	"width":            "auto",
	"height":           "auto",
	"margin":           "0",
	"padding":          "0",
	"background-color": "transparent",
	"color":            "#000000",
	"font-size":        "14px",
	"opacity":          "1",
	"transform":        "none",
	"transition":       "none",
}

// GetComputedStyle approximates the computed style from baseline defaults
// and the values written through this view. It never reads the native tree.
func (e *Element) GetComputedStyle() map[string]string {
	out := maps.Clone(computedDefaults)
	maps.Copy(out, e.styles)
	return out
}

// Style returns the style accessor surface of the element.
func (e *Element) Style() Style {
	return Style{el: e}
}

// GetAttribute reads an attribute from the native node.
func (e *Element) GetAttribute(name string) any {
	return e.host.native.GetAttribute(e.ref, name)
}

// GetAttributeNames lists the native node's attributes.
func (e *Element) GetAttributeNames() []string {
	return e.host.native.GetAttributeNames(e.ref)
}

// QuerySelector returns a view of the first matching descendant, or nil.
func (e *Element) QuerySelector(selector string) *Element {
	return e.host.Wrap(e.host.native.QuerySelector(e.ref, selector, QueryOptions{}))
}

// QuerySelectorAll returns fresh views of every matching descendant. The
// result is empty, never nil, when nothing matches.
func (e *Element) QuerySelectorAll(selector string) []*Element {
	refs := e.host.native.QuerySelectorAll(e.ref, selector, QueryOptions{})
	out := make([]*Element, 0, len(refs))
	for _, ref := range refs {
		if el := e.host.Wrap(ref); el != nil {
			out = append(out, el)
		}
	}
	return out
}

// Invoke calls a native UI method. The future resolves with the response
// data on CodeSuccess and fails with an *InvokeError otherwise.
func (e *Element) Invoke(method string, params map[string]any) *thread.Future[any] {
	if params == nil {
		params = map[string]any{}
	}
	future, settle := thread.NewFuture[any]()
	host := e.host
	host.native.InvokeUIMethod(e.ref, method, params, func(res Response) {
		ok := res.Code == CodeSuccess
		host.metrics.RecordUIMethod(method, ok)
		if ok {
			settle(res.Data, nil)
			return
		}
		err := &InvokeError{Method: method, Response: res}
		host.logger.Debug("UI method failed", zap.String("method", method), zap.Int("code", res.Code))
		settle(nil, err)
	})
	host.metrics.RecordMutation("invoke")
	host.scheduler.Schedule()
	return future
}

// String describes the element without its native reference.
func (e Element) String() string {
	return fmt.Sprintf("Element{styles: %d}", len(e.styles))
}

// Format prints String for every verb, so neither the element nor a copy
// of it ever prints the native reference.
func (e Element) Format(f fmt.State, _ rune) {
	_, _ = fmt.Fprint(f, e.String())
}

// MarshalJSON always fails; see ErrNotTransferable.
func (e *Element) MarshalJSON() ([]byte, error) {
	return nil, ErrNotTransferable
}
