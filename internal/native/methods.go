package native

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/GriffinCanCode/motionbridge/internal/element"
)

// Method implements a native UI method. It runs with the tree locked and
// must not call back into the tree.
type Method func(n *html.Node, params map[string]any) element.Response

// registerMethod adds or replaces a UI method.
func (t *Tree) registerMethod(name string, m Method) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.methods[name] = m
}

// InvokeUIMethod implements element.Native. The response is computed
// against the current document and delivered on another goroutine.
func (t *Tree) InvokeUIMethod(ref element.NodeRef, method string, params map[string]any, callback func(element.Response)) {
	res := t.invoke(ref, method, params)
	if res.Code != element.CodeSuccess {
		t.logger.Debug("UI method failed", zap.String("method", method), zap.Int("code", res.Code))
	}
	if callback != nil {
		go callback(res)
	}
}

func (t *Tree) invoke(ref element.NodeRef, method string, params map[string]any) element.Response {
	n, ok := nodeOf(ref)
	if !ok {
		return element.Response{Code: element.CodeNodeNotFound, Data: "node not found"}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.methods[method]
	if !ok {
		return element.Response{Code: element.CodeMethodNotFound, Data: fmt.Sprintf("method not found: %s", method)}
	}
	res := m(n, params)
	if res.Code == element.CodeSuccess {
		t.ops = append(t.ops, Op{Kind: OpInvoke, Node: Describe(n), Name: method})
	}
	return res
}

func (t *Tree) registerBuiltins() {
	t.registerMethod("boundingClientRect", boundingClientRect)
	t.registerMethod("scrollIntoView", scrollIntoView)
}

// boundingClientRect approximates layout from the node's inline pixel
// values. Anything that is not a px length counts as zero.
func boundingClientRect(n *html.Node, _ map[string]any) element.Response {
	style, _ := getAttr(n, "style")
	decls, err := parseStyle(style)
	if err != nil {
		return element.Response{Code: element.CodeUnknown, Data: err.Error()}
	}

	px := make(map[string]float64)
	for _, d := range decls {
		if v, ok := pixels(d.Value); ok {
			px[d.Property] = v
		}
	}
	left, top := px["left"], px["top"]
	width, height := px["width"], px["height"]
	return element.Response{
		Code: element.CodeSuccess,
		Data: map[string]any{
			"id":     firstAttr(n, "id"),
			"left":   left,
			"top":    top,
			"width":  width,
			"height": height,
			"right":  left + width,
			"bottom": top + height,
		},
	}
}

var scrollBlocks = map[string]bool{"start": true, "center": true, "end": true, "nearest": true}

func scrollIntoView(_ *html.Node, params map[string]any) element.Response {
	opts, _ := params["scrollIntoViewOptions"].(map[string]any)
	if opts == nil {
		opts = params
	}
	if raw, ok := opts["block"]; ok {
		block, isString := raw.(string)
		if !isString || !scrollBlocks[block] {
			return element.Response{Code: element.CodeParamInvalid, Data: fmt.Sprintf("invalid block: %v", raw)}
		}
	}
	return element.Response{Code: element.CodeSuccess}
}

func pixels(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "0" {
		return 0, true
	}
	if !strings.HasSuffix(v, "px") {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(v, "px"), 64)
	return f, err == nil
}

func firstAttr(n *html.Node, name string) string {
	v, _ := getAttr(n, name)
	return v
}
