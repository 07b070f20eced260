package native

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/GriffinCanCode/motionbridge/internal/element"
)

// QuerySelector implements element.Native. Only descendants of ref are
// considered. An invalid selector matches nothing.
func (t *Tree) QuerySelector(ref element.NodeRef, selector string, opts element.QueryOptions) element.NodeRef {
	opts.Limit = 1
	matches := t.query(ref, selector, opts)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// QuerySelectorAll implements element.Native.
func (t *Tree) QuerySelectorAll(ref element.NodeRef, selector string, opts element.QueryOptions) []element.NodeRef {
	matches := t.query(ref, selector, opts)
	out := make([]element.NodeRef, len(matches))
	for i, n := range matches {
		out[i] = n
	}
	return out
}

func (t *Tree) query(ref element.NodeRef, selector string, opts element.QueryOptions) []*html.Node {
	scope, ok := scopeOf(ref)
	if !ok {
		return nil
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		t.logger.Debug("Invalid selector", zap.String("selector", selector), zap.Error(err))
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	nodes := goquery.NewDocumentFromNode(scope).FindMatcher(sel).Nodes
	if opts.Limit > 0 && len(nodes) > opts.Limit {
		nodes = nodes[:opts.Limit]
	}
	return nodes
}

// QueryXPath evaluates expr against the whole document and returns the
// matching element nodes.
func (t *Tree) QueryXPath(expr string) ([]element.NodeRef, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	nodes, err := htmlquery.QueryAll(t.doc.Get(0), expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}
	out := make([]element.NodeRef, 0, len(nodes))
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			out = append(out, n)
		}
	}
	return out, nil
}

func scopeOf(ref element.NodeRef) (*html.Node, bool) {
	n, ok := ref.(*html.Node)
	if !ok || n == nil {
		return nil, false
	}
	return n, n.Type == html.ElementNode || n.Type == html.DocumentNode
}
