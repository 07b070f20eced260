package native

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/GriffinCanCode/motionbridge/internal/element"
)

// Node is a serializable description of one element node.
type Node struct {
	Tag        string            `json:"tag"`
	Path       string            `json:"path"`
	Attributes map[string]string `json:"attributes"`
	Style      [][2]string       `json:"style,omitempty"`
	Text       string            `json:"text,omitempty"`
}

// Inspect describes ref. ok is false when ref is not an element of a tree.
func (t *Tree) Inspect(ref element.NodeRef) (Node, bool) {
	n, ok := nodeOf(ref)
	if !ok {
		return Node{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		attrs[a.Key] = a.Val
	}
	return Node{
		Tag:        n.Data,
		Path:       Describe(n),
		Attributes: attrs,
		Style:      inlineStyle(n),
		Text:       strings.TrimSpace(text(n)),
	}, true
}

// Describe returns a short selector-like label such as "view#box.card".
func Describe(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.DocumentNode {
		return "#document"
	}
	var b strings.Builder
	b.WriteString(n.Data)
	if id, ok := getAttr(n, "id"); ok && id != "" {
		b.WriteByte('#')
		b.WriteString(id)
	}
	if class, ok := getAttr(n, "class"); ok {
		for _, c := range strings.Fields(class) {
			b.WriteByte('.')
			b.WriteString(c)
		}
	}
	return b.String()
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
