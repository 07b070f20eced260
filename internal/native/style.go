package native

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/GriffinCanCode/motionbridge/internal/element"
)

// AddInlineStyle implements element.Native. The property is merged into
// the node's style attribute, replacing an earlier declaration of the same
// property in place.
func (t *Tree) AddInlineStyle(ref element.NodeRef, property, value string) {
	n, ok := nodeOf(ref)
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	current, _ := getAttr(n, "style")
	decls, err := parseStyle(current)
	if err != nil {
		t.logger.Debug("Dropping unparsable inline style", zap.String("style", current), zap.Error(err))
		decls = nil
	}

	replaced := false
	for _, d := range decls {
		if d.Property == property {
			d.Value = value
			d.Important = false
			replaced = true
		}
	}
	if !replaced {
		decls = append(decls, &css.Declaration{Property: property, Value: value})
	}

	setAttr(n, "style", formatStyle(decls))
	t.ops = append(t.ops, Op{Kind: OpStyle, Node: Describe(n), Name: property, Value: value})
}

// inlineStyle returns the parsed style attribute of n as property/value
// pairs in declaration order. Call with the tree locked.
func inlineStyle(n *html.Node) [][2]string {
	current, _ := getAttr(n, "style")
	decls, err := parseStyle(current)
	if err != nil || len(decls) == 0 {
		return nil
	}
	out := make([][2]string, 0, len(decls))
	for _, d := range decls {
		out = append(out, [2]string{d.Property, d.Value})
	}
	return out
}

func parseStyle(style string) ([]*css.Declaration, error) {
	style = strings.TrimSpace(style)
	if style == "" {
		return nil, nil
	}
	if !strings.HasSuffix(style, ";") {
		style += ";"
	}
	return parser.ParseDeclarations(style)
}

func formatStyle(decls []*css.Declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, " ")
}

// stringify renders an attribute value the way the native layer stores it.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		s, err := sonic.MarshalString(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return s
	}
}
