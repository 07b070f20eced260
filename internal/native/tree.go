package native

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/GriffinCanCode/motionbridge/internal/element"
)

// MaxPageSize limits a loaded page to 10MB.
const MaxPageSize = 10 * 1024 * 1024

// Tree is an HTML document driven through element.Native.
type Tree struct {
	mu       sync.Mutex
	doc      *goquery.Document
	ops      []Op
	seq      uint64
	rendered string
	methods  map[string]Method
	subs     map[uint64]chan FlushEvent
	nextSub  uint64

	sanitize bool
	policy   *bluemonday.Policy
	logger   *zap.Logger
}

var _ element.Native = (*Tree)(nil)

// Option configures a Tree.
type Option func(*Tree)

// WithLogger sets the tree logger.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tree) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithSanitize strips scripts and unknown markup from loaded pages.
func WithSanitize(enabled bool) Option {
	return func(t *Tree) {
		t.sanitize = enabled
	}
}

// New creates a tree holding an empty page.
func New(opts ...Option) *Tree {
	t := &Tree{
		methods: make(map[string]Method),
		subs:    make(map[uint64]chan FlushEvent),
		policy:  pagePolicy(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.registerBuiltins()

	doc, _ := goquery.NewDocumentFromReader(strings.NewReader("<page></page>"))
	t.doc = doc
	t.rendered = t.render()
	return t
}

// Parse creates a tree from an HTML page.
func Parse(r io.Reader, opts ...Option) (*Tree, error) {
	t := New(opts...)
	if err := t.Load(r); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseString is Parse over a string.
func ParseString(page string, opts ...Option) (*Tree, error) {
	return Parse(strings.NewReader(page), opts...)
}

// Load replaces the document. Views of the previous document stay valid
// but no longer reach the tree. Pending operations are dropped.
func (t *Tree) Load(r io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(r, MaxPageSize+1))
	if err != nil {
		return fmt.Errorf("failed to read page: %w", err)
	}
	if len(data) > MaxPageSize {
		return fmt.Errorf("page exceeds maximum size of %d bytes", MaxPageSize)
	}

	var src io.Reader = bytes.NewReader(data)
	if utf8Reader, err := charset.NewReader(src, "text/html; charset="+detectCharset(data)); err == nil {
		src = utf8Reader
	} else {
		src = bytes.NewReader(data)
	}
	if t.sanitize {
		src = t.policy.SanitizeReader(src)
	}

	doc, err := goquery.NewDocumentFromReader(src)
	if err != nil {
		return fmt.Errorf("failed to parse page: %w", err)
	}

	t.mu.Lock()
	t.doc = doc
	t.ops = nil
	t.rendered = t.render()
	t.mu.Unlock()

	t.logger.Debug("Page loaded", zap.Int("bytes", len(data)), zap.Bool("sanitized", t.sanitize))
	return nil
}

// Root implements element.Native. The root is the page body when present.
func (t *Tree) Root() element.NodeRef {
	t.mu.Lock()
	defer t.mu.Unlock()
	if body := t.doc.Find("body"); body.Length() > 0 {
		return body.Get(0)
	}
	return t.doc.Get(0)
}

// SetAttribute implements element.Native.
func (t *Tree) SetAttribute(ref element.NodeRef, name string, value any) {
	n, ok := nodeOf(ref)
	if !ok {
		return
	}
	v := stringify(value)

	t.mu.Lock()
	defer t.mu.Unlock()
	setAttr(n, name, v)
	t.ops = append(t.ops, Op{Kind: OpAttribute, Node: Describe(n), Name: name, Value: v})
}

// GetAttribute implements element.Native. It returns nil for a missing
// attribute.
func (t *Tree) GetAttribute(ref element.NodeRef, name string) any {
	n, ok := nodeOf(ref)
	if !ok {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := getAttr(n, name); ok {
		return v
	}
	return nil
}

// GetAttributeNames implements element.Native.
func (t *Tree) GetAttributeNames(ref element.NodeRef) []string {
	n, ok := nodeOf(ref)
	if !ok {
		return []string{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(n.Attr))
	for _, a := range n.Attr {
		names = append(names, a.Key)
	}
	return names
}

// HTML returns the snapshot rendered by the last flush.
func (t *Tree) HTML() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rendered
}

// Live renders the document including unflushed writes.
func (t *Tree) Live() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.render()
}

func (t *Tree) render() string {
	var buf bytes.Buffer
	for _, n := range t.doc.Nodes {
		if err := html.Render(&buf, n); err != nil {
			t.logger.Warn("Render failed", zap.Error(err))
		}
	}
	return buf.String()
}

func pagePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("page", "view", "text", "image", "scroll-view", "list", "list-item")
	p.AllowAttrs("id", "class", "style", "text", "src").Globally()
	p.AllowStyles(
		"display", "position", "width", "height", "margin", "padding",
		"top", "left", "right", "bottom", "color", "background-color",
		"font-size", "opacity", "transform", "transition", "border-radius",
	).Globally()
	return p
}

func detectCharset(data []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

func nodeOf(ref element.NodeRef) (*html.Node, bool) {
	n, ok := ref.(*html.Node)
	return n, ok && n != nil && n.Type == html.ElementNode
}

func getAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}
