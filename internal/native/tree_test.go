package native

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/GriffinCanCode/motionbridge/internal/element"
)

const page = `<page>
  <view id="box" class="card" style="width: 100px; height: 50px; left: 10px">
    <text class="item">one</text>
    <text class="item">two</text>
    <text class="item">three</text>
  </view>
  <view id="empty"></view>
</page>`

func parse(t *testing.T, opts ...Option) *Tree {
	t.Helper()
	tree, err := ParseString(page, opts...)
	require.NoError(t, err)
	return tree
}

func query(t *testing.T, tree *Tree, selector string) element.NodeRef {
	t.Helper()
	ref := tree.QuerySelector(tree.Root(), selector, element.QueryOptions{})
	require.NotNil(t, ref, "no match for %s", selector)
	return ref
}

func receive(t *testing.T, ch <-chan element.Response) element.Response {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(time.Second):
		t.Fatal("no response")
		return element.Response{}
	}
}

func TestRootIsBody(t *testing.T) {
	tree := parse(t)
	root, ok := tree.Root().(*html.Node)
	require.True(t, ok)
	assert.Equal(t, "body", root.Data)
}

func TestQuerySelector(t *testing.T) {
	tree := parse(t)

	box := query(t, tree, "#box")
	node, ok := tree.Inspect(box)
	require.True(t, ok)
	assert.Equal(t, "view", node.Tag)
	assert.Equal(t, "view#box.card", node.Path)

	items := tree.QuerySelectorAll(box, ".item", element.QueryOptions{})
	assert.Len(t, items, 3)

	limited := tree.QuerySelectorAll(box, ".item", element.QueryOptions{Limit: 2})
	assert.Len(t, limited, 2)

	// Scoped: the empty view has no items.
	empty := query(t, tree, "#empty")
	assert.Empty(t, tree.QuerySelectorAll(empty, ".item", element.QueryOptions{}))
	assert.Nil(t, tree.QuerySelector(empty, ".item", element.QueryOptions{}))
}

func TestQueryExcludesScopeItself(t *testing.T) {
	tree := parse(t)
	box := query(t, tree, "#box")
	assert.Nil(t, tree.QuerySelector(box, "#box", element.QueryOptions{}))
}

func TestInvalidSelectorMatchesNothing(t *testing.T) {
	tree := parse(t)
	assert.Nil(t, tree.QuerySelector(tree.Root(), "[[", element.QueryOptions{}))
	assert.Empty(t, tree.QuerySelectorAll(tree.Root(), "[[", element.QueryOptions{}))
}

func TestQueryXPath(t *testing.T) {
	tree := parse(t)

	refs, err := tree.QueryXPath(`//text[@class="item"]`)
	require.NoError(t, err)
	assert.Len(t, refs, 3)

	_, err = tree.QueryXPath(`//[`)
	assert.Error(t, err)
}

func TestAttributes(t *testing.T) {
	tree := parse(t)
	box := query(t, tree, "#box")

	tree.SetAttribute(box, "text", "hello")
	tree.SetAttribute(box, "count", 3)
	tree.SetAttribute(box, "ratio", 0.5)
	tree.SetAttribute(box, "data", map[string]any{"a": 1})

	assert.Equal(t, "hello", tree.GetAttribute(box, "text"))
	assert.Equal(t, "3", tree.GetAttribute(box, "count"))
	assert.Equal(t, "0.5", tree.GetAttribute(box, "ratio"))
	assert.Equal(t, `{"a":1}`, tree.GetAttribute(box, "data"))
	assert.Nil(t, tree.GetAttribute(box, "missing"))
	assert.Equal(t, []string{"id", "class", "style", "text", "count", "ratio", "data"}, tree.GetAttributeNames(box))

	tree.SetAttribute(box, "text", "again")
	assert.Equal(t, "again", tree.GetAttribute(box, "text"))
}

func TestForeignRefsAreIgnored(t *testing.T) {
	tree := parse(t)
	tree.SetAttribute("not-a-node", "a", "b")
	tree.AddInlineStyle(42, "color", "red")
	assert.Nil(t, tree.GetAttribute("not-a-node", "a"))
	assert.Empty(t, tree.GetAttributeNames(nil))
	assert.Empty(t, tree.Pending())
}

func inspect(t *testing.T, tree *Tree, ref element.NodeRef) Node {
	t.Helper()
	n, ok := tree.Inspect(ref)
	require.True(t, ok)
	return n
}

func TestAddInlineStyleMerges(t *testing.T) {
	tree := parse(t)
	box := query(t, tree, "#box")

	tree.AddInlineStyle(box, "height", "80px")
	tree.AddInlineStyle(box, "background-color", "red")

	assert.Equal(t, [][2]string{
		{"width", "100px"},
		{"height", "80px"},
		{"left", "10px"},
		{"background-color", "red"},
	}, inspect(t, tree, box).Style)
	assert.Equal(t, "width: 100px; height: 80px; left: 10px; background-color: red;", tree.GetAttribute(box, "style"))
}

func TestFlushCommitsPendingWrites(t *testing.T) {
	tree := parse(t)
	events, cancel := tree.Subscribe(4)
	defer cancel()
	box := query(t, tree, "#box")

	tree.SetAttribute(box, "text", "A")
	tree.AddInlineStyle(box, "color", "red")
	tree.SetAttribute(box, "text", "B")

	assert.NotContains(t, tree.HTML(), `text="B"`)
	assert.Contains(t, tree.Live(), `text="B"`)
	require.Len(t, tree.Pending(), 3)

	tree.FlushElementTree()

	assert.Contains(t, tree.HTML(), `text="B"`)
	assert.Empty(t, tree.Pending())
	assert.Equal(t, uint64(1), tree.Seq())

	select {
	case event := <-events:
		assert.Equal(t, uint64(1), event.Seq)
		require.Len(t, event.Ops, 3)
		assert.Equal(t, Op{Kind: OpAttribute, Node: "view#box.card", Name: "text", Value: "A"}, event.Ops[0])
		assert.Equal(t, OpStyle, event.Ops[1].Kind)
		assert.Equal(t, "B", event.Ops[2].Value)
		assert.Contains(t, event.HTML, "color: red;")
	case <-time.After(time.Second):
		t.Fatal("no flush event")
	}
}

func TestSubscribeCancel(t *testing.T) {
	tree := parse(t)
	events, cancel := tree.Subscribe(1)
	cancel()
	cancel()

	tree.FlushElementTree()
	_, open := <-events
	assert.False(t, open)
}

func TestFullSubscriberDropsEvents(t *testing.T) {
	tree := parse(t)
	events, cancel := tree.Subscribe(1)
	defer cancel()

	tree.FlushElementTree()
	tree.FlushElementTree()

	event := <-events
	assert.Equal(t, uint64(1), event.Seq)
	assert.Equal(t, uint64(2), tree.Seq())
}

func TestBoundingClientRect(t *testing.T) {
	tree := parse(t)
	box := query(t, tree, "#box")
	results := make(chan element.Response, 1)

	tree.InvokeUIMethod(box, "boundingClientRect", nil, func(res element.Response) { results <- res })

	res := receive(t, results)
	require.Equal(t, element.CodeSuccess, res.Code)
	rect := res.Data.(map[string]any)
	assert.Equal(t, 10.0, rect["left"])
	assert.Equal(t, 100.0, rect["width"])
	assert.Equal(t, 110.0, rect["right"])
	assert.Equal(t, 50.0, rect["bottom"])
	assert.Equal(t, "box", rect["id"])
}

func TestUIMethodFailures(t *testing.T) {
	tree := parse(t)
	box := query(t, tree, "#box")
	results := make(chan element.Response, 1)
	callback := func(res element.Response) { results <- res }

	tree.InvokeUIMethod(box, "unknownMethod", nil, callback)
	assert.Equal(t, element.CodeMethodNotFound, receive(t, results).Code)

	tree.InvokeUIMethod("stale", "boundingClientRect", nil, callback)
	assert.Equal(t, element.CodeNodeNotFound, receive(t, results).Code)

	tree.InvokeUIMethod(box, "scrollIntoView", map[string]any{"block": "sideways"}, callback)
	assert.Equal(t, element.CodeParamInvalid, receive(t, results).Code)

	tree.InvokeUIMethod(box, "scrollIntoView", map[string]any{"scrollIntoViewOptions": map[string]any{"block": "center"}}, callback)
	assert.Equal(t, element.CodeSuccess, receive(t, results).Code)
	require.Len(t, tree.Pending(), 1)
	assert.Equal(t, OpInvoke, tree.Pending()[0].Kind)
}

func TestRegisterMethod(t *testing.T) {
	tree := parse(t)
	box := query(t, tree, "#box")
	tree.registerMethod("tagName", func(n *html.Node, _ map[string]any) element.Response {
		return element.Response{Code: element.CodeSuccess, Data: n.Data}
	})

	results := make(chan element.Response, 1)
	tree.InvokeUIMethod(box, "tagName", nil, func(res element.Response) { results <- res })
	assert.Equal(t, "view", receive(t, results).Data)
}

func TestSanitizeStripsScripts(t *testing.T) {
	src := `<view id="a" onclick="steal()" style="color: red">hi<script>alert(1)</script></view>`

	tree, err := ParseString(src, WithSanitize(true))
	require.NoError(t, err)
	assert.NotContains(t, tree.HTML(), "script")
	assert.NotContains(t, tree.HTML(), "onclick")

	a := query(t, tree, "#a")
	assert.Equal(t, "hi", func() string { n, _ := tree.Inspect(a); return n.Text }())

	raw, err := ParseString(src)
	require.NoError(t, err)
	assert.Contains(t, raw.HTML(), "onclick")
}

func TestLoadReplacesDocument(t *testing.T) {
	tree := parse(t)
	box := query(t, tree, "#box")
	tree.SetAttribute(box, "text", "pending")

	require.NoError(t, tree.Load(strings.NewReader(`<view id="other"></view>`)))
	assert.Empty(t, tree.Pending())
	assert.Nil(t, tree.QuerySelector(tree.Root(), "#box", element.QueryOptions{}))
	assert.NotNil(t, tree.QuerySelector(tree.Root(), "#other", element.QueryOptions{}))
}

func TestLoadRejectsOversizedPage(t *testing.T) {
	tree := New()
	err := tree.Load(strings.NewReader(strings.Repeat("a", MaxPageSize+1)))
	assert.Error(t, err)
}

func TestWithElementHost(t *testing.T) {
	tree := parse(t)
	deferrer := &queue{}
	host := element.NewHost(tree, deferrer)

	items := host.QuerySelectorAll(".item")
	require.Len(t, items, 3)
	items[1].SetStyleProperty("backgroundColor", "blue")
	items[1].SetAttribute("text", "changed")
	assert.Equal(t, uint64(0), tree.Seq())

	deferrer.drain()
	assert.Equal(t, uint64(1), tree.Seq())
	assert.Contains(t, tree.HTML(), `style="background-color: blue;"`)
	assert.Equal(t, "changed", items[1].GetAttribute("text"))
}

type queue struct{ fns []func() }

func (q *queue) QueueMicrotask(fn func()) { q.fns = append(q.fns, fn) }

func (q *queue) drain() {
	for len(q.fns) > 0 {
		fn := q.fns[0]
		q.fns = q.fns[1:]
		fn()
	}
}
