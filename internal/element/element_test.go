package element_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/motionbridge/internal/element"
	"github.com/GriffinCanCode/motionbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/motionbridge/internal/testutil"
	"github.com/GriffinCanCode/motionbridge/internal/thread"
)

func newHost(t *testing.T) (*element.Host, *testutil.MockNative, *testutil.ManualDeferrer) {
	t.Helper()
	native := testutil.NewMockNative(t)
	deferrer := &testutil.ManualDeferrer{}
	return element.NewHost(native, deferrer), native, deferrer
}

func TestKebab(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"backgroundColor", "background-color"},
		{"width", "width"},
		{"background-color", "background-color"},
		{"borderTopLeftRadius", "border-top-left-radius"},
		{"WebkitTransform", "-webkit-transform"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, element.Kebab(tt.in))
		})
	}
}

func TestWritesCoalesceIntoOneFlush(t *testing.T) {
	host, native, deferrer := newHost(t)
	el := host.Wrap("node")

	el.SetAttribute("text", "A")
	el.SetStyleProperty("color", "red")
	el.SetAttribute("text", "B")

	assert.True(t, host.Scheduler().Pending())
	assert.Equal(t, 1, deferrer.Len())
	native.AssertNotCalled(t, "FlushElementTree")

	deferrer.Drain()

	assert.False(t, host.Scheduler().Pending())
	assert.Equal(t, []string{"SetAttribute", "AddInlineStyle", "SetAttribute", "FlushElementTree"}, native.Methods())
	native.AssertNumberOfCalls(t, "FlushElementTree", 1)
	assert.Equal(t, "A", native.Calls[0].Arguments.Get(2))
	assert.Equal(t, "B", native.Calls[2].Arguments.Get(2))
}

func TestCoalescingAcrossElements(t *testing.T) {
	host, native, deferrer := newHost(t)
	a := host.Wrap("a")
	b := host.Wrap("b")

	a.SetStyleProperty("opacity", "0")
	b.SetStyleProperty("opacity", "1")
	deferrer.Drain()
	native.AssertNumberOfCalls(t, "FlushElementTree", 1)

	// The next turn gets its own flush.
	a.SetAttribute("text", "again")
	deferrer.Drain()
	native.AssertNumberOfCalls(t, "FlushElementTree", 2)
}

func TestSetStylePropertiesKeepsOrder(t *testing.T) {
	host, native, deferrer := newHost(t)
	el := host.Wrap("node")

	el.SetStyleProperties(
		element.StyleProperty{Name: "width", Value: "10px"},
		element.StyleProperty{Name: "backgroundColor", Value: "blue"},
		element.StyleProperty{Name: "fontSize", Value: "12px"},
	)
	deferrer.Drain()

	var written []string
	for _, c := range native.Calls {
		if c.Method == "AddInlineStyle" {
			written = append(written, c.Arguments.String(1))
		}
	}
	assert.Equal(t, []string{"width", "background-color", "font-size"}, written)
	native.AssertNumberOfCalls(t, "FlushElementTree", 1)
}

func TestGetComputedStyle(t *testing.T) {
	host, native, _ := newHost(t)
	el := host.Wrap("node")

	defaults := el.GetComputedStyle()
	assert.Equal(t, "flex", defaults["display"])
	assert.Equal(t, "transparent", defaults["background-color"])
	assert.Equal(t, "#000000", defaults["color"])
	assert.Len(t, defaults, 12)

	el.SetStyleProperty("color", "#fff")
	el.SetStyleProperty("backgroundColor", "red")

	computed := el.GetComputedStyle()
	assert.Equal(t, "#fff", computed["color"])
	assert.Equal(t, "red", computed["background-color"])
	assert.Equal(t, "flex", computed["display"])
	assert.Len(t, computed, 12)

	// Mutating the result does not leak into later reads.
	computed["display"] = "none"
	assert.Equal(t, "flex", el.GetComputedStyle()["display"])

	native.AssertNotCalled(t, "GetAttribute", mock.Anything, mock.Anything)
}

func TestStyleSurface(t *testing.T) {
	host, native, deferrer := newHost(t)
	el := host.Wrap("node")
	style := el.Style()

	assert.Equal(t, "", style.Color())

	style.SetColor("green")
	style.SetProperty("marginTop", "4px")
	style.Set("left", "3px")
	style.SetBackgroundColor("black")

	assert.Equal(t, "green", style.Color())
	assert.Equal(t, "4px", style.Get("marginTop"))
	assert.Equal(t, "4px", style.GetPropertyValue("margin-top"))
	assert.Equal(t, "3px", style.Left())
	assert.Equal(t, "black", el.Style().BackgroundColor())

	style.Assign(map[string]string{"top": "1px", "height": "2px"})
	assert.Equal(t, "1px", style.Top())
	assert.Equal(t, "2px", style.Height())

	deferrer.Drain()
	native.AssertNumberOfCalls(t, "AddInlineStyle", 6)
	native.AssertNumberOfCalls(t, "FlushElementTree", 1)
	native.AssertCalled(t, "AddInlineStyle", "node", "height", "2px")

	values := style.Values()
	values["color"] = "changed"
	assert.Equal(t, "green", style.Color())
}

func TestAttributeReadsPassThrough(t *testing.T) {
	host, native, deferrer := newHost(t)
	native.On("GetAttribute", "node", "text").Return("hello")
	native.On("GetAttributeNames", "node").Return([]string{"id", "text"})
	el := host.Wrap("node")

	assert.Equal(t, "hello", el.GetAttribute("text"))
	assert.Equal(t, []string{"id", "text"}, el.GetAttributeNames())
	assert.Equal(t, 0, deferrer.Len())
	assert.False(t, host.Scheduler().Pending())
}

func TestQuerySelectorAllReturnsIndependentViews(t *testing.T) {
	host, native, _ := newHost(t)
	native.On("QuerySelectorAll", "root", ".item", element.QueryOptions{}).
		Return([]element.NodeRef{"i1", "i2", "i3"})

	items := host.QuerySelectorAll(".item")
	require.Len(t, items, 3)
	assert.NotSame(t, items[0], items[1])

	items[0].SetStyleProperty("color", "red")
	assert.Equal(t, "red", items[0].Style().Color())
	assert.Equal(t, "", items[1].Style().Color())
	assert.Equal(t, "", items[2].Style().Color())
	native.AssertCalled(t, "AddInlineStyle", "i1", "color", "red")
}

func TestQueriesWithoutMatches(t *testing.T) {
	host, native, _ := newHost(t)
	native.On("QuerySelector", "root", "#missing", element.QueryOptions{}).Return(nil)
	native.On("QuerySelectorAll", "root", ".missing", element.QueryOptions{}).Return(nil)

	assert.Nil(t, host.QuerySelector("#missing"))
	all := host.QuerySelectorAll(".missing")
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestQueryEachCallRequeries(t *testing.T) {
	host, native, _ := newHost(t)
	native.On("QuerySelector", "root", "#box", element.QueryOptions{}).Return("box")

	first := host.QuerySelector("#box")
	second := host.QuerySelector("#box")
	require.NotNil(t, first)
	assert.NotSame(t, first, second)
	native.AssertNumberOfCalls(t, "QuerySelector", 2)
}

func TestInvokeResolves(t *testing.T) {
	host, native, deferrer := newHost(t)
	native.Respond("measure", element.Response{Code: 0, Data: map[string]any{"width": 10}})
	el := host.Wrap("node")

	future := el.Invoke("measure", nil)
	assert.True(t, host.Scheduler().Pending())
	deferrer.Drain()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	data, err := future.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"width": 10}, data)
	native.AssertCalled(t, "InvokeUIMethod", "node", "measure", map[string]any{}, mock.Anything)
	native.AssertNumberOfCalls(t, "FlushElementTree", 1)
}

func TestInvokeRejectsWithRawResponse(t *testing.T) {
	host, native, _ := newHost(t)
	native.Respond("measure", element.Response{Code: 1, Data: "bad"})
	el := host.Wrap("node")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := el.Invoke("measure", map[string]any{}).Await(ctx)
	require.Error(t, err)

	var invokeErr *element.InvokeError
	require.ErrorAs(t, err, &invokeErr)
	assert.Equal(t, "measure", invokeErr.Method)
	assert.Equal(t, 1, invokeErr.Response.Code)
	assert.Contains(t, err.Error(), "UI method invoke: ")
	assert.Contains(t, err.Error(), `"code":1`)
	assert.Contains(t, err.Error(), `"data":"bad"`)
}

func TestInvokeRecordsMetrics(t *testing.T) {
	native := testutil.NewMockNative(t)
	native.Respond("scrollIntoView", element.Response{Code: 3})
	metrics := monitoring.NewMetrics()
	deferrer := &testutil.ManualDeferrer{}
	host := element.NewHost(native, deferrer, element.WithMetrics(metrics))

	_, err := host.Wrap("node").Invoke("scrollIntoView", nil).Await(context.Background())
	require.Error(t, err)
	deferrer.Drain()

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.UIMethodFailures)
	assert.Equal(t, int64(1), snap.Flushes)
	assert.Equal(t, int64(1), snap.Mutations)
}

func TestElementHidesNativeReference(t *testing.T) {
	host, _, _ := newHost(t)
	el := host.Wrap("secret-ref")

	assert.NotContains(t, fmt.Sprint(el), "secret-ref")
	assert.NotContains(t, fmt.Sprintf("%+v", el), "secret-ref")
	assert.NotContains(t, fmt.Sprintf("%#v", el), "secret-ref")
	assert.NotContains(t, fmt.Sprintf("%v", *el), "secret-ref")
	assert.NotContains(t, fmt.Sprintf("%+v", *el), "secret-ref")
	assert.NotContains(t, fmt.Sprintf("%#v", *el), "secret-ref")
	assert.Equal(t, "Element{styles: 0}", fmt.Sprintf("%+v", *el))

	_, err := json.Marshal(el)
	assert.ErrorIs(t, err, element.ErrNotTransferable)
}

func TestWrapNil(t *testing.T) {
	host, _, _ := newHost(t)
	assert.Nil(t, host.Wrap(nil))
}

func TestSchedulerOnLoop(t *testing.T) {
	native := testutil.NewMockNative(t)
	loop := thread.New("main", thread.Main)
	loop.Start()
	t.Cleanup(loop.Stop)
	host := element.NewHost(native, loop)

	_, err := loop.Do(context.Background(), func(context.Context) (any, error) {
		el := host.Wrap("node")
		for i := 0; i < 10; i++ {
			el.SetStyleProperty("opacity", fmt.Sprint(i))
		}
		return nil, nil
	})
	require.NoError(t, err)

	// Microtasks drain before the next task starts.
	_, err = loop.Do(context.Background(), func(context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)

	assert.False(t, host.Scheduler().Pending())
	native.AssertNumberOfCalls(t, "AddInlineStyle", 10)
	native.AssertNumberOfCalls(t, "FlushElementTree", 1)
}
