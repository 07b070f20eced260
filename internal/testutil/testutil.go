// Package testutil provides test doubles shared by package tests.
package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/motionbridge/internal/element"
)

// MockNative is a mock implementation of element.Native.
type MockNative struct {
	mock.Mock
}

// SetAttribute mocks the SetAttribute method.
func (m *MockNative) SetAttribute(node element.NodeRef, name string, value any) {
	m.Called(node, name, value)
}

// AddInlineStyle mocks the AddInlineStyle method.
func (m *MockNative) AddInlineStyle(node element.NodeRef, property, value string) {
	m.Called(node, property, value)
}

// GetAttribute mocks the GetAttribute method.
func (m *MockNative) GetAttribute(node element.NodeRef, name string) any {
	args := m.Called(node, name)
	return args.Get(0)
}

// GetAttributeNames mocks the GetAttributeNames method.
func (m *MockNative) GetAttributeNames(node element.NodeRef) []string {
	args := m.Called(node)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

// QuerySelector mocks the QuerySelector method.
func (m *MockNative) QuerySelector(node element.NodeRef, selector string, opts element.QueryOptions) element.NodeRef {
	args := m.Called(node, selector, opts)
	return args.Get(0)
}

// QuerySelectorAll mocks the QuerySelectorAll method.
func (m *MockNative) QuerySelectorAll(node element.NodeRef, selector string, opts element.QueryOptions) []element.NodeRef {
	args := m.Called(node, selector, opts)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]element.NodeRef)
}

// InvokeUIMethod mocks the InvokeUIMethod method.
func (m *MockNative) InvokeUIMethod(node element.NodeRef, method string, params map[string]any, callback func(element.Response)) {
	m.Called(node, method, params, callback)
}

// FlushElementTree mocks the FlushElementTree method.
func (m *MockNative) FlushElementTree() {
	m.Called()
}

// Root mocks the Root method.
func (m *MockNative) Root() element.NodeRef {
	args := m.Called()
	return args.Get(0)
}

// Methods returns the names of the recorded calls in call order.
func (m *MockNative) Methods() []string {
	out := make([]string, 0, len(m.Calls))
	for _, c := range m.Calls {
		out = append(out, c.Method)
	}
	return out
}

// NewMockNative creates a mock whose writes and flushes are accepted and
// whose root is "root".
func NewMockNative(t *testing.T) *MockNative {
	t.Helper()
	m := new(MockNative)

	m.On("SetAttribute", mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("AddInlineStyle", mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("FlushElementTree").Maybe()
	m.On("Root").Return("root").Maybe()

	return m
}

// Respond makes InvokeUIMethod calls for method answer with res.
func (m *MockNative) Respond(method string, res element.Response) *mock.Call {
	return m.On("InvokeUIMethod", mock.Anything, method, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			callback := args.Get(3).(func(element.Response))
			go callback(res)
		})
}

// ManualDeferrer queues microtasks until the test drains them, standing in
// for the end of a turn.
type ManualDeferrer struct {
	mu    sync.Mutex
	queue []func()
}

// QueueMicrotask implements element.Deferrer.
func (d *ManualDeferrer) QueueMicrotask(fn func()) {
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	d.mu.Unlock()
}

// Len returns the number of queued microtasks.
func (d *ManualDeferrer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Drain runs queued microtasks, including ones queued while draining.
func (d *ManualDeferrer) Drain() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		fn := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()
		fn()
	}
}
