package element

// NodeRef is an opaque reference to a node of the native tree. Only the
// Native implementation that produced it knows its concrete type.
type NodeRef any

// QueryOptions narrows a structural query.
type QueryOptions struct {
	// Limit caps the number of matches. Zero means no limit.
	Limit int
}

// Response is the result reported by a native UI method.
type Response struct {
	Code int `json:"code"`
	Data any `json:"data"`
}

// Native response codes.
const (
	CodeSuccess        = 0
	CodeUnknown        = 1
	CodeNodeNotFound   = 2
	CodeMethodNotFound = 3
	CodeParamInvalid   = 4
)

// Native is the rendering substrate the privileged context drives.
//
// Writes are applied when called; FlushElementTree materializes every write
// issued since the previous flush. InvokeUIMethod reports through callback,
// possibly from another goroutine.
type Native interface {
	SetAttribute(node NodeRef, name string, value any)
	AddInlineStyle(node NodeRef, property, value string)
	GetAttribute(node NodeRef, name string) any
	GetAttributeNames(node NodeRef) []string
	QuerySelector(node NodeRef, selector string, opts QueryOptions) NodeRef
	QuerySelectorAll(node NodeRef, selector string, opts QueryOptions) []NodeRef
	InvokeUIMethod(node NodeRef, method string, params map[string]any, callback func(Response))
	FlushElementTree()
	Root() NodeRef
}
