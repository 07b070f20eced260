package element

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// ErrNotTransferable is returned when an Element is serialized. Only its
// operations may be used, never its native reference.
var ErrNotTransferable = errors.New("element: native reference is not transferable")

// InvokeError reports a native UI method that answered with a non-zero code.
type InvokeError struct {
	Method   string
	Response Response
}

func (e *InvokeError) Error() string {
	raw, err := sonic.Marshal(e.Response)
	if err != nil {
		raw = fmt.Appendf(nil, "{\"code\":%d,\"data\":%q}", e.Response.Code, fmt.Sprint(e.Response.Data))
	}
	return "UI method invoke: " + string(raw)
}
