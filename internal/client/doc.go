// Package client is a Go client for the devtools API.
//
// Requests go through resty over a retryablehttp transport, a client-side
// rate limiter and a circuit breaker that trips on transport errors and
// 5xx responses. The trace ID of the request context is propagated.
//
//	c := client.New("http://localhost:8000")
//	res, err := c.RunScript(ctx, `animate("#box", { opacity: 0 })`)
//
// Watch follows the flush stream over WebSocket.
package client
