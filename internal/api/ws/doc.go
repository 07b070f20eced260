// Package ws streams native tree flushes to WebSocket clients.
//
// Message Types:
//   - welcome: sent on connect with the client id and current seq
//   - flush: one per FlushElementTree call, carrying the ops and page
//   - snapshot: reply to a snapshot request
//   - ping/pong: application level keepalive
//   - error: malformed or unknown client message
//
// Each connection has one writer goroutine; a slow client loses events
// rather than stalling the flush path.
//
// Example Usage:
//
//	handler := ws.NewHandler(tree, metrics, logger)
//	router.GET("/ws", handler.HandleConnection)
package ws
