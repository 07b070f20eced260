// Package server assembles the devtools host.
//
// Server Lifecycle:
//  1. Load configuration from environment and flags
//  2. Build the stage: privileged loop, native tree, element host,
//     animation engine and script runtime
//  3. Mount middleware (recovery, metrics, CORS, rate limiting)
//  4. Mount the REST API, the flush stream and /metrics
//  5. Play configured scenes
//  6. Serve until the context is cancelled, then shut down gracefully
//
// Responses are gzip-compressed when enabled; WebSocket upgrades bypass
// compression.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.New(cfg, logging.NewDefault())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//	err = srv.Run(ctx)
package server
