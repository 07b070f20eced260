// Package main is the entry point for the motion bridge devtools host.
//
// The host runs a privileged loop that owns a native UI tree, an element
// host with a batched flush scheduler, an animation engine and a script
// runtime. Scripts reach the animation engine through the callable
// registry; HTTP clients reach it through the same cross-context facade.
//
// The server provides:
//   - REST API for pages, scripts, queries, UI methods and animations
//   - WebSocket stream of flushed native operations
//   - Scene playback from files, globs or URLs
//   - Prometheus metrics
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 8000 -scene 'scenes/**/*.yaml'
//
//	# Development mode (console logs, debug level)
//	./server -dev -log-level debug
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
