// Package config provides 12-factor configuration for the motion bridge
// devtools host.
//
// Configuration is loaded from environment variables with defaults. CLI
// flags in cmd/server override environment values.
//
// Configuration Sections:
//   - Server: HTTP listen address and response compression
//   - Runtime: animation frame interval, script timeout and page sanitizing
//   - Scene: scene files or URL loaded at startup
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, COMPRESS
//   - FRAME_INTERVAL, SCRIPT_TIMEOUT, MAX_CALL_STACK, SANITIZE_PAGES
//   - SCENE_PATH, SCENE_URL
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
