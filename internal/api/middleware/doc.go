// Package middleware provides the HTTP middleware of the devtools API.
//
//   - CORS: cross-origin access for browser devtools frontends
//   - RateLimit: per-IP token buckets with idle client eviction
//   - GlobalRateLimit: one token bucket for all clients
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
