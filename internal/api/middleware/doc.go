// Package middleware provides the HTTP middleware of the playground backend.
//
// Middleware stack includes:
//   - RequestID: Assigns or propagates X-Request-ID
//   - Logger / Recovery: Structured request logging and panic recovery (zap)
//   - CORS: Cross-origin resource sharing with configurable origins
//   - RateLimit: Per-IP token bucket rate limiting
//   - BodyLimit: Caps request body size
//   - Compress: gzip for large JSON responses (wraps the router)
//
// Rate Limiting:
//   - Per-IP tracking with idle client eviction
//   - Token bucket algorithm
//   - Configurable RPS and burst capacity
//   - Global rate limiting option
//
// Example Usage:
//
//	router.Use(middleware.RequestID(), middleware.Recovery(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
