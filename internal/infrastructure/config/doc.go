// Package config provides 12-factor configuration management for the playground backend.
//
// Configuration is loaded from environment variables with sensible defaults.
// An optional YAML or TOML file named by CONFIG_FILE supplies values the
// environment does not set. CLI flags override both.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Sandbox: Execution budget, stack limit, warm pool and bus sizing
//   - Transpile: Lowering target, loader and JSX factory
//   - Store: Editor state persistence driver and namespace
//   - Share: Share link base URL and size limit
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, CONFIG_FILE
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - SANDBOX_TIMEOUT, SANDBOX_STACK_SIZE, SANDBOX_POOL_SIZE, SANDBOX_QUEUE_SIZE
//   - TRANSPILE_TARGET, TRANSPILE_LOADER, TRANSPILE_JSX_FACTORY
//   - STORE_DRIVER, STORE_PATH, STORE_NAMESPACE
//   - SHARE_BASE_URL, SHARE_MAX_BYTES
package config
