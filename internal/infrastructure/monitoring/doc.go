/*
Package monitoring provides Prometheus metrics for the playground backend.

# Overview

Each Metrics value owns a private registry, so tests and multiple servers
in one process never collide on registration.

# Features

- HTTP request metrics (latency, throughput, size)
- Run metrics: active contexts, terminal states, lifetime
- Signal metrics: accepted by kind, dropped by reason
- Transpiler and state store timings
- WebSocket connection metrics

Metrics implements sandbox.Observer and is handed to the runner directly.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	runner := sandbox.NewRunner(cfg, onEntry, sandbox.WithObserver(metrics))
*/
package monitoring
