// Package main is the playground backend command.
//
// The server subcommand exposes the execution core over HTTP and a
// WebSocket stream:
//
//	Editor (browser) → POST /run, /transpile, /share, /state/:session
//	                 → GET  /stream (run, ping)
//
// The run and transpile subcommands drive the same pipeline from a terminal:
//
//	server run snippet.ts
//	echo 'console.log(1)' | server run -
//	server transpile --target es2017 snippet.tsx
//
// Configuration comes from environment variables, optionally seeded from a
// YAML or TOML file named by CONFIG_FILE or --config. Flags override both.
package main
