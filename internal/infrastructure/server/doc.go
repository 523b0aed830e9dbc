// Package server wires configuration, the sandbox, persistence and the
// HTTP/WebSocket API into one process and runs it until its context ends.
package server
