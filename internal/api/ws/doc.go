// Package ws streams playground runs over a WebSocket.
//
// Client messages:
//
//	{"type": "run", "code": "...", "session": "optional"}
//	{"type": "ping"}
//
// Server messages, each with a millisecond timestamp:
//
//	{"type": "system", "message": "...", "conn_id": "conn_..."}
//	{"type": "run_start", "run_id": "run_..."}
//	{"type": "log" | "error", "message": "...", "run_id": "run_..."}
//	{"type": "run_complete", "run_id": "run_...", "state": "completed" | "faulted"}
//	{"type": "pong"}
//
// run_start always precedes the entries of its run. Starting a new run
// tears down the previous one; its remaining output is dropped and its
// run_complete reports "faulted". A message of unknown type yields an
// "error" message without a run_id.
package ws
