// Package state persists the editor state of playground sessions: the
// current code and the log entries of past runs.
//
// Stores are keyed by (namespace, session). The default namespace is
// "js-repl". A session that has never been saved reads back as the welcome
// snippet with no logs. Manager wraps a Store with validation, metrics and
// a circuit breaker; the sqlite implementation lives in storage/sqlite.
package state
