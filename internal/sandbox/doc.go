/*
Package sandbox runs untrusted JavaScript in single-use, isolated runtimes
and streams their console output back to the host.

# Overview

Every run gets a fresh goja runtime (an ExecutionContext). Before user code
runs, an instrumentation preamble replaces the console and installs the
error hooks. The context talks to its host only by posting Signals on a Bus:

  - log: console.log/info/warn/debug/table arguments, serialized
  - error: console.error, uncaught callback errors, unhandled rejections,
    errors escaping the async wrapper, compile failures and timeouts

# Architecture

 1. Bus: broadcast channel; every subscriber filters what it receives.
    Each Runner owns one, and binds every context it attaches to it.
 2. ExecutionContext: goja runtime plus its own event loop and timers
 3. Host: the single attachment slot for the live context
 4. Runner: teardown, transpile, attach, start; validates incoming Signals
 5. Pool: pre-instrumented, unbound contexts ready to start

# Provenance

A Runner accepts a Signal only when its source is "repl" and its run id
matches the attached context. Signals from torn-down contexts carry an old
run id and are dropped.

# Isolation

Contexts expose no require, process, module or exports. Timers run on the
context's event loop and are abandoned on teardown. Memory is bounded only
by the call stack limit; Config.Timeout optionally interrupts long runs,
including a context blocked posting to a listener that stopped reading.

# Usage Example

	runner := NewRunner(DefaultConfig(), func(e LogEntry) {
		fmt.Println(e.Kind, e.Message)
	})
	defer runner.Close()

	runner.Run(`console.log("a", 1); throw new Error("boom")`)
	_ = runner.Wait(ctx)
*/
package sandbox
