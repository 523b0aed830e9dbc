package sandbox

import (
	"fmt"
	"strings"
	"time"

	"github.com/GriffinCanCode/Playground/backend/internal/shared/id"
)

// SignalSource is the only provenance tag the runner trusts
const SignalSource = "repl"

// CompilationPrefix marks entries produced by the transpiler
const CompilationPrefix = "[TS Compilation] "

// Kind classifies a log entry or signal
type Kind string

const (
	KindLog   Kind = "log"
	KindError Kind = "error"
)

// LogEntry is one line of output delivered to the caller
type LogEntry struct {
	Kind    Kind   `json:"type"`
	Message string `json:"message"`
}

// Signal is the message an execution context posts to the bus.
// Payload is a string for errors and a []string for logs.
type Signal struct {
	Source  string   `json:"source"`
	Type    Kind     `json:"type"`
	Payload any      `json:"payload"`
	RunID   id.RunID `json:"run_id,omitempty"`
}

// Entry converts the signal to a log entry. Log payloads are joined with a
// single space; error payloads are stringified as is.
func (s Signal) Entry() (LogEntry, bool) {
	switch s.Type {
	case KindLog:
		return LogEntry{Kind: KindLog, Message: joinPayload(s.Payload, " ")}, true
	case KindError:
		return LogEntry{Kind: KindError, Message: joinPayload(s.Payload, ",")}, true
	default:
		return LogEntry{}, false
	}
}

func joinPayload(payload any, sep string) string {
	switch p := payload.(type) {
	case nil:
		return ""
	case string:
		return p
	case []string:
		return strings.Join(p, sep)
	case []any:
		parts := make([]string, len(p))
		for i, v := range p {
			parts[i] = fmt.Sprint(v)
		}
		return strings.Join(parts, sep)
	default:
		return fmt.Sprint(p)
	}
}

// State is the lifecycle position of an execution context
type State int

const (
	StateUninitialized State = iota
	StateInstrumented
	StateRunning
	StateCompleted
	StateFaulted
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInstrumented:
		return "instrumented"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the context can no longer change state
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFaulted
}

// Config defines sandbox configuration
type Config struct {
	Timeout          time.Duration // Wall-clock budget per run, 0 disables
	MaxCallStackSize int           // goja call stack limit
	QueueSize        int           // Per-subscriber bus buffer
	HostConsole      bool          // Mirror console calls to the host logger
}

// DefaultConfig returns the core defaults: no wall-clock budget
func DefaultConfig() Config {
	return Config{
		Timeout:          0,
		MaxCallStackSize: 4096,
		QueueSize:        256,
		HostConsole:      true,
	}
}

// Observer receives runner lifecycle events, typically for metrics
type Observer interface {
	RunStarted(runID id.RunID)
	RunFinished(runID id.RunID, state State, duration time.Duration)
	SignalAccepted(kind Kind)
	SignalDropped(reason string)
}

type nopObserver struct{}

func (nopObserver) RunStarted(id.RunID) {}
func (nopObserver) RunFinished(id.RunID, State, time.Duration) {}
func (nopObserver) SignalAccepted(Kind) {}
func (nopObserver) SignalDropped(string) {}
