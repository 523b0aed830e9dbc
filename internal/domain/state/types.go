package state

import (
	"context"
	"errors"
	"time"

	"github.com/GriffinCanCode/Playground/backend/internal/sandbox"
)

// DefaultNamespace is the key the editor persists its state under
const DefaultNamespace = "js-repl"

// DefaultSnippet is the code shown when a session has nothing saved
const DefaultSnippet = `// TypeScript REPL - Cmd/Ctrl + Enter to run, Cmd/Ctrl + S to format

type User = {
  name: string;
  age: number;
}

const greet = (user: User): string => {
  return ` + "`Hello, ${user.name}! You are ${user.age} years old.`" + `;
};

const user: User = { name: "Milind", age: 25 };
console.log(greet(user));

const numbers = [1, 2, 3, 4, 5];
const doubled = numbers.map(n => n * 2);
console.log("Doubled:", doubled);
`

var (
	ErrNotFound = errors.New("state not found")
	ErrInvalid  = errors.New("invalid state request")
)

// State is the persisted editor state of one session
type State struct {
	Namespace string             `json:"namespace"`
	Session   string             `json:"session"`
	Code      string             `json:"code"`
	Logs      []sandbox.LogEntry `json:"logs"`
	Version   string             `json:"version"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Default returns the state of a session that has never been saved
func Default(namespace, session string) *State {
	return &State{
		Namespace: namespace,
		Session:   session,
		Code:      DefaultSnippet,
		Logs:      []sandbox.LogEntry{},
	}
}

// Store persists editor state keyed by namespace and session
type Store interface {
	// Load returns ErrNotFound when nothing was saved
	Load(ctx context.Context, namespace, session string) (*State, error)
	// SaveCode creates the session if needed and replaces its code
	SaveCode(ctx context.Context, namespace, session, code string) error
	// SaveRun creates the session if needed and replaces both its code and
	// its logs, so the logs hold only that run's output
	SaveRun(ctx context.Context, namespace, session, code string, entries []sandbox.LogEntry) error
	// AppendLogs creates the session if needed and appends entries in order
	AppendLogs(ctx context.Context, namespace, session string, entries []sandbox.LogEntry) error
	// ClearLogs empties the log list; missing sessions are not an error
	ClearLogs(ctx context.Context, namespace, session string) error
	// Delete removes the session; missing sessions are not an error
	Delete(ctx context.Context, namespace, session string) error
	Close() error
}
