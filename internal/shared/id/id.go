// Package id provides centralized ID generation for the playground backend.
//
// Every ID is a ULID carrying a type prefix:
//   - run_*: one execution context (the per-run correlation id on signals)
//   - sess_*: a persisted editor session
//   - req_*: an HTTP request or trace span
//   - conn_*: a WebSocket connection, carrying a random UUID instead
//
// ULIDs sort lexicographically by creation time, so run ids issued by the
// same generator are monotonically increasing.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// RunID identifies one execution context
type RunID string

// SessionID identifies a persisted editor session
type SessionID string

// RequestID identifies an API request
type RequestID string

// ConnID identifies a WebSocket connection
type ConnID string

const (
	RunPrefix     = "run"
	SessionPrefix = "sess"
	RequestPrefix = "req"
	ConnPrefix    = "conn"
)

// Generator generates monotonic ULIDs with optional prefixes
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(rand.Reader)
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: ulid.Monotonic(entropy, 0),
	}
}

// Generate creates a new ULID. IDs from one generator strictly increase,
// even within the same millisecond.
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewRunID generates a new run ID
func NewRunID() RunID {
	return RunID(Default().GenerateWithPrefix(RunPrefix))
}

// NewSessionID generates a new session ID
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewConnID generates a new connection ID. Connections are not ordered,
// so the suffix is a random UUID.
func NewConnID() ConnID {
	return ConnID(ConnPrefix + "_" + uuid.NewString())
}

func (id RunID) String() string     { return string(id) }
func (id SessionID) String() string { return string(id) }
func (id RequestID) String() string { return string(id) }
func (id ConnID) String() string    { return string(id) }

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// IsValidPrefixed checks a "prefix_ULID" string
func IsValidPrefixed(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix+"_")
	return ok && IsValid(rest)
}

// Timestamp extracts the creation time from a bare or prefixed ULID
func Timestamp(id string) (time.Time, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
