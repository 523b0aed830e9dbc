package state

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/Playground/backend/internal/sandbox"
)

type key struct {
	namespace string
	session   string
}

// MemoryStore keeps state in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	states map[key]*State
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[key]*State),
		now:    time.Now,
	}
}

// Load returns a copy of the stored state
func (s *MemoryStore) Load(ctx context.Context, namespace, session string) (*State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[key{namespace, session}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *st
	cp.Logs = append([]sandbox.LogEntry{}, st.Logs...)
	return &cp, nil
}

// SaveCode replaces the session's code
func (s *MemoryStore) SaveCode(ctx context.Context, namespace, session, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreate(namespace, session)
	st.Code = code
	st.UpdatedAt = s.now()
	return nil
}

// SaveRun replaces the session's code and logs
func (s *MemoryStore) SaveRun(ctx context.Context, namespace, session, code string, entries []sandbox.LogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreate(namespace, session)
	st.Code = code
	st.Logs = append([]sandbox.LogEntry{}, entries...)
	st.UpdatedAt = s.now()
	return nil
}

// AppendLogs appends entries to the session's logs
func (s *MemoryStore) AppendLogs(ctx context.Context, namespace, session string, entries []sandbox.LogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreate(namespace, session)
	st.Logs = append(st.Logs, entries...)
	st.UpdatedAt = s.now()
	return nil
}

// ClearLogs empties the session's logs
func (s *MemoryStore) ClearLogs(ctx context.Context, namespace, session string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.states[key{namespace, session}]; ok {
		st.Logs = []sandbox.LogEntry{}
		st.UpdatedAt = s.now()
	}
	return nil
}

// Delete removes the session
func (s *MemoryStore) Delete(ctx context.Context, namespace, session string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, key{namespace, session})
	return nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

// caller holds the write lock
func (s *MemoryStore) getOrCreate(namespace, session string) *State {
	k := key{namespace, session}
	st, ok := s.states[k]
	if !ok {
		st = Default(namespace, session)
		s.states[k] = st
	}
	return st
}
