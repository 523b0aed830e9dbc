// Package sqlite implements state.Store on a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/Playground/backend/internal/domain/state"
	"github.com/GriffinCanCode/Playground/backend/internal/sandbox"

	_ "modernc.org/sqlite"
)

// Store implements state.Store backed by a SQLite database
type Store struct {
	db *sql.DB
}

var _ state.Store = (*Store)(nil)

// Open creates or opens a SQLite database at the given path and runs migrations.
// Use ":memory:" for an in-memory database.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Load(ctx context.Context, namespace, session string) (*state.State, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT code, logs, updated_at FROM editor_state
		WHERE namespace = ? AND session = ?`, namespace, session)

	var (
		code, logs, updated string
	)
	if err := row.Scan(&code, &logs, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, state.ErrNotFound
		}
		return nil, fmt.Errorf("querying state: %w", err)
	}

	entries, err := decodeLogs(logs)
	if err != nil {
		return nil, err
	}

	st := &state.State{
		Namespace: namespace,
		Session:   session,
		Code:      code,
		Logs:      entries,
	}
	st.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return st, nil
}

func (s *Store) SaveCode(ctx context.Context, namespace, session, code string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO editor_state (namespace, session, code, logs, updated_at)
		VALUES (?, ?, ?, '[]', ?)
		ON CONFLICT(namespace, session) DO UPDATE SET
			code = excluded.code,
			updated_at = excluded.updated_at`,
		namespace, session, code, now(),
	)
	if err != nil {
		return fmt.Errorf("saving code: %w", err)
	}
	return nil
}

func (s *Store) SaveRun(ctx context.Context, namespace, session, code string, entries []sandbox.LogEntry) error {
	if entries == nil {
		entries = []sandbox.LogEntry{}
	}
	data, err := sonic.MarshalString(entries)
	if err != nil {
		return fmt.Errorf("marshaling logs: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO editor_state (namespace, session, code, logs, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(namespace, session) DO UPDATE SET
			code = excluded.code,
			logs = excluded.logs,
			updated_at = excluded.updated_at`,
		namespace, session, code, data, now(),
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

func (s *Store) AppendLogs(ctx context.Context, namespace, session string, entries []sandbox.LogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `
		SELECT logs FROM editor_state WHERE namespace = ? AND session = ?`,
		namespace, session).Scan(&raw)

	var existing []sandbox.LogEntry
	switch {
	case errors.Is(err, sql.ErrNoRows):
		existing = []sandbox.LogEntry{}
	case err != nil:
		return fmt.Errorf("querying logs: %w", err)
	default:
		if existing, err = decodeLogs(raw); err != nil {
			return err
		}
	}

	data, err := sonic.MarshalString(append(existing, entries...))
	if err != nil {
		return fmt.Errorf("marshaling logs: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO editor_state (namespace, session, code, logs, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(namespace, session) DO UPDATE SET
			logs = excluded.logs,
			updated_at = excluded.updated_at`,
		namespace, session, state.DefaultSnippet, data, now(),
	)
	if err != nil {
		return fmt.Errorf("updating logs: %w", err)
	}
	return tx.Commit()
}

func (s *Store) ClearLogs(ctx context.Context, namespace, session string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE editor_state SET logs = '[]', updated_at = ?
		WHERE namespace = ? AND session = ?`,
		now(), namespace, session,
	)
	if err != nil {
		return fmt.Errorf("clearing logs: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, namespace, session string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM editor_state WHERE namespace = ? AND session = ?`,
		namespace, session,
	)
	if err != nil {
		return fmt.Errorf("deleting state: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func decodeLogs(raw string) ([]sandbox.LogEntry, error) {
	entries := []sandbox.LogEntry{}
	if err := sonic.UnmarshalString(raw, &entries); err != nil {
		return nil, fmt.Errorf("unmarshaling logs: %w", err)
	}
	return entries, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
