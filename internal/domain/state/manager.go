package state

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/Playground/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Playground/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/Playground/backend/internal/sandbox"
	"github.com/GriffinCanCode/Playground/backend/internal/shared/utils"
)

// Manager scopes a Store to one namespace and guards it with a breaker
type Manager struct {
	store     Store
	namespace string
	breaker   *resilience.Breaker
	metrics   *monitoring.Metrics
	logger    *zap.Logger
}

// NewManager creates a manager for namespace; empty means DefaultNamespace
func NewManager(store Store, namespace string, logger *zap.Logger) *Manager {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	settings := resilience.DefaultSettings()
	settings.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
	}
	settings.OnStateChange = func(name string, from, to resilience.State) {
		logger.Warn("State store breaker changed state",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	return &Manager{
		store:     store,
		namespace: namespace,
		breaker:   resilience.New("state-store", settings),
		logger:    logger,
	}
}

// WithMetrics adds metrics tracking to the manager
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Namespace returns the namespace the manager writes to
func (m *Manager) Namespace() string {
	return m.namespace
}

// Get returns the session's state, or the default state when none exists
func (m *Manager) Get(ctx context.Context, session string) (*State, error) {
	if err := validSession(session); err != nil {
		return nil, err
	}

	st, err := resilience.Execute(ctx, m.breaker, func(ctx context.Context) (*State, error) {
		var st *State
		err := m.observe("load", func() error {
			var err error
			st, err = m.store.Load(ctx, m.namespace, session)
			return err
		})
		return st, err
	})
	if errors.Is(err, ErrNotFound) {
		return Default(m.namespace, session), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	st.Version = utils.ShortHash(st.Code)
	return st, nil
}

// SetCode replaces the session's code
func (m *Manager) SetCode(ctx context.Context, session, code string) error {
	if err := m.validate(session, code); err != nil {
		return err
	}
	return m.call(ctx, "save_code", func(ctx context.Context) error {
		return m.store.SaveCode(ctx, m.namespace, session, code)
	})
}

// Record saves the code of a finished run and replaces the session's logs
// with its entries
func (m *Manager) Record(ctx context.Context, session, code string, entries []sandbox.LogEntry) error {
	if err := m.validate(session, code); err != nil {
		return err
	}
	return m.call(ctx, "save_run", func(ctx context.Context) error {
		return m.store.SaveRun(ctx, m.namespace, session, code, entries)
	})
}

// Append adds entries to the session's logs without touching its code
func (m *Manager) Append(ctx context.Context, session string, entries []sandbox.LogEntry) error {
	if err := validSession(session); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	return m.call(ctx, "append_logs", func(ctx context.Context) error {
		return m.store.AppendLogs(ctx, m.namespace, session, entries)
	})
}

// ClearLogs empties the session's logs
func (m *Manager) ClearLogs(ctx context.Context, session string) error {
	if err := validSession(session); err != nil {
		return err
	}
	return m.call(ctx, "clear_logs", func(ctx context.Context) error {
		return m.store.ClearLogs(ctx, m.namespace, session)
	})
}

// Delete removes the session's state
func (m *Manager) Delete(ctx context.Context, session string) error {
	if err := validSession(session); err != nil {
		return err
	}
	return m.call(ctx, "delete", func(ctx context.Context) error {
		return m.store.Delete(ctx, m.namespace, session)
	})
}

// Close closes the underlying store
func (m *Manager) Close() error {
	return m.store.Close()
}

// BreakerState reports the store breaker state for health checks
func (m *Manager) BreakerState() resilience.State {
	return m.breaker.State()
}

func (m *Manager) validate(session, code string) error {
	if err := validSession(session); err != nil {
		return err
	}
	if err := utils.ValidateCode(code); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func validSession(session string) error {
	if err := utils.ValidateID(session, "session", true); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func (m *Manager) call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	err := m.breaker.Call(ctx, func(ctx context.Context) error {
		return m.observe(method, func() error { return fn(ctx) })
	})
	if err != nil {
		m.logger.Error("State store call failed", zap.String("method", method), zap.Error(err))
		return fmt.Errorf("failed to %s: %w", method, err)
	}
	return nil
}

func (m *Manager) observe(method string, fn func() error) error {
	if m.metrics == nil {
		return fn()
	}
	timer := monitoring.NewTimer(m.metrics, method)
	err := fn()
	switch {
	case err == nil:
		timer.Stop("success")
	case errors.Is(err, ErrNotFound):
		timer.Stop("not_found")
	default:
		timer.Stop("error")
	}
	return err
}
