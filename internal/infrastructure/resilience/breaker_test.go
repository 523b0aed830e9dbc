package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFailed = errors.New("failed")

func call(b *Breaker, success bool) error {
	return b.Call(context.Background(), func(context.Context) error {
		if success {
			return nil
		}
		return errFailed
	})
}

func tripAfter(n uint32) func(Counts) bool {
	return func(counts Counts) bool { return counts.ConsecutiveFailures >= n }
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		settings      Settings
		requests      []bool // true = success, false = failure
		wait          time.Duration
		expectedState State
	}{
		{
			name:          "stays closed on successes",
			settings:      Settings{Interval: time.Minute, Timeout: time.Minute},
			requests:      []bool{true, true, true},
			expectedState: StateClosed,
		},
		{
			name:          "opens after consecutive failures",
			settings:      Settings{Timeout: time.Minute, ReadyToTrip: tripAfter(3)},
			requests:      []bool{false, false, false},
			expectedState: StateOpen,
		},
		{
			name:          "success resets the streak",
			settings:      Settings{Timeout: time.Minute, ReadyToTrip: tripAfter(3)},
			requests:      []bool{false, false, true, false, false},
			expectedState: StateClosed,
		},
		{
			name:          "half-open after timeout",
			settings:      Settings{Timeout: 10 * time.Millisecond, ReadyToTrip: tripAfter(2)},
			requests:      []bool{false, false},
			wait:          30 * time.Millisecond,
			expectedState: StateHalfOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := New("test", tt.settings)
			for _, success := range tt.requests {
				_ = call(breaker, success)
			}
			time.Sleep(tt.wait)
			assert.Equal(t, tt.expectedState, breaker.State())
		})
	}
}

func TestBreakerCounts(t *testing.T) {
	breaker := New("test", Settings{Interval: time.Minute, Timeout: time.Minute})

	require.NoError(t, call(breaker, true))
	counts := breaker.Counts()
	assert.Equal(t, uint32(1), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.ConsecutiveSuccesses)

	assert.ErrorIs(t, call(breaker, false), errFailed)
	counts = breaker.Counts()
	assert.Equal(t, uint32(2), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalFailures)
	assert.Equal(t, uint32(1), counts.ConsecutiveFailures)
	assert.Equal(t, uint32(0), counts.ConsecutiveSuccesses)
}

func TestBreakerOpenRejects(t *testing.T) {
	breaker := New("store", Settings{Timeout: time.Minute, ReadyToTrip: tripAfter(2)})
	_ = call(breaker, false)
	_ = call(breaker, false)

	called := false
	err := breaker.Call(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Contains(t, err.Error(), "store")
	assert.False(t, called)
}

func TestBreakerHalfOpen(t *testing.T) {
	breaker := New("test", Settings{
		MaxRequests: 2,
		Timeout:     20 * time.Millisecond,
		ReadyToTrip: tripAfter(2),
	})
	_ = call(breaker, false)
	_ = call(breaker, false)
	time.Sleep(40 * time.Millisecond)
	require.Equal(t, StateHalfOpen, breaker.State())

	require.NoError(t, call(breaker, true))
	require.NoError(t, call(breaker, true))
	assert.Equal(t, StateClosed, breaker.State())

	_ = call(breaker, false)
	_ = call(breaker, false)
	time.Sleep(40 * time.Millisecond)
	_ = call(breaker, false)
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerIsSuccessful(t *testing.T) {
	errNotFound := errors.New("not found")
	breaker := New("test", Settings{
		Timeout:      time.Minute,
		ReadyToTrip:  tripAfter(1),
		IsSuccessful: func(err error) bool { return err == nil || errors.Is(err, errNotFound) },
	})

	err := breaker.Call(context.Background(), func(context.Context) error { return errNotFound })
	assert.ErrorIs(t, err, errNotFound)
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerCancelledContext(t *testing.T) {
	breaker := New("test", Settings{ReadyToTrip: tripAfter(1)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, breaker.Call(ctx, func(context.Context) error { return nil }), context.Canceled)
	assert.Equal(t, uint32(0), breaker.Counts().Requests)
}

func TestBreakerPanic(t *testing.T) {
	breaker := New("test", Settings{ReadyToTrip: tripAfter(1), Timeout: time.Minute})

	assert.Panics(t, func() {
		_ = breaker.Call(context.Background(), func(context.Context) error { panic("boom") })
	})
	assert.Equal(t, StateOpen, breaker.State())
}

func TestExecute(t *testing.T) {
	breaker := New("test", DefaultSettings())

	n, err := Execute(context.Background(), breaker, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	s, err := Execute(context.Background(), breaker, func(context.Context) (string, error) {
		return "", errFailed
	})
	assert.ErrorIs(t, err, errFailed)
	assert.Empty(t, s)
}

func TestBreakerCallbacks(t *testing.T) {
	var transitions []string
	breaker := New("test", Settings{
		Timeout:     10 * time.Millisecond,
		ReadyToTrip: tripAfter(2),
		OnStateChange: func(name string, from State, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = call(breaker, false)
	_ = call(breaker, false)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, breaker.State())
	require.NoError(t, call(breaker, true))

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}
