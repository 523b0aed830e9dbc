package sandbox

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRunnerClosed   = errors.New("sandbox runner is closed")
	ErrPoolClosed     = errors.New("sandbox pool is closed")
	ErrUnsubscribed   = errors.New("bus subscription cancelled")
	ErrHostOccupied   = errors.New("an execution context is already attached")
	ErrContextStarted = errors.New("execution context already started")
	ErrTornDown       = errors.New("execution context torn down")
)

// TimeoutError reports that a context exhausted its wall-clock budget
type TimeoutError struct {
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Execution timed out after %s", e.Budget)
}
