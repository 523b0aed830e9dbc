package sandbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/GriffinCanCode/Playground/backend/internal/shared/id"
)

// Outcome is the result of a run collected to completion
type Outcome struct {
	RunID    id.RunID      `json:"run_id"`
	Entries  []LogEntry    `json:"entries"`
	State    string        `json:"state"`
	Duration time.Duration `json:"duration"`
	// Expired is set when ctx ended before the run did
	Expired bool `json:"expired,omitempty"`
}

// Collect runs source on a one-shot runner and gathers its entries until the
// run is terminal or ctx is done. An expired ctx destroys the context and
// returns what was delivered so far.
func Collect(ctx context.Context, cfg Config, source string, opts ...Option) (*Outcome, error) {
	var (
		mu      sync.Mutex
		entries = []LogEntry{}
	)
	runner := NewRunner(cfg, func(e LogEntry) {
		mu.Lock()
		entries = append(entries, e)
		mu.Unlock()
	}, opts...)

	start := time.Now()
	runID := runner.Run(source)
	ec := runner.Host().Attached()

	err := runner.Wait(ctx)
	expired := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if err != nil && !expired {
		runner.Close()
		return nil, err
	}
	runner.Close()

	out := &Outcome{
		RunID:    runID,
		Duration: time.Since(start),
		Expired:  expired,
		State:    StateFaulted.String(),
	}
	if ec != nil {
		<-ec.Done()
		out.State = ec.State().String()
		out.Duration = ec.Duration()
	}

	mu.Lock()
	out.Entries = append(out.Entries, entries...)
	mu.Unlock()
	if out.Entries == nil {
		out.Entries = []LogEntry{}
	}
	return out, nil
}
