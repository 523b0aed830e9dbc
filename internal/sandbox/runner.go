package sandbox

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/Playground/backend/internal/shared/id"
	"github.com/GriffinCanCode/Playground/backend/internal/transpile"
)

// ContextSource hands out fresh, instrumented execution contexts
type ContextSource interface {
	Acquire(ctx context.Context) (*ExecutionContext, error)
}

// Option configures a Runner
type Option func(*Runner)

// WithBus sets the bus the runner listens on. Contexts are bound to it
// when attached, so it should not be shared between runners.
func WithBus(bus *Bus) Option {
	return func(r *Runner) { r.bus = bus }
}

// WithTranspiler sets the transpiler used before each run
func WithTranspiler(t *transpile.Transpiler) Option {
	return func(r *Runner) { r.transpiler = t }
}

// WithLogger sets the host logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithPool makes the runner take contexts from src instead of building them
func WithPool(src ContextSource) Option {
	return func(r *Runner) { r.source = src }
}

// WithRunEntries replaces the entry callback with one that also receives
// the run id each entry belongs to
func WithRunEntries(fn func(id.RunID, LogEntry)) Option {
	return func(r *Runner) {
		if fn != nil {
			r.onEntry = fn
		}
	}
}

// WithObserver registers lifecycle callbacks
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// Runner executes source text in a fresh context per run and forwards the
// context's output to a single callback in emission order.
type Runner struct {
	cfg        Config
	onEntry    func(id.RunID, LogEntry)
	bus        *Bus
	transpiler *transpile.Transpiler
	source     ContextSource
	observer   Observer
	logger     *zap.Logger

	host *Host
	sub  *Subscription

	mu     sync.Mutex
	closed bool
}

// NewRunner creates a runner and registers its listener
func NewRunner(cfg Config, onEntry func(LogEntry), opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		onEntry:  func(id.RunID, LogEntry) {},
		observer: nopObserver{},
		logger:   zap.NewNop(),
		host:     NewHost(),
	}
	if onEntry != nil {
		r.onEntry = func(_ id.RunID, e LogEntry) { onEntry(e) }
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.bus == nil {
		r.bus = NewBus(cfg.QueueSize)
	}
	if r.transpiler == nil {
		r.transpiler = transpile.MustNew(transpile.DefaultOptions())
	}
	r.sub = r.bus.Subscribe(r.listen)
	return r
}

// Host exposes the runner's attachment slot
func (r *Runner) Host() *Host {
	return r.host
}

// Run tears down the previous context and starts source in a new one. It
// never waits for user code and reports every failure as a log entry.
func (r *Runner) Run(source string) id.RunID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ""
	}

	r.teardown()

	result := r.transpiler.Transpile(source)

	ec, err := r.acquire()
	if err != nil {
		r.logger.Error("Failed to create execution context", zap.Error(err))
		r.deliver("", LogEntry{Kind: KindError, Message: err.Error()})
		return ""
	}
	if err := ec.Bind(r.bus); err != nil {
		ec.Destroy()
		r.logger.Error("Failed to bind execution context", zap.Error(err))
		r.deliver("", LogEntry{Kind: KindError, Message: err.Error()})
		return ""
	}
	if err := r.host.Attach(ec); err != nil {
		ec.Destroy()
		r.logger.Error("Failed to attach execution context", zap.Error(err))
		return ""
	}

	runID := ec.RunID()
	for _, d := range result.Diagnostics {
		r.sub.Inject(Signal{
			Source:  SignalSource,
			Type:    KindError,
			Payload: CompilationPrefix + d.String(),
			RunID:   runID,
		})
	}

	code := result.Code
	if !result.Success {
		code = source
	} else if len(result.SourceMap) > 0 {
		if err := ec.SetSourceMap(result.SourceMap); err != nil {
			r.logger.Debug("Ignoring source map", zap.Error(err))
		}
	}

	r.observer.RunStarted(runID)
	if err := ec.Start(code); err != nil {
		r.logger.Error("Failed to start execution context", zap.Error(err))
		return runID
	}
	go r.observe(ec)

	r.logger.Debug("Run started",
		zap.String("run_id", runID.String()),
		zap.Int("diagnostics", len(result.Diagnostics)),
	)
	return runID
}

// Wait blocks until the attached context is terminal and all of its
// output has reached the callback.
func (r *Runner) Wait(ctx context.Context) error {
	ec := r.host.Attached()
	if ec != nil {
		select {
		case <-ec.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return r.sub.Sync(ctx)
}

// Flush blocks until every signal already posted has reached the callback
func (r *Runner) Flush(ctx context.Context) error {
	return r.sub.Sync(ctx)
}

// Close destroys the attached context and deregisters the listener. It is
// safe to call more than once.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.teardown()
	r.sub.Cancel()
	return nil
}

func (r *Runner) acquire() (*ExecutionContext, error) {
	if r.source != nil {
		return r.source.Acquire(context.Background())
	}
	return NewContext(r.cfg, r.bus, r.logger)
}

// teardown detaches first so stray signals fail the run id check
func (r *Runner) teardown() {
	if prev := r.host.Detach(); prev != nil {
		prev.Destroy()
	}
}

func (r *Runner) observe(ec *ExecutionContext) {
	<-ec.Done()
	r.observer.RunFinished(ec.RunID(), ec.State(), ec.Duration())
}

// listen runs on the subscription goroutine
func (r *Runner) listen(sig Signal) {
	if sig.Source != SignalSource {
		r.observer.SignalDropped("provenance")
		return
	}
	current := r.host.Attached()
	if current == nil || sig.RunID != current.RunID() {
		r.observer.SignalDropped("stale_run")
		return
	}

	entry, ok := sig.Entry()
	if !ok {
		r.observer.SignalDropped("unknown_type")
		return
	}
	r.observer.SignalAccepted(entry.Kind)
	r.deliver(sig.RunID, entry)
}

func (r *Runner) deliver(runID id.RunID, entry LogEntry) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Log entry callback panicked", zap.Any("panic", rec))
		}
	}()
	r.onEntry(runID, entry)
}
