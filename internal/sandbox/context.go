package sandbox

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/go-sourcemap/sourcemap"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Playground/backend/internal/shared/id"
)

// ExecutionContext is one isolated, single-use JavaScript environment.
// The goja runtime is only touched by the context's loop goroutine once
// Start is called; Interrupt is the sole cross-goroutine entry point.
type ExecutionContext struct {
	runID  id.RunID
	cfg    Config
	bus    *Bus
	logger *zap.Logger

	vm   *goja.Runtime
	loop *eventLoop
	smap *sourcemap.Consumer

	// loop goroutine only
	rejections []*goja.Promise

	mu        sync.Mutex
	state     State
	started   bool
	finishing bool
	faulted   bool
	reason    error
	startedAt time.Time
	endedAt   time.Time
	timer     *time.Timer
	detached  atomic.Bool

	posted    atomic.Int64
	done      chan struct{}
	aborted   chan struct{}
	abortOnce sync.Once
}

// NewContext builds and instruments a fresh context. The returned context
// is Instrumented and has not run any user code. A nil bus leaves the
// context unbound until Bind or Start.
func NewContext(cfg Config, bus *Bus, logger *zap.Logger) (*ExecutionContext, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	runID := id.NewRunID()
	c := &ExecutionContext{
		runID:  runID,
		cfg:    cfg,
		bus:    bus,
		logger: logger.With(zap.String("run_id", runID.String())),
		vm:     goja.New(),
		loop:   newEventLoop(),
		state:   StateUninitialized,
		done:    make(chan struct{}),
		aborted: make(chan struct{}),
	}
	c.loop.afterJob = c.reportRejections

	if cfg.MaxCallStackSize > 0 {
		c.vm.SetMaxCallStackSize(cfg.MaxCallStackSize)
	}

	if err := c.setupGlobals(); err != nil {
		return nil, fmt.Errorf("failed to set up globals: %w", err)
	}
	if _, err := c.vm.RunProgram(preambleProgram); err != nil {
		return nil, fmt.Errorf("failed to run instrumentation: %w", err)
	}

	c.state = StateInstrumented
	return c, nil
}

// RunID returns the correlation id stamped on every signal of this context
func (c *ExecutionContext) RunID() id.RunID {
	return c.runID
}

// State returns the current lifecycle state
func (c *ExecutionContext) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed when the context reaches a terminal state
func (c *ExecutionContext) Done() <-chan struct{} {
	return c.done
}

// Detached reports whether the context was removed from its host
func (c *ExecutionContext) Detached() bool {
	return c.detached.Load()
}

// Posted returns the number of signals the context has posted
func (c *ExecutionContext) Posted() int64 {
	return c.posted.Load()
}

// Duration returns how long the context ran; zero until terminal
func (c *ExecutionContext) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.endedAt.IsZero() || c.startedAt.IsZero() {
		return 0
	}
	return c.endedAt.Sub(c.startedAt)
}

// Bind sets the bus the context posts to. It must be called before Start.
func (c *ExecutionContext) Bind(bus *Bus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return ErrContextStarted
	}
	c.bus = bus
	return nil
}

// SetSourceMap maps reported error positions through raw, a source map of
// the code passed to Start. It must be called before Start.
func (c *ExecutionContext) SetSourceMap(raw []byte) error {
	smap, err := sourcemap.Parse(programName, raw)
	if err != nil {
		return fmt.Errorf("parsing source map: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return ErrContextStarted
	}
	c.smap = smap
	return nil
}

// Start compiles code and runs it on the context's loop goroutine. It
// returns as soon as the program is scheduled. An unbound context posts to
// DefaultBus.
func (c *ExecutionContext) Start(code string) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrContextStarted
	}
	if c.bus == nil {
		c.bus = DefaultBus()
	}
	c.started = true
	c.state = StateRunning
	c.startedAt = time.Now()
	if c.cfg.Timeout > 0 {
		budget := c.cfg.Timeout
		c.timer = time.AfterFunc(budget, func() { c.abort(&TimeoutError{Budget: budget}) })
	}
	c.mu.Unlock()

	doc := BuildDocument(code)
	prog, compileErr := goja.Compile(programName, doc.Program, false)

	c.loop.enqueue(func() {
		if compileErr != nil {
			c.compileFailed(compileErr)
			return
		}
		c.runProgram(prog)
	})

	go func() {
		defer c.finish()
		c.loop.run()
	}()
	return nil
}

// Destroy abandons the context. Pending callbacks never run; code that is
// executing is interrupted at its next instruction.
func (c *ExecutionContext) Destroy() {
	c.detached.Store(true)
	c.abort(ErrTornDown)
}

func (c *ExecutionContext) abort(reason error) {
	// releases a post blocked on a full queue
	c.abortOnce.Do(func() { close(c.aborted) })

	c.mu.Lock()
	if !c.started {
		c.started = true
		c.reason = reason
		c.state = StateFaulted
		c.mu.Unlock()
		close(c.done)
		return
	}
	if c.finishing || c.reason != nil {
		c.mu.Unlock()
		return
	}
	c.reason = reason
	c.mu.Unlock()

	c.vm.Interrupt(reason)
	c.loop.stop()
}

func (c *ExecutionContext) finish() {
	c.mu.Lock()
	c.finishing = true
	reason := c.reason
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()

	c.loop.close()

	var timeout *TimeoutError
	if errors.As(reason, &timeout) {
		c.post(KindError, timeout.Error())
	}

	c.mu.Lock()
	if reason != nil || c.faulted {
		c.state = StateFaulted
	} else {
		c.state = StateCompleted
	}
	c.endedAt = time.Now()
	state := c.state
	c.mu.Unlock()

	c.logger.Debug("Execution context finished",
		zap.String("state", state.String()),
		zap.Int64("signals", c.posted.Load()),
	)
	close(c.done)
}

func (c *ExecutionContext) markFaulted() {
	c.mu.Lock()
	c.faulted = true
	c.mu.Unlock()
}

func (c *ExecutionContext) post(kind Kind, payload any) {
	c.posted.Add(1)
	delivered := c.bus.post(Signal{
		Source:  SignalSource,
		Type:    kind,
		Payload: payload,
		RunID:   c.runID,
	}, c.aborted)
	if !delivered {
		c.logger.Debug("Signal dropped after abort", zap.String("type", string(kind)))
	}
}

// setupGlobals removes host-flavored globals and installs the bridge
func (c *ExecutionContext) setupGlobals() error {
	for _, name := range []string{"require", "process", "module", "exports", "global"} {
		if err := c.vm.GlobalObject().Delete(name); err != nil {
			return err
		}
	}

	bindings := map[string]any{
		"__repl_post":     c.bridgePost,
		"__repl_host":     c.bridgeHost,
		"__repl_uncaught": c.bridgeUncaught,
		"setTimeout":      c.timerFunc(false),
		"setInterval":     c.timerFunc(true),
		"clearTimeout":    c.clearTimer,
		"clearInterval":   c.clearTimer,
	}
	for name, fn := range bindings {
		if err := c.vm.Set(name, fn); err != nil {
			return err
		}
	}

	c.vm.SetPromiseRejectionTracker(c.trackRejection)
	return nil
}

func (c *ExecutionContext) bridgePost(call goja.FunctionCall) goja.Value {
	kind := Kind(call.Argument(0).String())
	c.post(kind, exportPayload(call.Argument(1)))
	return goja.Undefined()
}

func (c *ExecutionContext) bridgeHost(call goja.FunctionCall) goja.Value {
	if !c.cfg.HostConsole {
		return goja.Undefined()
	}
	level := call.Argument(0).String()
	parts, _ := exportPayload(call.Argument(1)).([]string)
	c.logger.Debug("sandbox console",
		zap.String("level", level),
		zap.Strings("args", parts),
	)
	return goja.Undefined()
}

func (c *ExecutionContext) bridgeUncaught(call goja.FunctionCall) goja.Value {
	c.uncaught(call.Argument(0), "")
	return goja.Undefined()
}

func exportPayload(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	switch exported := v.Export().(type) {
	case string:
		return exported
	case []any:
		parts := make([]string, len(exported))
		for i, p := range exported {
			if s, ok := p.(string); ok {
				parts[i] = s
			} else {
				parts[i] = fmt.Sprint(p)
			}
		}
		return parts
	default:
		return v.String()
	}
}

func (c *ExecutionContext) timerFunc(repeat bool) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(c.vm.NewTypeError("timer callback must be a function"))
		}
		delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond

		var args []goja.Value
		if len(call.Arguments) > 2 {
			args = append(args, call.Arguments[2:]...)
		}

		tid := c.loop.schedule(delay, repeat, func() {
			if _, err := fn(goja.Undefined(), args...); err != nil {
				c.handleError(err)
			}
		})
		return c.vm.ToValue(tid)
	}
}

func (c *ExecutionContext) clearTimer(call goja.FunctionCall) goja.Value {
	c.loop.cancel(call.Argument(0).ToInteger())
	return goja.Undefined()
}

func (c *ExecutionContext) runProgram(prog *goja.Program) {
	val, err := c.vm.RunProgram(prog)
	if err != nil {
		c.handleError(err)
		return
	}
	c.watchCompletion(val)
}

// watchCompletion attaches the rejection handler of the async wrapper
func (c *ExecutionContext) watchCompletion(val goja.Value) {
	obj, ok := val.(*goja.Object)
	if !ok {
		return
	}
	then, ok := goja.AssertFunction(obj.Get("then"))
	if !ok {
		return
	}
	onRejected := c.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		c.fail(call.Argument(0))
		return goja.Undefined()
	})
	if _, err := then(obj, goja.Undefined(), onRejected); err != nil {
		c.handleError(err)
	}
}

// handleError routes an error returned by goja into the right hook
func (c *ExecutionContext) handleError(err error) {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		c.loop.stop()
		c.markFaulted()
		return
	}

	var ex *goja.Exception
	if errors.As(err, &ex) {
		c.uncaught(ex.Value(), ex.String())
		return
	}

	c.markFaulted()
	c.post(KindError, err.Error())
}

// fail reports an error that escaped the async wrapper
func (c *ExecutionContext) fail(reason goja.Value) {
	c.markFaulted()
	c.post(KindError, describe(reason))
}

// uncaught reports an exception that escaped a callback, with its position
func (c *ExecutionContext) uncaught(v goja.Value, trace string) {
	c.markFaulted()
	details := describe(v)
	file, line, col, ok := frame(details)
	if !ok && trace != "" {
		file, line, col, ok = frame(trace)
	}
	if ok {
		line, col = rebase(file, line, col)
		if file == programName {
			line, col = c.original(line, col)
		}
	}
	c.post(KindError, fmt.Sprintf("%s at %d:%d", details, line, col))
}

func (c *ExecutionContext) compileFailed(err error) {
	c.markFaulted()
	line, col := locateCompileError(err.Error())
	if line > 0 {
		line, col = c.original(line, col)
	}
	c.post(KindError, fmt.Sprintf("%s at %d:%d", err.Error(), line, col))
}

// original maps a 1-based position in the lowered program to the source
func (c *ExecutionContext) original(line, col int) (int, int) {
	if c.smap == nil {
		return line, col
	}
	if _, _, srcLine, srcCol, ok := c.smap.Source(line, col-1); ok {
		return srcLine, srcCol + 1
	}
	return line, col
}

func (c *ExecutionContext) trackRejection(p *goja.Promise, op goja.PromiseRejectionOperation) {
	switch op {
	case goja.PromiseRejectionReject:
		c.rejections = append(c.rejections, p)
	case goja.PromiseRejectionHandle:
		for i, pending := range c.rejections {
			if pending == p {
				c.rejections = append(c.rejections[:i], c.rejections[i+1:]...)
				break
			}
		}
	}
}

// reportRejections runs after each job, once its microtasks have drained
func (c *ExecutionContext) reportRejections() {
	if len(c.rejections) == 0 {
		return
	}
	pending := c.rejections
	c.rejections = nil

	c.markFaulted()
	for _, p := range pending {
		c.post(KindError, describe(p.Result()))
	}
}
