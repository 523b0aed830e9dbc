package sandbox

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/Playground/backend/internal/shared/id"
)

type collector struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (c *collector) add(e LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

func (c *collector) snapshot() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func runOnce(t *testing.T, cfg Config, code string) []LogEntry {
	t.Helper()
	c := &collector{}
	r := NewRunner(cfg, c.add)
	defer r.Close()

	r.Run(code)
	require.NoError(t, r.Wait(waitCtx(t)))
	return c.snapshot()
}

func TestRunnerExample(t *testing.T) {
	entries := runOnce(t, DefaultConfig(), `console.log("a", 1); throw new Error("boom")`)

	require.Len(t, entries, 2)
	assert.Equal(t, LogEntry{Kind: KindLog, Message: "a 1"}, entries[0])
	assert.Equal(t, KindError, entries[1].Kind)
	assert.Contains(t, entries[1].Message, "boom")
}

func TestRunnerConsole(t *testing.T) {
	tests := []struct {
		name string
		code string
		want []LogEntry
	}{
		{
			name: "error value logs its message",
			code: `console.log(new Error("bad thing"))`,
			want: []LogEntry{{Kind: KindLog, Message: "bad thing"}},
		},
		{
			name: "circular object falls back",
			code: `const o = {}; o.self = o; console.log(o)`,
			want: []LogEntry{{Kind: KindLog, Message: "[object Object]"}},
		},
		{
			name: "objects are json",
			code: `console.info({a: 1, b: [true, null]})`,
			want: []LogEntry{{Kind: KindLog, Message: `{"a":1,"b":[true,null]}`}},
		},
		{
			name: "undefined",
			code: `console.log(undefined, "x")`,
			want: []LogEntry{{Kind: KindLog, Message: "undefined x"}},
		},
		{
			name: "warn and debug are logs",
			code: `console.warn("w"); console.debug("d")`,
			want: []LogEntry{{Kind: KindLog, Message: "w"}, {Kind: KindLog, Message: "d"}},
		},
		{
			name: "console.error joins args",
			code: `console.error("x", {a: 1})`,
			want: []LogEntry{{Kind: KindError, Message: `x {"a":1}`}},
		},
		{
			name: "table",
			code: `console.table([{a: 1}])`,
			want: []LogEntry{{Kind: KindLog, Message: `[{"a":1}]`}},
		},
		{
			name: "table with columns",
			code: `console.table([{a: 1}], ["a"])`,
			want: []LogEntry{{Kind: KindLog, Message: `[{"a":1}] columns: ["a"]`}},
		},
		{
			name: "typescript annotations",
			code: `const n: number = 2; interface P { x: number } console.log(n * 2)`,
			want: []LogEntry{{Kind: KindLog, Message: "4"}},
		},
		{
			name: "type-only program",
			code: `interface P { x: number }
type Q = P`,
			want: []LogEntry{},
		},
		{
			name: "type errors do not block",
			code: `const s: number = "str" as any; console.log(s)`,
			want: []LogEntry{{Kind: KindLog, Message: "str"}},
		},
		{
			name: "top level await",
			code: `await new Promise(r => setTimeout(r, 5)); console.log("done")`,
			want: []LogEntry{{Kind: KindLog, Message: "done"}},
		},
		{
			name: "no host globals",
			code: `console.log(typeof require, typeof process, typeof module, typeof exports)`,
			want: []LogEntry{{Kind: KindLog, Message: "undefined undefined undefined undefined"}},
		},
		{
			name: "bridge is hidden",
			code: `console.log(typeof __repl_post, typeof __repl_host, typeof __repl_uncaught)`,
			want: []LogEntry{{Kind: KindLog, Message: "undefined undefined undefined"}},
		},
		{
			name: "no output",
			code: `const x = 1 + 1`,
			want: []LogEntry{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := runOnce(t, DefaultConfig(), tt.code)
			assert.Equal(t, tt.want, entries)
		})
	}
}

func TestRunnerOrdering(t *testing.T) {
	code := `
console.log(1);
setTimeout(() => console.log(4), 20);
Promise.resolve().then(() => console.log(3));
console.error(2);
setTimeout(() => { console.log(5); setTimeout(() => console.log(6), 1); }, 30);
`
	entries := runOnce(t, DefaultConfig(), code)

	require.Len(t, entries, 6)
	want := []string{"1", "2", "3", "4", "5", "6"}
	for i, e := range entries {
		assert.Equal(t, want[i], e.Message, "entry %d", i)
	}
	assert.Equal(t, KindError, entries[1].Kind)
}

func TestRunnerErrorHooks(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		contains string
		located  bool
	}{
		{
			name:     "sync throw",
			code:     `throw new Error("sync")`,
			contains: "sync",
		},
		{
			name:     "throw non-error",
			code:     `throw "plain"`,
			contains: "plain",
		},
		{
			name:     "timer callback",
			code:     `setTimeout(() => { throw new Error("late") }, 1)`,
			contains: "late",
			located:  true,
		},
		{
			name:     "microtask callback",
			code:     `queueMicrotask(() => { throw new Error("micro") })`,
			contains: "micro",
			located:  true,
		},
		{
			name:     "unhandled rejection",
			code:     `Promise.reject(new Error("nope"))`,
			contains: "nope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := runOnce(t, DefaultConfig(), tt.code)

			require.Len(t, entries, 1)
			assert.Equal(t, KindError, entries[0].Kind)
			assert.Contains(t, entries[0].Message, tt.contains)
			if tt.located {
				assert.Regexp(t, ` at \d+:\d+$`, entries[0].Message)
			}
		})
	}
}

func TestRunnerHandledRejection(t *testing.T) {
	entries := runOnce(t, DefaultConfig(), `
const p = Promise.reject(new Error("caught"));
p.catch(e => console.log("handled", e.message));
`)
	assert.Equal(t, []LogEntry{{Kind: KindLog, Message: "handled caught"}}, entries)
}

func TestRunnerDiagnostics(t *testing.T) {
	entries := runOnce(t, DefaultConfig(), "const x = ;")

	require.NotEmpty(t, entries)
	assert.Equal(t, KindError, entries[0].Kind)
	assert.True(t, strings.HasPrefix(entries[0].Message, CompilationPrefix+"Line 1:11 - "), entries[0].Message)
	for _, e := range entries {
		assert.Equal(t, KindError, e.Kind)
	}
}

func TestRunnerRunTwice(t *testing.T) {
	c := &collector{}
	r := NewRunner(DefaultConfig(), c.add)
	defer r.Close()

	firstID := r.Run(`setTimeout(() => console.log("first"), 50)`)
	first := r.Host().Attached()
	require.NotNil(t, first)
	assert.Equal(t, firstID, first.RunID())

	secondID := r.Run(`console.log("second")`)
	assert.NotEqual(t, firstID, secondID)
	assert.True(t, first.Detached())

	second := r.Host().Attached()
	require.NotNil(t, second)
	assert.NotSame(t, first, second)

	require.NoError(t, r.Wait(waitCtx(t)))

	select {
	case <-first.Done():
	case <-time.After(time.Second):
		t.Fatal("first context was not torn down")
	}
	assert.Equal(t, StateFaulted, first.State())

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, r.Wait(waitCtx(t)))
	assert.Equal(t, []LogEntry{{Kind: KindLog, Message: "second"}}, c.snapshot())
}

func TestRunnerProvenance(t *testing.T) {
	bus := NewBus(16)
	c := &collector{}
	r := NewRunner(DefaultConfig(), c.add, WithBus(bus))
	defer r.Close()

	runID := r.Run(`console.log("real")`)
	require.NoError(t, r.Wait(waitCtx(t)))

	bus.Post(Signal{Source: "devtools", Type: KindLog, Payload: []string{"forged"}, RunID: runID})
	bus.Post(Signal{Source: SignalSource, Type: KindLog, Payload: []string{"stale"}, RunID: id.NewRunID()})
	bus.Post(Signal{Source: SignalSource, Type: "info", Payload: []string{"odd"}, RunID: runID})
	bus.Post(Signal{Source: SignalSource, Type: KindLog, Payload: []string{"late", "but", "valid"}, RunID: runID})
	require.NoError(t, r.Wait(waitCtx(t)))

	assert.Equal(t, []LogEntry{
		{Kind: KindLog, Message: "real"},
		{Kind: KindLog, Message: "late but valid"},
	}, c.snapshot())
}

type recordingObserver struct {
	mu       sync.Mutex
	started  int
	finished []State
	accepted int
	dropped  []string
}

func (o *recordingObserver) RunStarted(id.RunID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *recordingObserver) RunFinished(_ id.RunID, s State, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, s)
}

func (o *recordingObserver) SignalAccepted(Kind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.accepted++
}

func (o *recordingObserver) SignalDropped(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropped = append(o.dropped, reason)
}

func TestRunnerObserver(t *testing.T) {
	obs := &recordingObserver{}
	bus := NewBus(16)
	r := NewRunner(DefaultConfig(), nil, WithBus(bus), WithObserver(obs))
	defer r.Close()

	r.Run(`console.log("x")`)
	require.NoError(t, r.Wait(waitCtx(t)))
	bus.Post(Signal{Source: "other"})
	require.NoError(t, r.Wait(waitCtx(t)))

	require.Eventually(t, func() bool {
		obs.mu.Lock()
		defer obs.mu.Unlock()
		return len(obs.finished) == 1
	}, time.Second, 5*time.Millisecond)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, 1, obs.started)
	assert.Equal(t, []State{StateCompleted}, obs.finished)
	assert.Equal(t, 1, obs.accepted)
	assert.Equal(t, []string{"provenance"}, obs.dropped)
}

func TestRunnerTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond

	c := &collector{}
	r := NewRunner(cfg, c.add)
	defer r.Close()

	r.Run(`console.log("start"); while (true) {}`)
	require.NoError(t, r.Wait(waitCtx(t)))

	assert.Equal(t, []LogEntry{
		{Kind: KindLog, Message: "start"},
		{Kind: KindError, Message: "Execution timed out after 50ms"},
	}, c.snapshot())
	assert.Equal(t, StateFaulted, r.Host().Attached().State())
}

func TestRunnerTimeoutPendingTimers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 30 * time.Millisecond

	entries := runOnce(t, cfg, `setInterval(() => {}, 5)`)

	require.Len(t, entries, 1)
	assert.Equal(t, "Execution timed out after 30ms", entries[0].Message)
}

func TestRunnerClose(t *testing.T) {
	bus := NewBus(16)
	r := NewRunner(DefaultConfig(), nil, WithBus(bus))
	assert.Equal(t, 1, bus.Subscribers())

	r.Run(`setInterval(() => {}, 10)`)
	ec := r.Host().Attached()
	require.NotNil(t, ec)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, 0, bus.Subscribers())

	select {
	case <-ec.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not torn down")
	}
	assert.Nil(t, r.Host().Attached())
	assert.Equal(t, id.RunID(""), r.Run(`console.log("after close")`))
}

func TestRunnerCallbackPanic(t *testing.T) {
	var calls int
	var mu sync.Mutex
	r := NewRunner(DefaultConfig(), func(LogEntry) {
		mu.Lock()
		calls++
		mu.Unlock()
		panic("callback")
	})
	defer r.Close()

	r.Run(`console.log(1); console.log(2)`)
	require.NoError(t, r.Wait(waitCtx(t)))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
}

func TestRunnerWithPool(t *testing.T) {
	pool, err := NewPool(DefaultConfig(), nil, 2)
	require.NoError(t, err)
	defer pool.Close()

	c := &collector{}
	r := NewRunner(DefaultConfig(), c.add, WithPool(pool))
	defer r.Close()

	for i := 0; i < 3; i++ {
		r.Run(`console.log("pooled")`)
		require.NoError(t, r.Wait(waitCtx(t)))
	}

	entries := c.snapshot()
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, "pooled", e.Message)
	}
}

func TestRunnersSharingPoolAreIsolated(t *testing.T) {
	pool, err := NewPool(DefaultConfig(), nil, 2)
	require.NoError(t, err)
	defer pool.Close()

	a, b := &collector{}, &collector{}
	ra := NewRunner(DefaultConfig(), a.add, WithPool(pool))
	defer ra.Close()
	rb := NewRunner(DefaultConfig(), b.add, WithPool(pool))
	defer rb.Close()

	ra.Run(`console.log("from a")`)
	rb.Run(`console.log("from b")`)
	require.NoError(t, ra.Wait(waitCtx(t)))
	require.NoError(t, rb.Wait(waitCtx(t)))

	assert.Equal(t, []LogEntry{{Kind: KindLog, Message: "from a"}}, a.snapshot())
	assert.Equal(t, []LogEntry{{Kind: KindLog, Message: "from b"}}, b.snapshot())
}

func TestStalledListenerDoesNotBlockOtherRunners(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueSize = 16

	release := make(chan struct{})
	defer close(release)
	stalled := NewRunner(cfg, func(LogEntry) { <-release })
	defer stalled.Close()
	stalled.Run(`for (let i = 0; i < 100; i++) console.log(i)`)

	c := &collector{}
	r := NewRunner(cfg, c.add)
	defer r.Close()
	r.Run(`for (let i = 0; i < 100; i++) console.log(i)`)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, r.Wait(ctx))
	assert.Len(t, c.snapshot(), 100)
	assert.Equal(t, StateCompleted, r.Host().Attached().State())
}

func TestTimeoutReleasesStalledListener(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueSize = 1
	cfg.Timeout = 50 * time.Millisecond

	release := make(chan struct{})
	defer close(release)
	r := NewRunner(cfg, func(LogEntry) { <-release })
	defer r.Close()

	r.Run(`while (true) console.log("spam")`)
	ec := r.Host().Attached()
	require.NotNil(t, ec)

	select {
	case <-ec.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("timeout did not stop a context blocked on its listener")
	}
	assert.Equal(t, StateFaulted, ec.State())
}

func TestRunnerRunEntries(t *testing.T) {
	var (
		mu     sync.Mutex
		tagged []id.RunID
	)
	r := NewRunner(DefaultConfig(), nil, WithRunEntries(func(runID id.RunID, _ LogEntry) {
		mu.Lock()
		tagged = append(tagged, runID)
		mu.Unlock()
	}))
	defer r.Close()

	first := r.Run(`console.log(1)`)
	require.NoError(t, r.Wait(waitCtx(t)))
	second := r.Run(`console.log(2); console.log(3)`)
	require.NoError(t, r.Wait(waitCtx(t)))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []id.RunID{first, second, second}, tagged)
}

func TestRunnerErrorPositionsMapToSource(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{
			name: "statements split by the transpiler",
			code: `const a: number = 1; throw new Error("first line")`,
			want: ` at 1:\d+$`,
		},
		{
			name: "erased declarations above",
			code: "interface P {\n  x: number\n}\nthrow new Error(\"fourth line\")",
			want: ` at 4:\d+$`,
		},
		{
			name: "timer callback",
			code: "type T = string\n\nsetTimeout(() => { throw new Error(\"late\") }, 1)",
			want: ` at 3:\d+$`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := runOnce(t, DefaultConfig(), tt.code)
			require.Len(t, entries, 1)
			assert.Equal(t, KindError, entries[0].Kind)
			assert.Regexp(t, tt.want, entries[0].Message)
		})
	}
}
