package sandbox

import (
	"sync"
	"time"
)

// minInterval keeps setInterval(fn, 0) from spinning the loop
const minInterval = time.Millisecond

// eventLoop serializes every job for one goja runtime onto a single
// goroutine. Timers fire on their own goroutines but only enqueue jobs.
// The loop drains when the queue is empty and no timer is armed.
type eventLoop struct {
	mu     sync.Mutex
	queue  []func()
	timers map[int64]*loopTimer
	nextID int64

	wake     chan struct{}
	quit     chan struct{}
	quitOnce sync.Once

	// afterJob runs on the loop goroutine after every job
	afterJob func()
}

type loopTimer struct {
	t        *time.Timer
	interval time.Duration
	repeat   bool
	fn       func()
}

func newEventLoop() *eventLoop {
	return &eventLoop{
		timers: make(map[int64]*loopTimer),
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
	}
}

// enqueue appends a job; safe from any goroutine
func (l *eventLoop) enqueue(job func()) {
	l.mu.Lock()
	l.queue = append(l.queue, job)
	l.mu.Unlock()
	l.signal()
}

func (l *eventLoop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// schedule arms a timer and returns its id. A timer keeps the loop alive
// until it fires (once) or is cancelled.
func (l *eventLoop) schedule(delay time.Duration, repeat bool, fn func()) int64 {
	if delay < 0 {
		delay = 0
	}
	if repeat && delay < minInterval {
		delay = minInterval
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	tid := l.nextID
	lt := &loopTimer{interval: delay, repeat: repeat, fn: fn}
	lt.t = time.AfterFunc(delay, func() { l.fire(tid) })
	l.timers[tid] = lt
	return tid
}

func (l *eventLoop) fire(tid int64) {
	l.enqueue(func() {
		l.mu.Lock()
		lt, ok := l.timers[tid]
		if !ok {
			l.mu.Unlock()
			return
		}
		if lt.repeat {
			lt.t.Reset(lt.interval)
		} else {
			delete(l.timers, tid)
		}
		l.mu.Unlock()

		lt.fn()
	})
}

// cancel disarms a timer; unknown ids are ignored
func (l *eventLoop) cancel(tid int64) {
	l.mu.Lock()
	if lt, ok := l.timers[tid]; ok {
		lt.t.Stop()
		delete(l.timers, tid)
	}
	l.mu.Unlock()
	l.signal()
}

// run processes jobs until the loop drains or stop is called
func (l *eventLoop) run() {
	for {
		select {
		case <-l.quit:
			return
		default:
		}

		l.mu.Lock()
		if len(l.queue) > 0 {
			job := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()

			job()
			if l.afterJob != nil {
				l.afterJob()
			}
			continue
		}
		idle := len(l.timers) == 0
		l.mu.Unlock()

		if idle {
			return
		}

		select {
		case <-l.wake:
		case <-l.quit:
			return
		}
	}
}

// stop makes run return before its next job; safe from any goroutine
func (l *eventLoop) stop() {
	l.quitOnce.Do(func() { close(l.quit) })
}

// close disarms every timer and drops queued jobs
func (l *eventLoop) close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for tid, lt := range l.timers {
		lt.t.Stop()
		delete(l.timers, tid)
	}
	l.queue = nil
}

// pending returns the number of queued jobs and armed timers
func (l *eventLoop) pending() (jobs, timers int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue), len(l.timers)
}
