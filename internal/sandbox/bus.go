package sandbox

import (
	"context"
	"sync"
)

// Bus is a broadcast channel between execution contexts and their hosts.
// Every subscriber sees every posted signal, in posting order per producer;
// receivers filter by provenance. Posting blocks while a live subscriber's
// queue is full. Each Runner owns its bus, so a slow listener only stalls
// the contexts it runs.
type Bus struct {
	queueSize int

	mu   sync.RWMutex
	subs []*Subscription
}

// Subscription is one registered listener on a bus
type Subscription struct {
	bus     *Bus
	handler func(Signal)
	queue   chan delivery
	done    chan struct{}
	once    sync.Once
}

type delivery struct {
	sig     Signal
	barrier chan struct{}
}

var (
	defaultBus     *Bus
	defaultBusOnce sync.Once
)

// DefaultBus returns the process-wide bus
func DefaultBus() *Bus {
	defaultBusOnce.Do(func() {
		defaultBus = NewBus(DefaultConfig().QueueSize)
	})
	return defaultBus
}

// NewBus creates a bus whose subscribers buffer queueSize signals
func NewBus(queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultConfig().QueueSize
	}
	return &Bus{queueSize: queueSize}
}

// Subscribe registers handler. Handler calls for one subscription are
// serialized on a dedicated goroutine.
func (b *Bus) Subscribe(handler func(Signal)) *Subscription {
	s := &Subscription{
		bus:     b,
		handler: handler,
		queue:   make(chan delivery, b.queueSize),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs)+1)
	subs = append(subs, b.subs...)
	b.subs = append(subs, s)
	b.mu.Unlock()

	go s.loop()
	return s
}

// Post broadcasts sig to every subscriber
func (b *Bus) Post(sig Signal) {
	b.post(sig, nil)
}

// post broadcasts sig, giving up on a full subscriber once stop is closed.
// It reports whether every live subscriber received sig.
func (b *Bus) post(sig Signal, stop <-chan struct{}) bool {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	delivered := true
	for _, s := range subs {
		if !s.enqueue(delivery{sig: sig}, stop) {
			delivered = false
		}
	}
	return delivered
}

// Subscribers returns the number of live subscriptions
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) remove(target *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s != target {
			subs = append(subs, s)
		}
	}
	b.subs = subs
}

// Inject queues sig for this subscriber only, behind anything already posted
func (s *Subscription) Inject(sig Signal) {
	s.enqueue(delivery{sig: sig}, nil)
}

// Sync blocks until every signal queued before the call has been handled
func (s *Subscription) Sync(ctx context.Context) error {
	barrier := make(chan struct{})
	select {
	case s.queue <- delivery{barrier: barrier}:
	case <-s.done:
		return ErrUnsubscribed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-barrier:
		return nil
	case <-s.done:
		return ErrUnsubscribed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel deregisters the subscription. Only the first call has an effect;
// it reports whether this call performed the deregistration.
func (s *Subscription) Cancel() bool {
	cancelled := false
	s.once.Do(func() {
		close(s.done)
		s.bus.remove(s)
		cancelled = true
	})
	return cancelled
}

// Done is closed once the subscription is cancelled
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// enqueue reports false when stop closed first; a cancelled subscription
// counts as delivered
func (s *Subscription) enqueue(d delivery, stop <-chan struct{}) bool {
	select {
	case s.queue <- d:
		return true
	default:
	}
	select {
	case s.queue <- d:
		return true
	case <-s.done:
		return true
	case <-stop:
		return false
	}
}

func (s *Subscription) loop() {
	for {
		select {
		case d := <-s.queue:
			if d.barrier != nil {
				close(d.barrier)
				continue
			}
			s.handler(d.sig)
		case <-s.done:
			return
		}
	}
}
