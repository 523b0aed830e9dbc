package sandbox

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Pool keeps instrumented contexts warm. Contexts are single-use: Acquire
// hands one out and a replacement is built in the background. Pooled
// contexts are unbound; the runner that attaches one binds it to its bus.
type Pool struct {
	config Config
	logger *zap.Logger

	contexts chan *ExecutionContext
	size     int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool creates a pool and pre-instruments size contexts
func NewPool(config Config, logger *zap.Logger, size int) (*Pool, error) {
	if size <= 0 {
		size = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pool := &Pool{
		config:   config,
		logger:   logger,
		contexts: make(chan *ExecutionContext, size),
		size:     size,
	}

	for i := 0; i < size; i++ {
		ec, err := NewContext(config, nil, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		pool.contexts <- ec
	}

	return pool, nil
}

// Acquire returns a warm context, or builds one if the pool is drained
func (p *Pool) Acquire(ctx context.Context) (*ExecutionContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	select {
	case ec := <-p.contexts:
		p.refill()
		return ec, nil
	default:
		return NewContext(p.config, nil, p.logger)
	}
}

// refill builds one replacement; caller holds the read lock
func (p *Pool) refill() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ec, err := NewContext(p.config, nil, p.logger)
		if err != nil {
			p.logger.Warn("Failed to refill sandbox pool", zap.Error(err))
			return
		}

		p.mu.RLock()
		defer p.mu.RUnlock()
		if p.closed {
			ec.Destroy()
			return
		}
		select {
		case p.contexts <- ec:
		default:
			ec.Destroy()
		}
	}()
}

// Close destroys every idle context. Contexts already handed out are not
// affected.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	close(p.contexts)
	for ec := range p.contexts {
		ec.Destroy()
	}
	return nil
}

// Stats returns pool statistics
func (p *Pool) Stats() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return map[string]interface{}{
		"size":      p.size,
		"available": len(p.contexts),
		"closed":    p.closed,
	}
}
