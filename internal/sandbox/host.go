package sandbox

import "sync"

// Host is the single attachment slot for execution contexts. At most one
// context is attached at a time.
type Host struct {
	mu      sync.Mutex
	current *ExecutionContext
}

// NewHost creates an empty host
func NewHost() *Host {
	return &Host{}
}

// Attach places ctx in the slot. It fails while another context is attached.
func (h *Host) Attach(ctx *ExecutionContext) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current != nil && h.current != ctx {
		return ErrHostOccupied
	}
	h.current = ctx
	return nil
}

// Detach empties the slot and returns the context that occupied it
func (h *Host) Detach() *ExecutionContext {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev := h.current
	h.current = nil
	if prev != nil {
		prev.detached.Store(true)
	}
	return prev
}

// Attached returns the context in the slot, or nil
func (h *Host) Attached() *ExecutionContext {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}
