package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// StreamHandle identifies one registered stream. Release uses pointer
// identity so a handle can only remove itself, never a replacement.
type StreamHandle struct {
	conversationId uuid.UUID
	cancel         context.CancelFunc
}

// StreamRegistry enforces at most one live answer stream per conversation.
// Acquiring for a conversation that already has a stream aborts the old
// one first (abort then replace).
type StreamRegistry struct {
	mu     sync.Mutex
	active map[uuid.UUID]*StreamHandle
}

func NewStreamRegistry() *StreamRegistry {
	return &StreamRegistry{
		active: make(map[uuid.UUID]*StreamHandle),
	}
}

func (r *StreamRegistry) Acquire(conversationId uuid.UUID, cancel context.CancelFunc) *StreamHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.active[conversationId]; ok {
		prev.cancel()
	}

	h := &StreamHandle{
		conversationId: conversationId,
		cancel:         cancel,
	}
	r.active[conversationId] = h
	return h
}

// Release removes the handle if it is still the active one. A handle
// replaced by a newer Acquire is already gone and this is a no-op.
func (r *StreamRegistry) Release(h *StreamHandle) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active[h.conversationId] == h {
		delete(r.active, h.conversationId)
	}
}

// Cancel aborts the active stream for the conversation. Returns false
// when there is nothing to cancel.
func (r *StreamRegistry) Cancel(conversationId uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.active[conversationId]
	if !ok {
		return false
	}
	h.cancel()
	delete(r.active, conversationId)
	return true
}
