package notification

import (
	"context"
	"sync"
)

// DefaultBufferSize is the MemoryQueue capacity when none is configured.
const DefaultBufferSize = 100

// MemoryQueue is an in-process queue drained by a Worker.
type MemoryQueue struct {
	ch     chan *Message
	mu     sync.RWMutex
	closed bool
}

// NewMemoryQueue returns a queue buffering up to size messages.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &MemoryQueue{ch: make(chan *Message, size)}
}

// Name returns "memory".
func (q *MemoryQueue) Name() string { return "memory" }

// Enqueue adds msg without blocking. A full buffer fails with ErrQueueFull.
func (q *MemoryQueue) Enqueue(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return dispatchError(q.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return dispatchError(q.Name(), err)
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return dispatchError(q.Name(), ErrQueueClosed)
	}

	select {
	case q.ch <- msg:
		return nil
	default:
		return dispatchError(q.Name(), ErrQueueFull)
	}
}

// Messages returns the channel the Worker consumes. It is closed by Close.
func (q *MemoryQueue) Messages() <-chan *Message {
	return q.ch
}

// Len returns the number of buffered messages.
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

// Close stops accepting messages. Buffered messages remain readable.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	return nil
}
