// Package queue carries intents from every surface to the single dispatcher.
//
// Enqueue never blocks: a full queue is reported to the caller, which turns
// it into backpressure.
package queue

import (
	"context"
	"sync"

	"github.com/okian/recap/internal/domain/model"
	"github.com/okian/recap/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an intent. It returns ErrFull, ErrClosed or the
	// context error when the intent was not queued.
	Enqueue(ctx context.Context, in model.Intent) error

	// Dequeue returns a channel that receives intents in FIFO order.
	// The channel is closed when the queue is closed and drained, or ctx ends.
	Dequeue(ctx context.Context) <-chan model.Intent

	// Len returns the current number of queued intents.
	Len(ctx context.Context) int

	// Close stops accepting intents. Already queued intents are still delivered.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	intents  chan model.Intent
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.intents = make(chan model.Intent, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds an intent to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, in model.Intent) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.intents <- in:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.intents))
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that receives intents as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.Intent {
	out := make(chan model.Intent)
	go func() {
		defer close(out)
		for {
			select {
			case in, ok := <-q.intents:
				if !ok {
					return
				}
				select {
				case out <- in:
					metrics.RecordQueueDequeue()
					metrics.UpdateQueueSize(len(q.intents))
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued intents.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.intents)
	metrics.UpdateQueueSize(size)
	return size
}

// Capacity returns the configured capacity.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.intents)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
