// Package queue buffers logged incidents between the focus engine and the store.
package queue

import (
	"context"
	"sync"

	"github.com/okian/proctorwatch/internal/domain/model"
	"github.com/okian/proctorwatch/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Incident is the payload flowing through the queue.
type Incident = model.Incident

// Queue provides non-blocking enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue adds an incident without blocking. It returns ErrQueueFull when
	// the buffer is at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, inc Incident) error

	// Dequeue returns a channel of incidents. It is closed once the queue is
	// closed and drained, or ctx is done.
	Dequeue(ctx context.Context) <-chan Incident

	// Len returns the number of buffered incidents.
	Len() int

	Capacity() int

	// Close stops accepting incidents. Buffered incidents are still delivered.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	incidents chan Incident
	capacity  int
	mu        sync.RWMutex
	closed    bool
}

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.incidents = make(chan Incident, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue adds an incident to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, inc Incident) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError("context_cancelled")
		return err
	}

	select {
	case q.incidents <- inc:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		metrics.RecordQueueEnqueueError("queue_full")
		return ErrQueueFull
	}
}

// Dequeue returns a channel that receives incidents as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Incident {
	out := make(chan Incident)
	go func() {
		defer close(out)
		for inc := range q.incidents {
			select {
			case out <- inc:
				metrics.RecordQueueDequeue()
				q.observe()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued incidents.
func (q *InMemoryQueue) Len() int {
	q.observe()
	return len(q.incidents)
}

// Capacity returns the maximum number of buffered incidents.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

// Close stops the queue. It is safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.incidents)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) observe() {
	size := len(q.incidents)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
