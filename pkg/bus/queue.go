package bus

import (
	"sync"

	"github.com/wirehome/core/pkg/metrics"
	"github.com/wirehome/core/pkg/types"
)

// messageQueue is the bounded FIFO buffer behind a long-poll subscription.
// Overflow drops the oldest message; enqueue never blocks the publisher.
type messageQueue struct {
	mu       sync.Mutex
	items    []types.BusMessage
	capacity int
	overflow int64
	closed   bool

	// signal carries at most one pending wakeup for the draining waiter.
	signal chan struct{}
}

func newMessageQueue(capacity int) *messageQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &messageQueue{
		capacity: capacity,
		signal:   make(chan struct{}, 1),
	}
}

// enqueue appends m, dropping the oldest message when the queue is at
// capacity. A closed queue rejects the message silently.
func (q *messageQueue) enqueue(m types.BusMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	if len(q.items) >= q.capacity {
		drop := len(q.items) - q.capacity + 1
		q.items = append(q.items[:0], q.items[drop:]...)
		q.overflow += int64(drop)
		metrics.BusMessagesDropped.Add(float64(drop))
	}
	q.items = append(q.items, m)

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// drain removes and returns all queued messages in FIFO order.
func (q *messageQueue) drain() []types.BusMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

// size returns the number of queued messages.
func (q *messageQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// overflowCount returns how many messages were dropped due to a full queue.
func (q *messageQueue) overflowCount() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.overflow
}

// close transitions the queue to Closed and wakes a pending waiter. Further
// enqueues are rejected silently; queued messages remain drainable.
func (q *messageQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *messageQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
