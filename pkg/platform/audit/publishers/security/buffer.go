package security

import (
	"sync"

	audit "provenant/pkg/platform/audit"
)

const defaultBufferSize = 10000

// queue holds security events waiting to be flushed. It is bounded; once
// full, each push evicts the oldest pending event and counts it as dropped.
type queue struct {
	mu      sync.Mutex
	events  []audit.Event
	limit   int
	dropped int64
}

func newQueue(limit int) *queue {
	if limit <= 0 {
		limit = defaultBufferSize
	}
	return &queue{limit: limit}
}

// push appends event and returns the pending count.
func (q *queue) push(event audit.Event) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == q.limit {
		q.events[0] = audit.Event{}
		q.events = q.events[1:]
		q.dropped++
	}
	q.events = append(q.events, event)
	return len(q.events)
}

// take removes and returns up to n of the oldest events.
func (q *queue) take(n int) []audit.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > len(q.events) {
		n = len(q.events)
	}
	if n == 0 {
		return nil
	}
	batch := make([]audit.Event, n)
	copy(batch, q.events[:n])
	q.events = append(q.events[:0:0], q.events[n:]...)
	return batch
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

func (q *queue) droppedCount() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
