package watch

import (
	"context"
	"sync"
	"sync/atomic"

	"rugwatch/internal/domain"
)

// Queue is the bounded buffer between the event source and the enrichment
// workers. When the subscription outpaces the workers, Push evicts the
// oldest pending event to admit the newest: during a flood, checking fresh
// launches beats finishing a backlog of stale ones.
type Queue struct {
	ch      chan *domain.CreationEvent
	pushMu  sync.Mutex
	dropped atomic.Uint64
}

// NewQueue creates a bounded queue with the given capacity.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{ch: make(chan *domain.CreationEvent, size)}
}

// Push adds an event, evicting the oldest pending event when the queue is
// full. It never blocks and reports whether an eviction happened.
//
// Push must not be called after Close.
func (q *Queue) Push(event *domain.CreationEvent) bool {
	q.pushMu.Lock()
	defer q.pushMu.Unlock()

	evicted := false
	for {
		select {
		case q.ch <- event:
			return evicted
		default:
		}
		select {
		case <-q.ch:
			q.dropped.Add(1)
			evicted = true
		default:
			// A worker took the slot between our two selects. Loop and
			// try the send again.
		}
	}
}

// Pop blocks until an event is available or the context is done. ok is
// false when the queue is closed and drained, or when the wait was cut
// short by the context.
func (q *Queue) Pop(ctx context.Context) (event *domain.CreationEvent, ok bool) {
	select {
	case event, ok = <-q.ch:
		return event, ok
	case <-ctx.Done():
		return nil, false
	}
}

// Close marks the end of input. Pending events remain poppable.
func (q *Queue) Close() {
	q.pushMu.Lock()
	defer q.pushMu.Unlock()
	close(q.ch)
}

// Len returns the number of pending events.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return cap(q.ch) }

// Dropped returns how many pending events were evicted by overflow.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
