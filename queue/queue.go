// Package queue provides an unbounded, goroutine-safe FIFO with blocking,
// context-aware reads.
//
// Push never blocks. Pop blocks until an item is available, the context is
// done or the queue is closed. Items are returned in the order they were
// pushed.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by Pop once the queue is closed and drained.
var ErrClosed = errors.New("queue closed")

// Queue is an unbounded FIFO of T. The zero value is not usable; use New.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool

	// ready holds at most one wake-up token; closing it releases all waiters.
	ready chan struct{}
	done  chan struct{}
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Push appends v to the tail of the queue. It returns false if the queue is closed.
func (q *Queue[T]) Push(v T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	q.signal()
	return true
}

// Pop removes and returns the head of the queue, blocking until an item is
// available. It returns ctx.Err() if ctx is done first, or ErrClosed if the
// queue is closed and empty.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		if v, ok := q.tryPop(); ok {
			return v, nil
		}

		q.mu.Lock()
		closed := q.closed && len(q.items) == 0
		q.mu.Unlock()
		if closed {
			var zero T
			return zero, ErrClosed
		}

		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// PollTimeout waits up to timeout for an item. It returns false on timeout,
// when the queue is closed, or immediately when timeout <= 0 and the queue is empty.
func (q *Queue[T]) PollTimeout(timeout time.Duration) (T, bool) {
	if timeout <= 0 {
		return q.tryPop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	v, err := q.Pop(ctx)
	return v, err == nil
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear discards all queued items and returns how many were removed.
func (q *Queue[T]) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	clear(q.items)
	q.items = q.items[:0]
	return n
}

// Close marks the queue closed. Pending items may still be popped; blocked
// and future Pop calls on an empty queue return ErrClosed. Close is idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

func (q *Queue[T]) tryPop() (T, bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		var zero T
		return zero, false
	}
	v := q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	more := len(q.items) > 0
	if !more {
		q.items = nil
	}
	q.mu.Unlock()

	// Hand the token on so another blocked reader sees the remaining items.
	if more {
		q.signal()
	}
	return v, true
}

func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
