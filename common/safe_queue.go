package common

import "sync"

// SafeQueue is a FIFO queue guarded by its own mutex.
// It is safe for concurrent producers and consumers; blocking and signalling are left to the caller.
type SafeQueue[T any] struct {
	mu    *sync.Mutex
	items []T
}

// NewSafeQueue creates an empty SafeQueue.
//
// Returns:
//   - *SafeQueue[T]: the new queue
func NewSafeQueue[T any]() *SafeQueue[T] {
	return &SafeQueue[T]{
		mu: &sync.Mutex{},
	}
}

// Push appends an item to the back of the queue.
//
// Parameters:
//   - item: the value to enqueue
func (q *SafeQueue[T]) Push(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
}

// TryPop removes and returns the front item without blocking.
//
// Returns:
//   - T: the front item, or the zero value if the queue is empty
//   - bool: true if an item was removed
func (q *SafeQueue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

// Clear drops every queued item.
func (q *SafeQueue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// Empty reports whether the queue holds no items.
func (q *SafeQueue[T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Size returns the number of queued items.
func (q *SafeQueue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
