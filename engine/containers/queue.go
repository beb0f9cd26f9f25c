package containers

import "sync"

// Queue is a mutex-guarded growable FIFO. It is the handoff structure
// between many producer threads and a single consumer that drains it.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// NewQueue creates a Queue with room for capacity items before growing.
func NewQueue[T any](capacity int) *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0, capacity),
	}
}

// Enqueue appends an element to the queue.
func (q *Queue[T]) Enqueue(value T) {
	q.mu.Lock()
	q.items = append(q.items, value)
	q.mu.Unlock()
}

// Drain removes and returns every queued element in FIFO order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	items := q.items
	q.items = make([]T, 0, cap(items))
	q.mu.Unlock()
	return items
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// IsEmpty checks if the queue is empty.
func (q *Queue[T]) IsEmpty() bool {
	return q.Len() == 0
}
