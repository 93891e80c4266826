package core

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// Queue is a slice-backed FIFO. It is not safe for concurrent use; owners
// guard it with their own lock.
//
// Removed slots are zeroed so the queue never pins values it no longer holds,
// and the backing array shrinks once it is mostly empty.
type Queue[T any] struct {
	items []T
}

// NewQueue returns an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0, defaultQueueCap),
	}
}

// Push appends v at the tail.
func (q *Queue[T]) Push(v T) {
	q.items = append(q.items, v)
}

// Pop removes and returns the head.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	item := q.items[0]
	// Zero out the element in the underlying array to prevent memory leak
	q.items[0] = zero
	q.items = q.items[1:]
	q.maybeCompact()

	return item, true
}

// At returns the i-th element counted from the head.
func (q *Queue[T]) At(i int) T {
	return q.items[i]
}

// Discard drops the first n elements, keeping the relative order of the rest.
func (q *Queue[T]) Discard(n int) {
	if n <= 0 {
		return
	}
	if n > len(q.items) {
		n = len(q.items)
	}

	var zero T
	for i := range n {
		q.items[i] = zero
	}
	q.items = q.items[n:]
	q.maybeCompact()
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// IsEmpty reports whether the queue holds nothing.
func (q *Queue[T]) IsEmpty() bool {
	return len(q.items) == 0
}

// Clear removes all elements and releases references.
func (q *Queue[T]) Clear() {
	q.items = make([]T, 0, defaultQueueCap)
}

func (q *Queue[T]) maybeCompact() {
	n := len(q.items)
	c := cap(q.items)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		q.items = make([]T, 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultQueueCap), n)

	newSlice := make([]T, n, newCap)
	copy(newSlice, q.items)
	q.items = newSlice
}

// Retain keeps only the elements for which keep returns true, in order, and
// returns how many were dropped.
func (q *Queue[T]) Retain(keep func(T) bool) int {
	var zero T
	n := 0
	for _, v := range q.items {
		if keep(v) {
			q.items[n] = v
			n++
		}
	}
	dropped := len(q.items) - n
	for i := n; i < len(q.items); i++ {
		q.items[i] = zero
	}
	q.items = q.items[:n]
	q.maybeCompact()
	return dropped
}
