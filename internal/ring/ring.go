// Package ring provides a fixed-capacity FIFO buffer that overwrites its
// oldest entry when full.
//
// It backs the event replay buffer, the state change history and the
// rolling dispatch-time window. Buffers are not safe for concurrent use;
// owners guard them with their own locks.
package ring

// Buffer is a bounded FIFO of T.
type Buffer[T any] struct {
	items []T
	head  int // index of the oldest item
	size  int
}

// New creates a buffer holding at most capacity items.
// A capacity below one is treated as one.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Push appends v. When the buffer is full the oldest item is evicted and
// returned with evicted set to true.
func (b *Buffer[T]) Push(v T) (old T, evicted bool) {
	c := len(b.items)
	if b.size < c {
		b.items[(b.head+b.size)%c] = v
		b.size++
		return old, false
	}
	old = b.items[b.head]
	b.items[b.head] = v
	b.head = (b.head + 1) % c
	return old, true
}

// Len returns the number of items held.
func (b *Buffer[T]) Len() int {
	return b.size
}

// Slice returns the items oldest first in a new slice.
func (b *Buffer[T]) Slice() []T {
	out := make([]T, b.size)
	for i := range out {
		out[i] = b.items[(b.head+i)%len(b.items)]
	}
	return out
}

// Drain removes every item and returns them oldest first.
func (b *Buffer[T]) Drain() []T {
	out := b.Slice()
	b.Clear()
	return out
}

// Clear removes every item.
func (b *Buffer[T]) Clear() {
	clear(b.items)
	b.head = 0
	b.size = 0
}
