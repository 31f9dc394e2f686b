package containers

import (
	"github.com/cockroachdb/errors"
	"github.com/tokiengine/memcore/memory"
)

// RingBuffer is a fixed-capacity FIFO queue of T
type RingBuffer[T any] struct {
	storage     storage[T]
	head        int
	count       int
	destroyable bool
}

// NewRingBuffer creates an empty queue of capacity elements drawing from allocator, or
// memory.Default when allocator is nil
func NewRingBuffer[T any](allocator memory.Allocator, capacity int) (*RingBuffer[T], error) {
	if capacity <= 0 {
		return nil, errors.Wrapf(ErrInvalidCapacity, "ring buffer capacity %d", capacity)
	}

	r := &RingBuffer[T]{
		storage:     newStorage[T](allocator, memory.TagRingBuffer),
		destroyable: implementsDestroyer[T](),
	}
	if err := r.storage.resize(capacity); err != nil {
		return nil, errors.Wrapf(err, "could not allocate %d ring buffer slots", capacity)
	}
	return r, nil
}

func (r *RingBuffer[T]) Len() int { return r.count }

func (r *RingBuffer[T]) Cap() int { return len(r.storage.items) }

func (r *RingBuffer[T]) IsEmpty() bool { return r.count == 0 }

func (r *RingBuffer[T]) IsFull() bool { return r.count >= len(r.storage.items) }

func (r *RingBuffer[T]) slot(offset int) *T {
	return &r.storage.items[(r.head+offset)%len(r.storage.items)]
}

// EmplaceBack reserves the slot after the last element and returns it zeroed for in-place
// construction. It returns nil when the queue is full.
func (r *RingBuffer[T]) EmplaceBack() *T {
	if r.IsFull() {
		return nil
	}

	slot := r.slot(r.count)
	var zero T
	*slot = zero
	r.count++
	return slot
}

// PushBack appends value, reporting false when the queue is full
func (r *RingBuffer[T]) PushBack(value T) bool {
	slot := r.EmplaceBack()
	if slot == nil {
		return false
	}
	*slot = value
	return true
}

// Peek returns the oldest element without removing it
func (r *RingBuffer[T]) Peek() (*T, bool) {
	if r.count == 0 {
		return nil, false
	}
	return r.slot(0), true
}

// Pop removes and returns the oldest element. The slot it occupied is zeroed; the element is
// handed to the caller and is not destroyed.
func (r *RingBuffer[T]) Pop() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}

	slot := r.slot(0)
	value := *slot
	*slot = zero
	r.head = (r.head + 1) % len(r.storage.items)
	r.count--
	return value, true
}

// ForEach calls fn for each element from oldest to newest until fn returns false
func (r *RingBuffer[T]) ForEach(fn func(value *T) bool) {
	for i := 0; i < r.count; i++ {
		if !fn(r.slot(i)) {
			return
		}
	}
}

// Clear destroys every element
func (r *RingBuffer[T]) Clear() {
	var zero T
	for i := 0; i < r.count; i++ {
		slot := r.slot(i)
		if r.destroyable {
			destroyElement(slot)
		}
		*slot = zero
	}
	r.head = 0
	r.count = 0
}

// Destroy clears the queue and returns its storage to the allocator
func (r *RingBuffer[T]) Destroy() error {
	r.Clear()
	return r.storage.release()
}
