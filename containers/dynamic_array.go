package containers

import (
	"github.com/cockroachdb/errors"
	"github.com/tokiengine/memcore/memory"
)

const growthFactor = 2.0

// DynamicArray is a growable array of T whose storage comes from a memory.Allocator. Capacity
// grows by growthFactor when an append finds the array full and is never shrunk automatically.
// Slices and pointers into the array are invalidated by anything that grows it.
type DynamicArray[T any] struct {
	storage     storage[T]
	size        int
	destroyable bool
}

// NewDynamicArray creates an empty array drawing from allocator, or memory.Default when
// allocator is nil. No memory is allocated until the first element is added.
func NewDynamicArray[T any](allocator memory.Allocator) *DynamicArray[T] {
	return &DynamicArray[T]{
		storage:     newStorage[T](allocator, memory.TagDynamicArray),
		destroyable: implementsDestroyer[T](),
	}
}

// NewDynamicArrayWithSize creates an array holding size zero values
func NewDynamicArrayWithSize[T any](allocator memory.Allocator, size int) (*DynamicArray[T], error) {
	array := NewDynamicArray[T](allocator)
	if err := array.Resize(size); err != nil {
		return nil, err
	}
	return array, nil
}

// NewDynamicArrayFrom creates an array holding a copy of values
func NewDynamicArrayFrom[T any](allocator memory.Allocator, values ...T) (*DynamicArray[T], error) {
	array, err := NewDynamicArrayWithSize[T](allocator, len(values))
	if err != nil {
		return nil, err
	}
	copy(array.storage.items, values)
	return array, nil
}

func (a *DynamicArray[T]) Len() int { return a.size }

func (a *DynamicArray[T]) Cap() int { return len(a.storage.items) }

func (a *DynamicArray[T]) reallocate(capacity int) error {
	if err := a.storage.resize(capacity); err != nil {
		return errors.Wrapf(err, "could not reallocate dynamic array to %d elements", capacity)
	}
	return nil
}

// destroyRange destroys the elements in [from, to) and zeroes their slots
func (a *DynamicArray[T]) destroyRange(from int, to int) {
	if a.destroyable {
		for i := from; i < to; i++ {
			destroyElement(&a.storage.items[i])
		}
	}
	clear(a.storage.items[from:to])
}

// Resize sets the number of elements. Growing past the capacity reallocates to exactly size
// elements; new elements are zero values. Shrinking destroys the elements past size.
func (a *DynamicArray[T]) Resize(size int) error {
	if size < 0 {
		return errors.Wrapf(ErrIndexOutOfRange, "size %d", size)
	}

	if size > a.Cap() {
		if err := a.reallocate(size); err != nil {
			return err
		}
	} else if size < a.size {
		a.destroyRange(size, a.size)
	}

	a.size = size
	return nil
}

// Grow adds count zero values to the end of the array
func (a *DynamicArray[T]) Grow(count int) error {
	return a.Resize(a.size + count)
}

// Reserve ensures the array can hold capacity elements without reallocating
func (a *DynamicArray[T]) Reserve(capacity int) error {
	if capacity <= a.Cap() {
		return nil
	}
	return a.reallocate(capacity)
}

// ShrinkToSize drops the elements past size without releasing any capacity. It never grows
// the array; use Resize for that.
func (a *DynamicArray[T]) ShrinkToSize(size int) error {
	if size < 0 || size > a.size {
		return errors.Wrapf(ErrIndexOutOfRange, "cannot shrink %d elements to %d", a.size, size)
	}
	return a.Resize(size)
}

// Fill overwrites every element with value
func (a *DynamicArray[T]) Fill(value T) {
	for i := 0; i < a.size; i++ {
		a.storage.items[i] = value
	}
}

func (a *DynamicArray[T]) ensureSpace() error {
	if a.size < a.Cap() {
		return nil
	}
	return a.reallocate(max(int(float64(a.Cap())*growthFactor), 1))
}

// PushBack appends value, growing the array if it is full
func (a *DynamicArray[T]) PushBack(value T) error {
	if err := a.ensureSpace(); err != nil {
		return err
	}

	a.storage.items[a.size] = value
	a.size++
	return nil
}

// EmplaceBack appends a zero value and returns a pointer to it so it can be initialized in place
func (a *DynamicArray[T]) EmplaceBack() (*T, error) {
	if err := a.ensureSpace(); err != nil {
		return nil, err
	}

	a.size++
	return &a.storage.items[a.size-1], nil
}

// RemoveAt destroys the element at index and shifts every later element down by one
func (a *DynamicArray[T]) RemoveAt(index int) error {
	if index < 0 || index >= a.size {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d, size %d", index, a.size)
	}

	items := a.storage.items
	if a.destroyable {
		destroyElement(&items[index])
	}
	copy(items[index:a.size-1], items[index+1:a.size])

	var zero T
	items[a.size-1] = zero
	a.size--
	return nil
}

// At returns a pointer to the element at index. It panics if index is out of range.
func (a *DynamicArray[T]) At(index int) *T {
	return &a.storage.items[:a.size][index]
}

func (a *DynamicArray[T]) Set(index int, value T) {
	a.storage.items[:a.size][index] = value
}

// Last returns a pointer to the final element, or nil when the array is empty
func (a *DynamicArray[T]) Last() *T {
	if a.size == 0 {
		return nil
	}
	return &a.storage.items[a.size-1]
}

// Data returns the elements as a slice sharing the array's storage
func (a *DynamicArray[T]) Data() []T {
	return a.storage.items[:a.size:a.size]
}

// Clear destroys every element and keeps the capacity for reuse
func (a *DynamicArray[T]) Clear() {
	a.destroyRange(0, a.size)
	a.size = 0
}

// Destroy clears the array and returns its storage to the allocator. The array is empty and
// usable afterward.
func (a *DynamicArray[T]) Destroy() error {
	a.Clear()
	return a.storage.release()
}
