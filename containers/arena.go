package containers

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/tokiengine/memcore/memory"
	"golang.org/x/exp/slog"
)

// Arena is a fixed-capacity table of T addressed by Handle. Storage holds one more slot than the
// capacity: slot 0 receives values inserted while the table is full, and slot i+1 backs index i.
// Each index carries a generation that is bumped whenever its value is cleared, so handles to a
// cleared slot are reported as stale even after the slot is reused.
type Arena[T any] struct {
	slots       storage[T]
	generations storage[uint32]
	occupied    *Bitset
	overflowed  bool
	count       int
	capacity    int
	destroyable bool
}

// NewArena creates an arena of capacity slots drawing from allocator, or memory.Default when
// allocator is nil. All storage is allocated up front.
func NewArena[T any](allocator memory.Allocator, capacity int) (*Arena[T], error) {
	if capacity <= 0 || uint64(capacity) >= math.MaxUint32 {
		return nil, errors.Wrapf(ErrInvalidCapacity, "arena capacity %d", capacity)
	}

	a := &Arena[T]{
		slots:       newStorage[T](allocator, memory.TagArena),
		generations: newStorage[uint32](allocator, memory.TagArena),
		occupied:    NewBitset(capacity),
		capacity:    capacity,
		destroyable: implementsDestroyer[T](),
	}

	if err := a.slots.resize(capacity + 1); err != nil {
		return nil, errors.Wrapf(err, "could not allocate %d arena slots", capacity+1)
	}
	if err := a.generations.resize(capacity); err != nil {
		return nil, errors.CombineErrors(
			errors.Wrapf(err, "could not allocate %d arena generations", capacity),
			a.slots.release(),
		)
	}

	return a, nil
}

func (a *Arena[T]) Len() int { return a.count }

func (a *Arena[T]) Cap() int { return a.capacity }

func (a *Arena[T]) destroySlot(slot *T) {
	if a.destroyable {
		destroyElement(slot)
	}
	var zero T
	*slot = zero
}

// EmplaceAtFirstFunc claims the lowest free slot, lets init construct the value in place and
// returns its handle. When the arena is full the value is constructed in the overflow slot,
// replacing any earlier overflow value, and InvalidHandle is returned.
func (a *Arena[T]) EmplaceAtFirstFunc(init func(slot *T)) Handle {
	index, found := a.occupied.FirstWithValue(0, false)
	if !found {
		overflow := &a.slots.items[0]
		if a.overflowed {
			a.destroySlot(overflow)
		}
		a.overflowed = true
		init(overflow)
		Logger().Warn("arena is full, value stored in the overflow slot", slog.Int("Capacity", a.capacity))
		return InvalidHandle
	}

	a.occupied.Set(index, true)
	a.count++
	init(&a.slots.items[index+1])
	return makeHandle(index, a.generations.items[index])
}

// EmplaceAtFirst stores value in the lowest free slot and returns its handle. It returns
// InvalidHandle when the arena is full.
func (a *Arena[T]) EmplaceAtFirst(value T) Handle {
	return a.EmplaceAtFirstFunc(func(slot *T) {
		*slot = value
	})
}

func (a *Arena[T]) lookup(handle Handle) (int, error) {
	if !handle.IsValid() {
		return -1, ErrInvalidHandle
	}

	index := handle.Index()
	if index >= a.capacity {
		return -1, errors.Wrapf(ErrHandleOutOfRange, "%s in an arena of capacity %d", handle, a.capacity)
	}
	if !a.occupied.Get(index) || a.generations.items[index] != handle.Generation() {
		return -1, errors.Wrapf(ErrStaleHandle, "%s, slot is at generation %d", handle, a.generations.items[index])
	}

	return index, nil
}

// At returns a pointer to the value addressed by handle. The pointer remains valid until the
// handle is cleared.
func (a *Arena[T]) At(handle Handle) (*T, error) {
	index, err := a.lookup(handle)
	if err != nil {
		return nil, err
	}
	return &a.slots.items[index+1], nil
}

// Exists reports whether handle addresses a live value
func (a *Arena[T]) Exists(handle Handle) bool {
	_, err := a.lookup(handle)
	return err == nil
}

func (a *Arena[T]) clearIndex(index int) {
	a.destroySlot(&a.slots.items[index+1])
	a.occupied.Set(index, false)
	a.generations.items[index]++
	a.count--
}

// Clear destroys the value addressed by handle and frees its slot
func (a *Arena[T]) Clear(handle Handle) error {
	index, err := a.lookup(handle)
	if err != nil {
		return err
	}

	a.clearIndex(index)
	return nil
}

// Invalidate is Clear
func (a *Arena[T]) Invalidate(handle Handle) error {
	return a.Clear(handle)
}

// ClearAll destroys every live value
func (a *Arena[T]) ClearAll() {
	for index, ok := a.occupied.FirstWithValue(0, true); ok; index, ok = a.occupied.FirstWithValue(index+1, true) {
		a.clearIndex(index)
	}
}

// ForEach calls fn for every live value in slot order until fn returns false. The arena must
// not be modified during the call.
func (a *Arena[T]) ForEach(fn func(handle Handle, value *T) bool) {
	it := a.Iterator()
	for it.Next() {
		if !fn(it.Handle(), it.Value()) {
			return
		}
	}
}

// Iterator returns an iterator positioned before the first live value
func (a *Arena[T]) Iterator() *ArenaIterator[T] {
	return &ArenaIterator[T]{arena: a, index: -1}
}

// Destroy clears every value, including the overflow slot, and returns the arena's storage to
// its allocator
func (a *Arena[T]) Destroy() error {
	a.ClearAll()
	if a.overflowed {
		a.destroySlot(&a.slots.items[0])
		a.overflowed = false
	}

	return errors.CombineErrors(a.slots.release(), a.generations.release())
}

// ArenaIterator walks the live values of an Arena in slot order
type ArenaIterator[T any] struct {
	arena *Arena[T]
	index int
}

// Next advances to the next live value and reports whether there was one
func (it *ArenaIterator[T]) Next() bool {
	next, found := it.arena.occupied.FirstWithValue(it.index+1, true)
	if !found {
		it.index = it.arena.capacity
		return false
	}

	it.index = next
	return true
}

func (it *ArenaIterator[T]) Handle() Handle {
	return makeHandle(it.index, it.arena.generations.items[it.index])
}

func (it *ArenaIterator[T]) Value() *T {
	return &it.arena.slots.items[it.index+1]
}
