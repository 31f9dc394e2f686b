package containers_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/tokiengine/memcore/containers"
	"github.com/tokiengine/memcore/memory"
)

func TestArenaSlotReuse(t *testing.T) {
	allocator := newAllocator(t, 1<<16)

	arena, err := containers.NewArena[int](allocator, 4)
	require.NoError(t, err)

	handles := make([]containers.Handle, 0, 4)
	for _, value := range []int{10, 20, 30, 40} {
		handles = append(handles, arena.EmplaceAtFirst(value))
	}
	require.Equal(t, []containers.Handle{1, 2, 3, 4}, handles)
	require.Equal(t, 4, arena.Len())

	h2 := handles[1]
	require.NoError(t, arena.Clear(h2))
	require.Equal(t, 3, arena.Len())

	reused := arena.EmplaceAtFirst(99)
	require.Equal(t, h2.Index(), reused.Index())
	require.Equal(t, h2.Generation()+1, reused.Generation())

	value, err := arena.At(reused)
	require.NoError(t, err)
	require.Equal(t, 99, *value)

	_, err = arena.At(h2)
	require.True(t, errors.Is(err, containers.ErrStaleHandle))
	require.False(t, arena.Exists(h2))
	require.True(t, arena.Exists(reused))

	for _, h := range []containers.Handle{handles[0], handles[2], handles[3]} {
		value, err := arena.At(h)
		require.NoError(t, err)
		require.Equal(t, int(h)*10, *value)
	}

	require.NoError(t, arena.Destroy())
}

func TestArenaHandleErrors(t *testing.T) {
	allocator := newAllocator(t, 1<<16)

	arena, err := containers.NewArena[uint64](allocator, 4)
	require.NoError(t, err)

	_, err = arena.At(containers.InvalidHandle)
	require.True(t, errors.Is(err, containers.ErrInvalidHandle))

	_, err = arena.At(containers.Handle(5))
	require.True(t, errors.Is(err, containers.ErrHandleOutOfRange))

	_, err = arena.At(containers.Handle(1))
	require.True(t, errors.Is(err, containers.ErrStaleHandle))

	h := arena.EmplaceAtFirst(7)
	require.NoError(t, arena.Invalidate(h))
	require.True(t, errors.Is(arena.Clear(h), containers.ErrStaleHandle))

	_, err = containers.NewArena[uint64](allocator, 0)
	require.True(t, errors.Is(err, containers.ErrInvalidCapacity))

	require.NoError(t, arena.Destroy())
}

func TestArenaCapacityBoundary(t *testing.T) {
	resetDestroyed()
	allocator := newAllocator(t, 1<<16)

	arena, err := containers.NewArena[tracked](allocator, 2)
	require.NoError(t, err)

	first := arena.EmplaceAtFirst(tracked{1})
	second := arena.EmplaceAtFirst(tracked{2})
	require.True(t, first.IsValid())
	require.True(t, second.IsValid())

	require.Equal(t, containers.InvalidHandle, arena.EmplaceAtFirst(tracked{3}))
	require.Equal(t, 2, arena.Len())

	// A second overflow destroys the first overflow value
	require.Equal(t, containers.InvalidHandle, arena.EmplaceAtFirstFunc(func(slot *tracked) {
		slot.id = 4
	}))
	require.Equal(t, []int32{3}, destroyedIDs)

	require.NoError(t, arena.Clear(first))
	require.Equal(t, []int32{3, 1}, destroyedIDs)

	third := arena.EmplaceAtFirst(tracked{5})
	require.Equal(t, first.Index(), third.Index())

	require.NoError(t, arena.Destroy())
	require.ElementsMatch(t, []int32{3, 1, 5, 2, 4}, destroyedIDs)
}

func TestArenaIteration(t *testing.T) {
	allocator := newAllocator(t, 1<<16)

	arena, err := containers.NewArena[int32](allocator, 100)
	require.NoError(t, err)

	handles := make([]containers.Handle, 100)
	for i := range handles {
		handles[i] = arena.EmplaceAtFirst(int32(i))
	}
	for i := 0; i < 100; i += 3 {
		require.NoError(t, arena.Clear(handles[i]))
	}

	var visited []int32
	it := arena.Iterator()
	for it.Next() {
		value, err := arena.At(it.Handle())
		require.NoError(t, err)
		require.Equal(t, *it.Value(), *value)
		visited = append(visited, *value)
	}
	require.Len(t, visited, arena.Len())
	for i, value := range visited {
		require.NotZero(t, value%3, "visited %d at position %d", value, i)
	}

	count := 0
	arena.ForEach(func(handle containers.Handle, value *int32) bool {
		count++
		return count < 10
	})
	require.Equal(t, 10, count)

	arena.ClearAll()
	require.Zero(t, arena.Len())
	require.False(t, arena.Iterator().Next())
	require.False(t, arena.Exists(handles[1]))

	require.NoError(t, arena.Destroy())
}

func TestArenaTagsItsStorage(t *testing.T) {
	allocator := newAllocator(t, 1<<16)

	arena, err := containers.NewArena[int64](allocator, 8)
	require.NoError(t, err)
	require.Positive(t, allocator.TagBytes(memory.TagArena))

	require.NoError(t, arena.Destroy())
	require.Zero(t, allocator.TagBytes(memory.TagArena))
}

func TestHandleString(t *testing.T) {
	require.Equal(t, "Handle(invalid)", containers.InvalidHandle.String())
	require.Equal(t, -1, containers.InvalidHandle.Index())
	require.Equal(t, "Handle(2@0)", containers.Handle(3).String())
	require.Equal(t, "Handle(0@5)", containers.Handle(5<<32|1).String())
}
