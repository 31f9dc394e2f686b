package memory_test

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/tokiengine/memcore/memory"
	"github.com/tokiengine/memcore/memutils"
)

func TestHeapAllocator(t *testing.T) {
	heap := memory.NewHeapAllocator(nil, 0)

	ptr, err := heap.Allocate(32)
	require.NoError(t, err)
	copy(heap.Bytes(ptr, 32), "heap allocations are go slices")

	grown, err := heap.Reallocate(ptr, 64)
	require.NoError(t, err)
	require.Equal(t, "heap allocations are go slices", string(heap.Bytes(grown, 30)))
	require.Equal(t, 1, heap.AllocationCount())

	require.True(t, errors.Is(heap.Free(ptr), memory.ErrInvalidPointer))
	require.NoError(t, heap.Free(grown))
	require.Zero(t, heap.AllocationCount())
}

func TestHeapAllocatorAligned(t *testing.T) {
	heap := memory.NewHeapAllocator(nil, memory.CreateInternallySynchronized)

	for alignment := uint(1); alignment <= 4096; alignment <<= 1 {
		ptr, err := heap.AllocateAligned(24, alignment)
		require.NoError(t, err)
		require.Zero(t, address(heap.Bytes(ptr, 24))%uintptr(alignment))
		require.NoError(t, heap.FreeAligned(ptr))
	}

	_, err := heap.AllocateAligned(24, 12)
	require.True(t, errors.Is(err, memutils.PowerOfTwoError))
}

func TestHeapAllocatorTags(t *testing.T) {
	heap := memory.NewHeapAllocator(nil, 0)

	ptr, err := memory.ReallocateTagged(heap, memory.TagHashMap, memory.Nil, 128)
	require.NoError(t, err)
	require.Equal(t, 128, heap.TagBytes(memory.TagHashMap))

	ptr, err = heap.Reallocate(ptr, 256)
	require.NoError(t, err)
	require.Equal(t, 256, heap.TagBytes(memory.TagHashMap))

	var stats memutils.Statistics
	heap.AddStatistics(&stats)
	require.Equal(t, memutils.Statistics{
		BlockCount:      1,
		BlockBytes:      256,
		AllocationCount: 1,
		AllocationBytes: 256,
	}, stats)

	require.NoError(t, heap.Free(ptr))
	require.Zero(t, heap.TagBytes(memory.TagHashMap))
}

func TestHeapAllocatorRejectsOversizedRequests(t *testing.T) {
	heap := memory.NewHeapAllocator(nil, 0)

	ptr, err := heap.Allocate(math.MaxInt)
	require.True(t, errors.Is(err, memory.ErrOutOfMemory))
	require.Equal(t, memory.Nil, ptr)

	ptr, err = heap.AllocateAligned(math.MaxInt-100, 64)
	require.True(t, errors.Is(err, memory.ErrOutOfMemory))
	require.Equal(t, memory.Nil, ptr)
	require.Zero(t, heap.AllocationCount())
}

func TestHeapAllocatorUnknownTag(t *testing.T) {
	heap := memory.NewHeapAllocator(nil, 0)

	ptr, err := heap.ReallocateWithTag(memory.Tag(200), memory.Nil, 32)
	require.NoError(t, err)
	require.Equal(t, 32, heap.TagBytes(memory.TagUnknown))
	require.Zero(t, heap.TagBytes(memory.Tag(200)))

	require.NoError(t, heap.Free(ptr))
	require.Zero(t, heap.TagBytes(memory.TagUnknown))
}
