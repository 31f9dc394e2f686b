package memory_test

import (
	"math"
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/tokiengine/memcore/memory"
	"github.com/tokiengine/memcore/memutils"
)

func address(data []byte) uintptr {
	return uintptr(unsafe.Pointer(&data[0]))
}

func TestBumpAllocateAndReset(t *testing.T) {
	bump, err := memory.NewBumpAllocator(nil, nil, 1024, 0)
	require.NoError(t, err)

	first, err := bump.Allocate(10)
	require.NoError(t, err)
	require.NotEqual(t, memory.Nil, first)

	second, err := bump.Allocate(16)
	require.NoError(t, err)
	require.Equal(t, first+16, second)
	require.Equal(t, 32, bump.Used())

	require.NoError(t, bump.Free(first))
	require.Equal(t, 32, bump.Used())

	bump.Reset()
	require.Zero(t, bump.Used())
	require.Equal(t, 32, bump.HighWaterMark())

	again, err := bump.Allocate(10)
	require.NoError(t, err)
	require.Equal(t, first, again)

	require.NoError(t, bump.Destroy())
}

func TestBumpMarkers(t *testing.T) {
	bump, err := memory.NewBumpAllocator(nil, nil, 1024, 0)
	require.NoError(t, err)

	_, err = bump.Allocate(64)
	require.NoError(t, err)
	marker := bump.Marker()
	used := bump.Used()

	scratch, err := bump.Allocate(128)
	require.NoError(t, err)
	require.NoError(t, bump.FreeToMarker(marker))
	require.Equal(t, used, bump.Used())

	reused, err := bump.Allocate(128)
	require.NoError(t, err)
	require.Equal(t, scratch, reused)

	require.Error(t, bump.FreeToMarker(memory.Marker(1<<20)))
	require.NoError(t, bump.Destroy())
}

func TestBumpAlignedAndExhaustion(t *testing.T) {
	bump, err := memory.NewBumpAllocator(nil, nil, 4096, 0)
	require.NoError(t, err)

	_, err = bump.Allocate(3)
	require.NoError(t, err)

	for alignment := uint(1); alignment <= 1024; alignment <<= 1 {
		ptr, err := bump.AllocateAligned(8, alignment)
		require.NoError(t, err)
		require.Zero(t, address(bump.Bytes(ptr, 8))%uintptr(alignment))
		require.NoError(t, bump.FreeAligned(ptr))
	}

	_, err = bump.AllocateAligned(8, 3)
	require.True(t, errors.Is(err, memutils.PowerOfTwoError))

	ptr, err := bump.Allocate(8192)
	require.True(t, errors.Is(err, memory.ErrOutOfMemory))
	require.Equal(t, memory.Nil, ptr)

	_, err = bump.Allocate(0)
	require.True(t, errors.Is(err, memory.ErrInvalidSize))
	require.NoError(t, bump.Destroy())
}

func TestBumpReallocate(t *testing.T) {
	bump, err := memory.NewBumpAllocator(nil, nil, 1024, 0)
	require.NoError(t, err)

	first, err := bump.Allocate(16)
	require.NoError(t, err)
	copy(bump.Bytes(first, 16), "0123456789abcdef")

	last, err := bump.Allocate(16)
	require.NoError(t, err)

	grown, err := bump.Reallocate(last, 64)
	require.NoError(t, err)
	require.Equal(t, last, grown)
	require.Equal(t, 16+64, bump.Used())

	moved, err := bump.Reallocate(first, 32)
	require.NoError(t, err)
	require.NotEqual(t, first, moved)
	require.Equal(t, "0123456789abcdef", string(bump.Bytes(moved, 16)))

	_, err = bump.Reallocate(memory.Ptr(900), 8)
	require.True(t, errors.Is(err, memory.ErrInvalidPointer))
	require.NoError(t, bump.Destroy())
}

func TestBumpFromParent(t *testing.T) {
	parent := newFreeList(t, 4096, memory.CreateOptions{})

	bump, err := memory.NewBumpAllocator(nil, parent, 1024, 0)
	require.NoError(t, err)
	require.Equal(t, 1, parent.AllocationCount())
	require.Equal(t, 1024, bump.Size())

	ptr, err := bump.Allocate(100)
	require.NoError(t, err)
	require.Len(t, bump.Bytes(ptr, 100), 100)

	var stats memutils.Statistics
	bump.AddStatistics(&stats)
	require.Equal(t, memutils.Statistics{
		BlockCount:      1,
		BlockBytes:      1024,
		AllocationCount: 1,
		AllocationBytes: 104,
	}, stats)
	require.JSONEq(t, `{"TotalBytes":1024,"UsedBytes":104,"HighWaterMark":104}`, bump.BuildStatsString())

	require.NoError(t, bump.Destroy())
	require.True(t, parent.IsEmpty())
	require.NoError(t, parent.Validate())

	_, err = memory.NewBumpAllocator(nil, parent, 8192, 0)
	require.True(t, errors.Is(err, memory.ErrOutOfMemory))
}

func TestBumpRejectsOversizedRequests(t *testing.T) {
	bump, err := memory.NewBumpAllocator(nil, nil, 4096, 0)
	require.NoError(t, err)

	ptr, err := bump.Allocate(math.MaxInt)
	require.True(t, errors.Is(err, memory.ErrOutOfMemory))
	require.Equal(t, memory.Nil, ptr)
	require.Zero(t, bump.Used())

	ptr, err = bump.AllocateAligned(math.MaxInt-100, 64)
	require.True(t, errors.Is(err, memory.ErrOutOfMemory))
	require.Equal(t, memory.Nil, ptr)

	_, err = bump.AllocateAligned(16, 1<<62)
	require.True(t, errors.Is(err, memory.ErrOutOfMemory))
	require.Zero(t, bump.Used())

	last, err := bump.Allocate(16)
	require.NoError(t, err)
	require.Equal(t, 16, bump.Used())

	_, err = bump.Reallocate(last, math.MaxInt)
	require.True(t, errors.Is(err, memory.ErrOutOfMemory))
	require.Equal(t, 16, bump.Used())

	grown, err := bump.Reallocate(last, 64)
	require.NoError(t, err)
	require.Equal(t, last, grown)
	require.Equal(t, 64, bump.Used())

	require.NoError(t, bump.Destroy())
}
