package containers_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tokiengine/memcore/memory"
)

// newAllocator returns a free-list allocator that must be empty again when the test ends
func newAllocator(t *testing.T, size int) *memory.FreeListAllocator {
	allocator, err := memory.NewFreeListAllocator(nil, size, memory.CreateOptions{})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.True(t, allocator.IsEmpty(), "containers leaked %d allocations", allocator.AllocationCount())
		require.NoError(t, allocator.Validate())
		require.NoError(t, allocator.Destroy())
	})
	return allocator
}

type tracked struct {
	id int32
}

var destroyedIDs []int32

func (t *tracked) Destroy() {
	destroyedIDs = append(destroyedIDs, t.id)
}

func resetDestroyed() {
	destroyedIDs = nil
}
