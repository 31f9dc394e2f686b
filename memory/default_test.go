package memory_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/tokiengine/memcore/memory"
)

func TestDefaultLifecycle(t *testing.T) {
	_, isHeap := memory.Default().(*memory.HeapAllocator)
	require.True(t, isHeap)
	require.Nil(t, memory.Frame())
	require.True(t, errors.Is(memory.Shutdown(), memory.ErrNotInitialized))

	require.NoError(t, memory.Initialize(nil, memory.Config{TotalSize: 1 << 16, FrameSize: 4096}))
	require.True(t, errors.Is(memory.Initialize(nil, memory.Config{TotalSize: 1 << 16}), memory.ErrAlreadyInitialized))

	persistent, isFreeList := memory.Default().(*memory.FreeListAllocator)
	require.True(t, isFreeList)
	require.Equal(t, 1, persistent.AllocationCount())

	frame := memory.Frame()
	require.NotNil(t, frame)
	_, err := frame.Allocate(512)
	require.NoError(t, err)
	memory.ResetFrame()
	require.Zero(t, frame.Used())

	leak, err := memory.Default().Allocate(64)
	require.NoError(t, err)
	require.True(t, errors.Is(memory.Shutdown(), memory.ErrAllocationsRemaining))

	require.NoError(t, memory.Default().Free(leak))
	require.NoError(t, memory.Shutdown())

	_, isHeap = memory.Default().(*memory.HeapAllocator)
	require.True(t, isHeap)
}
