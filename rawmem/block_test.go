package rawmem_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/tokiengine/memcore/rawmem"
)

func TestAllocateAndFree(t *testing.T) {
	block, err := rawmem.Allocate(1 << 16)
	require.NoError(t, err)
	require.Equal(t, 1<<16, block.Size())
	require.NotZero(t, block.Address())

	data := block.Bytes()
	for i := range data {
		require.Zero(t, data[i])
	}

	data[0] = 0xAB
	data[len(data)-1] = 0xCD
	require.Equal(t, byte(0xAB), block.Bytes()[0])

	require.NoError(t, block.Free())
	require.Nil(t, block.Bytes())
	require.Zero(t, block.Address())
	require.True(t, errors.Is(block.Free(), rawmem.ErrBlockReleased))
}

func TestAllocateInvalidSize(t *testing.T) {
	_, err := rawmem.Allocate(0)
	require.True(t, errors.Is(err, rawmem.ErrInvalidSize))

	_, err = rawmem.Allocate(-5)
	require.True(t, errors.Is(err, rawmem.ErrInvalidSize))
}
