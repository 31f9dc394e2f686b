package containers_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tokiengine/memcore/containers"
)

func TestBitsetSetGet(t *testing.T) {
	bits := containers.NewBitset(130)
	require.Equal(t, 130, bits.Len())
	require.Zero(t, bits.Count())

	bits.Set(0, true)
	bits.Set(64, true)
	bits.Set(129, true)
	require.True(t, bits.Get(0))
	require.True(t, bits.Get(64))
	require.True(t, bits.Get(129))
	require.False(t, bits.Get(1))
	require.Equal(t, 3, bits.Count())

	bits.Set(64, false)
	require.False(t, bits.Get(64))

	bits.Flip(64)
	bits.Flip(0)
	require.True(t, bits.Get(64))
	require.False(t, bits.Get(0))
	require.Equal(t, 2, bits.Count())

	bits.ClearAll()
	require.Zero(t, bits.Count())
}

func TestBitsetFlipAllStaysInBounds(t *testing.T) {
	bits := containers.NewBitset(70)
	bits.Set(3, true)
	bits.FlipAll()

	require.Equal(t, 69, bits.Count())
	require.False(t, bits.Get(3))

	_, found := bits.FirstWithValue(0, false)
	require.True(t, found)
	index, _ := bits.FirstWithValue(0, false)
	require.Equal(t, 3, index)

	index, found = bits.FirstWithValue(4, false)
	require.False(t, found)
	require.Equal(t, -1, index)
}

func TestBitsetFirstWithValue(t *testing.T) {
	bits := containers.NewBitset(200)
	bits.Set(5, true)
	bits.Set(150, true)

	index, found := bits.FirstWithValue(0, true)
	require.True(t, found)
	require.Equal(t, 5, index)

	index, found = bits.FirstWithValue(6, true)
	require.True(t, found)
	require.Equal(t, 150, index)

	_, found = bits.FirstWithValue(151, true)
	require.False(t, found)

	index, found = bits.FirstWithValue(5, false)
	require.True(t, found)
	require.Equal(t, 6, index)

	_, found = bits.FirstWithValue(200, false)
	require.False(t, found)

	full := containers.NewBitset(64)
	full.FlipAll()
	_, found = full.FirstWithValue(0, false)
	require.False(t, found)
}
