package memory

import "encoding/binary"

// Aligned allocations record how far the returned pointer was moved forward from the
// underlying allocation. Adjustments below 256 occupy the single byte directly before the
// pointer. Larger adjustments store a zero marker in that byte and the full adjustment as a
// little-endian uint32 in the four bytes before it; such adjustments are always multiples of
// the section alignment, so those bytes are inside the allocation.
const maxShortAdjustment = 0xFF

func writeAdjustment(data []byte, at int, adjustment int) {
	if adjustment <= maxShortAdjustment {
		data[at-1] = byte(adjustment)
		return
	}

	data[at-1] = 0
	binary.LittleEndian.PutUint32(data[at-5:], uint32(adjustment))
}

func readAdjustment(data []byte, at int) int {
	adjustment := data[at-1]
	if adjustment != 0 {
		return int(adjustment)
	}

	return int(binary.LittleEndian.Uint32(data[at-5:]))
}
