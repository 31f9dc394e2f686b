package containers

import "fmt"

// Handle addresses a slot in an Arena. The low 32 bits hold the slot index plus one and the
// high 32 bits the slot's generation when the handle was issued. The zero Handle is invalid.
type Handle uint64

// InvalidHandle is returned when an Arena cannot store a value
const InvalidHandle Handle = 0

func makeHandle(index int, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index+1))
}

func (h Handle) IsValid() bool { return uint32(h) != 0 }

// Index returns the slot index, or -1 for an invalid handle
func (h Handle) Index() int { return int(uint32(h)) - 1 }

func (h Handle) Generation() uint32 { return uint32(h >> 32) }

func (h Handle) String() string {
	if !h.IsValid() {
		return "Handle(invalid)"
	}
	return fmt.Sprintf("Handle(%d@%d)", h.Index(), h.Generation())
}
