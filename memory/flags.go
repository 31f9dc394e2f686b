package memory

import "strings"

// CreateFlags exposes several options for allocator behavior that can be set at creation time
type CreateFlags int32

var createFlagsMapping = map[CreateFlags]string{
	CreateInternallySynchronized: "CreateInternallySynchronized",
	CreateZeroOnFree:             "CreateZeroOnFree",
}

func (f CreateFlags) String() string {
	if f == 0 {
		return "None"
	}

	var names []string
	for bit := CreateFlags(1); bit != 0 && bit <= f; bit <<= 1 {
		if f&bit == 0 {
			continue
		}
		name, ok := createFlagsMapping[bit]
		if !ok {
			continue
		}
		names = append(names, name)
	}

	return strings.Join(names, "|")
}

const (
	// CreateInternallySynchronized guards every allocator call with an internal mutex. Allocators
	// are unsynchronized by default and the caller must serialize access to them.
	CreateInternallySynchronized CreateFlags = 1 << iota
	// CreateZeroOnFree clears the bytes of every allocation when it is freed, so reused memory
	// never carries data from a previous owner
	CreateZeroOnFree
)

// DefaultSplitCutoff is the smallest remainder, beyond a section header, that a free-list
// allocator will split off of a free section into its own free section
const DefaultSplitCutoff = 32

// CreateOptions configures a FreeListAllocator or HeapAllocator
type CreateOptions struct {
	Flags CreateFlags
	// SplitCutoff overrides DefaultSplitCutoff when it is nonzero
	SplitCutoff int
}
