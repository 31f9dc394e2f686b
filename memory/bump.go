package memory

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/tokiengine/memcore/internal/utils"
	"github.com/tokiengine/memcore/memutils"
	"github.com/tokiengine/memcore/rawmem"
	"golang.org/x/exp/slog"
)

// bumpOrigin is the first offset a BumpAllocator hands out, keeping every Ptr distinct from Nil
const bumpOrigin = sectionAlignment

// Marker is a position in a BumpAllocator that can be rewound to with FreeToMarker
type Marker int

// BumpAllocator hands out memory by advancing a marker through a fixed buffer. Individual frees
// do nothing; memory is reclaimed all at once with Reset or back to a Marker with FreeToMarker.
// It suits allocations that share a lifetime, such as everything allocated during one frame.
type BumpAllocator struct {
	logger *slog.Logger
	mutex  utils.OptionalMutex

	parent    Allocator
	parentPtr Ptr
	block     *rawmem.Block

	data    []byte
	base    uintptr
	marker  int
	last    Ptr
	highest int
}

var _ Allocator = &BumpAllocator{}

// NewBumpAllocator creates a bump allocator over size bytes. The buffer is taken from parent
// when it is not nil and mapped from the operating system otherwise.
func NewBumpAllocator(logger *slog.Logger, parent Allocator, size int, flags CreateFlags) (*BumpAllocator, error) {
	logger = utils.LoggerOrNop(logger)
	if size <= bumpOrigin {
		return nil, errors.Wrapf(ErrInvalidSize, "a bump buffer must hold more than %d bytes", bumpOrigin)
	}

	a := &BumpAllocator{
		logger: logger,
		parent: parent,
		marker: bumpOrigin,
	}
	a.mutex.UseMutex = flags&CreateInternallySynchronized != 0

	if parent != nil {
		ptr, err := parent.AllocateAligned(size, sectionAlignment)
		if err != nil {
			return nil, errors.Wrap(err, "could not allocate bump buffer from parent")
		}
		a.parentPtr = ptr
		a.data = parent.Bytes(ptr, size)
	} else {
		block, err := rawmem.Allocate(size)
		if err != nil {
			return nil, err
		}
		a.block = block
		a.data = block.Bytes()
	}
	a.base = uintptr(unsafe.Pointer(&a.data[0]))

	logger.Debug("BumpAllocator::New", slog.Int("Size", size), slog.Bool("FromParent", parent != nil))
	return a, nil
}

func (a *BumpAllocator) bump(size int, alignment uint) (Ptr, error) {
	if size <= 0 {
		return Nil, errors.Wrapf(ErrInvalidSize, "requested %d bytes", size)
	}
	memutils.DebugCheckPow2(alignment, "alignment")
	if err := memutils.CheckPow2(alignment, "alignment"); err != nil {
		return Nil, err
	}

	if alignment > uint(len(a.data)) {
		return Nil, errors.Wrapf(ErrOutOfMemory, "alignment %d exceeds the %d byte bump buffer", alignment, len(a.data))
	}
	start := int(memutils.AlignUpAddress(a.base+uintptr(a.marker), alignment) - a.base)
	if size > len(a.data)-start {
		return Nil, errors.Wrapf(ErrOutOfMemory, "bump buffer has %d of %d bytes left, %d requested", len(a.data)-a.marker, len(a.data), size)
	}
	end := start + size

	a.marker = memutils.AlignUp(end, sectionAlignment)
	a.marker = min(a.marker, len(a.data))
	a.highest = max(a.highest, a.marker)
	a.last = Ptr(start)
	return a.last, nil
}

func (a *BumpAllocator) Allocate(size int) (Ptr, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.bump(size, sectionAlignment)
}

func (a *BumpAllocator) AllocateAligned(size int, alignment uint) (Ptr, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.bump(size, alignment)
}

// Reallocate grows or shrinks the most recent allocation in place. Any other allocation is
// copied into a fresh allocation; the old bytes stay in place until the next Reset.
func (a *BumpAllocator) Reallocate(ptr Ptr, size int) (Ptr, error) {
	return a.ReallocateAligned(ptr, size, sectionAlignment)
}

func (a *BumpAllocator) ReallocateAligned(ptr Ptr, size int, alignment uint) (Ptr, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if ptr == Nil {
		return a.bump(size, alignment)
	}
	if int(ptr) < bumpOrigin || int(ptr) >= a.marker {
		return Nil, errors.Wrapf(ErrInvalidPointer, "offset %d is not below the marker", ptr)
	}
	if size <= 0 {
		return Nil, errors.Wrapf(ErrInvalidSize, "requested %d bytes", size)
	}

	if ptr == a.last && memutils.IsPow2(alignment) && (a.base+uintptr(ptr))%uintptr(alignment) == 0 && size <= len(a.data)-int(ptr) {
		a.marker = min(memutils.AlignUp(int(ptr)+size, sectionAlignment), len(a.data))
		a.highest = max(a.highest, a.marker)
		return ptr, nil
	}

	oldSize := a.marker - int(ptr)
	newPtr, err := a.bump(size, alignment)
	if err != nil {
		return Nil, err
	}

	copy(a.data[newPtr:int(newPtr)+size], a.data[ptr:int(ptr)+oldSize])
	return newPtr, nil
}

// Free does nothing; bump allocations are reclaimed by Reset or FreeToMarker
func (a *BumpAllocator) Free(ptr Ptr) error { return nil }

// FreeAligned does nothing; bump allocations are reclaimed by Reset or FreeToMarker
func (a *BumpAllocator) FreeAligned(ptr Ptr) error { return nil }

func (a *BumpAllocator) Bytes(ptr Ptr, size int) []byte {
	return a.data[ptr : int(ptr)+size : int(ptr)+size]
}

// Marker returns the current position, for use with FreeToMarker
func (a *BumpAllocator) Marker() Marker {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return Marker(a.marker)
}

// FreeToMarker releases every allocation made since marker was taken
func (a *BumpAllocator) FreeToMarker(marker Marker) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if int(marker) < bumpOrigin || int(marker) > a.marker {
		return errors.Errorf("marker %d is not between %d and the current marker %d", marker, bumpOrigin, a.marker)
	}

	a.marker = int(marker)
	a.last = Nil
	return nil
}

// Reset releases every allocation
func (a *BumpAllocator) Reset() {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("BumpAllocator::Reset", slog.Int("Used", a.marker-bumpOrigin))
	a.marker = bumpOrigin
	a.last = Nil
}

// Used returns the number of bytes between the start of the buffer and the marker
func (a *BumpAllocator) Used() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.marker - bumpOrigin
}

// HighWaterMark returns the largest number of bytes that were ever in use at once
func (a *BumpAllocator) HighWaterMark() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return max(a.highest-bumpOrigin, 0)
}

func (a *BumpAllocator) Size() int { return len(a.data) }

func (a *BumpAllocator) AddStatistics(stats *memutils.Statistics) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	stats.BlockCount++
	stats.BlockBytes += len(a.data)
	stats.AllocationBytes += a.marker - bumpOrigin
	if a.marker > bumpOrigin {
		stats.AllocationCount++
	}
}

func (a *BumpAllocator) PrintDetailedMap(writer *jwriter.Writer) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	json := writer.Object()
	defer json.End()

	json.Name("TotalBytes").Int(len(a.data))
	json.Name("UsedBytes").Int(a.marker - bumpOrigin)
	json.Name("HighWaterMark").Int(max(a.highest-bumpOrigin, 0))
}

// BuildStatsString returns the output of PrintDetailedMap as a string
func (a *BumpAllocator) BuildStatsString() string {
	writer := jwriter.NewWriter()
	a.PrintDetailedMap(&writer)
	return string(writer.Bytes())
}

// Destroy returns the buffer to the parent allocator or the operating system
func (a *BumpAllocator) Destroy() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("BumpAllocator::Destroy")
	a.data = nil
	a.marker = bumpOrigin
	if a.parent != nil {
		return a.parent.FreeAligned(a.parentPtr)
	}
	return a.block.Free()
}
