package memory

import (
	"math"
	"math/bits"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/tokiengine/memcore/internal/utils"
	"github.com/tokiengine/memcore/memutils"
	"golang.org/x/exp/slog"
)

// maxHeapAllocation bounds a single heap allocation below the runtime's own limit, so an
// oversized request fails with ErrOutOfMemory instead of panicking in make
const maxHeapAllocation = math.MaxInt >> (bits.UintSize / 64 * 16)

type heapAllocation struct {
	data []byte
	tag  Tag
}

// HeapAllocator passes every allocation through to the Go heap. Each allocation is a separate
// slice, kept reachable until it is freed. It is the process default until Initialize is called.
type HeapAllocator struct {
	logger *slog.Logger
	mutex  utils.OptionalMutex

	next           Ptr
	live           *swiss.Map[Ptr, heapAllocation]
	allocatedBytes int
	tagBytes       [tagCount]int
}

var _ Allocator = &HeapAllocator{}
var _ TaggedAllocator = &HeapAllocator{}

func NewHeapAllocator(logger *slog.Logger, flags CreateFlags) *HeapAllocator {
	a := &HeapAllocator{
		logger: utils.LoggerOrNop(logger),
		live:   swiss.NewMap[Ptr, heapAllocation](42),
	}
	a.mutex.UseMutex = flags&CreateInternallySynchronized != 0
	return a
}

func (a *HeapAllocator) allocate(size int, alignment uint, tag Tag) (Ptr, error) {
	if size <= 0 {
		return Nil, errors.Wrapf(ErrInvalidSize, "requested %d bytes", size)
	}
	memutils.DebugCheckPow2(alignment, "alignment")
	if err := memutils.CheckPow2(alignment, "alignment"); err != nil {
		return Nil, err
	}

	if alignment > maxHeapAllocation || size > maxHeapAllocation-int(alignment) {
		return Nil, errors.Wrapf(ErrOutOfMemory, "requested %d bytes aligned to %d", size, alignment)
	}
	tag = tag.known()

	backing := make([]byte, size+int(alignment)-1)
	address := uintptr(unsafe.Pointer(&backing[0]))
	offset := int(memutils.AlignUpAddress(address, alignment) - address)

	a.next++
	a.live.Put(a.next, heapAllocation{
		data: backing[offset : offset+size : offset+size],
		tag:  tag,
	})
	a.allocatedBytes += size
	a.tagBytes[tag] += size

	return a.next, nil
}

func (a *HeapAllocator) free(ptr Ptr) error {
	allocation, ok := a.live.Get(ptr)
	if !ok {
		return errors.Wrapf(ErrInvalidPointer, "heap allocation %d", ptr)
	}

	a.live.Delete(ptr)
	a.allocatedBytes -= len(allocation.data)
	a.tagBytes[allocation.tag] -= len(allocation.data)
	return nil
}

func (a *HeapAllocator) reallocate(ptr Ptr, size int, alignment uint, tag Tag, keepTag bool) (Ptr, error) {
	if ptr == Nil {
		return a.allocate(size, alignment, tag)
	}

	old, ok := a.live.Get(ptr)
	if !ok {
		return Nil, errors.Wrapf(ErrInvalidPointer, "heap allocation %d", ptr)
	}
	if keepTag {
		tag = old.tag
	}

	newPtr, err := a.allocate(size, alignment, tag)
	if err != nil {
		return Nil, err
	}

	allocation, _ := a.live.Get(newPtr)
	copy(allocation.data, old.data)
	return newPtr, a.free(ptr)
}

func (a *HeapAllocator) Allocate(size int) (Ptr, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("HeapAllocator::Allocate", slog.Int("Size", size))
	return a.allocate(size, sectionAlignment, TagUnknown)
}

func (a *HeapAllocator) AllocateAligned(size int, alignment uint) (Ptr, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("HeapAllocator::AllocateAligned", slog.Int("Size", size), slog.Int("Alignment", int(alignment)))
	return a.allocate(size, alignment, TagUnknown)
}

func (a *HeapAllocator) Reallocate(ptr Ptr, size int) (Ptr, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("HeapAllocator::Reallocate", slog.Int("Ptr", int(ptr)), slog.Int("Size", size))
	return a.reallocate(ptr, size, sectionAlignment, TagUnknown, true)
}

func (a *HeapAllocator) ReallocateWithTag(tag Tag, ptr Ptr, size int) (Ptr, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("HeapAllocator::ReallocateWithTag", slog.String("Tag", tag.String()), slog.Int("Ptr", int(ptr)), slog.Int("Size", size))
	return a.reallocate(ptr, size, sectionAlignment, tag, false)
}

func (a *HeapAllocator) ReallocateAligned(ptr Ptr, size int, alignment uint) (Ptr, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("HeapAllocator::ReallocateAligned", slog.Int("Ptr", int(ptr)), slog.Int("Size", size), slog.Int("Alignment", int(alignment)))
	return a.reallocate(ptr, size, alignment, TagUnknown, true)
}

func (a *HeapAllocator) Free(ptr Ptr) error {
	if ptr == Nil {
		return nil
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("HeapAllocator::Free", slog.Int("Ptr", int(ptr)))
	return a.free(ptr)
}

func (a *HeapAllocator) FreeAligned(ptr Ptr) error {
	return a.Free(ptr)
}

func (a *HeapAllocator) Bytes(ptr Ptr, size int) []byte {
	a.mutex.Lock()
	allocation, ok := a.live.Get(ptr)
	a.mutex.Unlock()

	if !ok {
		panic(errors.Wrapf(ErrInvalidPointer, "heap allocation %d", ptr))
	}
	return allocation.data[:size:size]
}

func (a *HeapAllocator) TagBytes(tag Tag) int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if tag >= tagCount {
		return 0
	}
	return a.tagBytes[tag]
}

func (a *HeapAllocator) AllocationCount() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.live.Count()
}

// AddStatistics counts every live allocation as its own block, since each is a separate Go object
func (a *HeapAllocator) AddStatistics(stats *memutils.Statistics) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	stats.BlockCount += a.live.Count()
	stats.BlockBytes += a.allocatedBytes
	stats.AllocationCount += a.live.Count()
	stats.AllocationBytes += a.allocatedBytes
}
