package memory

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/tokiengine/memcore/internal/utils"
	"github.com/tokiengine/memcore/memutils"
	"github.com/tokiengine/memcore/rawmem"
	"golang.org/x/exp/slog"
)

const (
	sectionHeaderSize = 16
	sectionAlignment  = 8

	nilSection       = -1
	nilSectionMarker = math.MaxUint64
)

type liveAllocation struct {
	// size is the payload size of the section, which is what the allocation owns
	size int
	// requested is the size most recently asked for, the debug margin begins here
	requested int
	tag       Tag
}

// FreeListAllocator is a first-fit allocator over a single block obtained from the operating
// system. Every section of the block, free or allocated, begins with a 16-byte header holding its
// payload size and, for free sections, the offset of the next free section. Free sections form a
// singly linked list ordered by address. The last free section may be the tail, whose recorded
// size of 0 means it runs to the end of the block.
//
// A Ptr returned from a FreeListAllocator is the offset of the payload within the block.
type FreeListAllocator struct {
	logger *slog.Logger
	mutex  utils.OptionalMutex

	block       *rawmem.Block
	data        []byte
	size        int
	splitCutoff int
	zeroOnFree  bool

	firstFree      int
	live           *swiss.Map[Ptr, liveAllocation]
	allocatedBytes int
	tagBytes       [tagCount]int
}

var _ Allocator = &FreeListAllocator{}
var _ TaggedAllocator = &FreeListAllocator{}
var _ memutils.Validatable = &FreeListAllocator{}

// NewFreeListAllocator maps a block of size bytes, rounded down to the section alignment, and
// prepares it for allocations. logger may be nil.
func NewFreeListAllocator(logger *slog.Logger, size int, options CreateOptions) (*FreeListAllocator, error) {
	logger = utils.LoggerOrNop(logger)

	size = memutils.AlignDown(size, sectionAlignment)
	if size < 2*sectionHeaderSize {
		return nil, errors.Wrapf(ErrInvalidSize, "a free-list block must hold at least %d bytes", 2*sectionHeaderSize)
	}

	splitCutoff := options.SplitCutoff
	if splitCutoff == 0 {
		splitCutoff = DefaultSplitCutoff
	}
	if splitCutoff < 0 {
		return nil, errors.Newf("split cutoff must not be negative, but was %d", splitCutoff)
	}

	block, err := rawmem.Allocate(size)
	if err != nil {
		return nil, err
	}

	logger.Debug("FreeListAllocator::New", slog.Int("Size", size), slog.String("Flags", options.Flags.String()))

	a := &FreeListAllocator{
		logger:      logger,
		block:       block,
		data:        block.Bytes(),
		size:        size,
		splitCutoff: splitCutoff,
		zeroOnFree:  options.Flags&CreateZeroOnFree != 0,
		live:        swiss.NewMap[Ptr, liveAllocation](42),
	}
	a.mutex.UseMutex = options.Flags&CreateInternallySynchronized != 0
	a.reset()

	return a, nil
}

func (a *FreeListAllocator) sectionSize(section int) int {
	return int(binary.LittleEndian.Uint64(a.data[section:]))
}

func (a *FreeListAllocator) sectionNext(section int) int {
	next := binary.LittleEndian.Uint64(a.data[section+8:])
	if next == nilSectionMarker {
		return nilSection
	}
	return int(next)
}

func (a *FreeListAllocator) setSectionSize(section int, size int) {
	binary.LittleEndian.PutUint64(a.data[section:], uint64(size))
}

func (a *FreeListAllocator) setSectionNext(section int, next int) {
	marker := uint64(nilSectionMarker)
	if next != nilSection {
		marker = uint64(next)
	}
	binary.LittleEndian.PutUint64(a.data[section+8:], marker)
}

func (a *FreeListAllocator) writeSection(section int, size int, next int) {
	a.setSectionSize(section, size)
	a.setSectionNext(section, next)
}

// link points prev, or the head of the free list when prev is nilSection, at section
func (a *FreeListAllocator) link(prev int, section int) {
	if prev == nilSection {
		a.firstFree = section
		return
	}
	a.setSectionNext(prev, section)
}

func (a *FreeListAllocator) reset() {
	a.live.Clear()
	a.allocatedBytes = 0
	a.tagBytes = [tagCount]int{}
	a.writeSection(0, 0, nilSection)
	a.firstFree = 0
}

func (a *FreeListAllocator) allocate(size int, tag Tag) (Ptr, error) {
	if size <= 0 {
		return Nil, errors.Wrapf(ErrInvalidSize, "requested %d bytes", size)
	}
	if size > a.size {
		return Nil, errors.Wrapf(ErrOutOfMemory, "requested %d bytes from a %d byte block", size, a.size)
	}
	tag = tag.known()
	needed := memutils.AlignUp(size+memutils.DebugMargin, sectionAlignment)

	prev := nilSection
	section := a.firstFree
	for section != nilSection {
		sectionSize := a.sectionSize(section)
		if sectionSize == 0 || sectionSize >= needed {
			break
		}
		prev = section
		section = a.sectionNext(section)
	}

	if section == nilSection {
		return Nil, errors.Wrapf(ErrOutOfMemory, "no free section can hold %d bytes", size)
	}

	var granted int
	if a.sectionSize(section) == 0 {
		var err error
		granted, err = a.carveTail(prev, section, needed)
		if err != nil {
			return Nil, errors.Wrapf(err, "the tail cannot hold %d bytes", size)
		}
	} else {
		granted = a.carveSection(prev, section, needed)
	}

	ptr := Ptr(section + sectionHeaderSize)
	a.live.Put(ptr, liveAllocation{size: granted, requested: size, tag: tag})
	a.allocatedBytes += granted
	a.tagBytes[tag] += granted
	memutils.WriteMagicValue(a.data, int(ptr)+size)

	return ptr, nil
}

// carveTail takes needed bytes from the front of the tail and moves the tail past them. When
// the space left over could not hold another header, the allocation absorbs it and the free
// list loses its tail.
func (a *FreeListAllocator) carveTail(prev int, section int, needed int) (int, error) {
	payload := section + sectionHeaderSize
	end := payload + needed

	switch {
	case end+sectionHeaderSize <= a.size:
		a.writeSection(end, 0, nilSection)
		a.link(prev, end)
	case end <= a.size:
		needed = a.size - payload
		a.link(prev, nilSection)
	default:
		return 0, ErrOutOfMemory
	}

	a.writeSection(section, needed, nilSection)
	return needed, nil
}

// carveSection hands out a sized free section, splitting off the remainder as a new free
// section when it is larger than the split cutoff
func (a *FreeListAllocator) carveSection(prev int, section int, needed int) int {
	sectionSize := a.sectionSize(section)
	next := a.sectionNext(section)
	remainder := sectionSize - needed

	if remainder > a.splitCutoff+sectionHeaderSize {
		split := section + sectionHeaderSize + needed
		a.writeSection(split, remainder-sectionHeaderSize, next)
		a.link(prev, split)
		a.writeSection(section, needed, nilSection)
		return needed
	}

	a.link(prev, next)
	a.writeSection(section, sectionSize, nilSection)
	return sectionSize
}

func (a *FreeListAllocator) free(ptr Ptr) error {
	allocation, ok := a.live.Get(ptr)
	if !ok {
		return errors.Wrapf(ErrInvalidPointer, "free of offset %d", ptr)
	}

	a.live.Delete(ptr)
	a.allocatedBytes -= allocation.size
	a.tagBytes[allocation.tag] -= allocation.size
	if a.zeroOnFree {
		clear(a.data[ptr : int(ptr)+allocation.size])
	}

	section := int(ptr) - sectionHeaderSize
	size := allocation.size

	prev := nilSection
	next := a.firstFree
	for next != nilSection && next < section {
		prev = next
		next = a.sectionNext(next)
	}

	if next != nilSection && section+sectionHeaderSize+size == next {
		nextSize := a.sectionSize(next)
		if nextSize == 0 {
			size = 0
		} else {
			size += sectionHeaderSize + nextSize
		}
		next = a.sectionNext(next)
	}
	a.writeSection(section, size, next)

	if prev != nilSection && prev+sectionHeaderSize+a.sectionSize(prev) == section {
		if size == 0 {
			a.setSectionSize(prev, 0)
		} else {
			a.setSectionSize(prev, a.sectionSize(prev)+sectionHeaderSize+size)
		}
		a.setSectionNext(prev, next)
		return nil
	}

	a.link(prev, section)
	return nil
}

func (a *FreeListAllocator) allocateAligned(size int, alignment uint, tag Tag) (Ptr, error) {
	if size <= 0 {
		return Nil, errors.Wrapf(ErrInvalidSize, "requested %d bytes", size)
	}
	memutils.DebugCheckPow2(alignment, "alignment")
	if err := memutils.CheckPow2(alignment, "alignment"); err != nil {
		return Nil, err
	}

	if size > a.size || alignment > uint(a.size) {
		return Nil, errors.Wrapf(ErrOutOfMemory, "requested %d bytes aligned to %d from a %d byte block", size, alignment, a.size)
	}

	raw, err := a.allocate(size+int(alignment), tag)
	if err != nil {
		return Nil, err
	}

	address := a.block.Address() + uintptr(raw)
	adjustment := int(memutils.AlignUpAddress(address+1, alignment) - address)
	ptr := raw + Ptr(adjustment)
	writeAdjustment(a.data, int(ptr), adjustment)

	return ptr, nil
}

// alignedBase recovers the allocation an aligned pointer was carved from
func (a *FreeListAllocator) alignedBase(ptr Ptr) (Ptr, int, error) {
	if int(ptr) <= sectionHeaderSize || int(ptr) > a.size {
		return Nil, 0, errors.Wrapf(ErrInvalidPointer, "aligned pointer %d is outside the block", ptr)
	}

	adjustment := readAdjustment(a.data, int(ptr))
	raw := ptr - Ptr(adjustment)
	if _, ok := a.live.Get(raw); !ok {
		return Nil, 0, errors.Wrapf(ErrInvalidPointer, "aligned pointer %d", ptr)
	}

	return raw, adjustment, nil
}

func (a *FreeListAllocator) reallocate(ptr Ptr, size int, tag Tag, keepTag bool) (Ptr, error) {
	if ptr == Nil {
		return a.allocate(size, tag)
	}

	allocation, ok := a.live.Get(ptr)
	if !ok {
		return Nil, errors.Wrapf(ErrInvalidPointer, "reallocate of offset %d", ptr)
	}
	if size <= 0 {
		return Nil, errors.Wrapf(ErrInvalidSize, "requested %d bytes", size)
	}
	if size > a.size {
		return Nil, errors.Wrapf(ErrOutOfMemory, "requested %d bytes from a %d byte block", size, a.size)
	}
	if keepTag {
		tag = allocation.tag
	}
	tag = tag.known()

	if size+memutils.DebugMargin <= allocation.size {
		a.tagBytes[allocation.tag] -= allocation.size
		a.tagBytes[tag] += allocation.size
		allocation.requested = size
		allocation.tag = tag
		a.live.Put(ptr, allocation)
		memutils.WriteMagicValue(a.data, int(ptr)+size)
		return ptr, nil
	}

	newPtr, err := a.allocate(size, tag)
	if err != nil {
		return Nil, err
	}

	copy(a.data[newPtr:int(newPtr)+size], a.data[ptr:int(ptr)+allocation.requested])
	return newPtr, a.free(ptr)
}

// Allocate returns a Ptr to size bytes, aligned to at least 8 bytes
func (a *FreeListAllocator) Allocate(size int) (Ptr, error) {
	defer memutils.DebugValidate(a)
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("FreeListAllocator::Allocate", slog.Int("Size", size))
	return a.allocate(size, TagUnknown)
}

// AllocateWithTag is Allocate with the bytes attributed to tag
func (a *FreeListAllocator) AllocateWithTag(tag Tag, size int) (Ptr, error) {
	defer memutils.DebugValidate(a)
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("FreeListAllocator::AllocateWithTag", slog.String("Tag", tag.String()), slog.Int("Size", size))
	return a.allocate(size, tag)
}

// AllocateAligned returns a Ptr to size bytes whose address is a multiple of alignment. The
// allocation must be released with FreeAligned.
func (a *FreeListAllocator) AllocateAligned(size int, alignment uint) (Ptr, error) {
	defer memutils.DebugValidate(a)
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("FreeListAllocator::AllocateAligned", slog.Int("Size", size), slog.Int("Alignment", int(alignment)))
	return a.allocateAligned(size, alignment, TagUnknown)
}

func (a *FreeListAllocator) Reallocate(ptr Ptr, size int) (Ptr, error) {
	defer memutils.DebugValidate(a)
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("FreeListAllocator::Reallocate", slog.Int("Ptr", int(ptr)), slog.Int("Size", size))
	return a.reallocate(ptr, size, TagUnknown, true)
}

func (a *FreeListAllocator) ReallocateWithTag(tag Tag, ptr Ptr, size int) (Ptr, error) {
	defer memutils.DebugValidate(a)
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("FreeListAllocator::ReallocateWithTag", slog.String("Tag", tag.String()), slog.Int("Ptr", int(ptr)), slog.Int("Size", size))
	return a.reallocate(ptr, size, tag, false)
}

func (a *FreeListAllocator) ReallocateAligned(ptr Ptr, size int, alignment uint) (Ptr, error) {
	defer memutils.DebugValidate(a)
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("FreeListAllocator::ReallocateAligned", slog.Int("Ptr", int(ptr)), slog.Int("Size", size), slog.Int("Alignment", int(alignment)))
	if ptr == Nil {
		return a.allocateAligned(size, alignment, TagUnknown)
	}

	raw, adjustment, err := a.alignedBase(ptr)
	if err != nil {
		return Nil, err
	}
	allocation, _ := a.live.Get(raw)

	newPtr, err := a.allocateAligned(size, alignment, allocation.tag)
	if err != nil {
		return Nil, err
	}

	copy(a.data[newPtr:int(newPtr)+size], a.data[ptr:int(ptr)+allocation.requested-adjustment])
	return newPtr, a.free(raw)
}

// Free releases an allocation made with Allocate or Reallocate. Freeing Nil does nothing.
func (a *FreeListAllocator) Free(ptr Ptr) error {
	if ptr == Nil {
		return nil
	}

	defer memutils.DebugValidate(a)
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("FreeListAllocator::Free", slog.Int("Ptr", int(ptr)))
	return a.free(ptr)
}

// FreeAligned releases an allocation made with AllocateAligned or ReallocateAligned
func (a *FreeListAllocator) FreeAligned(ptr Ptr) error {
	if ptr == Nil {
		return nil
	}

	defer memutils.DebugValidate(a)
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("FreeListAllocator::FreeAligned", slog.Int("Ptr", int(ptr)))
	raw, _, err := a.alignedBase(ptr)
	if err != nil {
		return err
	}

	return a.free(raw)
}

func (a *FreeListAllocator) Bytes(ptr Ptr, size int) []byte {
	return a.data[ptr : int(ptr)+size : int(ptr)+size]
}

// UsableSize returns the number of bytes the allocation at ptr may use without reallocating
func (a *FreeListAllocator) UsableSize(ptr Ptr) (int, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	allocation, ok := a.live.Get(ptr)
	if !ok {
		return 0, errors.Wrapf(ErrInvalidPointer, "offset %d", ptr)
	}

	return allocation.size - memutils.DebugMargin, nil
}

// Address returns the absolute address of the first byte at ptr
func (a *FreeListAllocator) Address(ptr Ptr) uintptr {
	return a.block.Address() + uintptr(ptr)
}

// Size returns the size of the backing block in bytes
func (a *FreeListAllocator) Size() int { return a.size }

func (a *FreeListAllocator) AllocationCount() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.live.Count()
}

func (a *FreeListAllocator) IsEmpty() bool {
	return a.AllocationCount() == 0
}

// TagBytes returns the number of bytes currently attributed to tag
func (a *FreeListAllocator) TagBytes(tag Tag) int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if tag >= tagCount {
		return 0
	}
	return a.tagBytes[tag]
}

func (a *FreeListAllocator) freeSectionSize(section int) int {
	size := a.sectionSize(section)
	if size == 0 {
		return a.size - section - sectionHeaderSize
	}
	return size
}

// SumFreeSize returns the number of payload bytes across all free sections
func (a *FreeListAllocator) SumFreeSize() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	sum := 0
	for section := a.firstFree; section != nilSection; section = a.sectionNext(section) {
		sum += a.freeSectionSize(section)
	}
	return sum
}

func (a *FreeListAllocator) FreeRegionsCount() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	count := 0
	for section := a.firstFree; section != nilSection; section = a.sectionNext(section) {
		count++
	}
	return count
}

// Reset invalidates every allocation at once and returns the block to a single tail section
func (a *FreeListAllocator) Reset() {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("FreeListAllocator::Reset", slog.Int("Allocations", a.live.Count()))
	a.reset()
}

// Destroy returns the backing block to the operating system. It fails, logging each leaked
// allocation, while any allocations are live.
func (a *FreeListAllocator) Destroy() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("FreeListAllocator::Destroy")
	if a.live.Count() > 0 {
		a.debugLogAllAllocations()
		return errors.Wrapf(ErrAllocationsRemaining, "%d allocations are live", a.live.Count())
	}

	err := a.block.Free()
	a.data = nil
	return err
}
