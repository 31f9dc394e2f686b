package memory

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/tokiengine/memcore/memutils"
	"golang.org/x/exp/slog"
)

// Validate walks the free list and then every section of the block, returning an error
// describing the first broken invariant it finds
func (a *FreeListAllocator) Validate() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.validate()
}

func (a *FreeListAllocator) validate() error {
	prev := nilSection
	freeCount := 0
	for section := a.firstFree; section != nilSection; section = a.sectionNext(section) {
		if section < 0 || section+sectionHeaderSize > a.size {
			return errors.Errorf("free section at offset %d is outside the block", section)
		}
		if section%sectionAlignment != 0 {
			return errors.Errorf("free section at offset %d is misaligned", section)
		}
		if prev != nilSection && section <= prev {
			return errors.Errorf("free section at offset %d follows offset %d, the free list is not address ordered", section, prev)
		}

		size := a.sectionSize(section)
		if size == 0 && a.sectionNext(section) != nilSection {
			return errors.Errorf("tail section at offset %d is not the last free section", section)
		}
		if section+sectionHeaderSize+size > a.size {
			return errors.Errorf("free section at offset %d runs past the end of the block", section)
		}

		freeCount++
		if freeCount > a.size/sectionHeaderSize {
			return errors.New("free list contains a cycle")
		}
		prev = section
	}

	nextFree := a.firstFree
	offset := 0
	allocationCount := 0
	allocationBytes := 0
	previousFree := false
	for offset < a.size {
		if offset+sectionHeaderSize > a.size {
			return errors.Errorf("section header at offset %d overruns the block", offset)
		}

		size := a.sectionSize(offset)
		isFree := offset == nextFree
		if isFree {
			if previousFree {
				return errors.Errorf("free section at offset %d was not coalesced with its neighbor", offset)
			}
			nextFree = a.sectionNext(offset)
			if size == 0 {
				offset = a.size
				break
			}
		} else {
			allocation, ok := a.live.Get(Ptr(offset + sectionHeaderSize))
			if !ok {
				return errors.Errorf("section at offset %d is neither free nor a live allocation", offset)
			}
			if allocation.size != size {
				return errors.Errorf("section at offset %d records %d bytes, but the allocation owns %d", offset, size, allocation.size)
			}
			allocationCount++
			allocationBytes += size
		}

		if size <= 0 {
			return errors.Errorf("section at offset %d has invalid size %d", offset, size)
		}
		previousFree = isFree
		offset += sectionHeaderSize + size
	}

	if offset != a.size {
		return errors.Errorf("sections end at offset %d, but the block is %d bytes", offset, a.size)
	}
	if nextFree != nilSection {
		return errors.Errorf("free section at offset %d was not reached by the physical walk", nextFree)
	}
	if allocationCount != a.live.Count() {
		return errors.Errorf("found %d allocated sections, but %d allocations are live", allocationCount, a.live.Count())
	}
	if allocationBytes != a.allocatedBytes {
		return errors.Errorf("allocated sections hold %d bytes, but %d bytes are accounted", allocationBytes, a.allocatedBytes)
	}

	taggedBytes := 0
	for _, bytes := range a.tagBytes {
		taggedBytes += bytes
	}
	if taggedBytes != a.allocatedBytes {
		return errors.Errorf("tags account for %d bytes, but %d bytes are allocated", taggedBytes, a.allocatedBytes)
	}

	return nil
}

// VisitAllRegions calls handleRegion for every section of the block in address order. offset is
// the payload offset and size the payload size. Iteration stops at the first error, which is returned.
func (a *FreeListAllocator) VisitAllRegions(handleRegion func(offset int, size int, tag Tag, free bool) error) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.visitAllRegions(handleRegion)
}

func (a *FreeListAllocator) visitAllRegions(handleRegion func(offset int, size int, tag Tag, free bool) error) error {
	nextFree := a.firstFree
	for offset := 0; offset+sectionHeaderSize <= a.size; {
		payload := offset + sectionHeaderSize
		if offset == nextFree {
			nextFree = a.sectionNext(offset)
			size := a.freeSectionSize(offset)
			if err := handleRegion(payload, size, TagUnknown, true); err != nil {
				return err
			}
			offset = payload + size
			continue
		}

		allocation, _ := a.live.Get(Ptr(payload))
		if err := handleRegion(payload, allocation.size, allocation.tag, false); err != nil {
			return err
		}
		offset = payload + allocation.size
	}

	return nil
}

func (a *FreeListAllocator) AddStatistics(stats *memutils.Statistics) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	stats.BlockCount++
	stats.BlockBytes += a.size
	stats.AllocationCount += a.live.Count()
	stats.AllocationBytes += a.allocatedBytes
}

func (a *FreeListAllocator) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.addDetailedStatistics(stats)
}

func (a *FreeListAllocator) addDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.BlockCount++
	stats.BlockBytes += a.size

	_ = a.visitAllRegions(func(offset int, size int, tag Tag, free bool) error {
		if free {
			stats.AddUnusedRange(size)
		} else {
			stats.AddAllocation(size)
		}
		return nil
	})
}

// CheckCorruption verifies the debug margin behind every live allocation. It only detects
// anything in builds with the debug_mem_utils tag.
func (a *FreeListAllocator) CheckCorruption() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("FreeListAllocator::CheckCorruption")

	ends := make([]int, 0, a.live.Count())
	a.live.Iter(func(ptr Ptr, allocation liveAllocation) bool {
		ends = append(ends, int(ptr)+allocation.requested)
		return false
	})

	return memutils.CheckCorruption(a.data, ends)
}

func (a *FreeListAllocator) debugLogAllAllocations() {
	_ = a.visitAllRegions(func(offset int, size int, tag Tag, free bool) error {
		if !free {
			a.logger.Warn("live allocation", slog.Int("Offset", offset), slog.Int("Size", size), slog.String("Tag", tag.String()))
		}
		return nil
	})
}

// DebugLogAllAllocations logs every live allocation at warning level
func (a *FreeListAllocator) DebugLogAllAllocations() {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.debugLogAllAllocations()
}

// PrintDetailedMap writes a JSON object describing the block. When detailed is set, every
// region of the block is listed.
func (a *FreeListAllocator) PrintDetailedMap(writer *jwriter.Writer, detailed bool) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	var stats memutils.DetailedStatistics
	stats.Clear()
	a.addDetailedStatistics(&stats)

	json := writer.Object()
	defer json.End()

	json.Name("TotalBytes").Int(a.size)
	json.Name("UnusedBytes").Int(stats.UnusedBytes())
	json.Name("Allocations").Int(stats.AllocationCount)
	json.Name("UnusedRanges").Int(stats.UnusedRangeCount)

	tags := json.Name("Tags").Object()
	for tag := TagUnknown; tag < tagCount; tag++ {
		if a.tagBytes[tag] > 0 {
			tags.Name(tag.String()).Int(a.tagBytes[tag])
		}
	}
	tags.End()

	if !detailed {
		return
	}

	regions := json.Name("Regions").Array()
	defer regions.End()

	_ = a.visitAllRegions(func(offset int, size int, tag Tag, free bool) error {
		obj := regions.Object()
		defer obj.End()

		obj.Name("Offset").Int(offset)
		obj.Name("Size").Int(size)
		if free {
			obj.Name("Type").String("FREE")
		} else {
			obj.Name("Type").String("USED")
			obj.Name("Tag").String(tag.String())
		}
		return nil
	})
}

// BuildStatsString returns the output of PrintDetailedMap as a string
func (a *FreeListAllocator) BuildStatsString(detailed bool) string {
	writer := jwriter.NewWriter()
	a.PrintDetailedMap(&writer, detailed)
	return string(writer.Bytes())
}
