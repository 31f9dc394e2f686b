package memory

import (
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// Config sizes the process-wide allocators created by Initialize
type Config struct {
	// TotalSize is the size of the persistent free-list block
	TotalSize int
	// FrameSize is the size of the per-frame bump allocator carved from the persistent block.
	// No frame allocator is created when it is 0.
	FrameSize int
	Flags     CreateFlags
}

var (
	// ErrAlreadyInitialized is returned from Initialize when the defaults are already in place
	ErrAlreadyInitialized = errors.New("memory: already initialized")
	// ErrNotInitialized is returned from Shutdown when Initialize has not been called
	ErrNotInitialized = errors.New("memory: not initialized")
)

var (
	defaultsMutex sync.RWMutex
	heapDefault   = NewHeapAllocator(nil, CreateInternallySynchronized)
	persistent    *FreeListAllocator
	frame         *BumpAllocator
)

// Initialize replaces the Go heap default with a FreeListAllocator of config.TotalSize bytes
// and, when config.FrameSize is set, a frame allocator carved from it
func Initialize(logger *slog.Logger, config Config) error {
	defaultsMutex.Lock()
	defer defaultsMutex.Unlock()

	if persistent != nil {
		return ErrAlreadyInitialized
	}

	allocator, err := NewFreeListAllocator(logger, config.TotalSize, CreateOptions{Flags: config.Flags})
	if err != nil {
		return errors.Wrap(err, "could not create the persistent allocator")
	}

	if config.FrameSize > 0 {
		frameAllocator, err := NewBumpAllocator(logger, allocator, config.FrameSize, config.Flags)
		if err != nil {
			destroyErr := allocator.Destroy()
			if destroyErr != nil {
				allocator.logger.Error("error attempting to destroy persistent allocator after frame allocator failure", slog.Any("error", destroyErr))
			}
			return errors.Wrap(err, "could not create the frame allocator")
		}
		frame = frameAllocator
	}

	persistent = allocator
	return nil
}

// Shutdown destroys the allocators created by Initialize and restores the Go heap default.
// It fails if the persistent allocator still has live allocations.
func Shutdown() error {
	defaultsMutex.Lock()
	defer defaultsMutex.Unlock()

	if persistent == nil {
		return ErrNotInitialized
	}

	frameAllocations := 0
	if frame != nil {
		frameAllocations = 1
	}
	if count := persistent.AllocationCount(); count > frameAllocations {
		persistent.DebugLogAllAllocations()
		return errors.Wrapf(ErrAllocationsRemaining, "%d allocations are live", count-frameAllocations)
	}

	if frame != nil {
		if err := frame.Destroy(); err != nil {
			return errors.Wrap(err, "could not destroy the frame allocator")
		}
		frame = nil
	}

	if err := persistent.Destroy(); err != nil {
		return err
	}

	persistent = nil
	return nil
}

// Default returns the process-wide allocator: the persistent FreeListAllocator after
// Initialize, and a HeapAllocator otherwise
func Default() Allocator {
	defaultsMutex.RLock()
	defer defaultsMutex.RUnlock()

	if persistent != nil {
		return persistent
	}
	return heapDefault
}

// Frame returns the per-frame bump allocator, or nil when none was configured
func Frame() *BumpAllocator {
	defaultsMutex.RLock()
	defer defaultsMutex.RUnlock()

	return frame
}

// ResetFrame releases everything allocated from the frame allocator
func ResetFrame() {
	defaultsMutex.RLock()
	defer defaultsMutex.RUnlock()

	if frame != nil {
		frame.Reset()
	}
}
