// Package memory provides the byte allocators that every container in this module draws
// from. All allocators implement Allocator, which hands out opaque Ptr values naming a range
// of bytes inside memory the allocator owns.
package memory

import (
	"github.com/cockroachdb/errors"
)

// Ptr names an allocation inside a single Allocator. It is only meaningful to the
// allocator that produced it.
type Ptr uint64

// Nil is the null Ptr. It is returned alongside every failed allocation.
const Nil Ptr = 0

func (p Ptr) IsNil() bool { return p == Nil }

var (
	// ErrOutOfMemory is returned when an allocator cannot satisfy a request from the memory it owns
	ErrOutOfMemory = errors.New("memory: out of memory")
	// ErrInvalidSize is returned for zero or negative allocation sizes
	ErrInvalidSize = errors.New("memory: allocation size must be positive")
	// ErrInvalidPointer is returned when an allocator receives a Ptr that does not name one of its
	// live allocations, including a Ptr that was already freed
	ErrInvalidPointer = errors.New("memory: pointer does not name a live allocation")
	// ErrAllocationsRemaining is returned when destroying an allocator that still has live allocations
	ErrAllocationsRemaining = errors.New("memory: allocator still has live allocations")
)

//go:generate mockgen -destination ./mocks/allocator.go -package mock_memory github.com/tokiengine/memcore/memory Allocator

// Allocator is the capability every allocator in this module exposes.
//
// Allocate and AllocateAligned return Nil and an error wrapping ErrOutOfMemory when the request
// cannot be satisfied. Memory from AllocateAligned must be released with FreeAligned and memory
// from Allocate with Free; mixing the two is undefined.
type Allocator interface {
	Allocate(size int) (Ptr, error)
	AllocateAligned(size int, alignment uint) (Ptr, error)
	// Reallocate resizes ptr, preserving min(old, new) bytes of its contents. A Nil ptr behaves
	// like Allocate. On failure the original allocation is left untouched.
	Reallocate(ptr Ptr, size int) (Ptr, error)
	ReallocateAligned(ptr Ptr, size int, alignment uint) (Ptr, error)
	Free(ptr Ptr) error
	FreeAligned(ptr Ptr) error
	// Bytes returns size bytes of the allocation named by ptr. The slice is invalidated when
	// ptr is freed or reallocated.
	Bytes(ptr Ptr, size int) []byte
}

// TaggedAllocator is implemented by allocators that attribute live bytes to a Tag
type TaggedAllocator interface {
	Allocator
	ReallocateWithTag(tag Tag, ptr Ptr, size int) (Ptr, error)
	TagBytes(tag Tag) int
}

// ReallocateTagged reallocates through allocator, attributing the bytes to tag when the
// allocator keeps per-tag accounting
func ReallocateTagged(allocator Allocator, tag Tag, ptr Ptr, size int) (Ptr, error) {
	tagged, isTagged := allocator.(TaggedAllocator)
	if isTagged {
		return tagged.ReallocateWithTag(tag, ptr, size)
	}

	return allocator.Reallocate(ptr, size)
}
