// Package rawmem obtains large untyped blocks of memory directly from the operating system.
// Blocks are mapped anonymously, so their pages are zeroed and are not scanned by the
// garbage collector. Allocators in this module carve these blocks into smaller pieces.
package rawmem

import (
	"unsafe"

	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidSize is returned when a block of zero or negative size is requested
	ErrInvalidSize = errors.New("rawmem: block size must be positive")
	// ErrBlockReleased is returned when a block is used after it has been freed
	ErrBlockReleased = errors.New("rawmem: block has already been released")
)

// Block is a single contiguous region of memory obtained from the operating system
type Block struct {
	data   []byte
	mapped bool
}

// Allocate obtains a zeroed block of at least size bytes from the operating system
func Allocate(size int) (*Block, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "requested %d bytes", size)
	}

	data, mapped, err := mapBlock(size)
	if err != nil {
		return nil, errors.Wrapf(err, "rawmem: failed to map %d bytes", size)
	}

	return &Block{data: data[:size:size], mapped: mapped}, nil
}

// Bytes returns the full contents of the block. It is nil after Free.
func (b *Block) Bytes() []byte {
	return b.data
}

// Size returns the size in bytes the block was allocated with
func (b *Block) Size() int {
	return len(b.data)
}

// Address returns the address of the first byte of the block, or 0 once the block is freed
func (b *Block) Address() uintptr {
	if len(b.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b.data[0]))
}

// Free returns the block to the operating system. Any slices previously returned from Bytes
// must not be used afterward.
func (b *Block) Free() error {
	if b.data == nil {
		return ErrBlockReleased
	}

	data := b.data
	b.data = nil
	if !b.mapped {
		return nil
	}

	return errors.Wrap(unmapBlock(data[:cap(data)]), "rawmem: failed to unmap block")
}
