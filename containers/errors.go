package containers

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidHandle is returned when the zero Handle is used to address an Arena
	ErrInvalidHandle = errors.New("containers: invalid handle")
	// ErrHandleOutOfRange is returned when a Handle's index lies beyond an Arena's capacity
	ErrHandleOutOfRange = errors.New("containers: handle index out of range")
	// ErrStaleHandle is returned when a Handle's slot has been cleared since the handle was issued
	ErrStaleHandle = errors.New("containers: stale handle")
	// ErrKeyNotFound is returned when a HashMap does not contain the requested key
	ErrKeyNotFound = errors.New("containers: key not found")
	// ErrIndexOutOfRange is returned when a DynamicArray index is not below its size
	ErrIndexOutOfRange = errors.New("containers: index out of range")
	// ErrInvalidCapacity is returned when a container is created with an unusable capacity
	ErrInvalidCapacity = errors.New("containers: invalid capacity")
)
