package containers

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/tokiengine/memcore/memory"
)

// Destroyer is implemented by element types that must release resources when a container
// destroys them. Containers call Destroy on a pointer to the element.
type Destroyer interface {
	Destroy()
}

func implementsDestroyer[T any]() bool {
	_, ok := any((*T)(nil)).(Destroyer)
	return ok
}

func destroyElement[T any](element *T) {
	any(element).(Destroyer).Destroy()
}

var plainDataTypes sync.Map

// isPlainData reports whether values of t contain no Go pointers, so they can live in memory
// the garbage collector does not scan
func isPlainData(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return t.Len() == 0 || isPlainData(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !isPlainData(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func storedOffHeap[T any]() bool {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if cached, ok := plainDataTypes.Load(t); ok {
		return cached.(bool)
	}

	plain := t.Size() > 0 && isPlainData(t)
	plainDataTypes.Store(t, plain)
	return plain
}

// storage is a resizable run of T. Plain data lives in allocator memory, anything holding
// Go pointers lives in a Go slice.
type storage[T any] struct {
	allocator memory.Allocator
	tag       memory.Tag
	ptr       memory.Ptr
	items     []T
}

func newStorage[T any](allocator memory.Allocator, tag memory.Tag) storage[T] {
	if !storedOffHeap[T]() {
		return storage[T]{tag: tag}
	}
	if allocator == nil {
		allocator = memory.Default()
	}
	return storage[T]{allocator: allocator, tag: tag}
}

// resize changes the number of items to count, preserving the first min(old, count) of them.
// New items are zeroed. On failure the storage is unchanged.
func (s *storage[T]) resize(count int) error {
	if count == len(s.items) {
		return nil
	}
	if count == 0 {
		return s.release()
	}

	if s.allocator == nil {
		items := make([]T, count)
		copy(items, s.items)
		s.items = items
		return nil
	}

	var zero T
	byteCount := count * int(unsafe.Sizeof(zero))
	ptr, err := memory.ReallocateTagged(s.allocator, s.tag, s.ptr, byteCount)
	if err != nil {
		return err
	}

	oldCount := len(s.items)
	data := s.allocator.Bytes(ptr, byteCount)
	s.ptr = ptr
	s.items = unsafe.Slice((*T)(unsafe.Pointer(&data[0])), count)
	if count > oldCount {
		clear(s.items[oldCount:])
	}
	return nil
}

func (s *storage[T]) release() error {
	s.items = nil
	if s.ptr == memory.Nil {
		return nil
	}

	ptr := s.ptr
	s.ptr = memory.Nil
	return s.allocator.Free(ptr)
}
