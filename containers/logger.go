// Package containers implements allocator-backed generic containers: a growable DynamicArray,
// a handle-addressed Arena, a Robin Hood HashMap and a fixed-capacity RingBuffer.
//
// Element storage is drawn from a memory.Allocator when the element type is plain data, so
// the garbage collector never needs to scan it. Element types holding Go pointers are stored
// in ordinary Go slices instead. None of the containers are safe for concurrent use.
package containers

import (
	"sync/atomic"

	"github.com/tokiengine/memcore/internal/utils"
	"golang.org/x/exp/slog"
)

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(utils.NopLogger())
}

// SetLogger configures the logger shared by every container. Containers log warnings when an
// Arena is full or a HashMap lookup misses. Pass nil to restore silent behavior.
func SetLogger(logger *slog.Logger) {
	loggerPtr.Store(utils.LoggerOrNop(logger))
}

// Logger returns the logger shared by every container
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
