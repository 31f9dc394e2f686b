package containers

import (
	"github.com/dolthub/maphash"
	"golang.org/x/exp/constraints"
)

// Hasher maps keys to 64-bit hashes. A HashMap uses the low bits of the hash to pick a bucket,
// so hashers must mix entropy into them.
type Hasher[K comparable] interface {
	Hash(key K) uint64
}

// HasherFunc adapts a function to the Hasher interface
type HasherFunc[K comparable] func(key K) uint64

func (f HasherFunc[K]) Hash(key K) uint64 { return f(key) }

// NewDefaultHasher returns a randomly seeded hasher for any comparable key, backed by the
// runtime's own map hash
func NewDefaultHasher[K comparable]() Hasher[K] {
	return maphash.NewHasher[K]()
}

// SplitMix64 is the splitmix64 finalizer. Every input bit affects every output bit.
func SplitMix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// IntegerHasher returns a deterministic hasher for integer keys
func IntegerHasher[K constraints.Integer]() Hasher[K] {
	return HasherFunc[K](func(key K) uint64 {
		return SplitMix64(uint64(key))
	})
}

const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// FNV1a hashes s with 64-bit FNV-1a
func FNV1a(s string) uint64 {
	hash := uint64(fnvOffset64)
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= fnvPrime64
	}
	return hash
}

// StringHasher returns a deterministic hasher for string keys. FNV-1a output is passed through
// SplitMix64 so the low bits are well distributed.
func StringHasher() Hasher[string] {
	return HasherFunc[string](func(key string) uint64 {
		return SplitMix64(FNV1a(key))
	})
}
