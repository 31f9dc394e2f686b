package containers

import (
	"github.com/cockroachdb/errors"
	"github.com/tokiengine/memcore/memory"
	"github.com/tokiengine/memcore/memutils"
	"golang.org/x/exp/slog"
)

const (
	// DefaultMaxLoadFactor is the load at which a HashMap doubles its bucket count
	DefaultMaxLoadFactor   = 0.75
	defaultHashMapCapacity = 8

	emptySlotPSL = 0
	initialPSL   = 1
)

// HashMapOptions configures a HashMap. Zero fields take their defaults.
type HashMapOptions[K comparable] struct {
	// Hasher hashes keys. NewDefaultHasher is used when nil.
	Hasher Hasher[K]
	// MaxLoadFactor is the fraction of buckets that may be occupied before the map grows. It must
	// lie in (0, 1). DefaultMaxLoadFactor is used when zero.
	MaxLoadFactor float64
}

// bucket holds one entry. psl is the entry's probe sequence length: one plus its distance from
// the bucket its hash selects. An empty bucket has a psl of zero.
type bucket[K comparable, V any] struct {
	psl   uint32
	key   K
	value V
}

// HashMap is an open-addressing hash map using Robin Hood linear probing with backward-shift
// deletion. The bucket count is always a power of two and doubles whenever an insert would
// take the load past the configured maximum.
type HashMap[K comparable, V any] struct {
	allocator     memory.Allocator
	buckets       storage[bucket[K, V]]
	hasher        Hasher[K]
	maxLoadFactor float64
	count         int
	destroyable   bool
}

// NewHashMap creates a map with at least capacity buckets drawing from allocator, or
// memory.Default when allocator is nil. The bucket count is rounded up to a power of two.
func NewHashMap[K comparable, V any](allocator memory.Allocator, capacity int, options HashMapOptions[K]) (*HashMap[K, V], error) {
	if capacity < 0 {
		return nil, errors.Wrapf(ErrInvalidCapacity, "hash map capacity %d", capacity)
	}
	if capacity == 0 {
		capacity = defaultHashMapCapacity
	}

	maxLoad := options.MaxLoadFactor
	if maxLoad == 0 {
		maxLoad = DefaultMaxLoadFactor
	}
	if maxLoad <= 0 || maxLoad >= 1 {
		return nil, errors.Newf("hash map load factor must lie in (0, 1), got %v", maxLoad)
	}

	hasher := options.Hasher
	if hasher == nil {
		hasher = NewDefaultHasher[K]()
	}

	m := &HashMap[K, V]{
		allocator:     allocator,
		buckets:       newStorage[bucket[K, V]](allocator, memory.TagHashMap),
		hasher:        hasher,
		maxLoadFactor: maxLoad,
		destroyable:   implementsDestroyer[V](),
	}

	if err := m.buckets.resize(memutils.NextPow2(capacity)); err != nil {
		return nil, errors.Wrapf(err, "could not allocate %d hash map buckets", memutils.NextPow2(capacity))
	}

	return m, nil
}

// Len returns the number of entries
func (m *HashMap[K, V]) Len() int { return m.count }

// Cap returns the number of buckets
func (m *HashMap[K, V]) Cap() int { return len(m.buckets.items) }

func (m *HashMap[K, V]) mask() uint64 { return uint64(len(m.buckets.items) - 1) }

// find returns the bucket index holding key, or -1
func (m *HashMap[K, V]) find(key K) int {
	items := m.buckets.items
	mask := m.mask()
	index := m.hasher.Hash(key) & mask

	for psl := uint32(initialPSL); int(psl) <= len(items); psl++ {
		slot := &items[index]
		// Robin Hood ordering guarantees key would have displaced any entry probed less far
		if slot.psl == emptySlotPSL || slot.psl < psl {
			return -1
		}
		if slot.psl == psl && slot.key == key {
			return int(index)
		}
		index = (index + 1) & mask
	}

	return -1
}

// insert places an entry for a key known to be absent. items must contain an empty bucket.
func insert[K comparable, V any](items []bucket[K, V], hash uint64, key K, value V) {
	mask := uint64(len(items) - 1)
	index := hash & mask
	entry := bucket[K, V]{psl: initialPSL, key: key, value: value}

	for {
		slot := &items[index]
		if slot.psl == emptySlotPSL {
			*slot = entry
			return
		}
		if slot.psl < entry.psl {
			*slot, entry = entry, *slot
		}
		entry.psl++
		index = (index + 1) & mask
	}
}

func (m *HashMap[K, V]) rehash(capacity int) error {
	grown := newStorage[bucket[K, V]](m.allocator, memory.TagHashMap)
	if err := grown.resize(capacity); err != nil {
		return errors.Wrapf(err, "could not grow hash map to %d buckets", capacity)
	}

	for i := range m.buckets.items {
		slot := &m.buckets.items[i]
		if slot.psl != emptySlotPSL {
			insert(grown.items, m.hasher.Hash(slot.key), slot.key, slot.value)
		}
	}

	if err := m.buckets.release(); err != nil {
		return errors.CombineErrors(errors.Wrap(err, "could not release hash map buckets"), grown.release())
	}
	m.buckets = grown
	return nil
}

// Emplace stores value under key, replacing and destroying any value already stored there. It
// fails only when the map needs to grow and its allocator cannot supply the buckets, in which
// case the map is unchanged.
func (m *HashMap[K, V]) Emplace(key K, value V) error {
	defer memutils.DebugValidate(m)

	if index := m.find(key); index >= 0 {
		slot := &m.buckets.items[index].value
		if m.destroyable {
			destroyElement(slot)
		}
		*slot = value
		return nil
	}

	if float64(m.count+1) > m.maxLoadFactor*float64(m.Cap()) {
		if err := m.rehash(m.Cap() * 2); err != nil {
			return err
		}
	}

	insert(m.buckets.items, m.hasher.Hash(key), key, value)
	m.count++
	return nil
}

// At returns a pointer to the value stored under key. The pointer is invalidated by the next
// insert or removal.
func (m *HashMap[K, V]) At(key K) (*V, error) {
	index := m.find(key)
	if index < 0 {
		Logger().Warn("hash map lookup missed", slog.Any("Key", key))
		return nil, errors.Wrapf(ErrKeyNotFound, "key %v", key)
	}
	return &m.buckets.items[index].value, nil
}

// Get returns the value stored under key and whether it was present
func (m *HashMap[K, V]) Get(key K) (V, bool) {
	index := m.find(key)
	if index < 0 {
		var zero V
		return zero, false
	}
	return m.buckets.items[index].value, true
}

func (m *HashMap[K, V]) Contains(key K) bool {
	return m.find(key) >= 0
}

// Remove deletes key and destroys its value, reporting whether key was present. Entries after
// it in the probe run shift back one bucket.
func (m *HashMap[K, V]) Remove(key K) bool {
	defer memutils.DebugValidate(m)

	index := m.find(key)
	if index < 0 {
		return false
	}

	items := m.buckets.items
	if m.destroyable {
		destroyElement(&items[index].value)
	}

	mask := m.mask()
	hole := uint64(index)
	next := (hole + 1) & mask
	for items[next].psl > initialPSL {
		items[hole] = items[next]
		items[hole].psl--
		hole = next
		next = (next + 1) & mask
	}
	items[hole] = bucket[K, V]{}

	m.count--
	return true
}

// ForEach calls fn for each entry in bucket order until fn returns false. The map must not be
// modified during the call.
func (m *HashMap[K, V]) ForEach(fn func(key K, value *V) bool) {
	for i := range m.buckets.items {
		slot := &m.buckets.items[i]
		if slot.psl != emptySlotPSL && !fn(slot.key, &slot.value) {
			return
		}
	}
}

func (m *HashMap[K, V]) destroyValues() {
	if !m.destroyable {
		return
	}
	for i := range m.buckets.items {
		if m.buckets.items[i].psl != emptySlotPSL {
			destroyElement(&m.buckets.items[i].value)
		}
	}
}

// Reset destroys every entry and reallocates the map with at least capacity buckets
func (m *HashMap[K, V]) Reset(capacity int) error {
	if capacity <= 0 {
		capacity = defaultHashMapCapacity
	}
	m.destroyValues()
	m.count = 0

	if err := m.buckets.release(); err != nil {
		return errors.Wrap(err, "could not release hash map buckets")
	}
	if err := m.buckets.resize(memutils.NextPow2(capacity)); err != nil {
		return errors.Wrapf(err, "could not allocate %d hash map buckets", memutils.NextPow2(capacity))
	}
	return nil
}

// ProbeStats returns the longest and the mean probe sequence length over all entries. An entry
// in its home bucket has a probe sequence length of one.
func (m *HashMap[K, V]) ProbeStats() (maxPSL int, meanPSL float64) {
	if m.count == 0 {
		return 0, 0
	}

	total := 0
	for i := range m.buckets.items {
		psl := int(m.buckets.items[i].psl)
		total += psl
		maxPSL = max(maxPSL, psl)
	}
	return maxPSL, float64(total) / float64(m.count)
}

// Validate checks that every entry's probe sequence length matches its distance from its home
// bucket and that the entry count is accurate
func (m *HashMap[K, V]) Validate() error {
	items := m.buckets.items
	if !memutils.IsPow2(len(items)) {
		return errors.Newf("hash map has %d buckets, not a power of two", len(items))
	}

	mask := m.mask()
	count := 0
	for i := range items {
		slot := &items[i]
		if slot.psl == emptySlotPSL {
			continue
		}
		count++

		home := m.hasher.Hash(slot.key) & mask
		distance := (uint64(i) - home) & mask
		if uint64(slot.psl) != distance+1 {
			return errors.Newf("bucket %d has psl %d but lies %d buckets from its home", i, slot.psl, distance)
		}
	}

	if count != m.count {
		return errors.Newf("hash map counts %d entries but holds %d", m.count, count)
	}
	if float64(count) > m.maxLoadFactor*float64(len(items)) {
		return errors.Newf("hash map holds %d entries in %d buckets, above load factor %v", count, len(items), m.maxLoadFactor)
	}
	return nil
}

// Destroy destroys every entry and returns the buckets to the allocator
func (m *HashMap[K, V]) Destroy() error {
	m.destroyValues()
	m.count = 0
	return m.buckets.release()
}
