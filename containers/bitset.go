package containers

import "math/bits"

const wordBits = 64

// Bitset is a fixed-length set of bits
type Bitset struct {
	words  []uint64
	length int
}

func NewBitset(length int) *Bitset {
	return &Bitset{
		words:  make([]uint64, (length+wordBits-1)/wordBits),
		length: length,
	}
}

func (b *Bitset) Len() int { return b.length }

func (b *Bitset) Get(index int) bool {
	return b.words[index/wordBits]&(1<<(index%wordBits)) != 0
}

func (b *Bitset) Set(index int, value bool) {
	if value {
		b.words[index/wordBits] |= 1 << (index % wordBits)
	} else {
		b.words[index/wordBits] &^= 1 << (index % wordBits)
	}
}

func (b *Bitset) Flip(index int) {
	b.words[index/wordBits] ^= 1 << (index % wordBits)
}

func (b *Bitset) FlipAll() {
	for i := range b.words {
		b.words[i] = ^b.words[i]
	}
	b.trim()
}

func (b *Bitset) ClearAll() {
	clear(b.words)
}

// trim zeroes the bits of the last word that lie past the end of the set
func (b *Bitset) trim() {
	if tail := b.length % wordBits; tail != 0 {
		b.words[len(b.words)-1] &= (1 << tail) - 1
	}
}

// Count returns the number of set bits
func (b *Bitset) Count() int {
	count := 0
	for _, word := range b.words {
		count += bits.OnesCount64(word)
	}
	return count
}

// FirstWithValue returns the lowest index at or after from whose bit equals value. It scans a
// word at a time.
func (b *Bitset) FirstWithValue(from int, value bool) (int, bool) {
	if from < 0 {
		from = 0
	}
	if from >= b.length {
		return -1, false
	}

	first := from / wordBits
	for w := first; w < len(b.words); w++ {
		word := b.words[w]
		if !value {
			word = ^word
		}
		if w == first {
			word &= ^uint64(0) << (from % wordBits)
		}

		if word != 0 {
			index := w*wordBits + bits.TrailingZeros64(word)
			if index >= b.length {
				return -1, false
			}
			return index, true
		}
	}

	return -1, false
}
