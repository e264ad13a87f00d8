package bits

import "math/bits"

// Bitfield is a significance map over a flat coefficient array.
type Bitfield []uint64

func NewBitfield(nbits int) Bitfield {
	return make(Bitfield, WordsFor(nbits))
}

// WordsFor returns how many 64-bit words hold nbits.
func WordsFor(nbits int) int {
	return (nbits + 63) >> 6
}

func (b Bitfield) Set(bit int) {
	word := bit >> 6 // bit / 64
	mask := uint64(1) << (bit & 63)
	b[word] |= mask
}

func (b Bitfield) Reset() {
	clear(b)
}

// ForEach calls fn for every set bit in ascending order.
func (b Bitfield) ForEach(fn func(bit int)) {
	for wi, w := range b {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			fn(wi*64 + tz)
			w &= w - 1 // clear lowest set bit
		}
	}
}

func (b Bitfield) Count() int {
	c := 0
	for _, w := range b {
		c += bits.OnesCount64(w)
	}
	return c
}
