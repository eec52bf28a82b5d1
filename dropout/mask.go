package dropout

import (
	"fmt"
	"math/bits"

	"github.com/bits-and-blooms/bitset"
)

// DefaultMaxWords bounds a mask at 4000 64-bit words (256000 feature slots).
const DefaultMaxWords = 4000

// Mask is a reusable bit-per-slot dropout mask. A worker allocates one mask
// up front and refills it for every example. Not safe for concurrent use.
type Mask struct {
	buf   []uint64
	set   *bitset.BitSet
	words int
}

// NewMask allocates a mask able to hold maxWords words.
func NewMask(maxWords int) *Mask {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	buf := make([]uint64, maxWords)
	return &Mask{buf: buf, set: bitset.From(buf)}
}

// NewInferenceMask returns a mask with every bit of its full extent set.
func NewInferenceMask(maxWords int) *Mask {
	m := NewMask(maxWords)
	Ones(m)
	return m
}

// Ones sets every bit of m, including words beyond the active size.
func Ones(m *Mask) {
	for i := range m.buf {
		m.buf[i] = ^uint64(0)
	}
	m.words = len(m.buf)
}

// WordsFor returns the number of 64-bit words covering n bits.
func WordsFor(n int) int { return (n + 63) / 64 }

// resize sets the active size to cover n bits.
func (m *Mask) resize(n int) error {
	w := WordsFor(n)
	if w > len(m.buf) {
		return fmt.Errorf("%w: need %d words, have %d", ErrMaskOverflow, w, len(m.buf))
	}
	m.words = w
	return nil
}

// Check reports ErrMaskOverflow if n bits do not fit.
func (m *Mask) Check(n int) error {
	if w := WordsFor(n); w > len(m.buf) {
		return fmt.Errorf("%w: need %d words, have %d", ErrMaskOverflow, w, len(m.buf))
	}
	return nil
}

// Test reports whether slot i is live.
func (m *Mask) Test(i int) bool {
	return m.set.Test(uint(i))
}

// Words returns the active words of the mask.
func (m *Mask) Words() []uint64 { return m.buf[:m.words] }

// Cap returns the maximum number of words the mask can hold.
func (m *Mask) Cap() int { return len(m.buf) }

// Live counts the set bits among the active words.
func (m *Mask) Live() int {
	n := 0
	for _, w := range m.buf[:m.words] {
		n += bits.OnesCount64(w)
	}
	return n
}

// Multiplier returns the inverted-dropout scale 2^l / (2^l - 1).
func Multiplier(l int) float32 {
	p := float32(uint64(1) << l)
	return p / (p - 1)
}
