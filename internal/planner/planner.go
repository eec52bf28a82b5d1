package planner

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

const (
	DefaultBatchSize     = 20000
	DefaultMiniBatchSize = 24
)

// ErrInvalidSize is returned for non-positive batch sizes.
var ErrInvalidSize = errors.New("planner: size must be positive")

// Range is the half-open example range [Begin, End).
type Range struct {
	Begin, End int
}

// Len returns the number of examples in the range.
func (r Range) Len() int { return r.End - r.Begin }

func (r Range) String() string { return fmt.Sprintf("[%d, %d)", r.Begin, r.End) }

// Batches splits [0, n) into consecutive ranges of size examples.
// The last range holds the remainder. n == 0 yields no ranges.
func Batches(n, size int) ([]Range, error) {
	return split(Range{0, max(n, 0)}, size)
}

// MiniBatches splits r into consecutive sub-ranges of size examples.
func MiniBatches(r Range, size int) ([]Range, error) {
	return split(r, size)
}

// AppendMiniBatches is MiniBatches reusing dst's storage.
func AppendMiniBatches(dst []Range, r Range, size int) ([]Range, error) {
	if size <= 0 {
		return dst, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	for b := r.Begin; b < r.End; b += size {
		dst = append(dst, Range{b, min(b+size, r.End)})
	}
	return dst, nil
}

func split(r Range, size int) ([]Range, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if r.Len() <= 0 {
		return nil, nil
	}
	return AppendMiniBatches(make([]Range, 0, (r.Len()+size-1)/size), r, size)
}

// Shuffle permutes ranges in place. rng is not safe for concurrent use;
// callers running in parallel need one generator each.
func Shuffle(ranges []Range, rng *rand.Rand) {
	rng.Shuffle(len(ranges), func(i, j int) {
		ranges[i], ranges[j] = ranges[j], ranges[i]
	})
}
