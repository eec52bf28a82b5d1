package conv

import (
	"fmt"
	"math"
)

// Uint64ToInt converts uint64 to int safely.
func Uint64ToInt(v uint64) (int, error) {
	if v > uint64(math.MaxInt) {
		return 0, fmt.Errorf("integer overflow: %d cannot be converted to int (too large)", v)
	}
	return int(v), nil
}

// MulToInt returns count*size as an int, failing if the product does not fit.
// Used to turn on-disk element counts into buffer lengths.
func MulToInt(count uint64, size int) (int, error) {
	if size <= 0 {
		return 0, fmt.Errorf("invalid element size: %d", size)
	}
	if count > uint64(math.MaxInt)/uint64(size) {
		return 0, fmt.Errorf("integer overflow: %d elements of %d bytes", count, size)
	}
	return int(count) * size, nil
}
