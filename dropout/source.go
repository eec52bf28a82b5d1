package dropout

import (
	"crypto/rand"
	"fmt"
	mrand "math/rand/v2"
)

// RandomSource draws uniformly random 64-bit words.
type RandomSource interface {
	// Uint64 returns a random word or an error wrapping ErrRandomSourceUnavailable.
	Uint64() (uint64, error)
}

// SourceFactory creates a RandomSource for one worker.
type SourceFactory func() (RandomSource, error)

// HardwareSource draws words with the RDRAND instruction.
// It holds no state and may be shared between goroutines.
type HardwareSource struct{}

// NewHardwareSource returns a HardwareSource if the CPU supports RDRAND.
func NewHardwareSource() (RandomSource, error) {
	if !hasRDRAND {
		return nil, fmt.Errorf("%w: RDRAND not supported on this CPU", ErrRandomSourceUnavailable)
	}
	return HardwareSource{}, nil
}

// HardwareSupported reports whether the CPU supports RDRAND.
func HardwareSupported() bool { return hasRDRAND }

// rdrandRetries bounds retries on a transient underflow of the DRNG.
const rdrandRetries = 10

func (HardwareSource) Uint64() (uint64, error) {
	for range rdrandRetries {
		if v, ok := rdrand64(); ok {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: RDRAND failed after %d attempts", ErrRandomSourceUnavailable, rdrandRetries)
}

func (HardwareSource) String() string { return "rdrand" }

// SoftwareSource is a ChaCha8 generator seeded from the operating system.
// It is not safe for concurrent use; create one per worker.
type SoftwareSource struct {
	c *mrand.ChaCha8
}

// NewSoftwareSource seeds a ChaCha8 generator from crypto/rand.
func NewSoftwareSource() (RandomSource, error) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("%w: seed: %w", ErrRandomSourceUnavailable, err)
	}
	return newSeededSource(seed), nil
}

func newSeededSource(seed [32]byte) *SoftwareSource {
	return &SoftwareSource{c: mrand.NewChaCha8(seed)}
}

func (s *SoftwareSource) Uint64() (uint64, error) { return s.c.Uint64(), nil }

func (s *SoftwareSource) String() string { return "chacha8" }

// DefaultSourceFactory returns the hardware source when RDRAND is available
// and a per-worker software source otherwise.
func DefaultSourceFactory() SourceFactory {
	if hasRDRAND {
		return NewHardwareSource
	}
	return NewSoftwareSource
}

// Name describes src for logs.
func Name(src RandomSource) string {
	if s, ok := src.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", src)
}
