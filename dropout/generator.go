package dropout

import "fmt"

// Generator fills training masks from a RandomSource.
// A Generator is owned by one worker.
type Generator struct {
	src  RandomSource
	log  int
	mult float32
}

// NewGenerator creates a generator dropping each slot with probability 2^-zeroProbLog.
func NewGenerator(src RandomSource, zeroProbLog int) (*Generator, error) {
	if zeroProbLog < 1 || zeroProbLog > 63 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRate, zeroProbLog)
	}
	return &Generator{src: src, log: zeroProbLog, mult: Multiplier(zeroProbLog)}, nil
}

// Multiplier returns the scale matching the generator's drop rate.
func (g *Generator) Multiplier() float32 { return g.mult }

// Fill regenerates the first WordsFor(n) words of m.
func (g *Generator) Fill(m *Mask, n int) error {
	if err := m.resize(n); err != nil {
		return err
	}

	words := m.Words()
	for p := range words {
		var w uint64
		for range g.log {
			v, err := g.src.Uint64()
			if err != nil {
				return err
			}
			w |= v
		}
		words[p] = w
	}
	return nil
}
