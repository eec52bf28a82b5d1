package testutil

import (
	"math/rand/v2"
	"sync"

	"github.com/hupe1980/batchlearn/featurestore"
)

// RNG wraps a seeded generator. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed uint64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewPCG(seed, 0)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewPCG(r.seed, 0))
}

// Seed returns the initial seed.
func (r *RNG) Seed() uint64 {
	return r.seed
}

// IntN returns a pseudo-random number in [0,n).
func (r *RNG) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.IntN(n)
}

// Float32 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// Example is one labeled sparse example.
type Example struct {
	Label    float32
	Features []featurestore.Record
}

// SparseExamples generates n examples with 0..maxFeats random features
// drawn from 2^bits indices and random ±1 labels.
func (r *RNG) SparseExamples(n, maxFeats int, bits uint32) []Example {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Example, n)
	for i := range out {
		k := r.rand.IntN(maxFeats + 1)
		feats := make([]featurestore.Record, k)
		for j := range feats {
			feats[j] = featurestore.Record{
				Field: uint32(j),
				Index: r.rand.Uint32N(1 << bits),
				Value: r.rand.Float32()*2 - 1,
			}
		}
		out[i] = Example{Label: r.label(), Features: feats}
	}
	return out
}

// SeparableExamples generates examples whose label is determined by a single
// indicator feature: positives carry index 1, negatives index 2, and every
// example also carries noise features on indices >= 3.
func (r *RNG) SeparableExamples(n, noise int, bits uint32) []Example {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Example, n)
	for i := range out {
		y := r.label()
		signal := uint32(1)
		if y < 0 {
			signal = 2
		}
		feats := []featurestore.Record{{Field: 0, Index: signal, Value: 1}}
		for j := range noise {
			feats = append(feats, featurestore.Record{
				Field: uint32(j + 1),
				Index: 3 + r.rand.Uint32N(1<<bits-3),
				Value: 1,
			})
		}
		out[i] = Example{Label: y, Features: feats}
	}
	return out
}

func (r *RNG) label() float32 {
	if r.rand.IntN(2) == 0 {
		return -1
	}
	return 1
}

// ConstantExamples returns n identical examples with the given label and
// feature count.
func ConstantExamples(n int, label float32, feats int) []Example {
	out := make([]Example, n)
	for i := range out {
		fs := make([]featurestore.Record, feats)
		for j := range fs {
			fs[j] = featurestore.Record{Field: uint32(j), Index: uint32(j), Value: 1}
		}
		out[i] = Example{Label: label, Features: fs}
	}
	return out
}
