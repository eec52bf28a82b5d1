package model

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/hupe1980/batchlearn/dropout"
	"github.com/hupe1980/batchlearn/featurestore"
)

// LinearConfig holds the hyperparameters of Linear.
type LinearConfig struct {
	LearningRate float32
	L2           float32
}

// DefaultLinearConfig returns the default hyperparameters.
func DefaultLinearConfig() LinearConfig {
	return LinearConfig{LearningRate: 0.1, L2: 1e-6}
}

// Linear is a logistic regression over 2^bits hashed weights plus a bias.
// Mask bit i gates the i-th record of an example.
//
// Weights are float32 bit patterns read and written with individual atomic
// loads and stores. The read-modify-write of an update is not atomic, so
// concurrent updates to one weight may be lost.
type Linear struct {
	weights []uint32
	bias    atomic.Uint32
	mask    uint32
	cfg     LinearConfig
}

// NewLinear allocates a zero-initialized model with 2^bits weights.
func NewLinear(bits uint32, cfg LinearConfig) (*Linear, error) {
	if bits == 0 || bits > 31 {
		return nil, fmt.Errorf("model: invalid index bits %d", bits)
	}
	if cfg.LearningRate <= 0 {
		return nil, fmt.Errorf("model: learning rate must be positive, got %v", cfg.LearningRate)
	}
	return &Linear{
		weights: make([]uint32, 1<<bits),
		mask:    1<<bits - 1,
		cfg:     cfg,
	}, nil
}

// LinearFactory returns a Factory sizing Linear from the index schema.
func LinearFactory(cfg LinearConfig) Factory {
	return func(ix *featurestore.Index) (Model, error) {
		return NewLinear(ix.NumIndexBits, cfg)
	}
}

func (m *Linear) load(i uint32) float32 {
	return math.Float32frombits(atomic.LoadUint32(&m.weights[i&m.mask]))
}

func (m *Linear) store(i uint32, w float32) {
	atomic.StoreUint32(&m.weights[i&m.mask], math.Float32bits(w))
}

// Weight returns the weight of hashed index i.
func (m *Linear) Weight(i uint32) float32 { return m.load(i) }

// Bias returns the bias term.
func (m *Linear) Bias() float32 { return math.Float32frombits(m.bias.Load()) }

// DropoutMaskSize returns one bit per record.
func (m *Linear) DropoutMaskSize(feats []featurestore.Record) int { return len(feats) }

func scale(norm float32) float32 {
	if norm > 0 {
		return 1 / norm
	}
	return 1
}

// Predict returns bias + mult * sum(w[idx] * v) / norm over live records.
func (m *Linear) Predict(feats []featurestore.Record, norm float32, mask *dropout.Mask, mult float32) float32 {
	var t float32
	for i := range feats {
		if mask.Test(i) {
			t += m.load(feats[i].Index) * feats[i].Value
		}
	}
	return m.Bias() + mult*t*scale(norm)
}

// Update takes one SGD step with L2 regularization on live weights.
func (m *Linear) Update(feats []featurestore.Record, norm, grad float32, mask *dropout.Mask, mult float32) {
	eta, l2 := m.cfg.LearningRate, m.cfg.L2
	g := grad * mult * scale(norm)

	for i := range feats {
		if !mask.Test(i) {
			continue
		}
		idx := feats[i].Index
		w := m.load(idx)
		m.store(idx, w-eta*(g*feats[i].Value+l2*w))
	}

	m.bias.Store(math.Float32bits(m.Bias() - eta*grad))
}
