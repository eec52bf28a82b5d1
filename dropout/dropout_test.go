package dropout

import (
	"math"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

// seqSource replays fixed words.
type seqSource struct {
	words []uint64
	i     int
}

func (s *seqSource) Uint64() (uint64, error) {
	v := s.words[s.i%len(s.words)]
	s.i++
	return v, nil
}

type failingSource struct {
	after int
	n     int
}

func (s *failingSource) Uint64() (uint64, error) {
	if s.n >= s.after {
		return 0, ErrRandomSourceUnavailable
	}
	s.n++
	return 0, nil
}

func TestMultiplier(t *testing.T) {
	assert.Equal(t, float32(2), Multiplier(1))
	assert.InDelta(t, 4.0/3.0, Multiplier(2), 1e-6)
	assert.InDelta(t, 8.0/7.0, Multiplier(3), 1e-6)
}

func TestInferenceMask(t *testing.T) {
	m := NewInferenceMask(10)
	require.Len(t, m.Words(), 10)
	for _, w := range m.Words() {
		assert.Equal(t, ^uint64(0), w)
	}
	for i := range 640 {
		require.True(t, m.Test(i))
	}
	assert.Equal(t, 640, m.Live())
}

func TestGenerator_FillORsDraws(t *testing.T) {
	src := &seqSource{words: []uint64{0b0001, 0b0100, 0b1000, 0b0000}}
	g, err := NewGenerator(src, 2)
	require.NoError(t, err)
	assert.Equal(t, Multiplier(2), g.Multiplier())

	m := NewMask(4)
	require.NoError(t, g.Fill(m, 100))

	// 100 bits -> 2 words, each the OR of two draws.
	require.Len(t, m.Words(), 2)
	assert.Equal(t, uint64(0b0101), m.Words()[0])
	assert.Equal(t, uint64(0b1000), m.Words()[1])
	assert.True(t, m.Test(0))
	assert.False(t, m.Test(1))
	assert.True(t, m.Test(2))
	assert.True(t, m.Test(67))
}

func TestGenerator_Overflow(t *testing.T) {
	g, err := NewGenerator(&seqSource{words: []uint64{1}}, 1)
	require.NoError(t, err)

	m := NewMask(2)
	require.NoError(t, g.Fill(m, 128))

	err = g.Fill(m, 129)
	assert.ErrorIs(t, err, ErrMaskOverflow)
	assert.ErrorIs(t, m.Check(129), ErrMaskOverflow)
	assert.NoError(t, m.Check(0))
}

func TestGenerator_SourceFailure(t *testing.T) {
	g, err := NewGenerator(&failingSource{after: 3}, 2)
	require.NoError(t, err)

	err = g.Fill(NewMask(4), 256)
	assert.ErrorIs(t, err, ErrRandomSourceUnavailable)
}

func TestNewGenerator_InvalidRate(t *testing.T) {
	_, err := NewGenerator(&seqSource{words: []uint64{1}}, 0)
	assert.ErrorIs(t, err, ErrInvalidRate)
}

// TestGenerator_DropRate checks with a chi-square test that each bit is
// cleared with probability 2^-L.
func TestGenerator_DropRate(t *testing.T) {
	critical := distuv.ChiSquared{K: 1}.Quantile(0.9999)

	for _, l := range []int{1, 2, 3, 4} {
		var seed [32]byte
		seed[0] = byte(l)
		g, err := NewGenerator(newSeededSource(seed), l)
		require.NoError(t, err)

		m := NewMask(DefaultMaxWords)
		const rounds = 50
		var zeros, total float64
		perBit := make([]float64, 64)
		for range rounds {
			require.NoError(t, g.Fill(m, DefaultMaxWords*64))
			for _, w := range m.Words() {
				zeros += float64(64 - bits.OnesCount64(w))
				for b := range 64 {
					if w&(1<<b) == 0 {
						perBit[b]++
					}
				}
			}
			total += float64(len(m.Words()) * 64)
		}

		p := math.Ldexp(1, -l)
		expZero := total * p
		expOne := total * (1 - p)
		ones := total - zeros
		stat := (zeros-expZero)*(zeros-expZero)/expZero + (ones-expOne)*(ones-expOne)/expOne
		assert.Less(t, stat, critical, "L=%d: zero fraction %.5f, want %.5f", l, zeros/total, p)

		// Every bit position drops at the same rate.
		n := total / 64
		sigma := math.Sqrt(n * p * (1 - p))
		for b, z := range perBit {
			assert.InDelta(t, n*p, z, 6*sigma, "L=%d bit %d", l, b)
		}
	}
}

func TestSoftwareSource(t *testing.T) {
	src, err := NewSoftwareSource()
	require.NoError(t, err)
	assert.Equal(t, "chacha8", Name(src))

	a, err := src.Uint64()
	require.NoError(t, err)
	b, err := src.Uint64()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHardwareSource(t *testing.T) {
	src, err := NewHardwareSource()
	if !HardwareSupported() {
		require.ErrorIs(t, err, ErrRandomSourceUnavailable)
		t.Skip("RDRAND not available")
	}
	require.NoError(t, err)
	assert.Equal(t, "rdrand", Name(src))

	seen := make(map[uint64]bool)
	for range 100 {
		v, err := src.Uint64()
		require.NoError(t, err)
		seen[v] = true
	}
	assert.Greater(t, len(seen), 95)
}

func TestDefaultSourceFactory(t *testing.T) {
	src, err := DefaultSourceFactory()()
	require.NoError(t, err)
	if HardwareSupported() {
		assert.Equal(t, "rdrand", Name(src))
	} else {
		assert.Equal(t, "chacha8", Name(src))
	}
}

func TestName_Fallback(t *testing.T) {
	assert.Equal(t, "*dropout.seqSource", Name(&seqSource{}))
}
