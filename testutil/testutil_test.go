package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/batchlearn/blobstore"
)

func TestReset(t *testing.T) {
	rng := NewRNG(42)
	a := rng.SparseExamples(10, 5, 8)
	rng.Reset()
	b := rng.SparseExamples(10, 5, 8)
	assert.Equal(t, a, b)
	assert.Equal(t, uint64(42), rng.Seed())
}

func TestSparseExamples(t *testing.T) {
	rng := NewRNG(1)
	for _, ex := range rng.SparseExamples(200, 6, 4) {
		assert.Contains(t, []float32{-1, 1}, ex.Label)
		assert.LessOrEqual(t, len(ex.Features), 6)
		for _, f := range ex.Features {
			assert.Less(t, f.Index, uint32(16))
		}
	}
}

func TestSeparableExamples(t *testing.T) {
	rng := NewRNG(2)
	for _, ex := range rng.SeparableExamples(100, 3, 6) {
		require.Len(t, ex.Features, 4)
		if ex.Label > 0 {
			assert.Equal(t, uint32(1), ex.Features[0].Index)
		} else {
			assert.Equal(t, uint32(2), ex.Features[0].Index)
		}
		for _, f := range ex.Features[1:] {
			assert.GreaterOrEqual(t, f.Index, uint32(3))
			assert.Less(t, f.Index, uint32(64))
		}
	}
}

func TestBuildDataset(t *testing.T) {
	examples := ConstantExamples(7, 1, 3)
	ds := BuildDataset(t, blobstore.NewMemoryStore(), "const", 4, examples)

	assert.Equal(t, 7, ds.Index().NumExamples())
	assert.Equal(t, uint64(21), ds.Index().NumRecords())

	r := NewCountingReader(ds)
	r.FailAt = 2
	r.Err = errors.New("boom")

	b, err := r.ReadBatch(context.Background(), 0, 7)
	require.NoError(t, err)
	assert.Equal(t, examples[3].Features, b.Features(3))

	_, err = r.ReadBatch(context.Background(), 0, 1)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, int64(2), r.Reads())
}
