package featurestore

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/batchlearn/blobstore"
)

func TestIndex_EncodeDecode(t *testing.T) {
	ix, err := NewIndex(3, 1<<10, 10, []float32{1, -1, 1}, []uint64{0, 2, 2, 5})
	require.NoError(t, err)

	got, err := DecodeIndex(ix.Encode())
	require.NoError(t, err)

	assert.Equal(t, 3, got.NumExamples())
	assert.Equal(t, uint64(5), got.NumRecords())
	assert.Equal(t, uint32(10), got.NumIndexBits)
	assert.Equal(t, ix.Labels, got.Labels)
	assert.Equal(t, ix.Offsets, got.Offsets)
	assert.True(t, got.Labeled())

	lo, hi := got.RecordRange(1, 3)
	assert.Equal(t, uint64(2), lo)
	assert.Equal(t, uint64(5), hi)
}

func TestIndex_Empty(t *testing.T) {
	ix, err := NewIndex(0, 16, 4, nil, []uint64{0})
	require.NoError(t, err)

	got, err := DecodeIndex(ix.Encode())
	require.NoError(t, err)
	assert.Equal(t, 0, got.NumExamples())
	assert.Equal(t, uint64(0), got.NumRecords())
}

func TestIndex_Unlabeled(t *testing.T) {
	ix, err := NewIndex(1, 16, 4, []float32{1, 0}, []uint64{0, 1, 2})
	require.NoError(t, err)
	assert.False(t, ix.Labeled())
}

// encodeRaw bypasses NewIndex validation.
func encodeRaw(bits uint32, labels []float32, offsets []uint64) []byte {
	ix := &Index{NumFields: 1, NumIndices: 16, NumIndexBits: bits, Labels: labels, Offsets: offsets}
	return ix.Encode()
}

func TestDecodeIndex_Corrupt(t *testing.T) {
	valid := encodeRaw(4, []float32{1, -1}, []uint64{0, 1, 3})

	tests := []struct {
		name string
		buf  func() []byte
	}{
		{"truncated header", func() []byte { return valid[:HeaderSize-1] }},
		{"bad magic", func() []byte {
			b := append([]byte(nil), valid...)
			b[0] = 'X'
			return b
		}},
		{"bad version", func() []byte {
			b := append([]byte(nil), valid...)
			binary.LittleEndian.PutUint32(b[4:], 7)
			return b
		}},
		{"index bits absent", func() []byte { return encodeRaw(0, []float32{1}, []uint64{0, 1}) }},
		{"example count mismatch", func() []byte {
			b := append([]byte(nil), valid...)
			binary.LittleEndian.PutUint64(b[8:], 3)
			return b
		}},
		{"trailing bytes", func() []byte { return append(append([]byte(nil), valid...), 0, 0, 0, 0) }},
		{"checksum mismatch", func() []byte {
			b := append([]byte(nil), valid...)
			b[len(b)-1] ^= 0xFF
			return b
		}},
		{"decreasing offsets", func() []byte { return encodeRaw(4, []float32{1, -1}, []uint64{0, 3, 1}) }},
		{"first offset nonzero", func() []byte { return encodeRaw(4, []float32{1}, []uint64{2, 3}) }},
		{"label not finite", func() []byte { return encodeRaw(4, []float32{float32(math.NaN())}, []uint64{0, 1}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeIndex(tt.buf())
			assert.ErrorIs(t, err, ErrIndexCorrupt)
		})
	}
}

func TestReadIndex(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	ix, err := NewIndex(2, 256, 8, []float32{1}, []uint64{0, 4})
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "train.index", ix.Encode()))

	got, err := ReadIndex(ctx, store, "train")
	require.NoError(t, err)
	assert.Equal(t, ix.Offsets, got.Offsets)

	_, err = ReadIndex(ctx, store, "missing")
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, store.Put(ctx, "bad.index", []byte("garbage")))
	_, err = ReadIndex(ctx, store, "bad")
	assert.ErrorIs(t, err, ErrIndexCorrupt)
}

func TestCheckSchema(t *testing.T) {
	train, err := NewIndex(1, 1<<20, 20, nil, []uint64{0})
	require.NoError(t, err)
	val, err := NewIndex(1, 1<<18, 18, nil, []uint64{0})
	require.NoError(t, err)

	assert.NoError(t, CheckSchema(train, train, "val"))

	err = CheckSchema(train, val, "val")
	require.ErrorIs(t, err, ErrSchemaMismatch)

	var sm *SchemaMismatchError
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, "val", sm.Role)
	assert.Equal(t, uint32(20), sm.Expected)
	assert.Equal(t, uint32(18), sm.Actual)
	assert.Contains(t, err.Error(), "train and val")
}
