package featurestore

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/batchlearn/blobstore"
	"github.com/hupe1980/batchlearn/internal/conv"
	"github.com/hupe1980/batchlearn/internal/hash"
)

// Index is the in-memory per-example metadata of a dataset.
// It is immutable once decoded and safe to share between goroutines.
type Index struct {
	NumFields    uint32
	NumIndices   uint32
	NumIndexBits uint32

	// Labels holds the target of each example: +1, -1, or 0 when unlabeled.
	Labels []float32

	// Offsets has NumExamples()+1 entries; example i owns feature records
	// [Offsets[i], Offsets[i+1]).
	Offsets []uint64

	labeled bool
}

// NewIndex validates labels and offsets and builds an Index.
func NewIndex(numFields, numIndices, numIndexBits uint32, labels []float32, offsets []uint64) (*Index, error) {
	if numIndexBits == 0 {
		return nil, corrupt("n_index_bits missing")
	}
	if len(offsets) != len(labels)+1 {
		return nil, corrupt("%d examples but %d offsets", len(labels), len(offsets))
	}
	if offsets[0] != 0 {
		return nil, corrupt("first offset is %d", offsets[0])
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return nil, corrupt("offset %d decreases (%d < %d)", i, offsets[i], offsets[i-1])
		}
	}

	labeled := true
	for i, y := range labels {
		if math.IsNaN(float64(y)) || math.IsInf(float64(y), 0) {
			return nil, corrupt("label %d is not finite", i)
		}
		if y == 0 {
			labeled = false
		}
	}

	return &Index{
		NumFields:    numFields,
		NumIndices:   numIndices,
		NumIndexBits: numIndexBits,
		Labels:       labels,
		Offsets:      offsets,
		labeled:      labeled,
	}, nil
}

// NumExamples returns the number of examples.
func (ix *Index) NumExamples() int { return len(ix.Labels) }

// NumRecords returns the total number of feature records in the data blob.
func (ix *Index) NumRecords() uint64 { return ix.Offsets[len(ix.Offsets)-1] }

// Labeled reports whether every example carries a ±1 label.
func (ix *Index) Labeled() bool { return ix.labeled }

// RecordRange returns the feature-record range covering examples [begin, end).
func (ix *Index) RecordRange(begin, end int) (uint64, uint64) {
	return ix.Offsets[begin], ix.Offsets[end]
}

// Encode serializes the index including its header.
func (ix *Index) Encode() []byte {
	n := len(ix.Labels)
	buf := make([]byte, HeaderSize+4*n+8*(n+1))

	body := buf[HeaderSize:]
	for i, y := range ix.Labels {
		binary.LittleEndian.PutUint32(body[4*i:], math.Float32bits(y))
	}
	offs := body[4*n:]
	for i, o := range ix.Offsets {
		binary.LittleEndian.PutUint64(offs[8*i:], o)
	}

	h := IndexHeader{
		Magic:        MagicNumber,
		Version:      Version,
		NumExamples:  uint64(n),
		NumFields:    ix.NumFields,
		NumIndices:   ix.NumIndices,
		NumIndexBits: ix.NumIndexBits,
		Checksum:     hash.CRC32C(body),
	}
	copy(buf, h.Encode())
	return buf
}

// DecodeIndex parses a complete index blob.
func DecodeIndex(buf []byte) (*Index, error) {
	h, err := DecodeHeader(buf)
	if err != nil {
		return nil, err
	}

	n, err := conv.Uint64ToInt(h.NumExamples)
	if err != nil {
		return nil, corrupt("n_examples: %v", err)
	}
	labelBytes, err := conv.MulToInt(h.NumExamples, 4)
	if err != nil {
		return nil, corrupt("labels: %v", err)
	}
	offsetBytes, err := conv.MulToInt(h.NumExamples+1, 8)
	if err != nil {
		return nil, corrupt("offsets: %v", err)
	}

	body := buf[HeaderSize:]
	if len(body) != labelBytes+offsetBytes {
		return nil, corrupt("n_examples %d does not match offset table (%d body bytes)", n, len(body))
	}
	if sum := hash.CRC32C(body); sum != h.Checksum {
		return nil, corrupt("checksum mismatch: 0x%08x != 0x%08x", sum, h.Checksum)
	}

	labels := make([]float32, n)
	for i := range labels {
		labels[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[4*i:]))
	}
	offs := body[labelBytes:]
	offsets := make([]uint64, n+1)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint64(offs[8*i:])
	}

	return NewIndex(h.NumFields, h.NumIndices, h.NumIndexBits, labels, offsets)
}

// ReadIndex loads <name>.index from store.
func ReadIndex(ctx context.Context, store blobstore.BlobStore, name string) (*Index, error) {
	blob, err := store.Open(ctx, name+IndexSuffix)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s%s: %w", ErrIO, name, IndexSuffix, err)
	}
	defer func() { _ = blob.Close() }()

	buf := make([]byte, blob.Size())
	if err := blobstore.ReadFull(ctx, blob, buf, 0); err != nil {
		return nil, fmt.Errorf("%w: read %s%s: %w", ErrIO, name, IndexSuffix, err)
	}

	ix, err := DecodeIndex(buf)
	if err != nil {
		return nil, fmt.Errorf("%s%s: %w", name, IndexSuffix, err)
	}
	return ix, nil
}
