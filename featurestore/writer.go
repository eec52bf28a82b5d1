package featurestore

import (
	"bufio"
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/batchlearn/blobstore"
)

// Schema describes the feature space of a dataset.
type Schema struct {
	NumFields    uint32 // 0 derives the count from the largest field seen
	NumIndices   uint32 // 0 means 2^NumIndexBits
	NumIndexBits uint32
}

// Writer builds the .data and .index blobs of a dataset.
// Records are streamed to the data blob; labels and offsets are kept in
// memory until Close writes the index.
type Writer struct {
	ctx    context.Context
	store  blobstore.BlobStore
	name   string
	schema Schema

	blob blobstore.WritableBlob
	bw   *bufio.Writer

	labels   []float32
	offsets  []uint64
	maxField uint32
	rec      [RecordSize]byte
	err      error
}

// NewWriter starts a dataset named name in store.
func NewWriter(ctx context.Context, store blobstore.BlobStore, name string, schema Schema) (*Writer, error) {
	if schema.NumIndexBits == 0 || schema.NumIndexBits > 32 {
		return nil, fmt.Errorf("featurestore: invalid index bits %d", schema.NumIndexBits)
	}
	if schema.NumIndices == 0 && schema.NumIndexBits < 32 {
		schema.NumIndices = 1 << schema.NumIndexBits
	}

	blob, err := store.Create(ctx, name+DataSuffix)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s%s: %w", ErrIO, name, DataSuffix, err)
	}

	return &Writer{
		ctx:     ctx,
		store:   store,
		name:    name,
		schema:  schema,
		blob:    blob,
		bw:      bufio.NewWriterSize(blob, 1<<20),
		offsets: []uint64{0},
	}, nil
}

// Add appends one example.
func (w *Writer) Add(label float32, features []Record) error {
	if w.err != nil {
		return w.err
	}
	for _, f := range features {
		if w.schema.NumIndices != 0 && f.Index >= w.schema.NumIndices {
			return fmt.Errorf("featurestore: feature index %d out of range [0, %d)", f.Index, w.schema.NumIndices)
		}
		w.maxField = max(w.maxField, f.Field+1)

		PutRecord(w.rec[:], f)
		if _, err := w.bw.Write(w.rec[:]); err != nil {
			w.err = fmt.Errorf("%w: write %s%s: %w", ErrIO, w.name, DataSuffix, err)
			return w.err
		}
	}
	w.labels = append(w.labels, label)
	w.offsets = append(w.offsets, w.offsets[len(w.offsets)-1]+uint64(len(features)))
	return nil
}

// Len returns the number of examples added so far.
func (w *Writer) Len() int { return len(w.labels) }

// Close flushes the data blob and writes the index.
// On failure both blobs are removed.
func (w *Writer) Close() (*Index, error) {
	if w.err != nil {
		w.abort()
		return nil, w.err
	}
	if err := errors.Join(w.bw.Flush(), w.blob.Sync()); err != nil {
		w.abort()
		return nil, fmt.Errorf("%w: flush %s%s: %w", ErrIO, w.name, DataSuffix, err)
	}
	if err := w.blob.Close(); err != nil {
		_ = w.store.Delete(w.ctx, w.name+DataSuffix)
		return nil, fmt.Errorf("%w: close %s%s: %w", ErrIO, w.name, DataSuffix, err)
	}

	numFields := max(w.schema.NumFields, w.maxField)
	ix, err := NewIndex(numFields, w.schema.NumIndices, w.schema.NumIndexBits, w.labels, w.offsets)
	if err != nil {
		_ = w.store.Delete(w.ctx, w.name+DataSuffix)
		return nil, err
	}
	if err := w.store.Put(w.ctx, w.name+IndexSuffix, ix.Encode()); err != nil {
		_ = w.store.Delete(w.ctx, w.name+DataSuffix)
		return nil, fmt.Errorf("%w: write %s%s: %w", ErrIO, w.name, IndexSuffix, err)
	}
	return ix, nil
}

func (w *Writer) abort() {
	_ = w.blob.Close()
	_ = w.store.Delete(w.ctx, w.name+DataSuffix)
}
