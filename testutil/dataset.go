package testutil

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/hupe1980/batchlearn/blobstore"
	"github.com/hupe1980/batchlearn/featurestore"
)

// WriteDataset stores examples as dataset name and returns its index.
func WriteDataset(tb testing.TB, store blobstore.BlobStore, name string, bits uint32, examples []Example) *featurestore.Index {
	tb.Helper()

	w, err := featurestore.NewWriter(context.Background(), store, name, featurestore.Schema{NumIndexBits: bits})
	if err != nil {
		tb.Fatalf("new writer: %v", err)
	}
	for i, ex := range examples {
		if err := w.Add(ex.Label, ex.Features); err != nil {
			tb.Fatalf("add example %d: %v", i, err)
		}
	}
	ix, err := w.Close()
	if err != nil {
		tb.Fatalf("close writer: %v", err)
	}
	return ix
}

// BuildDataset writes examples and opens the result. The dataset is closed
// when the test ends.
func BuildDataset(tb testing.TB, store blobstore.BlobStore, name string, bits uint32, examples []Example, opts ...featurestore.Option) *featurestore.Dataset {
	tb.Helper()

	WriteDataset(tb, store, name, bits, examples)
	ds, err := featurestore.Open(context.Background(), store, name, opts...)
	if err != nil {
		tb.Fatalf("open dataset: %v", err)
	}
	tb.Cleanup(func() { _ = ds.Close() })
	return ds
}

// BatchReader is the read side of a dataset.
type BatchReader interface {
	Index() *featurestore.Index
	ReadBatch(ctx context.Context, begin, end int) (*featurestore.Batch, error)
}

// CountingReader counts ReadBatch calls and can inject a failure.
type CountingReader struct {
	BatchReader

	reads atomic.Int64

	// FailAt makes the n-th read (1-based) return Err. Zero disables it.
	FailAt int64
	Err    error
}

// NewCountingReader wraps r.
func NewCountingReader(r BatchReader) *CountingReader {
	return &CountingReader{BatchReader: r}
}

// ReadBatch implements BatchReader.
func (c *CountingReader) ReadBatch(ctx context.Context, begin, end int) (*featurestore.Batch, error) {
	n := c.reads.Add(1)
	if c.FailAt > 0 && n == c.FailAt {
		return nil, c.Err
	}
	return c.BatchReader.ReadBatch(ctx, begin, end)
}

// Reads returns the number of ReadBatch calls so far.
func (c *CountingReader) Reads() int64 { return c.reads.Load() }
