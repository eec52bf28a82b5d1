package featurestore

import (
	"context"
	"fmt"
	"unsafe"

	"golang.org/x/sys/cpu"

	"github.com/hupe1980/batchlearn/blobstore"
	"github.com/hupe1980/batchlearn/internal/conv"
	"github.com/hupe1980/batchlearn/resource"
)

// Option configures a Dataset.
type Option func(*Dataset)

// WithResourceController bounds resident batch memory and read throughput.
func WithResourceController(rc *resource.Controller) Option {
	return func(d *Dataset) { d.rc = rc }
}

// WithoutZeroCopy forces batches to be decoded into heap buffers even when
// the data blob is memory-mapped.
func WithoutZeroCopy() Option {
	return func(d *Dataset) { d.zeroCopy = false }
}

// Dataset couples an Index with its data blob.
type Dataset struct {
	name     string
	index    *Index
	data     blobstore.Blob
	rc       *resource.Controller
	zeroCopy bool
}

// Open loads <name>.index and opens <name>.data from store.
func Open(ctx context.Context, store blobstore.BlobStore, name string, opts ...Option) (*Dataset, error) {
	ix, err := ReadIndex(ctx, store, name)
	if err != nil {
		return nil, err
	}

	data, err := store.Open(ctx, name+DataSuffix)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s%s: %w", ErrIO, name, DataSuffix, err)
	}

	d := &Dataset{
		name:     name,
		index:    ix,
		data:     data,
		zeroCopy: !cpu.IsBigEndian,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Name returns the dataset name without suffix.
func (d *Dataset) Name() string { return d.name }

// Index returns the dataset index.
func (d *Dataset) Index() *Index { return d.index }

// Close releases the data blob.
func (d *Dataset) Close() error { return d.data.Close() }

// ReadBatch reads the feature records of examples [begin, end) with one
// contiguous range read. It is safe for concurrent use.
// The caller must call Release on the returned batch.
func (d *Dataset) ReadBatch(ctx context.Context, begin, end int) (*Batch, error) {
	if begin < 0 || end < begin || end > d.index.NumExamples() {
		return nil, fmt.Errorf("featurestore: batch [%d, %d) out of range [0, %d)", begin, end, d.index.NumExamples())
	}

	lo, hi := d.index.RecordRange(begin, end)
	count, err := conv.Uint64ToInt(hi - lo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	nbytes, err := conv.MulToInt(hi-lo, RecordSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	off := int64(lo) * RecordSize //nolint:gosec // bounded by blob size below
	if off+int64(nbytes) > d.data.Size() {
		return nil, fmt.Errorf("%w: %s%s truncated: need bytes [%d, %d), have %d",
			ErrIO, d.name, DataSuffix, off, off+int64(nbytes), d.data.Size())
	}

	reserved, err := d.rc.AcquireMemory(ctx, int64(nbytes))
	if err != nil {
		return nil, err
	}
	b := &Batch{
		Begin:    begin,
		End:      end,
		base:     lo,
		offsets:  d.index.Offsets,
		rc:       d.rc,
		reserved: reserved,
	}

	if err := d.rc.AcquireIO(ctx, nbytes); err != nil {
		b.Release()
		return nil, err
	}

	if count == 0 {
		return b, nil
	}

	if m, ok := d.data.(blobstore.RangeMapper); ok && d.zeroCopy {
		raw, err := m.MapRange(off, int64(nbytes))
		if err != nil {
			b.Release()
			return nil, fmt.Errorf("%w: map %s%s: %w", ErrIO, d.name, DataSuffix, err)
		}
		if uintptr(unsafe.Pointer(unsafe.SliceData(raw)))%unsafe.Alignof(Record{}) == 0 {
			b.Records = unsafe.Slice((*Record)(unsafe.Pointer(unsafe.SliceData(raw))), count) //nolint:gosec // layout matches the encoding on little-endian hosts
			return b, nil
		}
		b.Records = DecodeRecords(nil, raw)
		return b, nil
	}

	buf := make([]byte, nbytes)
	if err := blobstore.ReadFull(ctx, d.data, buf, off); err != nil {
		b.Release()
		return nil, fmt.Errorf("%w: read %s%s [%d, %d): %w", ErrIO, d.name, DataSuffix, off, off+int64(nbytes), err)
	}
	b.Records = DecodeRecords(nil, buf)
	return b, nil
}

// Batch holds the feature records of a contiguous example range.
// It is owned by the goroutine that read it.
type Batch struct {
	Begin, End int

	// Records must be treated as read-only; it may alias a memory mapping.
	Records []Record

	base     uint64
	offsets  []uint64
	rc       *resource.Controller
	reserved int64
}

// Len returns the number of examples in the batch.
func (b *Batch) Len() int { return b.End - b.Begin }

// Features returns the records of example i, which must lie in [Begin, End).
func (b *Batch) Features(i int) []Record {
	return b.Records[b.offsets[i]-b.base : b.offsets[i+1]-b.base]
}

// Release returns the batch's memory reservation. It is idempotent.
func (b *Batch) Release() {
	if b.reserved > 0 {
		b.rc.ReleaseMemory(b.reserved)
		b.reserved = 0
	}
}
