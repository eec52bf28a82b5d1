package blobstore

import (
	"context"
	"errors"
	"io"

	"github.com/hupe1980/batchlearn/internal/cache"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentFills bounds the parallel backend requests of one ReadAt.
const maxConcurrentFills = 8

// CachingStore wraps a BlobStore and caches fixed-size blocks of every blob read.
type CachingStore struct {
	inner     BlobStore
	cache     cache.BlockCache
	blockSize int64
}

// NewCachingStore creates a new CachingStore.
// blockSize defaults to 1 MiB if <= 0.
func NewCachingStore(inner BlobStore, c cache.BlockCache, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = 1 << 20
	}
	return &CachingStore{
		inner:     inner,
		cache:     c,
		blockSize: blockSize,
	}
}

func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &CachingBlob{
		inner:     b,
		cache:     s.cache,
		name:      name,
		blockSize: s.blockSize,
	}, nil
}

// Create passes through; artifacts are immutable once closed.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	s.invalidate(name)
	return s.inner.Create(ctx, name)
}

func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

func (s *CachingStore) invalidate(name string) {
	s.cache.Invalidate(func(key cache.BlockKey) bool {
		return key.Path == name
	})
}

// CachingBlob reads through the block cache.
type CachingBlob struct {
	inner     Blob
	cache     cache.BlockCache
	name      string
	blockSize int64
}

func (b *CachingBlob) Close() error {
	return b.inner.Close()
}

func (b *CachingBlob) Size() int64 {
	return b.inner.Size()
}

func (b *CachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if off >= b.Size() {
		return 0, io.EOF
	}

	end := min(off+int64(len(p)), b.Size())
	startBlock := off / b.blockSize
	endBlock := (end - 1) / b.blockSize

	blocks := make([][]byte, endBlock-startBlock+1)
	if err := b.load(ctx, startBlock, blocks); err != nil {
		return 0, err
	}

	total := 0
	for i, data := range blocks {
		blkStart := (startBlock + int64(i)) * b.blockSize
		from := max(blkStart, off)
		to := min(blkStart+int64(len(data)), end)
		if to <= from {
			break
		}
		total += copy(p[from-off:], data[from-blkStart:to-blkStart])
	}

	if total < len(p) {
		return total, io.EOF
	}
	return total, nil
}

// load fills blocks with the data of startBlock, startBlock+1, ... taking
// cached blocks from the cache and fetching each contiguous run of missing
// blocks with a single backend read.
func (b *CachingBlob) load(ctx context.Context, startBlock int64, blocks [][]byte) error {
	type run struct{ first, count int }
	var missing []run

	for i := range blocks {
		key := cache.BlockKey{Path: b.name, Block: startBlock + int64(i)}
		if data, ok := b.cache.Get(ctx, key); ok {
			blocks[i] = data
			continue
		}
		if n := len(missing); n > 0 && missing[n-1].first+missing[n-1].count == i {
			missing[n-1].count++
		} else {
			missing = append(missing, run{first: i, count: 1})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFills)

	for _, r := range missing {
		g.Go(func() error {
			byteStart := (startBlock + int64(r.first)) * b.blockSize
			byteLen := min(int64(r.count)*b.blockSize, b.Size()-byteStart)

			buf := make([]byte, byteLen)
			n, err := b.inner.ReadAt(gctx, buf, byteStart)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			buf = buf[:n]

			for i := 0; i < r.count; i++ {
				lo := int64(i) * b.blockSize
				if lo >= int64(len(buf)) {
					break
				}
				hi := min(lo+b.blockSize, int64(len(buf)))
				// Each block gets its own slice so the cache does not pin the whole run.
				block := make([]byte, hi-lo)
				copy(block, buf[lo:hi])

				blocks[r.first+i] = block
				b.cache.Set(gctx, cache.BlockKey{Path: b.name, Block: startBlock + int64(r.first+i)}, block)
			}
			return nil
		})
	}
	return g.Wait()
}
