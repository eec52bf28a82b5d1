package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUBlockCache_Eviction(t *testing.T) {
	ctx := context.Background()
	c := NewLRUBlockCache(10)

	c.Set(ctx, BlockKey{Path: "train.data", Block: 0}, []byte("aaaa"))
	c.Set(ctx, BlockKey{Path: "train.data", Block: 1}, []byte("bbbb"))

	// Touch block 0 so block 1 becomes the eviction candidate.
	_, ok := c.Get(ctx, BlockKey{Path: "train.data", Block: 0})
	require.True(t, ok)

	c.Set(ctx, BlockKey{Path: "train.data", Block: 2}, []byte("cccc"))

	_, ok = c.Get(ctx, BlockKey{Path: "train.data", Block: 1})
	assert.False(t, ok)
	got, ok := c.Get(ctx, BlockKey{Path: "train.data", Block: 2})
	require.True(t, ok)
	assert.Equal(t, "cccc", string(got))
	assert.Equal(t, int64(8), c.Size())

	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRUBlockCache_RejectsOversizedBlock(t *testing.T) {
	c := NewLRUBlockCache(4)
	c.Set(context.Background(), BlockKey{Path: "x"}, []byte("too large"))
	assert.Equal(t, int64(0), c.Size())
}

func TestShardedLRUBlockCache_SmallCapacity(t *testing.T) {
	const blockSize = 1 << 20
	ctx := context.Background()

	c := NewShardedLRUBlockCache(32*blockSize, blockSize)
	assert.Len(t, c.shards, 32)

	key := BlockKey{Path: "train.data", Block: 0}
	c.Set(ctx, key, make([]byte, blockSize))
	_, ok := c.Get(ctx, key)
	assert.True(t, ok)
	assert.Equal(t, int64(blockSize), c.Size())

	// Below one block there is a single shard sized to the whole capacity.
	small := NewShardedLRUBlockCache(blockSize/2, blockSize)
	assert.Len(t, small.shards, 1)
	small.Set(ctx, key, make([]byte, blockSize/4))
	_, ok = small.Get(ctx, key)
	assert.True(t, ok)
}

func TestShardedLRUBlockCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewShardedLRUBlockCache(64*1024*1024, 1024*1024)

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				key := BlockKey{Path: fmt.Sprintf("part-%d.data", w), Block: int64(i)}
				c.Set(ctx, key, make([]byte, 128))
				_, ok := c.Get(ctx, key)
				assert.True(t, ok)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(8*200*128), c.Size())
	hits, _ := c.Stats()
	assert.Equal(t, int64(8*200), hits)

	c.Invalidate(func(k BlockKey) bool { return k.Path == "part-0.data" })
	assert.Equal(t, int64(7*200*128), c.Size())
}
