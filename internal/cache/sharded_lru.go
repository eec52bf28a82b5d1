package cache

import (
	"context"
	"hash/maphash"
)

const maxShards = 64

// ShardedLRUBlockCache distributes blocks over up to maxShards LRU caches to
// keep lock contention low when every worker reads through the cache.
type ShardedLRUBlockCache struct {
	shards []*LRUBlockCache
	seed   maphash.Seed
}

// NewShardedLRUBlockCache splits capacity across the shards. The shard count
// is capacity/blockSize clamped to [1, maxShards], so every shard can hold at
// least one block once capacity >= blockSize.
func NewShardedLRUBlockCache(capacity, blockSize int64) *ShardedLRUBlockCache {
	n := int64(maxShards)
	if blockSize > 0 {
		n = min(max(capacity/blockSize, 1), maxShards)
	}
	shardCapacity := max(capacity/n, 1)

	s := &ShardedLRUBlockCache{
		shards: make([]*LRUBlockCache, n),
		seed:   maphash.MakeSeed(),
	}
	for i := range s.shards {
		s.shards[i] = NewLRUBlockCache(shardCapacity)
	}
	return s
}

func (s *ShardedLRUBlockCache) shard(key BlockKey) *LRUBlockCache {
	return s.shards[maphash.Comparable(s.seed, key)%uint64(len(s.shards))]
}

// Get returns a cached block.
func (s *ShardedLRUBlockCache) Get(ctx context.Context, key BlockKey) ([]byte, bool) {
	return s.shard(key).Get(ctx, key)
}

// Set caches a block.
func (s *ShardedLRUBlockCache) Set(ctx context.Context, key BlockKey, b []byte) {
	s.shard(key).Set(ctx, key, b)
}

// Invalidate removes matching entries from every shard.
func (s *ShardedLRUBlockCache) Invalidate(predicate func(key BlockKey) bool) {
	for _, shard := range s.shards {
		shard.Invalidate(predicate)
	}
}

// Stats returns aggregated hit and miss counts.
func (s *ShardedLRUBlockCache) Stats() (hits, misses int64) {
	for _, shard := range s.shards {
		h, m := shard.Stats()
		hits += h
		misses += m
	}
	return hits, misses
}

// Size returns the cached bytes across all shards.
func (s *ShardedLRUBlockCache) Size() int64 {
	var total int64
	for _, shard := range s.shards {
		total += shard.Size()
	}
	return total
}
