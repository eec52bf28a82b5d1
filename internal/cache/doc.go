// Package cache holds recently read feature-store blocks in RAM.
//
// Every epoch re-reads the whole training data file. When that file lives in
// a remote object store, a block cache sized to the hot part of the dataset
// turns repeated range requests into memory reads.
//
// ShardedLRUBlockCache spreads keys over up to 64 independently locked LRU
// shards so that all training workers can hit the cache at once. Small caches
// get fewer shards, one per block of capacity, so no shard is too small to
// hold a block.
package cache
