// Package blobstore provides storage access for dataset artifacts.
//
// A dataset is two immutable blobs: the small <name>.index, read once, and the
// large <name>.data, read in contiguous batch ranges by many workers at once.
// BlobStore hides where those blobs live.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, memory-mapped by default
//   - MemoryStore: in-process blobs for tests
//   - CachingStore: block LRU in front of any store
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	}
//
// Blobs that can hand out zero-copy views of their bytes should also implement
// RangeMapper; the feature store then decodes records in place.
package blobstore
