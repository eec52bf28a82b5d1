// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("datasets/"),
//	    s3.WithRegion("us-east-1"),
//	)
//	ds, err := featurestore.Open(ctx, store, "train")
//
// Batches are fetched with one ranged GetObject each; wrap the store in a
// blobstore.CachingStore to keep hot blocks in memory across epochs.
//
// # Features
//
//   - Range reads for contiguous batch fetches
//   - Multipart uploads for large data files and prediction outputs
//   - Configurable prefix for dataset isolation
package s3
