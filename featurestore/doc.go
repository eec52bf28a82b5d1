// Package featurestore reads and writes the on-disk dataset artifacts consumed
// by the trainer.
//
// A dataset named "train" consists of two blobs:
//
//   - train.index holds the schema (n_fields, n_indices, n_index_bits), one
//     label per example and the cumulative feature-record offset table.
//   - train.data holds the feature records of all examples back to back.
//
// # Index layout
//
//	offset  size  field
//	0       4     magic "BLIX"
//	4       4     version (1)
//	8       8     n_examples
//	16      4     n_fields
//	20      4     n_indices
//	24      4     n_index_bits (0 is rejected)
//	28      4     CRC32C of the body
//	32      4*n   labels (float32)
//	...     8*n+8 offsets (uint64, non-decreasing, offsets[0] == 0)
//
// # Data layout
//
// Each record is 12 bytes: field uint32, index uint32, value float32,
// all little-endian. Example i owns records [offsets[i], offsets[i+1]).
//
// # Reading
//
//	ds, err := featurestore.Open(ctx, store, "train")
//	batch, err := ds.ReadBatch(ctx, 0, 20000)
//	defer batch.Release()
//	for i := batch.Begin; i < batch.End; i++ {
//	    feats := batch.Features(i)
//	}
//
// ReadBatch issues a single contiguous range read and is safe to call
// concurrently. Memory-mapped blobs are decoded in place on little-endian
// hosts.
package featurestore
