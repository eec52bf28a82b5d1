// Package hash provides the checksums and feature hashing used by dataset artifacts.
//
// # CRC32-Castagnoli (CRC32C)
//
// Index files carry a CRC32C of their body, which detects truncated or
// bit-flipped label and offset tables before training starts:
//
//	checksum := hash.CRC32C(body)
//
// For streaming checksums:
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	checksum := h.Sum32()
//
// # Feature hashing
//
// Bucket folds a textual feature token into a fixed 2^bits index space,
// the same space recorded as n_index_bits in the index header.
package hash
