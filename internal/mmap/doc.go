// Package mmap maps dataset artifacts into memory for zero-copy batch reads.
//
// Feature data files are far larger than RAM. Mapping them lets every worker
// decode its batch straight out of the page cache, and the kernel evicts pages
// of batches that have already been consumed.
//
//	m, err := mmap.Open("train.data")
//	if err != nil { ... }
//	defer m.Close()
//
//	region, _ := m.Region(off, size)
//	_ = region.Advise(mmap.AccessWillNeed)
//	records := region.Bytes()
//
// On Unix the mapping uses mmap(2) and madvise(2); on Windows it uses
// CreateFileMapping/MapViewOfFile and access hints are ignored.
//
// Mapping and Region are safe for concurrent reads. Close is idempotent, but
// callers must not touch slices returned by Bytes after Close returns.
package mmap
