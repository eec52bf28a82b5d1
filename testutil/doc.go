// Package testutil provides helpers for tests and benchmarks.
//
// # Random Data
//
//	rng := testutil.NewRNG(seed)
//	examples := rng.SeparableExamples(1000, 8, 12)
//
// # Datasets
//
//	ds := testutil.BuildDataset(t, blobstore.NewMemoryStore(), "train", 12, examples)
//	reader := testutil.NewCountingReader(ds)
package testutil
