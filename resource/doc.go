// Package resource governs the memory and disk bandwidth used by batch loading.
//
// A training pass keeps one decoded batch resident per worker. With large
// batches and many workers that can exceed the memory the host is willing to
// give the run, so each worker reserves the size of its batch buffer before
// reading it and releases the reservation when the batch is done:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:   2 << 30, // 2 GiB of resident batch buffers
//	    IOLimitBytesPerSec: 400 << 20,
//	})
//
//	reserved, err := rc.AcquireMemory(ctx, batchBytes)
//	if err != nil { ... }
//	defer rc.ReleaseMemory(reserved)
//
// A request larger than the whole budget is admitted once nothing else is
// resident, so a single oversized batch never deadlocks a run.
//
// AcquireIO implements a token bucket over bytes read from the feature store.
// Requests larger than the bucket are split into bucket-sized waits.
//
// A nil *Controller is valid and imposes no limits.
package resource
