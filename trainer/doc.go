// Package trainer runs training, evaluation and prediction passes of a
// model.Model over a featurestore dataset.
//
// # Scheduling
//
// A pass splits the dataset into contiguous batches (planner.Batches). A
// fixed pool of worker goroutines claims batches one at a time from a shared
// atomic counter, so a worker that finishes early immediately takes the next
// unclaimed batch. Each worker reads its batch with one range read and then
// walks it sequentially.
//
// Training shuffles the batch order once per epoch on the calling goroutine,
// then each worker splits its batch into mini-batches and shuffles their
// order with its own generator. Examples inside a mini-batch are visited in
// storage order.
//
// # Shared weights
//
// All workers update the same model concurrently without locks
// (Hogwild-style). Results are approximately, not bit-for-bit, reproducible
// across thread counts.
//
// # Errors
//
// Any read failure, dropout source failure, mask overflow or context
// cancellation aborts the pass; the first error is returned and the other
// workers stop after their current batch.
package trainer
