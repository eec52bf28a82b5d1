// Package planner partitions example ranges into batches and mini-batches.
//
// Batches are contiguous so that each one maps to a single range read of the
// data blob. Shuffling permutes the order in which batches (or mini-batches)
// are visited, never the examples inside them.
package planner
