// Package dropout generates the per-example feature masks used during training.
//
// A Mask holds one bit per feature slot. In training mode every 64-bit word
// is the bitwise OR of L independent random draws, so each bit is cleared
// (the slot is dropped) with probability 2^-L and kept otherwise. Kept
// contributions are scaled by Multiplier(L) = 2^L / (2^L - 1) so their
// expected magnitude is unchanged. In inference mode the mask is all ones and
// the multiplier is 1.
//
// Random words come from a RandomSource. The hardware source uses the RDRAND
// instruction; the software source is a ChaCha8 generator seeded from the
// operating system. A failed draw is returned as ErrRandomSourceUnavailable
// and is never replaced by a weaker generator mid-run.
package dropout
