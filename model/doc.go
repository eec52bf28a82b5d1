// Package model defines the contract between the trainer and a predictive model,
// and provides Linear, a hashed logistic-regression reference model.
//
// # Contract
//
// The trainer calls, for every example:
//
//	n := m.DropoutMaskSize(feats)            // bits the mask must cover
//	t := m.Predict(feats, norm, mask, mult)  // raw score, no side effects
//	m.Update(feats, norm, grad, mask, mult)  // training only
//
// feats aliases the batch buffer and must not be retained or modified.
//
// # Concurrency
//
// Predict may be called concurrently with Update. Update is called from many
// workers at once without synchronization (Hogwild-style): implementations
// must not lock, and concurrent updates to the same weight may overwrite each
// other. Training results are therefore only approximately reproducible across
// thread counts.
package model
