package model

import (
	"github.com/hupe1980/batchlearn/dropout"
	"github.com/hupe1980/batchlearn/featurestore"
)

// Model is a trainable scorer over sparse feature records.
type Model interface {
	// DropoutMaskSize returns the number of mask bits the example needs.
	DropoutMaskSize(feats []featurestore.Record) int

	// Predict returns the raw score of an example.
	Predict(feats []featurestore.Record, norm float32, mask *dropout.Mask, mult float32) float32

	// Update applies one gradient step. grad is the derivative of the loss
	// with respect to the raw score.
	Update(feats []featurestore.Record, norm, grad float32, mask *dropout.Mask, mult float32)
}

// Factory builds a model for the schema of a training index.
type Factory func(ix *featurestore.Index) (Model, error)
