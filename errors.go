package batchlearn

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/batchlearn/blobstore"
	"github.com/hupe1980/batchlearn/dropout"
	"github.com/hupe1980/batchlearn/featurestore"
	"github.com/hupe1980/batchlearn/internal/planner"
	"github.com/hupe1980/batchlearn/trainer"
)

var (
	// ErrIndexCorrupt is returned when a dataset index fails validation.
	ErrIndexCorrupt = featurestore.ErrIndexCorrupt
	// ErrIO is returned when a dataset artifact cannot be read.
	ErrIO = featurestore.ErrIO
	// ErrSchemaMismatch is returned when validation or test data was hashed
	// with a different index width than the training data.
	ErrSchemaMismatch = featurestore.ErrSchemaMismatch
	// ErrRandomSourceUnavailable is returned when dropout randomness fails.
	ErrRandomSourceUnavailable = dropout.ErrRandomSourceUnavailable
	// ErrMaskOverflow is returned when an example has more feature slots than
	// the dropout mask can hold.
	ErrMaskOverflow = dropout.ErrMaskOverflow
	// ErrNoLabels is returned when training or validation data is unlabeled.
	ErrNoLabels = trainer.ErrNoLabels
	// ErrInvalidSize is returned for non-positive batch sizes.
	ErrInvalidSize = planner.ErrInvalidSize

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid config")
)

// StageError names the step of a run that failed.
//
// The original error can be accessed via errors.Unwrap.
type StageError struct {
	Stage string
	cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.cause)
}

func (e *StageError) Unwrap() error { return e.cause }

func translateError(stage string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	// A missing artifact is an I/O failure of the dataset.
	if errors.Is(err, blobstore.ErrNotFound) && !errors.Is(err, ErrIO) {
		err = fmt.Errorf("%w: %w", ErrIO, err)
	}

	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, cause: err}
}
