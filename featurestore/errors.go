package featurestore

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexCorrupt is returned when an index blob fails validation.
	ErrIndexCorrupt = errors.New("featurestore: index corrupt")

	// ErrIO is returned when a batch cannot be read from the data blob.
	ErrIO = errors.New("featurestore: io error")

	// ErrSchemaMismatch is returned when two datasets used together disagree
	// on their index width.
	ErrSchemaMismatch = errors.New("featurestore: schema mismatch")
)

// SchemaMismatchError describes a dataset whose n_index_bits differs from
// the training dataset's.
type SchemaMismatchError struct {
	Role     string // "val" or "test"
	Expected uint32
	Actual   uint32
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("mismatching index bits in train and %s: expected %d, got %d", e.Role, e.Expected, e.Actual)
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIndexCorrupt, fmt.Sprintf(format, args...))
}

// CheckSchema verifies that other can be used alongside train.
func CheckSchema(train, other *Index, role string) error {
	if train.NumIndexBits != other.NumIndexBits {
		return &SchemaMismatchError{Role: role, Expected: train.NumIndexBits, Actual: other.NumIndexBits}
	}
	return nil
}
