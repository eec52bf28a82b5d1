package trainer

import "errors"

var (
	// ErrNoLabels is returned when training or evaluating a dataset with
	// unlabeled examples.
	ErrNoLabels = errors.New("trainer: dataset has unlabeled examples")
)
