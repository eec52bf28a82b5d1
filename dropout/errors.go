package dropout

import "errors"

var (
	// ErrRandomSourceUnavailable is returned when random words cannot be drawn.
	ErrRandomSourceUnavailable = errors.New("dropout: random source unavailable")

	// ErrMaskOverflow is returned when an example needs more mask words than
	// the mask can hold.
	ErrMaskOverflow = errors.New("dropout: mask size exceeds bound")

	// ErrInvalidRate is returned for a dropout log below 1.
	ErrInvalidRate = errors.New("dropout: zero probability log must be >= 1")
)
