package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCoordinate marks a latitude or longitude outside its valid range.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrInvalidDuration marks a non-positive elapsed time or cadence.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrInvalidState marks derived state that cannot be used, such as zero speed.
	ErrInvalidState = errors.New("invalid state")
	// ErrDivisionByZero is returned when the per-tick distance is zero.
	ErrDivisionByZero = fmt.Errorf("%w: division by zero", ErrInvalidState)
	// ErrPreconditionNotMet marks a builder operation called out of order.
	ErrPreconditionNotMet = errors.New("precondition not met")
	// ErrDataUnavailable marks a scan whose event data could not be read.
	ErrDataUnavailable = errors.New("data unavailable")
)
