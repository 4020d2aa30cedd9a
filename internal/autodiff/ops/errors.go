package ops

import "errors"

var (
	// ErrAmbiguousImplementation is returned when an operation declares both a
	// portable and a backend-specialized implementation of the same step.
	ErrAmbiguousImplementation = errors.New("operation declares both a default and a backend-specialized implementation")

	// ErrMissingImplementation is returned when an operation has neither a
	// portable implementation nor both specializations of a step.
	ErrMissingImplementation = errors.New("operation has no implementation for this backend")

	// ErrArity is returned when the number of inputs or gradients does not match
	// the operation.
	ErrArity = errors.New("wrong number of operands")
)
