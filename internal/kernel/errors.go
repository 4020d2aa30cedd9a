package kernel

import "errors"

var (
	// ErrInvalidKernel is returned for malformed kernel definitions.
	ErrInvalidKernel = errors.New("invalid kernel")

	// ErrUnknownKernel is returned when a catalog lookup fails.
	ErrUnknownKernel = errors.New("unknown kernel")

	// ErrArgs is returned when launch arguments do not match a kernel's inputs.
	ErrArgs = errors.New("kernel argument mismatch")
)
