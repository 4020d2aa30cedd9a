package autodiff

import "errors"

var (
	// ErrTypeMismatch is returned when an operand is neither a Variable nor a
	// numeric or array constant.
	ErrTypeMismatch = errors.New("operand is neither a Variable nor a constant")

	// ErrBackendMismatch is returned when the inputs of one operation live on
	// different backends.
	ErrBackendMismatch = errors.New("operands use different backends")
)
