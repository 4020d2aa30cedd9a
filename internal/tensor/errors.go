package tensor

import "errors"

var (
	// ErrShapeMismatch is returned when operand shapes are incompatible for an
	// elementwise or matrix operation.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrUnsupportedDType is returned for data types a backend cannot compute on.
	ErrUnsupportedDType = errors.New("unsupported dtype")

	// ErrInvalidShape is returned for shapes with non-positive dimensions.
	ErrInvalidShape = errors.New("invalid shape")
)

// ErrDTypeMismatch is returned when operands of one operation have different dtypes.
var ErrDTypeMismatch = errors.New("dtype mismatch")
