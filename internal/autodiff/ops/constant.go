package ops

import (
	"fmt"
	"math"

	"github.com/born-ml/gradfn/internal/tensor"
)

// Constant is an operand that takes no part in differentiation: a scalar or an
// array broadcastable against the variable it is combined with.
//
// Constants are fixed when an operation is built and never mutated.
type Constant struct {
	scalar float64
	array  *tensor.RawTensor
}

// Scalar returns a scalar constant.
func Scalar(v float64) Constant {
	return Constant{scalar: v}
}

// Array returns an array constant. t is not copied and must not be modified
// afterwards.
func Array(t *tensor.RawTensor) Constant {
	return Constant{array: t}
}

// IsScalar reports whether c holds a single number.
func (c Constant) IsScalar() bool {
	return c.array == nil
}

// Value returns the scalar value. It is zero for array constants.
func (c Constant) Value() float64 {
	return c.scalar
}

// Tensor returns the array value, or nil for scalar constants.
func (c Constant) Tensor() *tensor.RawTensor {
	return c.array
}

// Negated returns -c.
func (c Constant) Negated() Constant {
	return c.mapValues(func(v float64) float64 { return -v })
}

// Reciprocal returns 1/c. Zero elements become infinities.
func (c Constant) Reciprocal() Constant {
	return c.mapValues(func(v float64) float64 { return 1 / v })
}

func (c Constant) mapValues(f func(float64) float64) Constant {
	if c.IsScalar() {
		return Scalar(f(c.scalar))
	}
	vals := c.array.Float64s()
	for i, v := range vals {
		vals[i] = f(v)
	}
	out := c.array.Clone()
	out.SetFloat64s(vals)
	return Array(out)
}

// String formats c for labels.
func (c Constant) String() string {
	if c.IsScalar() {
		return fmt.Sprintf("%g", c.scalar)
	}
	return fmt.Sprintf("array%v", c.array.Shape())
}

// full materializes a scalar constant shaped like x.
func (c Constant) full(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	if !c.IsScalar() {
		return c.array, nil
	}
	return tensor.Full(x.Shape(), x.DType(), x.Device(), c.scalar)
}

// logValue returns ln(c), element-wise for arrays.
func (c Constant) logValue() Constant {
	return c.mapValues(math.Log)
}
