// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides differentiable operations on graph values.
//
// Arithmetic is written as methods on *Variable. The right-hand operand may be
// another Variable, a number, or a *tensor.RawTensor constant; constants create
// no graph edge and receive no gradient.
//
// Example:
//
//	import (
//	    "github.com/born-ml/gradfn/autodiff"
//	    "github.com/born-ml/gradfn/backend/cpu"
//	    "github.com/born-ml/gradfn/tensor"
//	)
//
//	func main() {
//	    data, _ := tensor.FromFloat64([]float64{2, 3}, tensor.Shape{2}, tensor.CPU)
//	    x := autodiff.NewVariable(data, cpu.New())
//	    y, _ := x.Pow(2)
//	    _ = y.Backward()
//	    // x.Grad() is [4, 6]
//	}
package autodiff

import (
	"github.com/born-ml/gradfn/internal/autodiff"
	"github.com/born-ml/gradfn/internal/autodiff/ops"
	"github.com/born-ml/gradfn/tensor"
)

// Variable is a value in a computation graph.
type Variable = autodiff.Variable

// Function is a differentiable operation.
type Function = ops.Function

// Constant is a scalar or array operand that takes no part in differentiation.
type Constant = ops.Constant

// Linear is the affine transform Y = X·Wᵀ + b with accumulated gradients.
type Linear = ops.Linear

// LinearOption configures NewLinear.
type LinearOption = ops.LinearOption

// Errors reported while building or differentiating graphs.
var (
	ErrTypeMismatch            = autodiff.ErrTypeMismatch
	ErrBackendMismatch         = autodiff.ErrBackendMismatch
	ErrArity                   = ops.ErrArity
	ErrAmbiguousImplementation = ops.ErrAmbiguousImplementation
	ErrMissingImplementation   = ops.ErrMissingImplementation
)

// NewVariable wraps data as a graph leaf computed on backend.
func NewVariable(data *tensor.RawTensor, backend tensor.Backend) *Variable {
	return autodiff.NewVariable(data, backend)
}

// Apply runs fn on the inputs and records it for Backward.
func Apply(fn Function, inputs ...*Variable) (*Variable, error) {
	return autodiff.Apply(fn, inputs...)
}

// Scalar returns a scalar constant.
func Scalar(v float64) Constant { return ops.Scalar(v) }

// Array returns an array constant.
func Array(t *tensor.RawTensor) Constant { return ops.Array(t) }

// Add returns lhs + rhs. At least one operand must be a *Variable.
func Add(lhs, rhs any) (*Variable, error) { return autodiff.Add(lhs, rhs) }

// Sub returns lhs - rhs. At least one operand must be a *Variable.
func Sub(lhs, rhs any) (*Variable, error) { return autodiff.Sub(lhs, rhs) }

// Mul returns lhs * rhs. At least one operand must be a *Variable.
func Mul(lhs, rhs any) (*Variable, error) { return autodiff.Mul(lhs, rhs) }

// Div returns lhs / rhs. At least one operand must be a *Variable.
func Div(lhs, rhs any) (*Variable, error) { return autodiff.Div(lhs, rhs) }

// Pow returns lhs ** rhs. At least one operand must be a *Variable.
func Pow(lhs, rhs any) (*Variable, error) { return autodiff.Pow(lhs, rhs) }

// Neg returns -x.
func Neg(x *Variable) (*Variable, error) { return autodiff.Neg(x) }

// Exp returns exp(x).
func Exp(x *Variable) (*Variable, error) { return autodiff.Exp(x) }

// Log returns ln(x).
func Log(x *Variable) (*Variable, error) { return autodiff.Log(x) }

// NewLinear creates a Linear transform from in to out features.
func NewLinear(in, out int, opts ...LinearOption) (*Linear, error) {
	return ops.NewLinear(in, out, opts...)
}

// ApplyLinear applies l to x.
func ApplyLinear(l *Linear, x *Variable) (*Variable, error) {
	return autodiff.Linear(l, x)
}

// WithWScale scales the standard deviation of the initial weights.
func WithWScale(s float64) LinearOption { return ops.WithWScale(s) }

// WithBias sets the initial bias value.
func WithBias(v float64) LinearOption { return ops.WithBias(v) }

// WithNoBias omits the bias.
func WithNoBias() LinearOption { return ops.WithNoBias() }

// WithSeed makes weight initialization deterministic.
func WithSeed(seed uint64) LinearOption { return ops.WithSeed(seed) }

// WithDType sets the parameter dtype.
func WithDType(dt tensor.DataType) LinearOption { return ops.WithDType(dt) }
