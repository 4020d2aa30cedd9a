// Package ops defines the differentiable primitive operations and the contract
// they implement.
//
// Each operation computes a forward value and the gradient of its inputs given
// the gradient of its output. An operation either provides one portable
// implementation for a step (Forwarder, Backwarder) that runs on every backend,
// or a pair of specializations: one for the host array library
// (CPUForwarder, CPUBackwarder) and one for accelerators (GPUForwarder,
// GPUBackwarder). Declaring both forms for the same step is a contract
// violation reported by Validate.
//
// Supported operations:
//   - Neg: y = -x
//   - Add, AddConstant: y = a + b, y = x + c
//   - Sub, SubFromConstant: y = a - b, y = c - x
//   - Mul, MulConstant: y = a * b, y = c * x
//   - Div, DivFromConstant: y = a / b, y = c / x
//   - PowVarVar, PowVarConst, PowConstVar: y = a ** b, y = x ** c, y = c ** x
//   - Exp, Log: y = exp(x), y = ln(x)
//   - Linear: Y = X·Wᵀ + b with accumulated parameter gradients
package ops

import (
	"github.com/born-ml/gradfn/internal/kernel"
	"github.com/born-ml/gradfn/internal/tensor"
)

// Function is a differentiable operation with a fixed number of inputs and a
// single output.
type Function interface {
	// Label names the operation in errors and traces.
	Label() string

	// Arity is the number of input tensors Forward and Backward expect.
	Arity() int
}

// Forwarder computes the output on any backend.
type Forwarder interface {
	Forward(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error)
}

// Backwarder computes input gradients on any backend.
//
// inputs are the tensors of the most recent Forward call. The result holds one
// gradient per input, shaped like that input.
type Backwarder interface {
	Backward(b tensor.Backend, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error)
}

// CPUForwarder computes the output with the host array library.
type CPUForwarder interface {
	ForwardCPU(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error)
}

// GPUForwarder computes the output with accelerator kernels.
type GPUForwarder interface {
	ForwardGPU(a Accelerator, inputs []*tensor.RawTensor) (*tensor.RawTensor, error)
}

// CPUBackwarder computes input gradients with the host array library.
type CPUBackwarder interface {
	BackwardCPU(b tensor.Backend, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error)
}

// GPUBackwarder computes input gradients with accelerator kernels.
type GPUBackwarder interface {
	BackwardGPU(a Accelerator, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error)
}

// Accelerator is a backend that launches generated elementwise kernels and
// matrix products. Launches may complete asynchronously; work queued on one
// accelerator runs in submission order.
type Accelerator interface {
	tensor.Backend

	// Launch runs k over the broadcast shape of its per-element array arguments
	// and returns its outputs in declaration order.
	Launch(k *kernel.Kernel, args ...kernel.Arg) ([]*tensor.RawTensor, error)

	// Gemm computes c = alpha * op(a) @ op(b) + beta * c, allocating c when nil.
	Gemm(transA, transB bool, alpha float64, a, b *tensor.RawTensor, beta float64, c *tensor.RawTensor) (*tensor.RawTensor, error)
}
