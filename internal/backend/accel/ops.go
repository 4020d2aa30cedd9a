package accel

import (
	"github.com/born-ml/gradfn/internal/kernel"
	"github.com/born-ml/gradfn/internal/tensor"
)

// launch1 launches a single-output kernel.
func (b *Backend) launch1(k *kernel.Kernel, args ...kernel.Arg) (*tensor.RawTensor, error) {
	outs, err := b.Launch(k, args...)
	if err != nil {
		return nil, err
	}
	return outs[0], nil
}

// Add performs element-wise addition with broadcasting.
func (b *Backend) Add(x, y *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.launch1(kernel.AddKernel, kernel.ArrayArg(x), kernel.ArrayArg(y))
}

// Sub performs element-wise subtraction with broadcasting.
func (b *Backend) Sub(x, y *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.launch1(kernel.SubKernel, kernel.ArrayArg(x), kernel.ArrayArg(y))
}

// Mul performs element-wise multiplication with broadcasting.
func (b *Backend) Mul(x, y *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.launch1(kernel.MulKernel, kernel.ArrayArg(x), kernel.ArrayArg(y))
}

// Div performs element-wise division with broadcasting.
func (b *Backend) Div(x, y *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.launch1(kernel.DivKernel, kernel.ArrayArg(x), kernel.ArrayArg(y))
}

// Pow computes x ** y element-wise with broadcasting.
func (b *Backend) Pow(x, y *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.launch1(kernel.PowKernel, kernel.ArrayArg(x), kernel.ArrayArg(y))
}

// Neg computes -x.
func (b *Backend) Neg(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.launch1(kernel.NegKernel, kernel.ArrayArg(x))
}

// Exp computes exp(x).
func (b *Backend) Exp(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.launch1(kernel.ExpKernel, kernel.ArrayArg(x))
}

// Log computes ln(x).
func (b *Backend) Log(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.launch1(kernel.LogKernel, kernel.ArrayArg(x))
}

// AddScalar computes x + s.
func (b *Backend) AddScalar(x *tensor.RawTensor, s float64) (*tensor.RawTensor, error) {
	return b.launch1(kernel.AddScalarKernel, kernel.ArrayArg(x), kernel.FloatArg(s))
}

// MulScalar computes x * s.
func (b *Backend) MulScalar(x *tensor.RawTensor, s float64) (*tensor.RawTensor, error) {
	return b.launch1(kernel.MulScalarKernel, kernel.ArrayArg(x), kernel.FloatArg(s))
}

// PowScalar computes x ** s.
func (b *Backend) PowScalar(x *tensor.RawTensor, s float64) (*tensor.RawTensor, error) {
	return b.launch1(kernel.PowScalarKernel, kernel.ArrayArg(x), kernel.FloatArg(s))
}

// RPowScalar computes s ** x.
func (b *Backend) RPowScalar(x *tensor.RawTensor, s float64) (*tensor.RawTensor, error) {
	return b.launch1(kernel.RPowScalarKernel, kernel.ArrayArg(x), kernel.FloatArg(s))
}

// MatMul performs (M, K) @ (K, N) on the driver.
func (b *Backend) MatMul(x, y *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.Gemm(false, false, 1, x, y, 0, nil)
}

// Reshape returns a view with a new shape. Views share the buffer, so queued
// writes remain visible through them.
func (b *Backend) Reshape(x *tensor.RawTensor, newShape tensor.Shape) (*tensor.RawTensor, error) {
	return tensor.Reshape(x, newShape)
}

// Transpose permutes dimensions on the host after draining the stream.
func (b *Backend) Transpose(x *tensor.RawTensor, axes ...int) (*tensor.RawTensor, error) {
	if err := b.Synchronize(); err != nil {
		return nil, err
	}
	return tensor.Transpose(x, axes...)
}

// SumTo reduces broadcast dimensions on the host after draining the stream.
func (b *Backend) SumTo(x *tensor.RawTensor, shape tensor.Shape) (*tensor.RawTensor, error) {
	if x.Shape().Equal(shape) {
		return x, nil
	}
	if err := b.Synchronize(); err != nil {
		return nil, err
	}
	return tensor.SumTo(x, shape)
}
