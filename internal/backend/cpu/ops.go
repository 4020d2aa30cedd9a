package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/gradfn/internal/tensor"
)

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return binary(cpu, "add", a, b,
		func(x, y float32) float32 { return x + y },
		func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return binary(cpu, "sub", a, b,
		func(x, y float32) float32 { return x - y },
		func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return binary(cpu, "mul", a, b,
		func(x, y float32) float32 { return x * y },
		func(x, y float64) float64 { return x * y })
}

// Div performs element-wise division with broadcasting.
// Division by zero yields ±Inf or NaN.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return binary(cpu, "div", a, b,
		func(x, y float32) float32 { return x / y },
		func(x, y float64) float64 { return x / y })
}

// Pow computes a ** b element-wise with broadcasting.
func (cpu *CPUBackend) Pow(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return binary(cpu, "pow", a, b,
		func(x, y float32) float32 { return float32(math.Pow(float64(x), float64(y))) },
		math.Pow)
}

// binary runs an element-wise binary operation, taking the contiguous fast path
// when both shapes match.
func binary(
	cpu *CPUBackend,
	op string,
	a, b *tensor.RawTensor,
	f32 func(x, y float32) float32,
	f64 func(x, y float64) float64,
) (*tensor.RawTensor, error) {
	if err := checkDTypes(op, a, b); err != nil {
		return nil, err
	}
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create result tensor: %w", op, err)
	}

	switch a.DType() {
	case tensor.Float32:
		applyBinary(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape, needsBroadcast, f32)
	case tensor.Float64:
		applyBinary(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), a.Shape(), b.Shape(), outShape, needsBroadcast, f64)
	default:
		return nil, fmt.Errorf("%s: %w: %s", op, tensor.ErrUnsupportedDType, a.DType())
	}
	return result, nil
}

func applyBinary[T float32 | float64](
	out, a, b []T,
	aShape, bShape, outShape tensor.Shape,
	needsBroadcast bool,
	f func(x, y T) T,
) {
	if !needsBroadcast {
		for i := range out {
			out[i] = f(a[i], b[i])
		}
		return
	}

	outStrides := outShape.ComputeStrides()
	aStrides := tensor.BroadcastStrides(aShape, outShape)
	bStrides := tensor.BroadcastStrides(bShape, outShape)
	for i := range out {
		out[i] = f(
			a[tensor.FlatIndex(i, outStrides, aStrides)],
			b[tensor.FlatIndex(i, outStrides, bStrides)],
		)
	}
}
