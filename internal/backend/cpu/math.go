package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/gradfn/internal/tensor"
)

// Neg computes -x element-wise.
func (cpu *CPUBackend) Neg(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return unary(cpu, "neg", x, func(v float64) float64 { return -v })
}

// Exp computes element-wise exponential: exp(x).
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return unary(cpu, "exp", x, math.Exp)
}

// Log computes element-wise natural logarithm: ln(x).
// Non-positive inputs produce -Inf or NaN.
func (cpu *CPUBackend) Log(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return unary(cpu, "log", x, math.Log)
}

// AddScalar adds s to each element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, s float64) (*tensor.RawTensor, error) {
	return unary(cpu, "addScalar", x, func(v float64) float64 { return v + s })
}

// MulScalar multiplies each element by s.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, s float64) (*tensor.RawTensor, error) {
	return unary(cpu, "mulScalar", x, func(v float64) float64 { return v * s })
}

// PowScalar raises each element to the power s.
func (cpu *CPUBackend) PowScalar(x *tensor.RawTensor, s float64) (*tensor.RawTensor, error) {
	return unary(cpu, "powScalar", x, func(v float64) float64 { return math.Pow(v, s) })
}

// RPowScalar computes s ** x element-wise.
func (cpu *CPUBackend) RPowScalar(x *tensor.RawTensor, s float64) (*tensor.RawTensor, error) {
	return unary(cpu, "rpowScalar", x, func(v float64) float64 { return math.Pow(s, v) })
}

// unary evaluates f in float64 and rounds back to the tensor's dtype.
func unary(cpu *CPUBackend, op string, x *tensor.RawTensor, f func(float64) float64) (*tensor.RawTensor, error) {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		dst := result.AsFloat32()
		for i, v := range src {
			dst[i] = float32(f(float64(v)))
		}
	case tensor.Float64:
		src := x.AsFloat64()
		dst := result.AsFloat64()
		for i, v := range src {
			dst[i] = f(v)
		}
	default:
		return nil, fmt.Errorf("%s: %w: %s", op, tensor.ErrUnsupportedDType, x.DType())
	}

	return result, nil
}
