// Package cpu implements the host backend: typed loops over row-major buffers with
// gonum BLAS for matrix products.
package cpu

import (
	"fmt"

	"github.com/born-ml/gradfn/internal/tensor"
)

// CPUBackend implements tensor.Backend on the host.
type CPUBackend struct {
	device tensor.Device
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Reshape returns a view with a new shape.
func (cpu *CPUBackend) Reshape(x *tensor.RawTensor, newShape tensor.Shape) (*tensor.RawTensor, error) {
	return tensor.Reshape(x, newShape)
}

// Transpose permutes dimensions (reverses them when axes is empty).
func (cpu *CPUBackend) Transpose(x *tensor.RawTensor, axes ...int) (*tensor.RawTensor, error) {
	return tensor.Transpose(x, axes...)
}

// SumTo sums x down to shape, undoing broadcasting.
func (cpu *CPUBackend) SumTo(x *tensor.RawTensor, shape tensor.Shape) (*tensor.RawTensor, error) {
	return tensor.SumTo(x, shape)
}

func checkDTypes(op string, a, b *tensor.RawTensor) error {
	if a.DType() != b.DType() {
		return fmt.Errorf("%s: %w: %s vs %s", op, tensor.ErrDTypeMismatch, a.DType(), b.DType())
	}
	return nil
}
