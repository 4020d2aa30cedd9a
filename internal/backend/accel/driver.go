// Package accel implements tensor.Backend on an accelerator driver. Array
// operations lower to kernels from the internal/kernel catalog, and every
// launch is queued on one in-order stream.
package accel

import (
	"github.com/born-ml/gradfn/internal/kernel"
	"github.com/born-ml/gradfn/internal/tensor"
)

// Driver executes compiled kernels and matrix products on one device.
//
// Compile runs under the backend's compile lock. Program.Run and Gemm run on
// the stream goroutine, one call at a time.
type Driver interface {
	Name() string
	Device() tensor.Device

	// Compile prepares a kernel for repeated launches.
	Compile(k *kernel.Kernel) (Program, error)

	// Gemm computes c = alpha * op(a) @ op(b) + beta * c in place.
	// Shapes have already been validated by the backend.
	Gemm(transA, transB bool, alpha float64, a, b *tensor.RawTensor, beta float64, c *tensor.RawTensor) error

	Release()
}

// Program is a compiled kernel.
type Program interface {
	// Run evaluates n elements and writes the kernel's outputs into outs,
	// which are preallocated with n elements each.
	Run(n int, args []kernel.Arg, outs []*tensor.RawTensor) error
}
