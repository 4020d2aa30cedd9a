// Package emu is an accel driver that runs generated kernels on the host.
//
// It evaluates every kernel in float64 and rounds results to the tensor's
// dtype, so it exercises the accelerator dispatch path without a device.
package emu

import (
	"fmt"

	"github.com/born-ml/gradfn/internal/backend/accel"
	"github.com/born-ml/gradfn/internal/backend/cpu"
	"github.com/born-ml/gradfn/internal/kernel"
	"github.com/born-ml/gradfn/internal/tensor"
)

// Driver is the host-emulated accelerator.
type Driver struct{}

// New returns an emulated driver.
func New() *Driver {
	return &Driver{}
}

// NewBackend returns an accel backend running on the emulated driver.
func NewBackend(opts ...accel.Option) *accel.Backend {
	return accel.New(New(), opts...)
}

// Name implements accel.Driver.
func (d *Driver) Name() string { return "emulated" }

// Device implements accel.Driver.
func (d *Driver) Device() tensor.Device { return tensor.Emulated }

// Compile implements accel.Driver.
func (d *Driver) Compile(k *kernel.Kernel) (accel.Program, error) {
	return &program{p: kernel.Compile(k)}, nil
}

// Gemm implements accel.Driver.
func (d *Driver) Gemm(transA, transB bool, alpha float64, a, b *tensor.RawTensor, beta float64, c *tensor.RawTensor) error {
	_, err := cpu.Gemm(transA, transB, alpha, a, b, beta, c, tensor.Emulated)
	return err
}

// Release implements accel.Driver.
func (d *Driver) Release() {}

type program struct {
	p *kernel.Program
}

func (p *program) Run(n int, args []kernel.Arg, outs []*tensor.RawTensor) error {
	vals, err := p.p.Run(n, args)
	if err != nil {
		return err
	}
	if len(vals) != len(outs) {
		return fmt.Errorf("kernel %s: %w: %d outputs, %d buffers", p.p.Kernel().Name, kernel.ErrArgs, len(vals), len(outs))
	}
	for j, v := range vals {
		outs[j].SetFloat64s(v)
	}
	return nil
}
