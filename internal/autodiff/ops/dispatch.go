package ops

import (
	"fmt"

	"github.com/born-ml/gradfn/internal/tensor"
)

type synchronizer interface {
	Synchronize() error
}

// Validate checks that fn provides exactly one form of each step: a portable
// implementation, or both the CPU and GPU specializations.
func Validate(fn Function) error {
	_, fwd := fn.(Forwarder)
	_, cpuFwd := fn.(CPUForwarder)
	_, gpuFwd := fn.(GPUForwarder)
	if err := checkForms(fn, "forward", fwd, cpuFwd, gpuFwd); err != nil {
		return err
	}

	_, bwd := fn.(Backwarder)
	_, cpuBwd := fn.(CPUBackwarder)
	_, gpuBwd := fn.(GPUBackwarder)
	return checkForms(fn, "backward", bwd, cpuBwd, gpuBwd)
}

func checkForms(fn Function, step string, portable, cpu, gpu bool) error {
	switch {
	case portable && (cpu || gpu):
		return fmt.Errorf("%s %s: %w", fn.Label(), step, ErrAmbiguousImplementation)
	case !portable && !(cpu && gpu):
		return fmt.Errorf("%s %s: %w", fn.Label(), step, ErrMissingImplementation)
	}
	return nil
}

// Forward runs fn on b and returns its output.
//
// The portable implementation is used when fn has one; otherwise the GPU
// specialization runs on an Accelerator and the CPU specialization everywhere
// else. Queued accelerator work is synchronized before returning.
func Forward(b tensor.Backend, fn Function, inputs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	if err := Validate(fn); err != nil {
		return nil, err
	}
	if len(inputs) != fn.Arity() {
		return nil, fmt.Errorf("%s: %w: want %d inputs, got %d", fn.Label(), ErrArity, fn.Arity(), len(inputs))
	}

	var (
		y   *tensor.RawTensor
		err error
	)
	if f, ok := fn.(Forwarder); ok {
		y, err = f.Forward(b, inputs)
	} else if a, ok := b.(Accelerator); ok {
		y, err = fn.(GPUForwarder).ForwardGPU(a, inputs)
	} else {
		y, err = fn.(CPUForwarder).ForwardCPU(b, inputs)
	}
	if err == nil {
		err = synchronize(b)
	}
	if err != nil {
		return nil, fmt.Errorf("%s forward: %w", fn.Label(), err)
	}
	return y, nil
}

// Backward runs the gradient step of fn on b. inputs must be the tensors passed
// to the most recent Forward call.
func Backward(b tensor.Backend, fn Function, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := Validate(fn); err != nil {
		return nil, err
	}
	if len(inputs) != fn.Arity() {
		return nil, fmt.Errorf("%s: %w: want %d inputs, got %d", fn.Label(), ErrArity, fn.Arity(), len(inputs))
	}

	var (
		gxs []*tensor.RawTensor
		err error
	)
	if f, ok := fn.(Backwarder); ok {
		gxs, err = f.Backward(b, inputs, gy)
	} else if a, ok := b.(Accelerator); ok {
		gxs, err = fn.(GPUBackwarder).BackwardGPU(a, inputs, gy)
	} else {
		gxs, err = fn.(CPUBackwarder).BackwardCPU(b, inputs, gy)
	}
	if err == nil {
		err = synchronize(b)
	}
	if err != nil {
		return nil, fmt.Errorf("%s backward: %w", fn.Label(), err)
	}
	if len(gxs) != len(inputs) {
		return nil, fmt.Errorf("%s backward: %w: %d gradients for %d inputs", fn.Label(), ErrArity, len(gxs), len(inputs))
	}
	return gxs, nil
}

func synchronize(b tensor.Backend) error {
	if s, ok := b.(synchronizer); ok {
		return s.Synchronize()
	}
	return nil
}
