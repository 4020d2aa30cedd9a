// Package autodiff builds computation graphs from differentiable operations and
// runs reverse-mode differentiation over them.
//
// A Variable wraps a tensor and remembers the operation that produced it.
// Arithmetic methods on Variable choose the matching operation from package ops
// depending on whether the other operand is a Variable or a constant:
//
//	x := autodiff.NewVariable(data, cpu.New())
//	y, _ := x.Mul(2.0)     // MulConstant(2)
//	z, _ := y.RSub(1.0)    // SubFromConstant(1): 1 - y
//	w, _ := z.Pow(x)       // PowVarVar
//	_ = w.Backward()
//	gx := x.Grad()
package autodiff

import (
	"fmt"

	"github.com/born-ml/gradfn/internal/autodiff/ops"
	"github.com/born-ml/gradfn/internal/tensor"
)

// node records one application of an operation.
type node struct {
	fn     ops.Function
	inputs []*Variable
}

// Variable is a value in a computation graph.
//
// Leaf gradients accumulate across Backward calls until ClearGrad is called.
// Gradients of computed Variables are rebuilt by every pass.
// A Variable is not safe for concurrent use.
type Variable struct {
	data    *tensor.RawTensor
	grad    *tensor.RawTensor
	creator *node
	backend tensor.Backend
}

// NewVariable wraps data as a graph leaf computed on backend.
func NewVariable(data *tensor.RawTensor, backend tensor.Backend) *Variable {
	return &Variable{data: data, backend: backend}
}

// Data returns the value.
func (v *Variable) Data() *tensor.RawTensor { return v.data }

// Grad returns the accumulated gradient, or nil before Backward.
func (v *Variable) Grad() *tensor.RawTensor { return v.grad }

// ClearGrad drops the accumulated gradient.
func (v *Variable) ClearGrad() { v.grad = nil }

// Shape returns the shape of the value.
func (v *Variable) Shape() tensor.Shape { return v.data.Shape() }

// Backend returns the backend operations on v run on.
func (v *Variable) Backend() tensor.Backend { return v.backend }

// Creator returns the operation that produced v, or nil for leaves.
func (v *Variable) Creator() ops.Function {
	if v.creator == nil {
		return nil
	}
	return v.creator.fn
}

// String formats the value and its producer.
func (v *Variable) String() string {
	if v.creator == nil {
		return fmt.Sprintf("Variable(%v)", v.data)
	}
	return fmt.Sprintf("Variable(%v, creator=%s)", v.data, v.creator.fn.Label())
}

// Apply runs fn forward on the inputs' values and returns the result as a new
// Variable recording fn and inputs for Backward.
//
// Inputs must share one backend. Distinct host backends of the same kind are
// interchangeable; accelerator backends own a stream and must be the same value.
func Apply(fn ops.Function, inputs ...*Variable) (*Variable, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%s: %w: no inputs", fn.Label(), ops.ErrArity)
	}
	backend := inputs[0].backend
	xs := make([]*tensor.RawTensor, len(inputs))
	for i, in := range inputs {
		if !sameBackend(in.backend, backend) {
			return nil, fmt.Errorf("%s: %w: %s and %s", fn.Label(), ErrBackendMismatch, backend.Name(), in.backend.Name())
		}
		xs[i] = in.data
	}

	y, err := ops.Forward(backend, fn, xs...)
	if err != nil {
		return nil, err
	}
	return &Variable{
		data:    y,
		creator: &node{fn: fn, inputs: inputs},
		backend: backend,
	}, nil
}

func sameBackend(a, b tensor.Backend) bool {
	if a == b {
		return true
	}
	return a.Device() == tensor.CPU && b.Device() == tensor.CPU && a.Name() == b.Name()
}
