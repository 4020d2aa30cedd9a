package ops

import (
	"github.com/born-ml/gradfn/internal/kernel"
	"github.com/born-ml/gradfn/internal/tensor"
)

// Mul is element-wise multiplication with broadcasting: y = a * b.
//
// Backward:
//   - d(a*b)/da = b, so ga = gy * b
//   - d(a*b)/db = a, so gb = gy * a
//
// The accelerator computes both gradients in one mul_bwd launch.
type Mul struct{}

// NewMul creates a Mul operation.
func NewMul() *Mul { return &Mul{} }

// Label implements Function.
func (*Mul) Label() string { return "mul" }

// Arity implements Function.
func (*Mul) Arity() int { return 2 }

// Forward implements Forwarder.
func (*Mul) Forward(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.Mul(inputs[0], inputs[1])
}

// BackwardCPU implements CPUBackwarder.
func (*Mul) BackwardCPU(b tensor.Backend, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	c := &chain{b: b}
	ga := c.mul(gy, inputs[1])
	gb := c.mul(gy, inputs[0])
	if c.err != nil {
		return nil, c.err
	}
	return reduceAll(b, inputs, []*tensor.RawTensor{ga, gb})
}

// BackwardGPU implements GPUBackwarder.
func (*Mul) BackwardGPU(a Accelerator, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	gxs, err := a.Launch(kernel.MulBwd, kernel.ArrayArg(inputs[0]), kernel.ArrayArg(inputs[1]), kernel.ArrayArg(gy))
	if err != nil {
		return nil, err
	}
	return reduceAll(a, inputs, gxs)
}

// MulConstant scales by a constant: y = c * x.
// It also serves x / c with the reciprocal constant.
//
// Backward: gx = c * gy.
type MulConstant struct {
	value Constant
}

// NewMulConstant creates a MulConstant operation.
func NewMulConstant(c Constant) *MulConstant { return &MulConstant{value: c} }

// Label implements Function.
func (*MulConstant) Label() string { return "mul_constant" }

// Arity implements Function.
func (*MulConstant) Arity() int { return 1 }

// Value returns the constant operand.
func (op *MulConstant) Value() Constant { return op.value }

// Forward implements Forwarder.
func (op *MulConstant) Forward(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	return op.scale(b, inputs[0])
}

// Backward implements Backwarder.
func (op *MulConstant) Backward(b tensor.Backend, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	gx, err := op.scale(b, gy)
	if err != nil {
		return nil, err
	}
	return single(b, inputs[0], gx)
}

func (op *MulConstant) scale(b tensor.Backend, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	if op.value.IsScalar() {
		return b.MulScalar(x, op.value.Value())
	}
	return b.Mul(x, op.value.Tensor())
}
