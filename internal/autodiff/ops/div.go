package ops

import (
	"github.com/born-ml/gradfn/internal/kernel"
	"github.com/born-ml/gradfn/internal/tensor"
)

// Div is element-wise division with broadcasting: y = a / b.
//
// Backward:
//   - ga = gy / b
//   - gb = -ga * a / b
//
// Division by zero is not checked and yields IEEE infinities or NaN.
type Div struct{}

// NewDiv creates a Div operation.
func NewDiv() *Div { return &Div{} }

// Label implements Function.
func (*Div) Label() string { return "div" }

// Arity implements Function.
func (*Div) Arity() int { return 2 }

// Forward implements Forwarder.
func (*Div) Forward(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.Div(inputs[0], inputs[1])
}

// BackwardCPU implements CPUBackwarder.
func (*Div) BackwardCPU(b tensor.Backend, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	x0, x1 := inputs[0], inputs[1]
	c := &chain{b: b}
	ga := c.div(gy, x1)
	gb := c.div(c.mul(c.neg(ga), x0), x1)
	if c.err != nil {
		return nil, c.err
	}
	return reduceAll(b, inputs, []*tensor.RawTensor{ga, gb})
}

// BackwardGPU implements GPUBackwarder.
func (*Div) BackwardGPU(a Accelerator, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	gxs, err := a.Launch(kernel.DivBwd, kernel.ArrayArg(inputs[0]), kernel.ArrayArg(inputs[1]), kernel.ArrayArg(gy))
	if err != nil {
		return nil, err
	}
	return reduceAll(a, inputs, gxs)
}

// DivFromConstant divides a constant: y = c / x.
//
// Backward: gx = -c * gy / x².
type DivFromConstant struct {
	value Constant
}

// NewDivFromConstant creates a DivFromConstant operation.
func NewDivFromConstant(c Constant) *DivFromConstant { return &DivFromConstant{value: c} }

// Label implements Function.
func (*DivFromConstant) Label() string { return "div_from_constant" }

// Arity implements Function.
func (*DivFromConstant) Arity() int { return 1 }

// Value returns the constant operand.
func (op *DivFromConstant) Value() Constant { return op.value }

// Forward implements Forwarder.
func (op *DivFromConstant) Forward(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	num, err := op.value.full(inputs[0])
	if err != nil {
		return nil, err
	}
	return b.Div(num, inputs[0])
}

// BackwardCPU implements CPUBackwarder.
func (op *DivFromConstant) BackwardCPU(b tensor.Backend, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	x := inputs[0]
	c := &chain{b: b}
	var gx *tensor.RawTensor
	if op.value.IsScalar() {
		gx = c.mulScalar(c.div(gy, c.mul(x, x)), -op.value.Value())
	} else {
		gx = c.div(c.mul(c.neg(op.value.Tensor()), gy), c.mul(x, x))
	}
	if c.err != nil {
		return nil, c.err
	}
	return single(b, x, gx)
}

// BackwardGPU implements GPUBackwarder.
func (op *DivFromConstant) BackwardGPU(a Accelerator, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	k, carg := variant(op.value, kernel.DivFromConstBwd, kernel.DivFromConstBwdArray)
	gx, err := launch1(a, k, kernel.ArrayArg(inputs[0]), kernel.ArrayArg(gy), carg)
	if err != nil {
		return nil, err
	}
	return single(a, inputs[0], gx)
}
