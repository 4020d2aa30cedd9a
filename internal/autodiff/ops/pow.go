package ops

import (
	"github.com/born-ml/gradfn/internal/kernel"
	"github.com/born-ml/gradfn/internal/tensor"
)

// PowVarVar raises a variable to a variable power: y = a ** b.
//
// Backward:
//   - ga = b * a^(b-1) * gy
//   - gb = ln(a) * y * gy
//
// Forward keeps y for the log-derivative term, keyed by its inputs.
type PowVarVar struct {
	a, b, y *tensor.RawTensor
}

// NewPowVarVar creates a PowVarVar operation.
func NewPowVarVar() *PowVarVar { return &PowVarVar{} }

// Label implements Function.
func (*PowVarVar) Label() string { return "pow_var_var" }

// Arity implements Function.
func (*PowVarVar) Arity() int { return 2 }

// ForwardCPU implements CPUForwarder.
func (op *PowVarVar) ForwardCPU(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	y, err := b.Pow(inputs[0], inputs[1])
	if err != nil {
		return nil, err
	}
	op.a, op.b, op.y = inputs[0], inputs[1], y
	return y, nil
}

// ForwardGPU implements GPUForwarder.
func (op *PowVarVar) ForwardGPU(a Accelerator, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	y, err := launch1(a, kernel.PowVarVarFwd, kernel.ArrayArg(inputs[0]), kernel.ArrayArg(inputs[1]))
	if err != nil {
		return nil, err
	}
	op.a, op.b, op.y = inputs[0], inputs[1], y
	return y, nil
}

// BackwardCPU implements CPUBackwarder.
func (op *PowVarVar) BackwardCPU(b tensor.Backend, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	x0, x1 := inputs[0], inputs[1]
	y, err := op.output(b, inputs)
	if err != nil {
		return nil, err
	}

	c := &chain{b: b}
	ga := c.mul(c.mul(x1, c.pow(x0, c.addScalar(x1, -1))), gy)
	gb := c.mul(c.mul(c.log(x0), y), gy)
	if c.err != nil {
		return nil, c.err
	}
	return reduceAll(b, inputs, []*tensor.RawTensor{ga, gb})
}

// BackwardGPU implements GPUBackwarder.
func (op *PowVarVar) BackwardGPU(a Accelerator, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	y, err := op.output(a, inputs)
	if err != nil {
		return nil, err
	}
	gxs, err := a.Launch(kernel.PowVarVarBwd,
		kernel.ArrayArg(inputs[0]), kernel.ArrayArg(inputs[1]), kernel.ArrayArg(y), kernel.ArrayArg(gy))
	if err != nil {
		return nil, err
	}
	return reduceAll(a, inputs, gxs)
}

// output returns the cached forward value, recomputing it when Backward runs
// on inputs other than those of the last Forward.
func (op *PowVarVar) output(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	if op.y != nil && op.a == inputs[0] && op.b == inputs[1] {
		return op.y, nil
	}
	return b.Pow(inputs[0], inputs[1])
}

// PowVarConst raises a variable to a constant power: y = x ** c.
//
// Backward: gx = c * x^(c-1) * gy.
type PowVarConst struct {
	value Constant
}

// NewPowVarConst creates a PowVarConst operation.
func NewPowVarConst(c Constant) *PowVarConst { return &PowVarConst{value: c} }

// Label implements Function.
func (*PowVarConst) Label() string { return "pow_var_const" }

// Arity implements Function.
func (*PowVarConst) Arity() int { return 1 }

// Value returns the exponent.
func (op *PowVarConst) Value() Constant { return op.value }

// ForwardCPU implements CPUForwarder.
func (op *PowVarConst) ForwardCPU(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	if op.value.IsScalar() {
		return b.PowScalar(inputs[0], op.value.Value())
	}
	return b.Pow(inputs[0], op.value.Tensor())
}

// ForwardGPU implements GPUForwarder.
func (op *PowVarConst) ForwardGPU(a Accelerator, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	k, carg := variant(op.value, kernel.PowVarConstFwd, kernel.PowVarConstFwdArray)
	return launch1(a, k, kernel.ArrayArg(inputs[0]), carg)
}

// BackwardCPU implements CPUBackwarder.
func (op *PowVarConst) BackwardCPU(b tensor.Backend, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	x := inputs[0]
	c := &chain{b: b}
	var gx *tensor.RawTensor
	if op.value.IsScalar() {
		v := op.value.Value()
		gx = c.mulScalar(c.mul(c.powScalar(x, v-1), gy), v)
	} else {
		exp := op.value.Tensor()
		gx = c.mul(c.mul(exp, c.pow(x, c.addScalar(exp, -1))), gy)
	}
	if c.err != nil {
		return nil, c.err
	}
	return single(b, x, gx)
}

// BackwardGPU implements GPUBackwarder.
func (op *PowVarConst) BackwardGPU(a Accelerator, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	k, carg := variant(op.value, kernel.PowVarConstBwd, kernel.PowVarConstBwdArray)
	gx, err := launch1(a, k, kernel.ArrayArg(inputs[0]), kernel.ArrayArg(gy), carg)
	if err != nil {
		return nil, err
	}
	return single(a, inputs[0], gx)
}

// PowConstVar raises a constant to a variable power: y = c ** x.
//
// Backward: gx = ln(c) * y * gy. Forward keeps y, keyed by its input.
type PowConstVar struct {
	value Constant
	x, y  *tensor.RawTensor
}

// NewPowConstVar creates a PowConstVar operation.
func NewPowConstVar(c Constant) *PowConstVar { return &PowConstVar{value: c} }

// Label implements Function.
func (*PowConstVar) Label() string { return "pow_const_var" }

// Arity implements Function.
func (*PowConstVar) Arity() int { return 1 }

// Value returns the base.
func (op *PowConstVar) Value() Constant { return op.value }

// ForwardCPU implements CPUForwarder.
func (op *PowConstVar) ForwardCPU(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	var (
		y   *tensor.RawTensor
		err error
	)
	if op.value.IsScalar() {
		y, err = b.RPowScalar(inputs[0], op.value.Value())
	} else {
		y, err = b.Pow(op.value.Tensor(), inputs[0])
	}
	if err != nil {
		return nil, err
	}
	op.x, op.y = inputs[0], y
	return y, nil
}

// ForwardGPU implements GPUForwarder.
func (op *PowConstVar) ForwardGPU(a Accelerator, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	k, carg := variant(op.value, kernel.PowConstVarFwd, kernel.PowConstVarFwdArray)
	y, err := launch1(a, k, kernel.ArrayArg(inputs[0]), carg)
	if err != nil {
		return nil, err
	}
	op.x, op.y = inputs[0], y
	return y, nil
}

// BackwardCPU implements CPUBackwarder.
func (op *PowConstVar) BackwardCPU(b tensor.Backend, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	y, err := op.output(b, inputs)
	if err != nil {
		return nil, err
	}

	c := &chain{b: b}
	var gx *tensor.RawTensor
	lnc := op.value.logValue()
	if lnc.IsScalar() {
		gx = c.mulScalar(c.mul(y, gy), lnc.Value())
	} else {
		gx = c.mul(c.mul(lnc.Tensor(), y), gy)
	}
	if c.err != nil {
		return nil, c.err
	}
	return single(b, inputs[0], gx)
}

// BackwardGPU implements GPUBackwarder.
func (op *PowConstVar) BackwardGPU(a Accelerator, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	y, err := op.output(a, inputs)
	if err != nil {
		return nil, err
	}
	k, carg := variant(op.value, kernel.PowConstVarBwd, kernel.PowConstVarBwdArray)
	gx, err := launch1(a, k, kernel.ArrayArg(y), kernel.ArrayArg(gy), carg)
	if err != nil {
		return nil, err
	}
	return single(a, inputs[0], gx)
}

func (op *PowConstVar) output(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	if op.y != nil && op.x == inputs[0] {
		return op.y, nil
	}
	if op.value.IsScalar() {
		return b.RPowScalar(inputs[0], op.value.Value())
	}
	return b.Pow(op.value.Tensor(), inputs[0])
}
