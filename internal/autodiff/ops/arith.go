package ops

import "github.com/born-ml/gradfn/internal/tensor"

// Neg is unary negation: y = -x.
//
// Backward: gx = -gy.
type Neg struct{}

// NewNeg creates a Neg operation.
func NewNeg() *Neg { return &Neg{} }

// Label implements Function.
func (*Neg) Label() string { return "neg" }

// Arity implements Function.
func (*Neg) Arity() int { return 1 }

// Forward implements Forwarder.
func (*Neg) Forward(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.Neg(inputs[0])
}

// Backward implements Backwarder.
func (*Neg) Backward(b tensor.Backend, _ []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	gx, err := b.Neg(gy)
	if err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{gx}, nil
}

// Add is element-wise addition with broadcasting: y = a + b.
//
// Backward: ga = gy, gb = gy, each summed over its broadcast dimensions.
type Add struct{}

// NewAdd creates an Add operation.
func NewAdd() *Add { return &Add{} }

// Label implements Function.
func (*Add) Label() string { return "add" }

// Arity implements Function.
func (*Add) Arity() int { return 2 }

// Forward implements Forwarder.
func (*Add) Forward(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.Add(inputs[0], inputs[1])
}

// Backward implements Backwarder.
func (*Add) Backward(b tensor.Backend, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	return reduceAll(b, inputs, []*tensor.RawTensor{gy, gy})
}

// AddConstant adds a constant: y = x + c.
// It also serves x - c with the negated constant.
//
// Backward: gx = gy.
type AddConstant struct {
	value Constant
}

// NewAddConstant creates an AddConstant operation.
func NewAddConstant(c Constant) *AddConstant { return &AddConstant{value: c} }

// Label implements Function.
func (*AddConstant) Label() string { return "add_constant" }

// Arity implements Function.
func (*AddConstant) Arity() int { return 1 }

// Value returns the constant operand.
func (op *AddConstant) Value() Constant { return op.value }

// Forward implements Forwarder.
func (op *AddConstant) Forward(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	if op.value.IsScalar() {
		return b.AddScalar(inputs[0], op.value.Value())
	}
	return b.Add(inputs[0], op.value.Tensor())
}

// Backward implements Backwarder.
func (*AddConstant) Backward(b tensor.Backend, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	return single(b, inputs[0], gy)
}

// Sub is element-wise subtraction with broadcasting: y = a - b.
//
// Backward: ga = gy, gb = -gy.
type Sub struct{}

// NewSub creates a Sub operation.
func NewSub() *Sub { return &Sub{} }

// Label implements Function.
func (*Sub) Label() string { return "sub" }

// Arity implements Function.
func (*Sub) Arity() int { return 2 }

// Forward implements Forwarder.
func (*Sub) Forward(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.Sub(inputs[0], inputs[1])
}

// Backward implements Backwarder.
func (*Sub) Backward(b tensor.Backend, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	ngy, err := b.Neg(gy)
	if err != nil {
		return nil, err
	}
	return reduceAll(b, inputs, []*tensor.RawTensor{gy, ngy})
}

// SubFromConstant subtracts from a constant: y = c - x.
//
// Backward: gx = -gy.
type SubFromConstant struct {
	value Constant
}

// NewSubFromConstant creates a SubFromConstant operation.
func NewSubFromConstant(c Constant) *SubFromConstant { return &SubFromConstant{value: c} }

// Label implements Function.
func (*SubFromConstant) Label() string { return "sub_from_constant" }

// Arity implements Function.
func (*SubFromConstant) Arity() int { return 1 }

// Value returns the constant operand.
func (op *SubFromConstant) Value() Constant { return op.value }

// Forward implements Forwarder.
func (op *SubFromConstant) Forward(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	if op.value.IsScalar() {
		nx, err := b.Neg(inputs[0])
		if err != nil {
			return nil, err
		}
		return b.AddScalar(nx, op.value.Value())
	}
	return b.Sub(op.value.Tensor(), inputs[0])
}

// Backward implements Backwarder.
func (*SubFromConstant) Backward(b tensor.Backend, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	gx, err := b.Neg(gy)
	if err != nil {
		return nil, err
	}
	return single(b, inputs[0], gx)
}
