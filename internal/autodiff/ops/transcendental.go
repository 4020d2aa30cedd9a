package ops

import "github.com/born-ml/gradfn/internal/tensor"

// Exp is the exponential: y = exp(x).
//
// Backward: d(exp(x))/dx = exp(x) = y, so gx = y * gy.
// Forward keeps y together with its input; Backward uses it only for that
// same input and recomputes otherwise.
type Exp struct {
	x, y *tensor.RawTensor
}

// NewExp creates an Exp operation.
func NewExp() *Exp { return &Exp{} }

// Label implements Function.
func (*Exp) Label() string { return "exp" }

// Arity implements Function.
func (*Exp) Arity() int { return 1 }

// Forward implements Forwarder.
func (op *Exp) Forward(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	y, err := b.Exp(inputs[0])
	if err != nil {
		return nil, err
	}
	op.x, op.y = inputs[0], y
	return y, nil
}

// Backward implements Backwarder.
func (op *Exp) Backward(b tensor.Backend, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	y := op.y
	if y == nil || op.x != inputs[0] {
		var err error
		if y, err = b.Exp(inputs[0]); err != nil {
			return nil, err
		}
	}
	gx, err := b.Mul(y, gy)
	if err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{gx}, nil
}

// Log is the natural logarithm: y = ln(x).
// Non-positive inputs give -Inf or NaN.
//
// Backward: gx = gy / x.
type Log struct{}

// NewLog creates a Log operation.
func NewLog() *Log { return &Log{} }

// Label implements Function.
func (*Log) Label() string { return "log" }

// Arity implements Function.
func (*Log) Arity() int { return 1 }

// Forward implements Forwarder.
func (*Log) Forward(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.Log(inputs[0])
}

// Backward implements Backwarder.
func (*Log) Backward(b tensor.Backend, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	gx, err := b.Div(gy, inputs[0])
	if err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{gx}, nil
}
