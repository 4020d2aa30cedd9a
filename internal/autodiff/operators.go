package autodiff

import (
	"fmt"

	"github.com/born-ml/gradfn/internal/autodiff/ops"
	"github.com/born-ml/gradfn/internal/tensor"
)

// operand is the closed set of right-hand operands: another Variable or a
// constant that takes no part in differentiation.
type operand interface {
	isOperand()
}

type graphOperand struct{ v *Variable }

type constOperand struct{ c ops.Constant }

func (graphOperand) isOperand() {}
func (constOperand) isOperand() {}

// operandOf classifies x. Numbers become scalar constants and *tensor.RawTensor
// values become array constants.
func operandOf(x any) (operand, error) {
	switch v := x.(type) {
	case *Variable:
		if v == nil {
			return nil, fmt.Errorf("%w: nil *Variable", ErrTypeMismatch)
		}
		return graphOperand{v}, nil
	case ops.Constant:
		return constOperand{v}, nil
	case *tensor.RawTensor:
		if v == nil {
			return nil, fmt.Errorf("%w: nil *tensor.RawTensor", ErrTypeMismatch)
		}
		return constOperand{ops.Array(v)}, nil
	case float64:
		return constOperand{ops.Scalar(v)}, nil
	case float32:
		return constOperand{ops.Scalar(float64(v))}, nil
	case int:
		return constOperand{ops.Scalar(float64(v))}, nil
	case int32:
		return constOperand{ops.Scalar(float64(v))}, nil
	case int64:
		return constOperand{ops.Scalar(float64(v))}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrTypeMismatch, x)
	}
}

// binary resolves rhs and applies the graph or constant form.
func (v *Variable) binary(
	rhs any,
	graph func(o *Variable) (*Variable, error),
	constant func(c ops.Constant) (*Variable, error),
) (*Variable, error) {
	o, err := operandOf(rhs)
	if err != nil {
		return nil, err
	}
	switch o := o.(type) {
	case graphOperand:
		return graph(o.v)
	case constOperand:
		return constant(o.c)
	}
	panic("unreachable")
}

// Neg returns -v.
func (v *Variable) Neg() (*Variable, error) {
	return Apply(ops.NewNeg(), v)
}

// Add returns v + rhs.
func (v *Variable) Add(rhs any) (*Variable, error) {
	return v.binary(rhs,
		func(o *Variable) (*Variable, error) { return Apply(ops.NewAdd(), v, o) },
		func(c ops.Constant) (*Variable, error) { return Apply(ops.NewAddConstant(c), v) })
}

// RAdd returns lhs + v.
func (v *Variable) RAdd(lhs any) (*Variable, error) {
	return v.binary(lhs,
		func(o *Variable) (*Variable, error) { return Apply(ops.NewAdd(), o, v) },
		func(c ops.Constant) (*Variable, error) { return Apply(ops.NewAddConstant(c), v) })
}

// Sub returns v - rhs. A constant rhs is added negated.
func (v *Variable) Sub(rhs any) (*Variable, error) {
	return v.binary(rhs,
		func(o *Variable) (*Variable, error) { return Apply(ops.NewSub(), v, o) },
		func(c ops.Constant) (*Variable, error) { return Apply(ops.NewAddConstant(c.Negated()), v) })
}

// RSub returns lhs - v.
func (v *Variable) RSub(lhs any) (*Variable, error) {
	return v.binary(lhs,
		func(o *Variable) (*Variable, error) { return Apply(ops.NewSub(), o, v) },
		func(c ops.Constant) (*Variable, error) { return Apply(ops.NewSubFromConstant(c), v) })
}

// Mul returns v * rhs.
func (v *Variable) Mul(rhs any) (*Variable, error) {
	return v.binary(rhs,
		func(o *Variable) (*Variable, error) { return Apply(ops.NewMul(), v, o) },
		func(c ops.Constant) (*Variable, error) { return Apply(ops.NewMulConstant(c), v) })
}

// RMul returns lhs * v.
func (v *Variable) RMul(lhs any) (*Variable, error) {
	return v.binary(lhs,
		func(o *Variable) (*Variable, error) { return Apply(ops.NewMul(), o, v) },
		func(c ops.Constant) (*Variable, error) { return Apply(ops.NewMulConstant(c), v) })
}

// Div returns v / rhs. A constant rhs multiplies by its reciprocal.
func (v *Variable) Div(rhs any) (*Variable, error) {
	return v.binary(rhs,
		func(o *Variable) (*Variable, error) { return Apply(ops.NewDiv(), v, o) },
		func(c ops.Constant) (*Variable, error) { return Apply(ops.NewMulConstant(c.Reciprocal()), v) })
}

// RDiv returns lhs / v.
func (v *Variable) RDiv(lhs any) (*Variable, error) {
	return v.binary(lhs,
		func(o *Variable) (*Variable, error) { return Apply(ops.NewDiv(), o, v) },
		func(c ops.Constant) (*Variable, error) { return Apply(ops.NewDivFromConstant(c), v) })
}

// Pow returns v ** rhs.
func (v *Variable) Pow(rhs any) (*Variable, error) {
	return v.binary(rhs,
		func(o *Variable) (*Variable, error) { return Apply(ops.NewPowVarVar(), v, o) },
		func(c ops.Constant) (*Variable, error) { return Apply(ops.NewPowVarConst(c), v) })
}

// RPow returns lhs ** v.
func (v *Variable) RPow(lhs any) (*Variable, error) {
	return v.binary(lhs,
		func(o *Variable) (*Variable, error) { return Apply(ops.NewPowVarVar(), o, v) },
		func(c ops.Constant) (*Variable, error) { return Apply(ops.NewPowConstVar(c), v) })
}

// Exp returns exp(v).
func (v *Variable) Exp() (*Variable, error) {
	return Apply(ops.NewExp(), v)
}

// Log returns ln(v).
func (v *Variable) Log() (*Variable, error) {
	return Apply(ops.NewLog(), v)
}

// Add returns lhs + rhs. At least one operand must be a *Variable.
func Add(lhs, rhs any) (*Variable, error) {
	return dispatch(lhs, rhs, (*Variable).Add, (*Variable).RAdd)
}

// Sub returns lhs - rhs. At least one operand must be a *Variable.
func Sub(lhs, rhs any) (*Variable, error) {
	return dispatch(lhs, rhs, (*Variable).Sub, (*Variable).RSub)
}

// Mul returns lhs * rhs. At least one operand must be a *Variable.
func Mul(lhs, rhs any) (*Variable, error) {
	return dispatch(lhs, rhs, (*Variable).Mul, (*Variable).RMul)
}

// Div returns lhs / rhs. At least one operand must be a *Variable.
func Div(lhs, rhs any) (*Variable, error) {
	return dispatch(lhs, rhs, (*Variable).Div, (*Variable).RDiv)
}

// Pow returns lhs ** rhs. At least one operand must be a *Variable.
func Pow(lhs, rhs any) (*Variable, error) {
	return dispatch(lhs, rhs, (*Variable).Pow, (*Variable).RPow)
}

// Neg returns -x.
func Neg(x *Variable) (*Variable, error) { return x.Neg() }

// Exp returns exp(x).
func Exp(x *Variable) (*Variable, error) { return x.Exp() }

// Log returns ln(x).
func Log(x *Variable) (*Variable, error) { return x.Log() }

// Linear applies l to x.
func Linear(l *ops.Linear, x *Variable) (*Variable, error) {
	return Apply(l, x)
}

// dispatch calls forward on a Variable lhs, otherwise reflected on a Variable rhs
// so that non-commutative operators keep their operand roles.
func dispatch(lhs, rhs any, forward, reflected func(*Variable, any) (*Variable, error)) (*Variable, error) {
	if v, ok := lhs.(*Variable); ok && v != nil {
		return forward(v, rhs)
	}
	if v, ok := rhs.(*Variable); ok && v != nil {
		return reflected(v, lhs)
	}
	return nil, fmt.Errorf("%w: no Variable operand in (%T, %T)", ErrTypeMismatch, lhs, rhs)
}
