package ops

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/gradfn/internal/kernel"
	"github.com/born-ml/gradfn/internal/tensor"
)

// reduceBroadcast sums grad over the dimensions that were broadcast to reach
// its shape, so the result matches target.
//
// Example:
//
//	Forward: a[3,1] + b[3,4] -> c[3,4]  (a was broadcast along dim 1)
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
func reduceBroadcast(b tensor.Backend, grad *tensor.RawTensor, target tensor.Shape) (*tensor.RawTensor, error) {
	if grad.Shape().Equal(target) {
		return grad, nil
	}
	return b.SumTo(grad, target)
}

// reduceAll applies reduceBroadcast to each gradient against the matching input.
func reduceAll(b tensor.Backend, inputs, grads []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	out := make([]*tensor.RawTensor, len(grads))
	for i, g := range grads {
		r, err := reduceBroadcast(b, g, inputs[i].Shape())
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// single wraps a one-input gradient after reducing it to x's shape.
func single(b tensor.Backend, x, gx *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	r, err := reduceBroadcast(b, gx, x.Shape())
	if err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{r}, nil
}

// accumulate adds src into dst in place. dst is host memory owned by the caller.
func accumulate(dst, src *tensor.RawTensor) error {
	if dst.NumElements() != src.NumElements() {
		return fmt.Errorf("accumulate: %w: %v into %v", tensor.ErrShapeMismatch, src.Shape(), dst.Shape())
	}
	if dst.DType() != src.DType() {
		return fmt.Errorf("accumulate: %w: %s into %s", tensor.ErrDTypeMismatch, src.DType(), dst.DType())
	}

	switch dst.DType() {
	case tensor.Float64:
		floats.Add(dst.AsFloat64(), src.AsFloat64())
	case tensor.Float32:
		d, s := dst.AsFloat32(), src.AsFloat32()
		for i := range d {
			d[i] += s[i]
		}
	}
	return nil
}

// chain threads a sequence of backend calls, stopping at the first error.
type chain struct {
	b   tensor.Backend
	err error
}

func (c *chain) do(f func() (*tensor.RawTensor, error)) *tensor.RawTensor {
	if c.err != nil {
		return nil
	}
	var r *tensor.RawTensor
	r, c.err = f()
	return r
}

func (c *chain) mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	return c.do(func() (*tensor.RawTensor, error) { return c.b.Mul(x, y) })
}

func (c *chain) div(x, y *tensor.RawTensor) *tensor.RawTensor {
	return c.do(func() (*tensor.RawTensor, error) { return c.b.Div(x, y) })
}

func (c *chain) pow(x, y *tensor.RawTensor) *tensor.RawTensor {
	return c.do(func() (*tensor.RawTensor, error) { return c.b.Pow(x, y) })
}

func (c *chain) neg(x *tensor.RawTensor) *tensor.RawTensor {
	return c.do(func() (*tensor.RawTensor, error) { return c.b.Neg(x) })
}

func (c *chain) log(x *tensor.RawTensor) *tensor.RawTensor {
	return c.do(func() (*tensor.RawTensor, error) { return c.b.Log(x) })
}

func (c *chain) addScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	return c.do(func() (*tensor.RawTensor, error) { return c.b.AddScalar(x, s) })
}

func (c *chain) mulScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	return c.do(func() (*tensor.RawTensor, error) { return c.b.MulScalar(x, s) })
}

func (c *chain) powScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	return c.do(func() (*tensor.RawTensor, error) { return c.b.PowScalar(x, s) })
}

// launch1 runs a single-output kernel.
func launch1(a Accelerator, k *kernel.Kernel, args ...kernel.Arg) (*tensor.RawTensor, error) {
	outs, err := a.Launch(k, args...)
	if err != nil {
		return nil, err
	}
	return outs[0], nil
}

// variant selects the scalar or per-element form of a kernel for c, together
// with the argument binding c.
func variant(c Constant, scalar, array *kernel.Kernel) (*kernel.Kernel, kernel.Arg) {
	if c.IsScalar() {
		return scalar, kernel.FloatArg(c.Value())
	}
	return array, kernel.ArrayArg(c.Tensor())
}
