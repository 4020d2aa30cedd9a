package ops

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/born-ml/gradfn/internal/kernel"
	"github.com/born-ml/gradfn/internal/tensor"
)

// LinearOption configures a Linear operation.
type LinearOption func(*linearConfig)

type linearConfig struct {
	wscale float64
	bias   float64
	noBias bool
	seed   uint64
	seeded bool
	dtype  tensor.DataType
}

// WithWScale scales the standard deviation of the initial weights.
func WithWScale(s float64) LinearOption {
	return func(c *linearConfig) { c.wscale = s }
}

// WithBias sets the value every bias element starts at.
func WithBias(v float64) LinearOption {
	return func(c *linearConfig) { c.bias = v }
}

// WithNoBias omits the bias and its gradient.
func WithNoBias() LinearOption {
	return func(c *linearConfig) { c.noBias = true }
}

// WithSeed makes weight initialization deterministic.
func WithSeed(seed uint64) LinearOption {
	return func(c *linearConfig) { c.seed, c.seeded = seed, true }
}

// WithDType sets the parameter dtype. Inputs must use the same dtype.
func WithDType(dt tensor.DataType) LinearOption {
	return func(c *linearConfig) { c.dtype = dt }
}

// Linear is the affine transform Y = X·Wᵀ + b.
//
// W has shape (out, in) and b has shape (out). Inputs with more than two
// dimensions are flattened to (batch, in) and their gradient is returned in the
// original shape.
//
// Backward adds into gW and gb instead of overwriting them, so gradients of
// several passes sum until ResetGradients is called. The accumulators belong to
// one instance and must not be updated concurrently.
type Linear struct {
	in, out int

	w  *tensor.RawTensor
	b  *tensor.RawTensor
	gw *tensor.RawTensor
	gb *tensor.RawTensor
}

// NewLinear creates a Linear transform from in features to out features.
//
// W is drawn from N(0, wscale·sqrt(1/in)); b is filled with the bias value.
func NewLinear(in, out int, opts ...LinearOption) (*Linear, error) {
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("linear: %w: sizes must be positive, got in=%d out=%d", tensor.ErrInvalidShape, in, out)
	}
	cfg := linearConfig{wscale: 1, dtype: tensor.Float32}
	for _, opt := range opts {
		opt(&cfg)
	}

	w, err := tensor.NewRaw(tensor.Shape{out, in}, cfg.dtype, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("linear: %w", err)
	}
	seed := cfg.seed
	if !cfg.seeded {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	std := cfg.wscale * math.Sqrt(1/float64(in))
	vals := make([]float64, out*in)
	for i := range vals {
		vals[i] = rng.NormFloat64() * std
	}
	w.SetFloat64s(vals)

	l := &Linear{in: in, out: out, w: w}
	if l.gw, err = tensor.NewRaw(tensor.Shape{out, in}, cfg.dtype, tensor.CPU); err != nil {
		return nil, fmt.Errorf("linear: %w", err)
	}
	if !cfg.noBias {
		if l.b, err = tensor.Full(tensor.Shape{out}, cfg.dtype, tensor.CPU, cfg.bias); err != nil {
			return nil, fmt.Errorf("linear: %w", err)
		}
		if l.gb, err = tensor.NewRaw(tensor.Shape{out}, cfg.dtype, tensor.CPU); err != nil {
			return nil, fmt.Errorf("linear: %w", err)
		}
	}
	return l, nil
}

// Label implements Function.
func (*Linear) Label() string { return "linear" }

// Arity implements Function.
func (*Linear) Arity() int { return 1 }

// W returns the weight matrix (out, in).
func (l *Linear) W() *tensor.RawTensor { return l.w }

// B returns the bias, or nil without bias.
func (l *Linear) B() *tensor.RawTensor { return l.b }

// GW returns the accumulated weight gradient.
func (l *Linear) GW() *tensor.RawTensor { return l.gw }

// GB returns the accumulated bias gradient, or nil without bias.
func (l *Linear) GB() *tensor.RawTensor { return l.gb }

// ParameterNames lists the trainable parameters.
func (l *Linear) ParameterNames() []string {
	if l.b == nil {
		return []string{"W"}
	}
	return []string{"W", "b"}
}

// GradientNames lists the gradient accumulators, matching ParameterNames.
func (l *Linear) GradientNames() []string {
	if l.gb == nil {
		return []string{"gW"}
	}
	return []string{"gW", "gb"}
}

// ResetGradients zeroes gW and gb.
func (l *Linear) ResetGradients() {
	l.gw.Fill(0)
	if l.gb != nil {
		l.gb.Fill(0)
	}
}

// ForwardCPU implements CPUForwarder.
func (l *Linear) ForwardCPU(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	x, err := l.flatten(b, inputs[0])
	if err != nil {
		return nil, err
	}
	wt, err := b.Transpose(l.w)
	if err != nil {
		return nil, err
	}
	y, err := b.MatMul(x, wt)
	if err != nil {
		return nil, err
	}
	if l.b == nil {
		return y, nil
	}
	return b.Add(y, l.b)
}

// ForwardGPU implements GPUForwarder.
func (l *Linear) ForwardGPU(a Accelerator, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	x, err := l.flatten(a, inputs[0])
	if err != nil {
		return nil, err
	}
	y, err := a.Gemm(false, true, 1, x, l.w, 0, nil)
	if err != nil {
		return nil, err
	}
	if l.b == nil {
		return y, nil
	}
	return launch1(a, kernel.LinearBias, kernel.ArrayArg(y), kernel.ArrayArg(l.b), kernel.IntArg(l.out))
}

// BackwardCPU implements CPUBackwarder.
func (l *Linear) BackwardCPU(b tensor.Backend, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	x, err := l.flatten(b, inputs[0])
	if err != nil {
		return nil, err
	}

	gyt, err := b.Transpose(gy)
	if err != nil {
		return nil, err
	}
	gw, err := b.MatMul(gyt, x)
	if err != nil {
		return nil, err
	}
	if err := accumulate(l.gw, gw); err != nil {
		return nil, err
	}

	if l.gb != nil {
		gb, err := b.SumTo(gy, l.gb.Shape())
		if err != nil {
			return nil, err
		}
		if err := accumulate(l.gb, gb); err != nil {
			return nil, err
		}
	}

	gx, err := b.MatMul(gy, l.w)
	if err != nil {
		return nil, err
	}
	return l.unflatten(b, gx, inputs[0])
}

// BackwardGPU implements GPUBackwarder.
func (l *Linear) BackwardGPU(a Accelerator, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	x, err := l.flatten(a, inputs[0])
	if err != nil {
		return nil, err
	}

	// gW += gyᵀ·x
	if _, err := a.Gemm(true, false, 1, gy, x, 1, l.gw); err != nil {
		return nil, err
	}

	// gb += 1ᵀ·gy
	if l.gb != nil {
		ones, err := tensor.Full(tensor.Shape{1, gy.Shape()[0]}, gy.DType(), gy.Device(), 1)
		if err != nil {
			return nil, err
		}
		if _, err := a.Gemm(false, false, 1, ones, gy, 1, l.gb); err != nil {
			return nil, err
		}
	}

	gx, err := a.Gemm(false, false, 1, gy, l.w, 0, nil)
	if err != nil {
		return nil, err
	}
	return l.unflatten(a, gx, inputs[0])
}

// flatten views x as (batch, features).
func (l *Linear) flatten(b tensor.Backend, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	shape := x.Shape()
	if len(shape) == 2 {
		return x, nil
	}
	if len(shape) < 2 {
		return nil, fmt.Errorf("linear: %w: input must have a batch dimension, got %v", tensor.ErrShapeMismatch, shape)
	}
	return b.Reshape(x, tensor.Shape{shape[0], shape.NumElements() / shape[0]})
}

func (l *Linear) unflatten(b tensor.Backend, gx, x *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if gx.Shape().Equal(x.Shape()) {
		return []*tensor.RawTensor{gx}, nil
	}
	r, err := b.Reshape(gx, x.Shape())
	if err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{r}, nil
}
