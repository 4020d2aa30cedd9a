package ops_test

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/gradfn/internal/autodiff/ops"
	"github.com/born-ml/gradfn/internal/backend/accel"
	"github.com/born-ml/gradfn/internal/backend/emu"
	"github.com/born-ml/gradfn/internal/kernel"
	"github.com/born-ml/gradfn/internal/tensor"
)

func TestMulConstantScenario(t *testing.T) {
	for _, nb := range backends(t) {
		t.Run(nb.name, func(t *testing.T) {
			x := f32(t, []float32{1, 2, 3}, 3)
			op := ops.NewMulConstant(ops.Scalar(2))

			y, err := ops.Forward(nb.backend, op, x)
			require.NoError(t, err)
			assert.Equal(t, []float32{2, 4, 6}, y.AsFloat32())

			gx, err := ops.Backward(nb.backend, op, []*tensor.RawTensor{x}, f32(t, []float32{1, 1, 1}, 3))
			require.NoError(t, err)
			assert.Equal(t, []float32{2, 2, 2}, gx[0].AsFloat32())
		})
	}
}

func TestPowVarConstScenario(t *testing.T) {
	for _, nb := range backends(t) {
		t.Run(nb.name, func(t *testing.T) {
			x := f32(t, []float32{2, 3}, 2)
			op := ops.NewPowVarConst(ops.Scalar(2))

			y, err := ops.Forward(nb.backend, op, x)
			require.NoError(t, err)
			assert.InDeltaSlice(t, []float32{4, 9}, y.AsFloat32(), 1e-6)

			gx, err := ops.Backward(nb.backend, op, []*tensor.RawTensor{x}, f32(t, []float32{1, 1}, 2))
			require.NoError(t, err)
			assert.InDeltaSlice(t, []float32{4, 6}, gx[0].AsFloat32(), 1e-6)
		})
	}
}

func TestIEEEPropagation(t *testing.T) {
	for _, nb := range backends(t) {
		t.Run(nb.name, func(t *testing.T) {
			y, err := ops.Forward(nb.backend, ops.NewLog(), f64(t, []float64{0, -1}, 2))
			require.NoError(t, err)
			assert.True(t, math.IsInf(y.AsFloat64()[0], -1))
			assert.True(t, math.IsNaN(y.AsFloat64()[1]))

			q, err := ops.Forward(nb.backend, ops.NewDiv(), f64(t, []float64{1, 0}, 2), f64(t, []float64{0, 0}, 2))
			require.NoError(t, err)
			assert.True(t, math.IsInf(q.AsFloat64()[0], 1))
			assert.True(t, math.IsNaN(q.AsFloat64()[1]))

			r, err := ops.Forward(nb.backend, ops.NewDivFromConstant(ops.Scalar(1)), f64(t, []float64{0}, 1))
			require.NoError(t, err)
			assert.True(t, math.IsInf(r.AsFloat64()[0], 1))

			g, err := ops.Backward(nb.backend, ops.NewDiv(),
				[]*tensor.RawTensor{f64(t, []float64{1}, 1), f64(t, []float64{0}, 1)}, f64(t, []float64{1}, 1))
			require.NoError(t, err)
			assert.True(t, math.IsInf(g[0].AsFloat64()[0], 1))
			assert.True(t, math.IsInf(g[1].AsFloat64()[0], -1))
		})
	}
}

func TestShapeMismatchPropagates(t *testing.T) {
	for _, nb := range backends(t) {
		t.Run(nb.name, func(t *testing.T) {
			_, err := ops.Forward(nb.backend, ops.NewAdd(), f64(t, []float64{1, 2, 3}, 3), f64(t, []float64{1, 2}, 2))
			require.ErrorIs(t, err, tensor.ErrShapeMismatch)
			assert.Contains(t, err.Error(), "add forward")

			_, err = ops.Backward(nb.backend, ops.NewMul(),
				[]*tensor.RawTensor{f64(t, []float64{1, 2, 3}, 3), f64(t, []float64{1, 2, 3}, 3)},
				f64(t, []float64{1, 2}, 2))
			require.ErrorIs(t, err, tensor.ErrShapeMismatch)
		})
	}
}

func TestForwardDoesNotMutateInputs(t *testing.T) {
	for _, nb := range backends(t) {
		t.Run(nb.name, func(t *testing.T) {
			a := f64(t, []float64{1, 2, 3}, 3)
			b := f64(t, []float64{4, 5, 6}, 3)
			for _, fn := range []ops.Function{ops.NewAdd(), ops.NewSub(), ops.NewMul(), ops.NewDiv(), ops.NewPowVarVar()} {
				_, err := ops.Forward(nb.backend, fn, a, b)
				require.NoError(t, err)
				_, err = ops.Backward(nb.backend, fn, []*tensor.RawTensor{a, b}, f64(t, []float64{1, 1, 1}, 3))
				require.NoError(t, err)
			}
			assert.Equal(t, []float64{1, 2, 3}, a.AsFloat64())
			assert.Equal(t, []float64{4, 5, 6}, b.AsFloat64())
		})
	}
}

func TestArity(t *testing.T) {
	for _, nb := range backends(t) {
		t.Run(nb.name, func(t *testing.T) {
			x := f64(t, []float64{1}, 1)
			_, err := ops.Forward(nb.backend, ops.NewAdd(), x)
			require.ErrorIs(t, err, ops.ErrArity)

			_, err = ops.Backward(nb.backend, ops.NewExp(), []*tensor.RawTensor{x, x}, x)
			require.ErrorIs(t, err, ops.ErrArity)
		})
	}
}

func TestValidateShippedOperations(t *testing.T) {
	l, err := ops.NewLinear(2, 2)
	require.NoError(t, err)
	c := ops.Scalar(1)

	for _, fn := range []ops.Function{
		ops.NewNeg(), ops.NewAdd(), ops.NewAddConstant(c), ops.NewSub(), ops.NewSubFromConstant(c),
		ops.NewMul(), ops.NewMulConstant(c), ops.NewDiv(), ops.NewDivFromConstant(c),
		ops.NewPowVarVar(), ops.NewPowVarConst(c), ops.NewPowConstVar(c),
		ops.NewExp(), ops.NewLog(), l,
	} {
		assert.NoError(t, ops.Validate(fn), fn.Label())
	}
}

// both declares a portable forward and a CPU specialization.
type both struct{ *ops.Neg }

func (both) ForwardCPU(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.Neg(inputs[0])
}

func TestValidateRejectsBrokenContracts(t *testing.T) {
	err := ops.Validate(both{ops.NewNeg()})
	require.ErrorIs(t, err, ops.ErrAmbiguousImplementation)

	_, err = ops.Forward(backends(t)[0].backend, both{ops.NewNeg()}, f64(t, []float64{1}, 1))
	require.ErrorIs(t, err, ops.ErrAmbiguousImplementation)

	require.ErrorIs(t, ops.Validate(halfMul{}), ops.ErrMissingImplementation)
}

// halfMul keeps only the CPU backward of Mul.
type halfMul struct{}

func (halfMul) Label() string { return "half_mul" }
func (halfMul) Arity() int    { return 2 }
func (halfMul) Forward(b tensor.Backend, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.Mul(inputs[0], inputs[1])
}
func (halfMul) BackwardCPU(b tensor.Backend, inputs []*tensor.RawTensor, gy *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	return ops.NewMul().BackwardCPU(b, inputs, gy)
}

// recorder counts kernel launches on an accelerator.
type recorder struct {
	*accel.Backend
	mu       sync.Mutex
	launched []string
	gemms    int
}

func (r *recorder) Launch(k *kernel.Kernel, args ...kernel.Arg) ([]*tensor.RawTensor, error) {
	r.mu.Lock()
	r.launched = append(r.launched, k.Name)
	r.mu.Unlock()
	return r.Backend.Launch(k, args...)
}

func (r *recorder) Gemm(transA, transB bool, alpha float64, a, b *tensor.RawTensor, beta float64, c *tensor.RawTensor) (*tensor.RawTensor, error) {
	r.mu.Lock()
	r.gemms++
	r.mu.Unlock()
	return r.Backend.Gemm(transA, transB, alpha, a, b, beta, c)
}

// Portable steps call backend methods directly, so only fused kernels are recorded.
func TestAcceleratorUsesFusedKernels(t *testing.T) {
	acc := emu.NewBackend()
	defer func() { _ = acc.Close() }()
	r := &recorder{Backend: acc}

	x := f64(t, []float64{1, 2}, 2)
	y := f64(t, []float64{3, 4}, 2)
	gy := f64(t, []float64{1, 1}, 2)
	arr := f64(t, []float64{2, 3}, 2)

	run := func(fn ops.Function, inputs ...*tensor.RawTensor) {
		_, err := ops.Forward(r, fn, inputs...)
		require.NoError(t, err)
		_, err = ops.Backward(r, fn, inputs, gy)
		require.NoError(t, err)
	}
	run(ops.NewMul(), x, y)
	run(ops.NewDiv(), x, y)
	run(ops.NewDivFromConstant(ops.Scalar(2)), x)
	run(ops.NewDivFromConstant(ops.Array(arr)), x)
	run(ops.NewPowVarVar(), x, y)
	run(ops.NewPowVarConst(ops.Scalar(2)), x)
	run(ops.NewPowVarConst(ops.Array(arr)), x)
	run(ops.NewPowConstVar(ops.Scalar(2)), x)
	run(ops.NewPowConstVar(ops.Array(arr)), x)

	assert.Equal(t, []string{
		"mul_bwd",
		"div_bwd",
		"div_from_const_bwd",
		"div_from_const_bwd_array",
		"pow_var_var_fwd", "pow_var_var_bwd",
		"pow_var_const_fwd", "pow_var_const_bwd",
		"pow_var_const_fwd_array", "pow_var_const_bwd_array",
		"pow_const_var_fwd", "pow_const_var_bwd",
		"pow_const_var_fwd_array", "pow_const_var_bwd_array",
	}, r.launched)

	l, err := ops.NewLinear(2, 2, ops.WithDType(tensor.Float64))
	require.NoError(t, err)
	r.launched = nil
	xl := f64(t, []float64{1, 2, 3, 4}, 2, 2)
	_, err = ops.Forward(r, l, xl)
	require.NoError(t, err)
	_, err = ops.Backward(r, l, []*tensor.RawTensor{xl}, xl)
	require.NoError(t, err)
	assert.Equal(t, []string{"linear_bias"}, r.launched)
	assert.Equal(t, 4, r.gemms)
}

func TestConstantHelpersDoNotMutate(t *testing.T) {
	arr := f64(t, []float64{2, -4}, 2)
	c := ops.Array(arr)

	assert.Equal(t, []float64{-2, 4}, c.Negated().Tensor().AsFloat64())
	assert.Equal(t, []float64{0.5, -0.25}, c.Reciprocal().Tensor().AsFloat64())
	assert.Equal(t, []float64{2, -4}, arr.AsFloat64())

	s := ops.Scalar(4)
	assert.True(t, s.IsScalar())
	assert.Equal(t, -4.0, s.Negated().Value())
	assert.Equal(t, 0.25, s.Reciprocal().Value())
	assert.True(t, math.IsInf(ops.Scalar(0).Reciprocal().Value(), 1))
	assert.Equal(t, "4", s.String())
	assert.Equal(t, "array[2]", c.String())
}
