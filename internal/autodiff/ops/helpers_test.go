package ops_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/gradfn/internal/autodiff/ops"
	"github.com/born-ml/gradfn/internal/backend/cpu"
	"github.com/born-ml/gradfn/internal/backend/emu"
	"github.com/born-ml/gradfn/internal/tensor"
)

const (
	gradEps = 1e-6
	gradTol = 1e-2
)

type namedBackend struct {
	name    string
	backend tensor.Backend
}

// backends returns the host backend and an emulated accelerator.
func backends(t *testing.T) []namedBackend {
	t.Helper()
	acc := emu.NewBackend()
	t.Cleanup(func() { _ = acc.Close() })
	return []namedBackend{
		{"cpu", cpu.New()},
		{"emu", acc},
	}
}

func f64(t *testing.T, data []float64, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.FromFloat64(data, shape, tensor.CPU)
	require.NoError(t, err)
	return r
}

func f32(t *testing.T, data []float32, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.FromFloat32(data, shape, tensor.CPU)
	require.NoError(t, err)
	return r
}

// upstream returns a deterministic non-uniform gradient shaped like y.
func upstream(t *testing.T, y *tensor.RawTensor) *tensor.RawTensor {
	t.Helper()
	vals := make([]float64, y.NumElements())
	for i := range vals {
		vals[i] = 0.5 + 0.25*float64(i%5)
	}
	g, err := tensor.NewRaw(y.Shape(), y.DType(), tensor.CPU)
	require.NoError(t, err)
	g.SetFloat64s(vals)
	return g
}

// weighted returns sum(y * gy), the scalar whose gradient Backward computes.
func weighted(y, gy *tensor.RawTensor) float64 {
	var s float64
	gv := gy.Float64s()
	for i, v := range y.Float64s() {
		s += v * gv[i]
	}
	return s
}

func relErr(got, want float64) float64 {
	return math.Abs(got-want) / math.Max(1, math.Abs(want))
}

// checkGradients compares Backward against central differences of
// sum(Forward(inputs) * gy) for every element of every input.
func checkGradients(t *testing.T, b tensor.Backend, newFn func() ops.Function, inputs ...*tensor.RawTensor) {
	t.Helper()

	fn := newFn()
	y, err := ops.Forward(b, fn, inputs...)
	require.NoError(t, err)
	gy := upstream(t, y)
	grads, err := ops.Backward(b, fn, inputs, gy)
	require.NoError(t, err)

	for i, x := range inputs {
		require.Equal(t, x.Shape(), grads[i].Shape(), "gradient %d shape", i)
		analytic := grads[i].Float64s()
		for j := range x.NumElements() {
			numeric := numericSlope(t, b, newFn, inputs, i, j, gy)
			require.Less(t, relErr(analytic[j], numeric), gradTol,
				"%s input %d element %d: analytic %v numeric %v", fn.Label(), i, j, analytic[j], numeric)
		}
	}
}

func numericSlope(t *testing.T, b tensor.Backend, newFn func() ops.Function, inputs []*tensor.RawTensor, i, j int, gy *tensor.RawTensor) float64 {
	t.Helper()
	eval := func(delta float64) float64 {
		perturbed := make([]*tensor.RawTensor, len(inputs))
		copy(perturbed, inputs)
		x := inputs[i].Clone()
		vals := x.Float64s()
		vals[j] += delta
		x.SetFloat64s(vals)
		perturbed[i] = x

		y, err := ops.Forward(b, newFn(), perturbed...)
		require.NoError(t, err)
		return weighted(y, gy)
	}
	return (eval(gradEps) - eval(-gradEps)) / (2 * gradEps)
}
