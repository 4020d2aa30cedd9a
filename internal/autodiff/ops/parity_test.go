package ops_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/gradfn/internal/autodiff/ops"
	"github.com/born-ml/gradfn/internal/backend/cpu"
	"github.com/born-ml/gradfn/internal/backend/emu"
	"github.com/born-ml/gradfn/internal/kernel"
	"github.com/born-ml/gradfn/internal/tensor"
)

func assertWithin(t *testing.T, tol kernel.Tolerance, want, got *tensor.RawTensor, msg string) {
	t.Helper()
	require.Equal(t, want.Shape(), got.Shape(), msg)
	g := got.Float64s()
	for i, w := range want.Float64s() {
		assert.True(t, tol.Within(g[i], w), "%s element %d: cpu %v accel %v", msg, i, w, g[i])
	}
}

func TestBackendParity(t *testing.T) {
	host := cpu.New()
	acc := emu.NewBackend()
	defer func() { _ = acc.Close() }()

	x := f32(t, []float32{0.5, 1.25, 2, 0.75, 1.5, 3}, 2, 3)
	y := f32(t, []float32{1.5, 0.5, 2.5, 1, 0.25, 1.75}, 2, 3)
	carr := f32(t, []float32{2, 0.5, 1.5}, 3)
	gy := f32(t, []float32{1, -0.5, 2, 0.25, 1, -1}, 2, 3)

	cases := []struct {
		name   string
		kernel string
		newFn  func() ops.Function
		inputs []*tensor.RawTensor
	}{
		{"mul", "mul_bwd", func() ops.Function { return ops.NewMul() }, []*tensor.RawTensor{x, y}},
		{"mul broadcast", "mul_bwd", func() ops.Function { return ops.NewMul() }, []*tensor.RawTensor{x, carr}},
		{"div", "div_bwd", func() ops.Function { return ops.NewDiv() }, []*tensor.RawTensor{x, y}},
		{"div_from_constant scalar", "div_from_const_bwd",
			func() ops.Function { return ops.NewDivFromConstant(ops.Scalar(3)) }, []*tensor.RawTensor{x}},
		{"div_from_constant array", "div_from_const_bwd_array",
			func() ops.Function { return ops.NewDivFromConstant(ops.Array(carr)) }, []*tensor.RawTensor{x}},
		{"pow_var_var", "pow_var_var_bwd", func() ops.Function { return ops.NewPowVarVar() }, []*tensor.RawTensor{x, y}},
		{"pow_var_const scalar", "pow_var_const_bwd",
			func() ops.Function { return ops.NewPowVarConst(ops.Scalar(1.5)) }, []*tensor.RawTensor{x}},
		{"pow_var_const array", "pow_var_const_bwd_array",
			func() ops.Function { return ops.NewPowVarConst(ops.Array(carr)) }, []*tensor.RawTensor{x}},
		{"pow_const_var scalar", "pow_const_var_bwd",
			func() ops.Function { return ops.NewPowConstVar(ops.Scalar(2.5)) }, []*tensor.RawTensor{x}},
		{"pow_const_var array", "pow_const_var_bwd_array",
			func() ops.Function { return ops.NewPowConstVar(ops.Array(carr)) }, []*tensor.RawTensor{x}},
		{"exp", "exp", func() ops.Function { return ops.NewExp() }, []*tensor.RawTensor{x}},
		{"log", "log", func() ops.Function { return ops.NewLog() }, []*tensor.RawTensor{x}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tol, err := kernel.KernelTolerance(tc.kernel)
			require.NoError(t, err)

			cpuFn, accFn := tc.newFn(), tc.newFn()
			wantY, err := ops.Forward(host, cpuFn, tc.inputs...)
			require.NoError(t, err)
			gotY, err := ops.Forward(acc, accFn, tc.inputs...)
			require.NoError(t, err)
			assertWithin(t, tol, wantY, gotY, "forward")

			wantG, err := ops.Backward(host, cpuFn, tc.inputs, gy)
			require.NoError(t, err)
			gotG, err := ops.Backward(acc, accFn, tc.inputs, gy)
			require.NoError(t, err)
			for i := range wantG {
				assertWithin(t, tol, wantG[i], gotG[i], "backward")
			}
		})
	}
}

func TestLinearParity(t *testing.T) {
	host := cpu.New()
	acc := emu.NewBackend()
	defer func() { _ = acc.Close() }()

	x := f32(t, []float32{0.5, -1, 2, 0, 1.5, 0.25, -0.75, 1, 3, 2, -2, 0.5}, 4, 3)
	gy := f32(t, []float32{1, 0.5, -1, 2, 0.25, 0, 1, 1}, 4, 2)

	cpuL, err := ops.NewLinear(3, 2, ops.WithSeed(9), ops.WithBias(0.5))
	require.NoError(t, err)
	accL, err := ops.NewLinear(3, 2, ops.WithSeed(9), ops.WithBias(0.5))
	require.NoError(t, err)

	tol, err := kernel.KernelTolerance("gemm")
	require.NoError(t, err)

	wantY, err := ops.Forward(host, cpuL, x)
	require.NoError(t, err)
	gotY, err := ops.Forward(acc, accL, x)
	require.NoError(t, err)
	assertWithin(t, tol, wantY, gotY, "forward")

	wantG, err := ops.Backward(host, cpuL, []*tensor.RawTensor{x}, gy)
	require.NoError(t, err)
	gotG, err := ops.Backward(acc, accL, []*tensor.RawTensor{x}, gy)
	require.NoError(t, err)
	assertWithin(t, tol, wantG[0], gotG[0], "gx")
	assertWithin(t, tol, cpuL.GW(), accL.GW(), "gW")
	assertWithin(t, tol, cpuL.GB(), accL.GB(), "gb")
}
