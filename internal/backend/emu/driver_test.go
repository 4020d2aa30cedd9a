package emu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/gradfn/internal/kernel"
	"github.com/born-ml/gradfn/internal/tensor"
)

func TestProgramRoundsToDType(t *testing.T) {
	d := New()
	p, err := d.Compile(kernel.DivKernel)
	require.NoError(t, err)

	a, err := tensor.FromFloat32([]float32{1, 2}, tensor.Shape{2}, tensor.Emulated)
	require.NoError(t, err)
	b, err := tensor.FromFloat32([]float32{3, 3}, tensor.Shape{2}, tensor.Emulated)
	require.NoError(t, err)
	out, err := tensor.NewRaw(tensor.Shape{2}, tensor.Float32, tensor.Emulated)
	require.NoError(t, err)

	require.NoError(t, p.Run(2, []kernel.Arg{kernel.ArrayArg(a), kernel.ArrayArg(b)}, []*tensor.RawTensor{out}))
	assert.Equal(t, []float32{float32(1.0 / 3.0), float32(2.0 / 3.0)}, out.AsFloat32())
}

func TestProgramRejectsWrongLength(t *testing.T) {
	d := New()
	p, err := d.Compile(kernel.NegKernel)
	require.NoError(t, err)

	x, err := tensor.FromFloat64([]float64{1, 2}, tensor.Shape{2}, tensor.Emulated)
	require.NoError(t, err)
	out, err := tensor.NewRaw(tensor.Shape{3}, tensor.Float64, tensor.Emulated)
	require.NoError(t, err)

	err = p.Run(3, []kernel.Arg{kernel.ArrayArg(x)}, []*tensor.RawTensor{out})
	require.ErrorIs(t, err, kernel.ErrArgs)
}

func TestDriverGemm(t *testing.T) {
	d := New()
	a, err := tensor.FromFloat64([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, tensor.Emulated)
	require.NoError(t, err)
	c, err := tensor.NewRaw(tensor.Shape{2, 2}, tensor.Float64, tensor.Emulated)
	require.NoError(t, err)

	require.NoError(t, d.Gemm(false, true, 2, a, a, 0, c))
	assert.Equal(t, []float64{28, 64, 64, 154}, c.AsFloat64())
	assert.Equal(t, "emulated", d.Name())
}
