// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package autodiff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/gradfn/autodiff"
	"github.com/born-ml/gradfn/backend/accel"
	"github.com/born-ml/gradfn/backend/cpu"
	"github.com/born-ml/gradfn/tensor"
)

func TestPowScenario(t *testing.T) {
	gpu := accel.NewEmulated()
	defer func() { _ = gpu.Close() }()

	for _, b := range []tensor.Backend{cpu.New(), gpu} {
		t.Run(b.Name(), func(t *testing.T) {
			data, err := tensor.FromFloat32([]float32{2, 3}, tensor.Shape{2}, tensor.CPU)
			require.NoError(t, err)
			x := autodiff.NewVariable(data, b)

			y, err := x.Pow(2)
			require.NoError(t, err)
			assert.InDeltaSlice(t, []float32{4, 9}, y.Data().AsFloat32(), 1e-6)

			require.NoError(t, y.Backward())
			assert.InDeltaSlice(t, []float32{4, 6}, x.Grad().AsFloat32(), 1e-6)
		})
	}
}

func TestLinearScenario(t *testing.T) {
	l, err := autodiff.NewLinear(3, 2, autodiff.WithBias(0.5), autodiff.WithSeed(42))
	require.NoError(t, err)

	data, err := tensor.Full(tensor.Shape{4, 3}, tensor.Float32, tensor.CPU, 0)
	require.NoError(t, err)
	y, err := autodiff.ApplyLinear(l, autodiff.NewVariable(data, cpu.New()))
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{4, 2}, y.Shape())
	assert.Equal(t, []float32{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}, y.Data().AsFloat32())
}

func TestTypeMismatch(t *testing.T) {
	data, err := tensor.FromFloat64([]float64{1}, tensor.Shape{1}, tensor.CPU)
	require.NoError(t, err)
	_, err = autodiff.NewVariable(data, cpu.New()).Add("s")
	require.ErrorIs(t, err, autodiff.ErrTypeMismatch)
}
