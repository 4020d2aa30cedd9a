package ops_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/gradfn/internal/autodiff/ops"
	"github.com/born-ml/gradfn/internal/tensor"
)

func TestLinearForwardAddsBiasToEveryRow(t *testing.T) {
	x := f32(t, []float32{
		1, 2, 3,
		0, 1, 0,
		-1, 0.5, 2,
		4, 4, 4,
	}, 4, 3)

	for _, nb := range backends(t) {
		t.Run(nb.name, func(t *testing.T) {
			l, err := ops.NewLinear(3, 2, ops.WithBias(0.5), ops.WithSeed(1))
			require.NoError(t, err)

			y, err := ops.Forward(nb.backend, l, x)
			require.NoError(t, err)
			require.Equal(t, tensor.Shape{4, 2}, y.Shape())

			w := l.W().AsFloat32()
			xs := x.AsFloat32()
			got := y.AsFloat32()
			for r := 0; r < 4; r++ {
				for c := 0; c < 2; c++ {
					var want float32
					for k := 0; k < 3; k++ {
						want += xs[r*3+k] * w[c*3+k]
					}
					assert.InDelta(t, want+0.5, got[r*2+c], 1e-5, "row %d col %d", r, c)
				}
			}
		})
	}
}

func TestLinearInit(t *testing.T) {
	l, err := ops.NewLinear(400, 50, ops.WithWScale(2), ops.WithSeed(3), ops.WithDType(tensor.Float64))
	require.NoError(t, err)

	var sum, sq float64
	w := l.W().AsFloat64()
	for _, v := range w {
		sum += v
		sq += v * v
	}
	n := float64(len(w))
	mean := sum / n
	std := sq/n - mean*mean

	// Expected variance is (2 * sqrt(1/400))² = 0.01.
	assert.InDelta(t, 0, mean, 0.005)
	assert.InDelta(t, 0.01, std, 0.001)
	assert.Equal(t, make([]float64, 50), l.B().AsFloat64())
	assert.Equal(t, make([]float64, 50*400), l.GW().AsFloat64())

	again, err := ops.NewLinear(400, 50, ops.WithWScale(2), ops.WithSeed(3), ops.WithDType(tensor.Float64))
	require.NoError(t, err)
	assert.Equal(t, w, again.W().AsFloat64(), "same seed gives same weights")
}

func TestLinearNames(t *testing.T) {
	l, err := ops.NewLinear(2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"W", "b"}, l.ParameterNames())
	assert.Equal(t, []string{"gW", "gb"}, l.GradientNames())

	nb, err := ops.NewLinear(2, 2, ops.WithNoBias())
	require.NoError(t, err)
	assert.Equal(t, []string{"W"}, nb.ParameterNames())
	assert.Equal(t, []string{"gW"}, nb.GradientNames())
	assert.Nil(t, nb.B())
	assert.Nil(t, nb.GB())

	_, err = ops.NewLinear(0, 2)
	require.ErrorIs(t, err, tensor.ErrInvalidShape)
}

func TestLinearAccumulatesParameterGradients(t *testing.T) {
	x1 := f64(t, []float64{1, 2, 3, -1, 0, 2}, 2, 3)
	x2 := f64(t, []float64{0.5, -0.5, 1, 2, 1, 0}, 2, 3)
	gy1 := f64(t, []float64{1, 0, 0, 1}, 2, 2)
	gy2 := f64(t, []float64{0.5, 2, -1, 1}, 2, 2)

	for _, nb := range backends(t) {
		t.Run(nb.name, func(t *testing.T) {
			single := func(x, gy *tensor.RawTensor) (gw, gb, gx []float64) {
				l, err := ops.NewLinear(3, 2, ops.WithSeed(11), ops.WithDType(tensor.Float64))
				require.NoError(t, err)
				_, err = ops.Forward(nb.backend, l, x)
				require.NoError(t, err)
				gxs, err := ops.Backward(nb.backend, l, []*tensor.RawTensor{x}, gy)
				require.NoError(t, err)
				return l.GW().Float64s(), l.GB().Float64s(), gxs[0].Float64s()
			}
			gw1, gb1, gx1 := single(x1, gy1)
			gw2, gb2, gx2 := single(x2, gy2)

			l, err := ops.NewLinear(3, 2, ops.WithSeed(11), ops.WithDType(tensor.Float64))
			require.NoError(t, err)
			_, err = ops.Forward(nb.backend, l, x1)
			require.NoError(t, err)
			gxsA, err := ops.Backward(nb.backend, l, []*tensor.RawTensor{x1}, gy1)
			require.NoError(t, err)
			_, err = ops.Forward(nb.backend, l, x2)
			require.NoError(t, err)
			gxsB, err := ops.Backward(nb.backend, l, []*tensor.RawTensor{x2}, gy2)
			require.NoError(t, err)

			for i := range gw1 {
				assert.InDelta(t, gw1[i]+gw2[i], l.GW().Float64s()[i], 1e-12)
			}
			for i := range gb1 {
				assert.InDelta(t, gb1[i]+gb2[i], l.GB().Float64s()[i], 1e-12)
			}
			assert.InDeltaSlice(t, gx1, gxsA[0].Float64s(), 1e-12)
			assert.InDeltaSlice(t, gx2, gxsB[0].Float64s(), 1e-12)

			// Column sums of gy1 + gy2.
			assert.InDeltaSlice(t, []float64{0.5, 4}, l.GB().Float64s(), 1e-12)

			l.ResetGradients()
			assert.Equal(t, make([]float64, 6), l.GW().Float64s())
			assert.Equal(t, make([]float64, 2), l.GB().Float64s())
		})
	}
}

func TestLinearFlattensInput(t *testing.T) {
	vals := []float64{
		1, 2, 3, 4, 5, 6,
		-1, 0.5, 0, 2, -3, 1,
	}
	x3 := f64(t, vals, 2, 2, 3)
	x2 := f64(t, vals, 2, 6)
	gy := f64(t, []float64{1, -1, 0.5, 2, 0, 1, 1, 1}, 2, 4)

	for _, nb := range backends(t) {
		t.Run(nb.name, func(t *testing.T) {
			l, err := ops.NewLinear(6, 4, ops.WithSeed(5), ops.WithBias(0.1), ops.WithDType(tensor.Float64))
			require.NoError(t, err)

			y3, err := ops.Forward(nb.backend, l, x3)
			require.NoError(t, err)
			y2, err := ops.Forward(nb.backend, l, x2)
			require.NoError(t, err)
			assert.Equal(t, tensor.Shape{2, 4}, y3.Shape())
			assert.InDeltaSlice(t, y2.Float64s(), y3.Float64s(), 1e-12)

			g3, err := ops.Backward(nb.backend, l, []*tensor.RawTensor{x3}, gy)
			require.NoError(t, err)
			g2, err := ops.Backward(nb.backend, l, []*tensor.RawTensor{x2}, gy)
			require.NoError(t, err)
			assert.Equal(t, tensor.Shape{2, 2, 3}, g3[0].Shape())
			assert.InDeltaSlice(t, g2[0].Float64s(), g3[0].Float64s(), 1e-12)
		})
	}
}

func TestLinearNoBias(t *testing.T) {
	x := f64(t, []float64{1, 2}, 1, 2)
	for _, nb := range backends(t) {
		t.Run(nb.name, func(t *testing.T) {
			l, err := ops.NewLinear(2, 1, ops.WithNoBias(), ops.WithSeed(2), ops.WithDType(tensor.Float64))
			require.NoError(t, err)
			y, err := ops.Forward(nb.backend, l, x)
			require.NoError(t, err)

			w := l.W().AsFloat64()
			assert.InDelta(t, w[0]+2*w[1], y.AsFloat64()[0], 1e-12)

			_, err = ops.Backward(nb.backend, l, []*tensor.RawTensor{x}, f64(t, []float64{3}, 1, 1))
			require.NoError(t, err)
			assert.InDeltaSlice(t, []float64{3, 6}, l.GW().AsFloat64(), 1e-12)
		})
	}
}

func TestLinearRejectsMismatchedInput(t *testing.T) {
	for _, nb := range backends(t) {
		t.Run(nb.name, func(t *testing.T) {
			l, err := ops.NewLinear(3, 2, ops.WithDType(tensor.Float64))
			require.NoError(t, err)
			_, err = ops.Forward(nb.backend, l, f64(t, []float64{1, 2, 3, 4}, 2, 2))
			require.ErrorIs(t, err, tensor.ErrShapeMismatch)
		})
	}
}
