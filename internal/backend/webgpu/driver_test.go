//go:build windows

package webgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/gradfn/internal/backend/accel"
	"github.com/born-ml/gradfn/internal/backend/cpu"
	"github.com/born-ml/gradfn/internal/kernel"
	"github.com/born-ml/gradfn/internal/tensor"
)

func newBackend(t *testing.T) (*accel.Backend, *Driver) {
	t.Helper()
	d, err := New()
	if err != nil {
		t.Skipf("WebGPU not available: %v", err)
	}
	b := accel.New(d)
	t.Cleanup(func() { _ = b.Close() })
	return b, d
}

func TestKernelParityWithCPU(t *testing.T) {
	b, _ := newBackend(t)
	host := cpu.New()

	x, err := tensor.FromFloat32([]float32{0.5, 1, 2, 3}, tensor.Shape{4}, tensor.WebGPU)
	require.NoError(t, err)
	y, err := tensor.FromFloat32([]float32{1.5, 0.25, 2, 4}, tensor.Shape{4}, tensor.WebGPU)
	require.NoError(t, err)

	cases := []struct {
		name string
		gpu  func() (*tensor.RawTensor, error)
		cpu  func() (*tensor.RawTensor, error)
	}{
		{"add", func() (*tensor.RawTensor, error) { return b.Add(x, y) }, func() (*tensor.RawTensor, error) { return host.Add(x, y) }},
		{"div", func() (*tensor.RawTensor, error) { return b.Div(x, y) }, func() (*tensor.RawTensor, error) { return host.Div(x, y) }},
		{"pow", func() (*tensor.RawTensor, error) { return b.Pow(x, y) }, func() (*tensor.RawTensor, error) { return host.Pow(x, y) }},
		{"exp", func() (*tensor.RawTensor, error) { return b.Exp(x) }, func() (*tensor.RawTensor, error) { return host.Exp(x) }},
		{"log", func() (*tensor.RawTensor, error) { return b.Log(x) }, func() (*tensor.RawTensor, error) { return host.Log(x) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.gpu()
			require.NoError(t, err)
			require.NoError(t, b.Synchronize())
			want, err := tc.cpu()
			require.NoError(t, err)

			tol, err := kernel.KernelTolerance(tc.name)
			require.NoError(t, err)
			for i, w := range want.Float64s() {
				assert.True(t, tol.Within(got.Float64s()[i], w), "element %d: got %v want %v", i, got.Float64s()[i], w)
			}
		})
	}
}

func TestGemmAccumulates(t *testing.T) {
	b, _ := newBackend(t)

	x, err := tensor.FromFloat32([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, tensor.WebGPU)
	require.NoError(t, err)
	c, err := tensor.Full(tensor.Shape{2, 2}, tensor.Float32, tensor.WebGPU, 1)
	require.NoError(t, err)

	_, err = b.Gemm(true, false, 1, x, x, 1, c)
	require.NoError(t, err)
	require.NoError(t, b.Synchronize())
	assert.InDeltaSlice(t, []float32{11, 15, 15, 21}, c.AsFloat32(), 1e-4)
}

func TestOutputBuffersAreRecycled(t *testing.T) {
	b, d := newBackend(t)
	x, err := tensor.FromFloat32([]float32{1, 2, 3}, tensor.Shape{3}, tensor.WebGPU)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = b.Neg(x)
		require.NoError(t, err)
	}
	require.NoError(t, b.Synchronize())

	hits, misses := d.pool.stats()
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, uint64(2), hits)
}
