package main

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/gradfn/backend/accel"
	"github.com/born-ml/gradfn/backend/cpu"
	"github.com/born-ml/gradfn/internal/kernel"
	"github.com/born-ml/gradfn/tensor"
)

func TestDefaultCasesPass(t *testing.T) {
	gpu := accel.NewEmulated()
	defer func() { _ = gpu.Close() }()

	tests := []struct {
		backend tensor.Backend
		dtype   tensor.DataType
		tol     float64
	}{
		{cpu.New(), tensor.Float64, 1e-5},
		{cpu.New(), tensor.Float32, 1e-2},
		{gpu, tensor.Float32, 1e-2},
	}

	for _, tt := range tests {
		t.Run(tt.backend.Name()+"/"+tt.dtype.String(), func(t *testing.T) {
			cfg := checkConfig{eps: 1e-6, tol: tt.tol, seed: 7, dtype: tt.dtype}
			results := newChecker(tt.backend, cfg).run(context.Background(), defaultCases())
			require.Len(t, results, len(defaultCases()))
			for _, r := range results {
				require.NoError(t, r.err, r.name)
				assert.True(t, r.passed, "%s: forward %g grad %g", r.name, r.forwardErr, r.gradErr)
			}
		})
	}
}

func TestRunAllKeepsBackendOrder(t *testing.T) {
	gpu := accel.NewEmulated()
	targets := []target{
		{backend: cpu.New(), close: func() error { return nil }},
		{backend: gpu, close: gpu.Close},
	}
	defer closeBackends(targets)

	cases := defaultCases()[:3]
	cfg := checkConfig{eps: 1e-6, tol: 1e-2, seed: 1, dtype: tensor.Float32}
	results, err := runAll(context.Background(), targets, cases, cfg)
	require.NoError(t, err)
	require.Len(t, results, 6)

	for i, r := range results {
		want := targets[i/3].backend.Name()
		assert.Equal(t, want, r.backend)
		assert.Equal(t, cases[i%3].name, r.name)
	}
}

func TestCompare(t *testing.T) {
	tol := kernel.Tolerance{Abs: 1e-3, Rel: 1e-3}

	d, ok := compare([]float64{1, 2}, []float64{1, 2.0005}, tol)
	assert.True(t, ok)
	assert.Zero(t, d)

	d, ok = compare([]float64{1, 3}, []float64{1, 2}, tol)
	assert.False(t, ok)
	assert.InDelta(t, 1.0, d, 1e-12)

	d, ok = compare([]float64{math.NaN()}, []float64{1}, tol)
	assert.False(t, ok)
	assert.True(t, math.IsInf(d, 1))

	_, ok = compare([]float64{1}, []float64{1, 2}, tol)
	assert.False(t, ok)
}

func TestRandomInputsDeterministic(t *testing.T) {
	shapes := []tensor.Shape{{2, 3}, {3}}
	a := randomInputs(shapes, 3)
	b := randomInputs(shapes, 3)
	assert.Equal(t, a, b)
	require.Len(t, a[0], 6)
	require.Len(t, a[1], 3)
	for _, v := range a[0] {
		assert.GreaterOrEqual(t, v, 0.5)
		assert.Less(t, v, 1.5)
	}
}

func TestOpenBackends(t *testing.T) {
	targets, err := openBackends("cpu, emu", 8)
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "CPU", targets[0].backend.Name())
	assert.Equal(t, "accel/emulated", targets[1].backend.Name())
	closeBackends(targets)

	_, err = openBackends("tpu", 8)
	assert.ErrorContains(t, err, "unknown backend")
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	failed := report(&buf, []caseResult{
		{backend: "CPU", name: "add", passed: true},
		{backend: "CPU", name: "log", passed: false, gradErr: 0.5},
		{backend: "CPU", name: "exp", err: errors.New("boom")},
	})
	assert.Equal(t, 2, failed)
	out := buf.String()
	assert.Contains(t, out, "BACKEND")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "error: boom")
}
