package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/born-ml/gradfn/internal/tensor"
)

// MatMul performs matrix multiplication: (M, K) @ (K, N) -> (M, N).
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return Gemm(false, false, 1, a, b, 0, nil, cpu.device)
}

// Gemm computes c = alpha * op(a) @ op(b) + beta * c, where op transposes its
// argument when the matching trans flag is set. a and b must be 2D.
//
// When c is nil a zeroed (M, N) result is allocated on device. Otherwise c must hold
// M*N elements of a's dtype and is updated in place; its shape is preserved so a
// 1D bias accumulator can receive an (N, 1) product.
func Gemm(
	transA, transB bool,
	alpha float64,
	a, b *tensor.RawTensor,
	beta float64,
	c *tensor.RawTensor,
	device tensor.Device,
) (*tensor.RawTensor, error) {
	if err := checkDTypes("gemm", a, b); err != nil {
		return nil, err
	}
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		return nil, fmt.Errorf("gemm: %w: only 2D tensors supported, got %v and %v",
			tensor.ErrShapeMismatch, aShape, bShape)
	}

	m, k := aShape[0], aShape[1]
	if transA {
		m, k = k, m
	}
	kB, n := bShape[0], bShape[1]
	if transB {
		kB, n = n, kB
	}
	if k != kB {
		return nil, fmt.Errorf("gemm: %w: %v%s @ %v%s",
			tensor.ErrShapeMismatch, aShape, transSuffix(transA), bShape, transSuffix(transB))
	}

	if c == nil {
		var err error
		c, err = tensor.NewRaw(tensor.Shape{m, n}, a.DType(), device)
		if err != nil {
			return nil, fmt.Errorf("gemm: failed to create result tensor: %w", err)
		}
	} else {
		if c.NumElements() != m*n {
			return nil, fmt.Errorf("gemm: %w: accumulator %v cannot hold (%d, %d)",
				tensor.ErrShapeMismatch, c.Shape(), m, n)
		}
		if err := checkDTypes("gemm", a, c); err != nil {
			return nil, err
		}
	}

	tA, tB := blasTrans(transA), blasTrans(transB)
	switch a.DType() {
	case tensor.Float32:
		blas32.Gemm(tA, tB, float32(alpha),
			blas32.General{Rows: aShape[0], Cols: aShape[1], Stride: aShape[1], Data: a.AsFloat32()},
			blas32.General{Rows: bShape[0], Cols: bShape[1], Stride: bShape[1], Data: b.AsFloat32()},
			float32(beta),
			blas32.General{Rows: m, Cols: n, Stride: n, Data: c.AsFloat32()})
	case tensor.Float64:
		blas64.Gemm(tA, tB, alpha,
			blas64.General{Rows: aShape[0], Cols: aShape[1], Stride: aShape[1], Data: a.AsFloat64()},
			blas64.General{Rows: bShape[0], Cols: bShape[1], Stride: bShape[1], Data: b.AsFloat64()},
			beta,
			blas64.General{Rows: m, Cols: n, Stride: n, Data: c.AsFloat64()})
	default:
		return nil, fmt.Errorf("gemm: %w: %s", tensor.ErrUnsupportedDType, a.DType())
	}

	return c, nil
}

func blasTrans(t bool) blas.Transpose {
	if t {
		return blas.Trans
	}
	return blas.NoTrans
}

func transSuffix(t bool) string {
	if t {
		return "ᵀ"
	}
	return ""
}
