package tensor

import "fmt"

// Reshape returns a view of x with a new shape. One dimension may be -1 and is
// inferred from the element count.
func Reshape(x *RawTensor, newShape Shape) (*RawTensor, error) {
	if x == nil {
		return nil, fmt.Errorf("Reshape: input tensor is nil")
	}

	totalElements := x.NumElements()
	inferIdx := -1
	product := 1
	for i, dim := range newShape {
		switch {
		case dim == -1:
			if inferIdx >= 0 {
				return nil, fmt.Errorf("Reshape: %w: only one -1 dimension allowed", ErrInvalidShape)
			}
			inferIdx = i
		case dim <= 0:
			return nil, fmt.Errorf("Reshape: %w: dimensions must be positive, got %d", ErrInvalidShape, dim)
		default:
			product *= dim
		}
	}

	actualShape := newShape.Clone()
	if inferIdx >= 0 {
		if totalElements%product != 0 {
			return nil, fmt.Errorf("Reshape: %w: cannot infer dimension for %v from %d elements",
				ErrShapeMismatch, newShape, totalElements)
		}
		actualShape[inferIdx] = totalElements / product
	}

	if actualShape.NumElements() != totalElements {
		return nil, fmt.Errorf("Reshape: %w: cannot reshape %v (%d elements) to %v",
			ErrShapeMismatch, x.shape, totalElements, actualShape)
	}

	return &RawTensor{
		data:   x.data,
		shape:  actualShape,
		stride: actualShape.ComputeStrides(),
		dtype:  x.dtype,
		device: x.device,
	}, nil
}

// Transpose permutes dimensions. With no axes the dimensions are reversed.
func Transpose(x *RawTensor, axes ...int) (*RawTensor, error) {
	ndim := len(x.shape)
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		return nil, fmt.Errorf("Transpose: %w: axes length %d must match tensor dimensions %d",
			ErrShapeMismatch, len(axes), ndim)
	}

	seen := make([]bool, ndim)
	newShape := make(Shape, ndim)
	for i, ax := range axes {
		if ax < 0 || ax >= ndim || seen[ax] {
			return nil, fmt.Errorf("Transpose: invalid axis %d for %dD tensor", ax, ndim)
		}
		seen[ax] = true
		newShape[i] = x.shape[ax]
	}

	result, err := NewRaw(newShape, x.dtype, x.device)
	if err != nil {
		return nil, fmt.Errorf("Transpose: %w", err)
	}

	// Source stride for each output dimension.
	inStrides := make([]int, ndim)
	for i, ax := range axes {
		inStrides[i] = x.stride[ax]
	}
	outStrides := newShape.ComputeStrides()

	switch x.dtype {
	case Float32:
		gather(result.AsFloat32(), x.AsFloat32(), outStrides, inStrides)
	case Float64:
		gather(result.AsFloat64(), x.AsFloat64(), outStrides, inStrides)
	}
	return result, nil
}

// Expand materializes x broadcast to targetShape.
func Expand(x *RawTensor, targetShape Shape) (*RawTensor, error) {
	out, _, err := BroadcastShapes(x.shape, targetShape)
	if err != nil {
		return nil, fmt.Errorf("Expand: %w", err)
	}
	if !out.Equal(targetShape) {
		return nil, fmt.Errorf("Expand: %w: cannot expand %v to %v", ErrShapeMismatch, x.shape, targetShape)
	}
	if x.shape.Equal(targetShape) {
		return x, nil
	}

	result, err := NewRaw(targetShape, x.dtype, x.device)
	if err != nil {
		return nil, fmt.Errorf("Expand: %w", err)
	}

	outStrides := targetShape.ComputeStrides()
	inStrides := BroadcastStrides(x.shape, targetShape)
	switch x.dtype {
	case Float32:
		gather(result.AsFloat32(), x.AsFloat32(), outStrides, inStrides)
	case Float64:
		gather(result.AsFloat64(), x.AsFloat64(), outStrides, inStrides)
	}
	return result, nil
}

// SumTo reduces x to targetShape by summing over the dimensions that
// broadcasting expanded. It is the adjoint of Expand.
//
//	Forward: a[3,1] + b[3,4] -> c[3,4]
//	Backward: SumTo(grad_c[3,4], [3,1]) -> grad_a[3,1]
func SumTo(x *RawTensor, targetShape Shape) (*RawTensor, error) {
	if x.shape.Equal(targetShape) {
		return x, nil
	}
	out, _, err := BroadcastShapes(targetShape, x.shape)
	if err != nil || !out.Equal(x.shape) {
		return nil, fmt.Errorf("SumTo: %w: cannot reduce %v to %v", ErrShapeMismatch, x.shape, targetShape)
	}

	result, err := NewRaw(targetShape, x.dtype, x.device)
	if err != nil {
		return nil, fmt.Errorf("SumTo: %w", err)
	}

	srcStrides := x.shape.ComputeStrides()
	dstStrides := BroadcastStrides(targetShape, x.shape)
	switch x.dtype {
	case Float32:
		scatterAdd(result.AsFloat32(), x.AsFloat32(), srcStrides, dstStrides)
	case Float64:
		scatterAdd(result.AsFloat64(), x.AsFloat64(), srcStrides, dstStrides)
	}
	return result, nil
}

func gather[T float32 | float64](out, in []T, outStrides, inStrides []int) {
	for i := range out {
		out[i] = in[FlatIndex(i, outStrides, inStrides)]
	}
}

func scatterAdd[T float32 | float64](out, in []T, inStrides, outStrides []int) {
	for i, v := range in {
		out[FlatIndex(i, inStrides, outStrides)] += v
	}
}
