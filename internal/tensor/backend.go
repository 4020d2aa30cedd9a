package tensor

// Backend defines the array operations the differentiable operations are built on.
// Backends handle the actual computation; every method returns a fresh tensor and
// leaves its inputs untouched.
//
// Elementwise binary operations broadcast NumPy-style; incompatible shapes return
// an error wrapping ErrShapeMismatch. Floating-point domain problems (division by
// zero, log of non-positive values) are not errors: IEEE Inf/NaN propagate.
//
// Implementations:
//   - cpu: host loops and gonum BLAS
//   - accel: generated elementwise kernels on an accelerator driver (emulated or WebGPU)
type Backend interface {
	// Element-wise binary operations
	Add(a, b *RawTensor) (*RawTensor, error)
	Sub(a, b *RawTensor) (*RawTensor, error)
	Mul(a, b *RawTensor) (*RawTensor, error)
	Div(a, b *RawTensor) (*RawTensor, error)
	Pow(a, b *RawTensor) (*RawTensor, error)

	// Element-wise unary operations
	Neg(x *RawTensor) (*RawTensor, error)
	Exp(x *RawTensor) (*RawTensor, error)
	Log(x *RawTensor) (*RawTensor, error)

	// Scalar operations
	AddScalar(x *RawTensor, s float64) (*RawTensor, error)  // x + s
	MulScalar(x *RawTensor, s float64) (*RawTensor, error)  // x * s
	PowScalar(x *RawTensor, s float64) (*RawTensor, error)  // x ** s
	RPowScalar(x *RawTensor, s float64) (*RawTensor, error) // s ** x

	// Matrix operations (2D)
	MatMul(a, b *RawTensor) (*RawTensor, error)
	Transpose(x *RawTensor, axes ...int) (*RawTensor, error)

	// Shape operations
	Reshape(x *RawTensor, newShape Shape) (*RawTensor, error)
	SumTo(x *RawTensor, shape Shape) (*RawTensor, error) // adjoint of broadcasting

	// Metadata
	Name() string
	Device() Device
}
