package tensor

import (
	"fmt"
	"unsafe"
)

// Device represents the compute device a tensor is bound to.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
	// Emulated is the host-backed accelerator used when no GPU driver is present.
	Emulated
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case Emulated:
		return "Emulated"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// RawTensor is the low-level tensor representation: a row-major byte buffer
// tagged with shape, dtype and device.
//
// Views created by Reshape share the buffer with their source. Operations never
// write into their inputs, so sharing is safe for graph values.
type RawTensor struct {
	data   []byte
	shape  Shape
	stride []int
	dtype  DataType
	device Device
}

// NewRaw creates a zero-filled RawTensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if dtype != Float32 && dtype != Float64 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDType, int(dtype))
	}

	return &RawTensor{
		data:   make([]byte, shape.NumElements()*dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// FromFloat32 copies data into a new Float32 tensor.
func FromFloat32(data []float32, shape Shape, device Device) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("%w: shape %v requires %d elements, got %d",
			ErrShapeMismatch, shape, shape.NumElements(), len(data))
	}
	t, err := NewRaw(shape, Float32, device)
	if err != nil {
		return nil, err
	}
	copy(t.AsFloat32(), data)
	return t, nil
}

// FromFloat64 copies data into a new Float64 tensor.
func FromFloat64(data []float64, shape Shape, device Device) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("%w: shape %v requires %d elements, got %d",
			ErrShapeMismatch, shape, shape.NumElements(), len(data))
	}
	t, err := NewRaw(shape, Float64, device)
	if err != nil {
		return nil, err
	}
	copy(t.AsFloat64(), data)
	return t, nil
}

// Full creates a tensor with every element set to value.
func Full(shape Shape, dtype DataType, device Device, value float64) (*RawTensor, error) {
	t, err := NewRaw(shape, dtype, device)
	if err != nil {
		return nil, err
	}
	t.Fill(value)
	return t, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the tensor's compute device.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory.
func (r *RawTensor) Data() []byte {
	return r.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, length bounded by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	if r.dtype != Float64 {
		panic(fmt.Sprintf("tensor dtype is %s, not float64", r.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, length bounded by NumElements()
	return unsafe.Slice((*float64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// Float64s returns a float64 copy of the elements regardless of dtype.
func (r *RawTensor) Float64s() []float64 {
	out := make([]float64, r.NumElements())
	switch r.dtype {
	case Float32:
		for i, v := range r.AsFloat32() {
			out[i] = float64(v)
		}
	case Float64:
		copy(out, r.AsFloat64())
	}
	return out
}

// SetFloat64s overwrites the elements from vals, converting to the tensor's dtype.
func (r *RawTensor) SetFloat64s(vals []float64) {
	switch r.dtype {
	case Float32:
		dst := r.AsFloat32()
		for i := range dst {
			dst[i] = float32(vals[i])
		}
	case Float64:
		copy(r.AsFloat64(), vals)
	}
}

// Fill sets every element to value.
func (r *RawTensor) Fill(value float64) {
	switch r.dtype {
	case Float32:
		v := float32(value)
		data := r.AsFloat32()
		for i := range data {
			data[i] = v
		}
	case Float64:
		data := r.AsFloat64()
		for i := range data {
			data[i] = value
		}
	}
}

// Clone returns a deep copy with its own buffer.
func (r *RawTensor) Clone() *RawTensor {
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return &RawTensor{
		data:   data,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		device: r.device,
	}
}

// OnDevice returns a view of r tagged with device. The buffer is shared.
func (r *RawTensor) OnDevice(device Device) *RawTensor {
	return &RawTensor{
		data:   r.data,
		shape:  r.shape,
		stride: r.stride,
		dtype:  r.dtype,
		device: device,
	}
}

// String formats the tensor for debugging.
func (r *RawTensor) String() string {
	return fmt.Sprintf("RawTensor(%s, %v, %s)%v", r.dtype, r.shape, r.device, r.Float64s())
}
