// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor exposes the array type shared by gradfn backends.
//
// Example:
//
//	import (
//	    "github.com/born-ml/gradfn/backend/cpu"
//	    "github.com/born-ml/gradfn/tensor"
//	)
//
//	func main() {
//	    b := cpu.New()
//	    x, _ := tensor.FromFloat32([]float32{1, 2, 3}, tensor.Shape{3}, tensor.CPU)
//	    y, _ := b.Exp(x)
//	}
package tensor

import "github.com/born-ml/gradfn/internal/tensor"

// RawTensor is a row-major buffer tagged with shape, dtype and device.
type RawTensor = tensor.RawTensor

// Shape represents the dimensions of a tensor.
type Shape = tensor.Shape

// DataType identifies the element type.
type DataType = tensor.DataType

// Device identifies where a tensor's computations run.
type Device = tensor.Device

// Backend is the array library differentiable operations compute with.
type Backend = tensor.Backend

// Element types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
)

// Devices.
const (
	CPU      = tensor.CPU
	Emulated = tensor.Emulated
	WebGPU   = tensor.WebGPU
)

// Errors returned by array operations.
var (
	ErrShapeMismatch    = tensor.ErrShapeMismatch
	ErrDTypeMismatch    = tensor.ErrDTypeMismatch
	ErrInvalidShape     = tensor.ErrInvalidShape
	ErrUnsupportedDType = tensor.ErrUnsupportedDType
)

// NewRaw creates a zero-filled tensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// FromFloat32 copies data into a new Float32 tensor.
func FromFloat32(data []float32, shape Shape, device Device) (*RawTensor, error) {
	return tensor.FromFloat32(data, shape, device)
}

// FromFloat64 copies data into a new Float64 tensor.
func FromFloat64(data []float64, shape Shape, device Device) (*RawTensor, error) {
	return tensor.FromFloat64(data, shape, device)
}

// Full creates a tensor with every element set to value.
func Full(shape Shape, dtype DataType, device Device, value float64) (*RawTensor, error) {
	return tensor.Full(shape, dtype, device, value)
}

// ParseDataType parses "float32"/"f32" or "float64"/"f64".
func ParseDataType(s string) (DataType, error) {
	return tensor.ParseDataType(s)
}
