// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU accelerator backend.
//
// Native bindings are available on Windows; elsewhere New returns an error
// wrapping accel.ErrUnavailable.
//
// Example:
//
//	gpu, err := webgpu.New()
//	if err != nil {
//	    gpu = accel.NewEmulated()
//	}
//	defer gpu.Close()
package webgpu

import (
	"github.com/born-ml/gradfn/backend/accel"
	internalaccel "github.com/born-ml/gradfn/internal/backend/accel"
	internalwebgpu "github.com/born-ml/gradfn/internal/backend/webgpu"
)

// New acquires a GPU and returns an accelerator backend driving it.
// Close the backend to release the device.
func New(opts ...accel.Option) (*accel.Backend, error) {
	d, err := internalwebgpu.New()
	if err != nil {
		return nil, err
	}
	return internalaccel.New(d, opts...), nil
}

// IsAvailable reports whether a WebGPU adapter can be acquired.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
