// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package accel provides accelerator backends. Operations on them run as
// generated elementwise kernels queued on one in-order stream.
//
// Example:
//
//	b := accel.NewEmulated()
//	defer b.Close()
//	y, err := autodiff.NewVariable(x, b).Mul(2.0)
package accel

import (
	"github.com/born-ml/gradfn/internal/autodiff/ops"
	internalaccel "github.com/born-ml/gradfn/internal/backend/accel"
	"github.com/born-ml/gradfn/internal/backend/emu"
)

// Backend is an accelerator backend.
type Backend = internalaccel.Backend

// Option configures a Backend.
type Option = internalaccel.Option

// Errors reported by accelerator backends.
var (
	ErrUnavailable = internalaccel.ErrUnavailable
	ErrClosed      = internalaccel.ErrClosed
)

// Compile-time check that Backend can run accelerator specializations.
var _ ops.Accelerator = (*Backend)(nil)

// WithQueueSize sets how many launches may be pending before submission blocks.
func WithQueueSize(n int) Option {
	return internalaccel.WithQueueSize(n)
}

// NewEmulated returns an accelerator backend that runs kernels on the host.
func NewEmulated(opts ...Option) *Backend {
	return emu.NewBackend(opts...)
}
