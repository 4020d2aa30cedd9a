// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the host backend. Matrix products use gonum BLAS;
// build with -tags netlib to route them to a system BLAS.
package cpu

import (
	internalcpu "github.com/born-ml/gradfn/internal/backend/cpu"
	"github.com/born-ml/gradfn/tensor"
)

// Backend is the host array library.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a CPU backend.
func New() *Backend {
	return internalcpu.New()
}
