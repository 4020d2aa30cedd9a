//go:build !windows

package webgpu

import (
	"fmt"

	"github.com/born-ml/gradfn/internal/backend/accel"
)

// Driver is unavailable on this platform.
type Driver struct {
	accel.Driver
}

// New reports that WebGPU is not supported on this platform.
func New() (*Driver, error) {
	return nil, fmt.Errorf("webgpu: %w: native bindings are built for windows only", accel.ErrUnavailable)
}

// IsAvailable reports whether a WebGPU adapter can be acquired.
func IsAvailable() bool {
	return false
}
