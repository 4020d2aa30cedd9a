//go:build !windows

package webgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/gradfn/internal/backend/accel"
)

func TestUnavailable(t *testing.T) {
	assert.False(t, IsAvailable())

	d, err := New()
	require.ErrorIs(t, err, accel.ErrUnavailable)
	assert.Nil(t, d)
}
