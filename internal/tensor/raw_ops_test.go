package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		a, b      Shape
		want      Shape
		broadcast bool
	}{
		{Shape{3, 1}, Shape{3, 5}, Shape{3, 5}, true},
		{Shape{3, 5}, Shape{3, 5}, Shape{3, 5}, false},
		{Shape{5}, Shape{2, 5}, Shape{2, 5}, true},
		{Shape{}, Shape{4}, Shape{4}, true},
	}
	for _, tt := range tests {
		got, broadcast, err := BroadcastShapes(tt.a, tt.b)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v vs %v", tt.a, tt.b)
		assert.Equal(t, tt.broadcast, broadcast, "%v vs %v", tt.a, tt.b)
	}

	_, _, err := BroadcastShapes(Shape{3, 4}, Shape{3, 5})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestReshapeIsView(t *testing.T) {
	x, err := FromFloat32([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, CPU)
	require.NoError(t, err)

	y, err := Reshape(x, Shape{3, -1})
	require.NoError(t, err)
	assert.Equal(t, Shape{3, 2}, y.Shape())

	y.AsFloat32()[5] = 60
	assert.Equal(t, float32(60), x.AsFloat32()[5])

	_, err = Reshape(x, Shape{4, 2})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestTranspose2D(t *testing.T) {
	x, err := FromFloat64([]float64{1, 2, 3, 4, 5, 6}, Shape{2, 3}, CPU)
	require.NoError(t, err)

	y, err := Transpose(x)
	require.NoError(t, err)
	assert.Equal(t, Shape{3, 2}, y.Shape())
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, y.AsFloat64())
}

func TestExpandAndSumTo(t *testing.T) {
	x, err := FromFloat32([]float32{1, 2, 3}, Shape{3, 1}, CPU)
	require.NoError(t, err)

	e, err := Expand(x, Shape{3, 2})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, 2, 2, 3, 3}, e.AsFloat32())

	s, err := SumTo(e, Shape{3, 1})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6}, s.AsFloat32())

	row, err := SumTo(e, Shape{2})
	require.NoError(t, err)
	assert.Equal(t, []float32{6, 6}, row.AsFloat32())

	scalar, err := SumTo(e, Shape{})
	require.NoError(t, err)
	assert.Equal(t, []float32{12}, scalar.AsFloat32())

	_, err = SumTo(e, Shape{4})
	require.ErrorIs(t, err, ErrShapeMismatch)
}
