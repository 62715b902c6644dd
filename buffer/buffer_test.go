package buffer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}
	b, err := Wrap(data, 2, 3)
	require.NoError(t, err)
	require.Equal(t, 2, b.Rank())
	require.Equal(t, 6, b.Len())

	r, c := b.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 3, c)

	// same backing array
	data[0] = 42
	require.Equal(t, 42.0, b.Data[0])
}

func TestWrapWithWrongLength(t *testing.T) {
	_, err := Wrap([]float64{1, 2, 3}, 2, 2)
	require.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestWrapWithNegativeDim(t *testing.T) {
	_, err := Wrap(nil, -1)
	require.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestNew(t *testing.T) {
	b, err := New(3, 4)
	require.NoError(t, err)
	require.Len(t, b.Data, 12)
	require.Equal(t, uint64(96), b.Bytes())
	for _, v := range b.Data {
		require.Equal(t, 0.0, v)
	}
}

func TestNewEmpty(t *testing.T) {
	b, err := New(0)
	require.NoError(t, err)
	require.Equal(t, 0, b.Len())
	require.NoError(t, b.Validate())
}

func TestNewTooLarge(t *testing.T) {
	_, err := New(1<<40, 1<<20)
	require.True(t, errors.Is(err, ErrAllocation))
}

func TestNewOverflowingBytes(t *testing.T) {
	_, err := New(1 << 61)
	require.True(t, errors.Is(err, ErrAllocation))
}

func TestNewOverflowingShape(t *testing.T) {
	_, err := New(1<<32, 1<<32, 1<<32)
	require.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestWrapOverflowingShape(t *testing.T) {
	// 2^32 * 2^32 wraps to zero on 64 bit
	_, err := Wrap(nil, 1<<32, 1<<32)
	require.True(t, errors.Is(err, ErrShapeMismatch))

	b := &Buffer{Shape: []int{1 << 32, 1 << 32}}
	require.True(t, errors.Is(b.Validate(), ErrShapeMismatch))
	require.Equal(t, -1, b.Len())
}

func TestDimsOfVector(t *testing.T) {
	b, err := New(5)
	require.NoError(t, err)
	r, c := b.Dims()
	require.Equal(t, 5, r)
	require.Equal(t, 1, c)
}

func TestValidate(t *testing.T) {
	b := &Buffer{Data: []float64{1, 2}, Shape: []int{3}}
	require.True(t, errors.Is(b.Validate(), ErrShapeMismatch))
}

func TestEqual(t *testing.T) {
	a, _ := Wrap([]float64{1, 2, 3, 4}, 2, 2)
	b, _ := Wrap([]float64{1, 2, 3, 4}, 2, 2)
	c, _ := Wrap([]float64{1, 2, 3, 4}, 4)
	d, _ := Wrap([]float64{1, 2, 3, 5}, 2, 2)

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.False(t, a.Equal(d))
}

func TestShapeError(t *testing.T) {
	var err error = &ShapeError{Rank: 3, Msg: "expected a 1D or 2D vector"}
	var shapeErr *ShapeError
	require.True(t, errors.As(err, &shapeErr))
	require.Equal(t, "expected a 1D or 2D vector (got rank 3)", err.Error())
}
