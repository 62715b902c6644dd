package buffer

import (
	"errors"
	"fmt"
	"math"

	"github.com/pbnjay/memory"
)

const elemSize = 8

var (
	// ErrAllocation is returned when a buffer can not be allocated.
	ErrAllocation = errors.New("buffer: allocation failed")
	// ErrShapeMismatch is returned when the data length does not match the shape.
	ErrShapeMismatch = errors.New("buffer: data length does not match shape")
)

// ShapeError is returned when a buffer has a rank that the requested
// operation does not support.
type ShapeError struct {
	Rank int
	Msg  string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s (got rank %d)", e.Msg, e.Rank)
}

// Buffer describes a contiguous block of float64 values and its shape.
// Rank 2 buffers are stored row-major, element (i, j) lives at
// Data[i*cols+j].
type Buffer struct {
	Data  []float64
	Shape []int
}

// Wrap creates a Buffer around data without copying it.
func Wrap(data []float64, shape ...int) (*Buffer, error) {
	n, err := count(shape)
	if err != nil {
		return nil, err
	} else if n != len(data) {
		return nil, fmt.Errorf("%w: %d elements for shape %v", ErrShapeMismatch, len(data), shape)
	}
	return &Buffer{Data: data, Shape: append([]int(nil), shape...)}, nil
}

// New allocates a zeroed Buffer of the given shape.
func New(shape ...int) (*Buffer, error) {
	n, err := count(shape)
	if err != nil {
		return nil, err
	}

	if uint64(n) > memory.TotalMemory()/elemSize {
		return nil, fmt.Errorf("%w: %d elements requested", ErrAllocation, n)
	}

	return &Buffer{
		Data:  make([]float64, n),
		Shape: append([]int(nil), shape...),
	}, nil
}

func count(shape []int) (int, error) {
	n := 1
	for _, dim := range shape {
		if dim < 0 {
			return 0, fmt.Errorf("%w: negative dimension in %v", ErrShapeMismatch, shape)
		} else if dim != 0 && n > math.MaxInt/dim {
			return 0, fmt.Errorf("%w: element count of %v overflows", ErrShapeMismatch, shape)
		}
		n *= dim
	}
	return n, nil
}

// Rank returns the number of dimensions.
func (b *Buffer) Rank() int {
	return len(b.Shape)
}

// Len returns the total number of elements described by the shape,
// or -1 if the shape is invalid.
func (b *Buffer) Len() int {
	n, err := count(b.Shape)
	if err != nil {
		return -1
	}
	return n
}

// Bytes returns the size in bytes of the buffer data.
func (b *Buffer) Bytes() uint64 {
	return uint64(len(b.Data)) * elemSize
}

// Dims returns rows and columns of a rank 2 buffer, for rank 1
// buffers the single dimension is returned as rows with one column.
func (b *Buffer) Dims() (r, c int) {
	switch len(b.Shape) {
	case 1:
		return b.Shape[0], 1
	case 2:
		return b.Shape[0], b.Shape[1]
	}
	return 0, 0
}

// Validate checks that the data length matches the shape.
func (b *Buffer) Validate() error {
	if n, err := count(b.Shape); err != nil {
		return err
	} else if n != len(b.Data) {
		return fmt.Errorf("%w: %d elements for shape %v", ErrShapeMismatch, len(b.Data), b.Shape)
	}
	return nil
}

// Equal returns whether two buffers have the same shape and elements.
func (b *Buffer) Equal(o *Buffer) bool {
	if len(b.Shape) != len(o.Shape) || len(b.Data) != len(o.Data) {
		return false
	}
	for i, dim := range b.Shape {
		if o.Shape[i] != dim {
			return false
		}
	}
	for i, v := range b.Data {
		if o.Data[i] != v {
			return false
		}
	}
	return true
}

func (b *Buffer) String() string {
	return fmt.Sprintf("buffer%v", b.Shape)
}
