package wrapper

import (
	"github.com/spheroids/spheroids/buffer"

	"gonum.org/v1/gonum/mat"
)

// ToVector returns a vector aliasing the buffer memory. A rank 2 buffer
// is flattened in its row-major order.
func ToVector(b *buffer.Buffer) (*mat.VecDense, error) {
	if rank := b.Rank(); rank != 1 && rank != 2 {
		return nil, &buffer.ShapeError{Rank: rank, Msg: "expected a 1D or 2D vector"}
	} else if err := b.Validate(); err != nil {
		return nil, err
	}

	n := b.Len()
	if n == 0 {
		// gonum refuses zero length constructors, the zero value is its empty vector
		return &mat.VecDense{}, nil
	}
	return mat.NewVecDense(n, b.Data), nil
}

// VectorToBuffer copies v into a new rank 1 buffer.
func VectorToBuffer(v mat.Vector) (*buffer.Buffer, error) {
	n := v.Len()
	b, err := buffer.New(n)
	if err != nil {
		return nil, err
	} else if n > 0 {
		mat.NewVecDense(n, b.Data).CopyVec(v)
	}
	return b, nil
}
