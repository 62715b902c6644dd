package wrapper

import (
	"github.com/spheroids/spheroids/buffer"

	"gonum.org/v1/gonum/mat"
)

// ToMatrix returns an n x d matrix aliasing a row-major n x d buffer.
//
// Row-major (n, d) memory read column-major is a (d, n) matrix, so the
// buffer is wrapped as a d x n ColMajor and the transposed view of it
// is returned. Writes to the buffer are visible through the view.
func ToMatrix(b *buffer.Buffer) (mat.Matrix, error) {
	if rank := b.Rank(); rank != 2 {
		return nil, &buffer.ShapeError{Rank: rank, Msg: "expected a 2D matrix"}
	} else if err := b.Validate(); err != nil {
		return nil, err
	}

	n, d := b.Dims()
	return NewColMajor(d, n, b.Data).T(), nil
}

// MatrixToBuffer copies m into a new row-major rank 2 buffer.
func MatrixToBuffer(m mat.Matrix) (*buffer.Buffer, error) {
	r, c := m.Dims()
	b, err := buffer.New(r, c)
	if err != nil {
		return nil, err
	} else if r == 0 || c == 0 {
		return b, nil
	}

	// the store behind a transposed ColMajor is already row-major
	if t, ok := m.(mat.Transpose); ok {
		if cm, ok := t.Matrix.(*ColMajor); ok {
			copy(b.Data, cm.data)
			return b, nil
		}
	}

	mat.NewDense(r, c, b.Data).Copy(m)
	return b, nil
}
