package wrapper

import (
	"gonum.org/v1/gonum/mat"
)

// ColMajor is a matrix backed by a column-major slice, element (i, j)
// lives at data[j*rows+i]. It never copies the slice it is built on.
type ColMajor struct {
	rows, cols int
	data       []float64
}

// NewColMajor creates a rows x cols ColMajor aliasing data.
// It panics if len(data) != rows*cols.
func NewColMajor(rows, cols int, data []float64) *ColMajor {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		panic(mat.ErrShape)
	}
	return &ColMajor{
		rows: rows,
		cols: cols,
		data: data,
	}
}

// Dims returns the number of rows and columns.
func (m *ColMajor) Dims() (r, c int) {
	return m.rows, m.cols
}

// At returns the element at row i, column j.
func (m *ColMajor) At(i, j int) float64 {
	if uint(i) >= uint(m.rows) {
		panic(mat.ErrRowAccess)
	} else if uint(j) >= uint(m.cols) {
		panic(mat.ErrColAccess)
	}
	return m.data[j*m.rows+i]
}

// Set writes v at row i, column j of the aliased slice.
func (m *ColMajor) Set(i, j int, v float64) {
	if uint(i) >= uint(m.rows) {
		panic(mat.ErrRowAccess)
	} else if uint(j) >= uint(m.cols) {
		panic(mat.ErrColAccess)
	}
	m.data[j*m.rows+i] = v
}

// T returns a transposed view of the matrix, no element is copied.
func (m *ColMajor) T() mat.Matrix {
	return mat.Transpose{Matrix: m}
}

// RawData returns the aliased slice.
func (m *ColMajor) RawData() []float64 {
	return m.data
}
