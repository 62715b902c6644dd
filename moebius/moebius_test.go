package moebius

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/spheroids/spheroids/buffer"
	"github.com/spheroids/spheroids/wrapper"

	. "github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const epsilon = 1e-12

func randomMatrix(r *rand.Rand, n, d int) *mat.Dense {
	data := make([]float64, n*d)
	for i := range data {
		data[i] = r.NormFloat64()
	}
	return mat.NewDense(n, d, data)
}

func randomVector(r *rand.Rand, d int) *mat.VecDense {
	data := make([]float64, d)
	for i := range data {
		data[i] = r.NormFloat64()
	}
	return mat.NewVecDense(d, data)
}

func unitRows(m *mat.Dense) {
	n, _ := m.Dims()
	for i := 0; i < n; i++ {
		row := m.RawRowView(i)
		floats.Scale(1/floats.Norm(row, 2), row)
	}
}

// reference evaluates the map one row at a time.
func reference(X mat.Matrix, mu mat.Vector, rho float64) *mat.Dense {
	n, d := X.Dims()
	Y := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		dot := 0.0
		for j := 0; j < d; j++ {
			dot += X.At(i, j) * mu.AtVec(j)
		}
		den := 1 + 2*rho*dot + rho*rho
		for j := 0; j < d; j++ {
			num := (1 - rho*rho) * (X.At(i, j) + rho*mu.AtVec(j))
			Y.Set(i, j, num/den+rho*mu.AtVec(j))
		}
	}
	return Y
}

func TestTransformScenario(t *testing.T) {
	X := mat.NewDense(1, 2, []float64{1, 0})
	mu := mat.NewVecDense(2, []float64{0, 0})

	Y := Transform(X, mu, 0.5)
	InDelta(t, 0.6, Y.At(0, 0), epsilon)
	InDelta(t, 0.0, Y.At(0, 1), epsilon)
}

func TestTransformIdentityAtZero(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, d := range []int{1, 2, 3, 10} {
		X := randomMatrix(r, 17, d)
		mu := randomVector(r, d)

		Y := Transform(X, mu, 0)
		True(t, mat.Equal(X, Y), "d=%d", d)
	}
}

func TestTransformMatchesRowWise(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for _, rho := range []float64{-0.9, -0.3, 0.1, 0.5, 0.99} {
		X := randomMatrix(r, 25, 4)
		mu := randomVector(r, 4)

		Y := Transform(X, mu, rho)
		True(t, mat.EqualApprox(reference(X, mu, rho), Y, 1e-9), "rho=%f", rho)
	}
}

func TestTransformPreservesShape(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for _, shape := range [][2]int{{1, 1}, {1, 7}, {9, 2}, {64, 3}} {
		X := randomMatrix(r, shape[0], shape[1])
		mu := randomVector(r, shape[1])

		n, d := Transform(X, mu, 0.7).Dims()
		Equal(t, shape[0], n)
		Equal(t, shape[1], d)
	}
}

func TestTransformDoesNotMutateInput(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	X := randomMatrix(r, 10, 3)
	orig := mat.DenseCopyOf(X)
	mu := randomVector(r, 3)

	_ = Transform(X, mu, 0.4)
	True(t, mat.Equal(orig, X))
}

func TestTransformContinuityAtZero(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	X := randomMatrix(r, 20, 3)
	mu := randomVector(r, 3)

	prev := math.Inf(1)
	for _, rho := range []float64{1e-1, 1e-2, 1e-4, 1e-6, 1e-8} {
		var diff mat.Dense
		diff.Sub(Transform(X, mu, rho), X)
		dist := mat.Norm(&diff, math.Inf(1))
		Less(t, dist, prev, "rho=%g", rho)
		prev = dist
	}
	Less(t, prev, 1e-5)
}

func TestTransformKeepsSphere(t *testing.T) {
	r := rand.New(rand.NewSource(6))
	X := randomMatrix(r, 50, 3)
	unitRows(X)
	mu := mat.NewVecDense(3, []float64{0, 0, 1})

	for _, rho := range []float64{-0.8, 0.2, 0.95} {
		Y := Transform(X, mu, rho)
		for i := 0; i < 50; i++ {
			InDelta(t, 1.0, floats.Norm(Y.RawRowView(i), 2), 1e-9)
		}
	}
}

func TestTransformOnBufferView(t *testing.T) {
	b, err := buffer.Wrap([]float64{
		1, 0,
		0, 1,
		-1, 0,
	}, 3, 2)
	NoError(t, err)

	X, err := wrapper.ToMatrix(b)
	NoError(t, err)
	mu := mat.NewVecDense(2, []float64{1, 0})

	out, err := wrapper.MatrixToBuffer(Transform(X, mu, 0.5))
	NoError(t, err)
	Equal(t, []int{3, 2}, out.Shape)

	expected := reference(X, mu, 0.5)
	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			InDelta(t, expected.At(i, j), out.Data[i*2+j], epsilon)
		}
	}
	// a row pointing along mu is a fixed point
	InDelta(t, 1.0, out.Data[0], epsilon)
	InDelta(t, 0.0, out.Data[1], epsilon)
}

func TestTransformPermissive(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	mu := mat.NewVecDense(2, []float64{1, 0})

	// (1-ρ²) vanishes, every row collapses onto ρμ
	Y := Transform(X, mu, 1)
	True(t, mat.EqualApprox(Y, mat.NewDense(2, 2, []float64{1, 0, 1, 0}), epsilon))

	Y = Transform(mat.NewDense(1, 2, []float64{-1.25, 0}), mu, 0.5)
	True(t, math.IsNaN(Y.At(0, 0)) || math.IsInf(Y.At(0, 0), 0))
}

func TestTransformWithBadDimension(t *testing.T) {
	defer func() {
		Equal(t, mat.ErrShape, recover())
	}()
	Transform(mat.NewDense(2, 3, nil), mat.NewVecDense(2, nil), 0.5)
}

func TestTransformEmpty(t *testing.T) {
	b, err := buffer.New(0, 3)
	NoError(t, err)
	X, err := wrapper.ToMatrix(b)
	NoError(t, err)

	True(t, Transform(X, mat.NewVecDense(3, nil), 0.5).IsEmpty())
}

func TestTransformChecked(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	X := randomMatrix(r, 10, 3)
	mu := randomVector(r, 3)

	Y, err := TransformChecked(X, mu, 0.3)
	NoError(t, err)
	True(t, mat.Equal(Transform(X, mu, 0.3), Y))
}

func TestTransformCheckedRho(t *testing.T) {
	X := mat.NewDense(1, 2, []float64{1, 0})
	mu := mat.NewVecDense(2, []float64{1, 0})

	for _, rho := range []float64{1, -1, 1.5, math.NaN(), math.Inf(1)} {
		_, err := TransformChecked(X, mu, rho)
		True(t, errors.Is(err, ErrRho), "rho=%v", rho)
	}
}

func TestTransformCheckedNonFinite(t *testing.T) {
	X := mat.NewDense(1, 2, []float64{1, 0})
	mu := mat.NewVecDense(2, []float64{math.NaN(), 0})

	_, err := TransformChecked(X, mu, 0.5)
	True(t, errors.Is(err, ErrNonFinite))
}

func TestTransformCheckedDimension(t *testing.T) {
	_, err := TransformChecked(mat.NewDense(2, 3, nil), mat.NewVecDense(2, nil), 0.5)
	True(t, errors.Is(err, ErrDimension))
}

func TestTransformCheckedSingular(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{
		1, 0,
		-1.25, 0,
	})
	mu := mat.NewVecDense(2, []float64{1, 0})

	_, err := TransformChecked(X, mu, 0.5)
	True(t, errors.Is(err, ErrSingular))
	Contains(t, err.Error(), "row 1")
}

func transformWithSize(b *testing.B, size int) {
	r := rand.New(rand.NewSource(8))
	X := randomMatrix(r, size, 16)
	mu := randomVector(r, 16)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Transform(X, mu, 0.5)
	}
}

func BenchmarkTransform128(b *testing.B) {
	transformWithSize(b, 128)
}

func BenchmarkTransform1024(b *testing.B) {
	transformWithSize(b, 1024)
}
