// Package moebius implements the Möbius map of points relative to a
// direction μ and a shrinkage ρ:
//
//	y(x) = (1-ρ²)(x+ρμ) / (1 + 2ρ(x·μ) + ρ²) + ρμ
//
// For unit x, unit μ and ρ in (-1, 1) the map sends the unit sphere onto
// itself; pushing uniform points through it yields the spherical Cauchy
// distribution.
package moebius

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrRho       = errors.New("moebius: rho must be finite and lie in (-1, 1)")
	ErrNonFinite = errors.New("moebius: mu contains NaN or Inf")
	ErrDimension = errors.New("moebius: mu length does not match the number of columns")
	ErrSingular  = errors.New("moebius: zero denominator")
)

// Transform applies the Möbius map to every row of the n x d matrix X and
// returns the result as a new n x d matrix. X is never modified.
//
// Transform does not validate its arguments: |rho| >= 1 or a row whose
// denominator is zero yields Inf or NaN elements. It panics with
// mat.ErrShape if mu.Len() differs from the number of columns of X.
func Transform(X mat.Matrix, mu mat.Vector, rho float64) *mat.Dense {
	Y, _ := transform(X, mu, rho)
	return Y
}

// TransformChecked is Transform with its domain enforced, it returns
// ErrRho, ErrNonFinite, ErrDimension or ErrSingular instead of producing
// invalid values.
func TransformChecked(X mat.Matrix, mu mat.Vector, rho float64) (*mat.Dense, error) {
	if math.IsNaN(rho) || math.Abs(rho) >= 1 {
		return nil, fmt.Errorf("%w: got %v", ErrRho, rho)
	} else if _, d := X.Dims(); mu.Len() != d {
		return nil, fmt.Errorf("%w: %d != %d", ErrDimension, mu.Len(), d)
	}

	for i := 0; i < mu.Len(); i++ {
		if v := mu.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: element %d", ErrNonFinite, i)
		}
	}

	Y, denom := transform(X, mu, rho)
	for i, v := range denom {
		if v == 0 {
			return nil, fmt.Errorf("%w: row %d", ErrSingular, i)
		}
	}
	return Y, nil
}

// transform returns the mapped matrix along with the per row denominators.
func transform(X mat.Matrix, mu mat.Vector, rho float64) (*mat.Dense, []float64) {
	n, d := X.Dims()
	if mu.Len() != d {
		panic(mat.ErrShape)
	} else if n == 0 || d == 0 {
		return &mat.Dense{}, nil
	}

	shift := mat.NewVecDense(d, nil)
	shift.ScaleVec(rho, mu)

	// 1 + 2ρ(Xμ) + ρ²
	dots := mat.NewVecDense(n, nil)
	dots.MulVec(X, mu)
	denom := make([]float64, n)
	floats.ScaleTo(denom, 2*rho, dots.RawVector().Data)
	floats.AddConst(1+rho*rho, denom)

	var Y mat.Dense
	eachRowAdd(&Y, X, shift)
	Y.Scale(1-rho*rho, &Y)
	eachColDiv(&Y, denom)
	eachRowAdd(&Y, &Y, shift)

	return &Y, denom
}
