/*
Package spheroid implements two rotationally symmetric distributions on
the unit sphere S^(d-1), both parametrized by a mean direction μ and a
concentration ρ:

	- PKBD, the Poisson kernel-based distribution, f(y) ∝ (1+ρ²-2ρ μ·y)^(-d/2)
	- SCauchy, the spherical Cauchy distribution, f(y) ∝ ((1-ρ²)/(1+ρ²-2ρ μ·y))^(d-1)

For each of them the package provides per observation log-likelihoods
(up to the normalizing constant of the uniform measure), the weighted
maximum likelihood step, a sampler and the EM fitting of finite mixtures
(FitMixture) built on top of them.
*/
package spheroid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrRho           = errors.New("spheroid: rho must lie in (-1, 1)")
	ErrZeroDirection = errors.New("spheroid: mu has zero norm")
	ErrDimension     = errors.New("spheroid: dimension mismatch")
	ErrSamples       = errors.New("spheroid: number of samples must be positive")
	ErrWeights       = errors.New("spheroid: weights must be finite, non negative and not all zero")
)

// Model selects one of the supported distributions.
type Model int

const (
	PKBD Model = iota
	SCauchy
)

func (m Model) String() string {
	switch m {
	case PKBD:
		return "pkbd"
	case SCauchy:
		return "scauchy"
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// ParseModel returns the model with the given name.
func ParseModel(name string) (Model, error) {
	switch name {
	case "pkbd":
		return PKBD, nil
	case "scauchy", "spcauchy":
		return SCauchy, nil
	}
	return 0, fmt.Errorf("spheroid: unknown model %q", name)
}

// logDensity evaluates the log density of a point given rho² and
// the kernel k = 1 + ρ² - 2ρ μ·y.
func (m Model) logDensity(d int, rho2, k float64) float64 {
	switch m {
	case PKBD:
		return math.Log(1-rho2) - float64(d)/2*math.Log(k)
	case SCauchy:
		return float64(d-1) * (math.Log(1-rho2) - math.Log(k))
	}
	panic(fmt.Sprintf("spheroid: unknown model %d", int(m)))
}

// Estimate is the outcome of a maximum likelihood step.
type Estimate struct {
	Mu  *mat.VecDense
	Rho float64
	// LogLik is the weighted mean log-likelihood at (Mu, Rho).
	LogLik float64
}

func checkRho(rho float64) error {
	if math.IsNaN(rho) || math.Abs(rho) >= 1 {
		return fmt.Errorf("%w: got %v", ErrRho, rho)
	}
	return nil
}

// unitDirection returns a normalized copy of mu.
func unitDirection(mu mat.Vector, d int) (*mat.VecDense, error) {
	if mu.Len() != d {
		return nil, fmt.Errorf("%w: mu has length %d, expected %d", ErrDimension, mu.Len(), d)
	} else if d == 0 {
		return nil, ErrZeroDirection
	}

	u := mat.VecDenseCopyOf(mu)
	norm := mat.Norm(u, 2)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, ErrZeroDirection
	}
	u.ScaleVec(1/norm, u)
	return u, nil
}

// normalizeWeights returns a copy of w scaled to sum to one.
func normalizeWeights(w mat.Vector, n int) ([]float64, error) {
	if w.Len() != n {
		return nil, fmt.Errorf("%w: %d weights for %d observations", ErrDimension, w.Len(), n)
	}

	out := make([]float64, n)
	for i := range out {
		v := w.AtVec(i)
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: weight %d is %v", ErrWeights, i, v)
		}
		out[i] = v
	}

	sum := floats.Sum(out)
	if sum <= 0 {
		return nil, ErrWeights
	}
	floats.Scale(1/sum, out)
	return out, nil
}
