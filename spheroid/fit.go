package spheroid

import (
	"math"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

const (
	maxIterations = 200
	gradThreshold = 1e-8
	// starting concentration when the data mean is degenerate
	fallbackRho = 0.5
)

// MStepPKBD maximizes the weighted PKBD log-likelihood of the rows of X
// starting from (mu0, rho0).
func MStepPKBD(X mat.Matrix, weights mat.Vector, mu0 mat.Vector, rho0 float64) (*Estimate, error) {
	return MStep(PKBD, X, weights, mu0, rho0)
}

// MStepSCauchy maximizes the weighted spherical Cauchy log-likelihood of
// the rows of X starting from their weighted mean.
func MStepSCauchy(X mat.Matrix, weights mat.Vector) (*Estimate, error) {
	return MStep(SCauchy, X, weights, nil, 0)
}

// MStep maximizes the weighted log-likelihood of the rows of X under
// model. Weights are normalized to sum to one. If mu0 is nil the search
// starts from the weighted mean of the rows, otherwise from rho0*mu0.
//
// The search runs over η in R^d with γ = ρμ = η/(1+|η|), which keeps
// every candidate inside the unit ball.
func MStep(model Model, X mat.Matrix, weights mat.Vector, mu0 mat.Vector, rho0 float64) (*Estimate, error) {
	n, d := X.Dims()
	w, err := normalizeWeights(weights, n)
	if err != nil {
		return nil, err
	}

	var gamma0 []float64
	if mu0 != nil {
		if err := checkRho(rho0); err != nil {
			return nil, err
		}
		u, err := unitDirection(mu0, d)
		if err != nil {
			return nil, err
		}
		gamma0 = make([]float64, d)
		floats.ScaleTo(gamma0, rho0, u.RawVector().Data)
	} else if d == 0 {
		return nil, ErrZeroDirection
	} else {
		gamma0 = weightedMean(X, w)
	}

	ll := make([]float64, n)
	gamma := make([]float64, d)
	objective := func(eta []float64) float64 {
		fromEta(gamma, eta)
		logLikInto(ll, model, X, gamma)
		return -floats.Dot(w, ll)
	}

	grad := &fd.Settings{Formula: fd.Central}
	problem := optimize.Problem{
		Func: objective,
		Grad: func(dst, eta []float64) {
			fd.Gradient(dst, objective, eta, grad)
		},
	}
	settings := &optimize.Settings{
		GradientThreshold: gradThreshold,
		MajorIterations:   maxIterations,
	}

	result, err := optimize.Minimize(problem, toEta(gamma0), settings, &optimize.BFGS{})
	if result == nil {
		return nil, err
	} else if err != nil {
		log.Debugf("%s m-step stopped with status %v: %v", model, result.Status, err)
	}

	log.Debugf("%s m-step: %d iterations, f=%g", model, result.Stats.MajorIterations, result.F)

	eta := result.X
	norm := floats.Norm(eta, 2)
	est := &Estimate{
		Rho:    norm / (1 + norm),
		LogLik: -result.F,
	}
	if norm > 0 {
		est.Mu = mat.NewVecDense(d, nil)
		est.Mu.ScaleVec(1/norm, mat.NewVecDense(d, eta))
	} else if mu0 != nil {
		est.Mu, _ = unitDirection(mu0, d)
	} else {
		est.Mu = mat.NewVecDense(d, nil)
		est.Mu.SetVec(0, 1)
	}
	return est, nil
}

// weightedMean returns Xᵀw pulled strictly inside the unit ball.
func weightedMean(X mat.Matrix, w []float64) []float64 {
	_, d := X.Dims()
	mean := mat.NewVecDense(d, nil)
	mean.MulVec(X.T(), mat.NewVecDense(len(w), w))

	m := mean.RawVector().Data
	if norm := floats.Norm(m, 2); norm >= 1 {
		floats.Scale(fallbackRho/norm, m)
	}
	return m
}

// toEta inverts γ = η/(1+|η|).
func toEta(gamma []float64) []float64 {
	eta := make([]float64, len(gamma))
	norm := floats.Norm(gamma, 2)
	if norm > 0 {
		floats.ScaleTo(eta, 1/(1-math.Min(norm, 1-1e-12)), gamma)
	}
	return eta
}

func fromEta(dst, eta []float64) {
	floats.ScaleTo(dst, 1/(1+floats.Norm(eta, 2)), eta)
}
