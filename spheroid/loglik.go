package spheroid

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LogLikPKBD returns the PKBD log-likelihood of every row of X.
func LogLikPKBD(X mat.Matrix, mu mat.Vector, rho float64) (*mat.VecDense, error) {
	return LogLik(PKBD, X, mu, rho)
}

// LogLikSCauchy returns the spherical Cauchy log-likelihood of every row of X.
func LogLikSCauchy(X mat.Matrix, mu mat.Vector, rho float64) (*mat.VecDense, error) {
	return LogLik(SCauchy, X, mu, rho)
}

// LogLik returns the log-likelihood of every row of X under model with
// mean direction mu (normalized internally) and concentration rho.
// Rows of X are expected to have unit norm.
func LogLik(model Model, X mat.Matrix, mu mat.Vector, rho float64) (*mat.VecDense, error) {
	n, d := X.Dims()
	if err := checkRho(rho); err != nil {
		return nil, err
	}

	u, err := unitDirection(mu, d)
	if err != nil {
		return nil, err
	} else if n == 0 {
		return &mat.VecDense{}, nil
	}

	gamma := mat.NewVecDense(d, nil)
	gamma.ScaleVec(rho, u)

	ll := make([]float64, n)
	logLikInto(ll, model, X, gamma.RawVector().Data)
	return mat.NewVecDense(n, ll), nil
}

// logLikInto stores in dst the log-likelihood of every row of X for the
// combined parameter γ = ρμ, with |γ| < 1.
func logLikInto(dst []float64, model Model, X mat.Matrix, gamma []float64) {
	n, d := X.Dims()
	if len(dst) != n || len(gamma) != d {
		panic(fmt.Sprintf("spheroid: bad lengths %d/%d for %dx%d", len(dst), len(gamma), n, d))
	}

	// k = 1 + |γ|² - 2 X·γ
	rho2 := floats.Dot(gamma, gamma)
	k := mat.NewVecDense(n, dst)
	k.MulVec(X, mat.NewVecDense(d, gamma))
	floats.Scale(-2, dst)
	floats.AddConst(1+rho2, dst)

	for i, v := range dst {
		dst[i] = model.logDensity(d, rho2, v)
	}
}
