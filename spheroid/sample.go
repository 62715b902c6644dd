package spheroid

import (
	"math"
	"math/rand/v2"

	"github.com/spheroids/spheroids/moebius"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sample draws n points from model, see SamplePKBD and SampleSCauchy.
func Sample(model Model, n int, rho float64, mu mat.Vector, src rand.Source) (*mat.Dense, error) {
	if model == PKBD {
		return SamplePKBD(n, rho, mu, src)
	}
	return SampleSCauchy(n, rho, mu, src)
}

// SampleSCauchy draws n points from the spherical Cauchy distribution by
// pushing uniform points on the sphere through the Möbius map. A nil src
// uses the global random source.
func SampleSCauchy(n int, rho float64, mu mat.Vector, src rand.Source) (*mat.Dense, error) {
	u, err := checkSampling(n, rho, mu)
	if err != nil {
		return nil, err
	}
	return moebius.Transform(uniformSphere(n, u.Len(), src), u, rho), nil
}

// SamplePKBD draws n points from the PKBD distribution by rejection
// sampling from an angular central Gaussian envelope ACG(I - βμμᵀ).
// A nil src uses the global random source.
func SamplePKBD(n int, rho float64, mu mat.Vector, src rand.Source) (*mat.Dense, error) {
	u, err := checkSampling(n, rho, mu)
	if err != nil {
		return nil, err
	}

	d := u.Len()
	if rho == 0 {
		return uniformSphere(n, d, src), nil
	} else if rho < 0 {
		rho = -rho
		u.ScaleVec(-1, u)
	}

	lambda := 2 * rho / (1 + rho*rho)
	beta := envelopeBeta(lambda, d)
	logM := math.Log(envelopeMax(lambda, beta))
	// z = g + s(μ·g)μ has covariance (I - βμμᵀ)⁻¹
	s := 1/math.Sqrt(1-beta) - 1

	gauss := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	unif := distuv.Uniform{Min: 0, Max: 1, Src: src}
	dir := u.RawVector().Data

	Y := mat.NewDense(n, d, nil)
	for i := 0; i < n; {
		y := Y.RawRowView(i)
		for j := range y {
			y[j] = gauss.Rand()
		}
		floats.AddScaled(y, s*floats.Dot(dir, y), dir)

		norm := floats.Norm(y, 2)
		if norm == 0 {
			continue
		}
		floats.Scale(1/norm, y)

		t := floats.Dot(dir, y)
		logRatio := float64(d) / 2 * (math.Log((1-beta*t*t)/(1-lambda*t)) - logM)
		if math.Log(unif.Rand()) <= logRatio {
			i++
		}
	}
	return Y, nil
}

func checkSampling(n int, rho float64, mu mat.Vector) (*mat.VecDense, error) {
	if n <= 0 {
		return nil, ErrSamples
	} else if err := checkRho(rho); err != nil {
		return nil, err
	}
	return unitDirection(mu, mu.Len())
}

// uniformSphere draws n points uniformly on the unit sphere of R^d.
func uniformSphere(n, d int, src rand.Source) *mat.Dense {
	gauss := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	X := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		row := X.RawRowView(i)
		for {
			for j := range row {
				row[j] = gauss.Rand()
			}
			if norm := floats.Norm(row, 2); norm > 0 {
				floats.Scale(1/norm, row)
				break
			}
		}
	}
	return X
}

// envelopeMax returns the maximum over t in [-1, 1] of
// (1 - βt²) / (1 - λt), the ratio between the PKBD kernel and the
// ACG(I - βμμᵀ) kernel before raising to the power d/2.
func envelopeMax(lambda, beta float64) float64 {
	h := func(t float64) float64 {
		return (1 - beta*t*t) / (1 - lambda*t)
	}

	m := math.Max(h(1), h(-1))
	if beta > 0 && lambda > 0 && beta >= lambda*lambda {
		// stationary point of h, the other root lies beyond 1/λ
		if t := (1 - math.Sqrt(1-lambda*lambda/beta)) / lambda; t >= -1 && t <= 1 {
			m = math.Max(m, h(t))
		}
	}
	return m
}

// envelopeBound is the log of the expected number of proposals per
// accepted sample, up to a constant.
func envelopeBound(lambda, beta float64, d int) float64 {
	return float64(d)/2*math.Log(envelopeMax(lambda, beta)) - 0.5*math.Log(1-beta)
}

// envelopeBeta picks the β in [0, 1) minimizing the rejection rate.
func envelopeBeta(lambda float64, d int) float64 {
	logistic := func(x float64) float64 {
		return 1 / (1 + math.Exp(-x))
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return envelopeBound(lambda, logistic(x[0]), d)
		},
	}

	best := 0.0
	if result, _ := optimize.Minimize(problem, []float64{0}, nil, &optimize.NelderMead{}); result != nil {
		if beta := logistic(result.X[0]); beta < 1 && envelopeBound(lambda, beta, d) < envelopeBound(lambda, best, d) {
			best = beta
		}
	}
	return best
}
