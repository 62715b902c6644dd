package spheroid

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	maxEMIterations = 100
	// stop when the mean log-likelihood improves less than this
	emTolerance = 1e-6
	// share of an observation's posterior given to its seed component
	seedPosterior = 0.9
)

var (
	ErrComponents = errors.New("spheroid: number of components must be between 1 and the number of observations")
	ErrMinWeight  = errors.New("spheroid: min weight must lie in [0, 1)")
)

// Component is one term of a mixture.
type Component struct {
	Weight float64
	Mu     *mat.VecDense
	Rho    float64
}

// Mixture is a finite mixture of spherical distributions of the same
// model fitted by FitMixture.
type Mixture struct {
	Model      Model
	Components []Component
	// LogLik is the total log-likelihood of the fitted observations.
	LogLik float64
	// Iterations is the number of EM iterations run.
	Iterations int
}

// FitMixture fits a k component mixture of model to the rows of X with
// the EM algorithm. Components whose mixing weight falls below minWeight
// are dropped along the way, at least one component always survives.
// Each observation starts with most of its posterior on the nearest of k
// seeds picked from the rows of X, farther rows being more likely to be
// picked. A nil src uses the global random source.
func FitMixture(model Model, X mat.Matrix, k int, minWeight float64, src rand.Source) (*Mixture, error) {
	n, d := X.Dims()
	if k < 1 || k > n {
		return nil, fmt.Errorf("%w: got %d for %d observations", ErrComponents, k, n)
	} else if math.IsNaN(minWeight) || minWeight < 0 || minWeight >= 1 {
		return nil, fmt.Errorf("%w: got %v", ErrMinWeight, minWeight)
	} else if d == 0 {
		return nil, ErrZeroDirection
	}

	W := seedPosteriors(X, k, src)
	mix := &Mixture{
		Model:      model,
		Components: make([]Component, k),
	}
	for j := range mix.Components {
		mix.Components[j].Weight = 1 / float64(k)
	}
	if err := mix.maximize(X, W, true); err != nil {
		return nil, err
	}

	prev := math.Inf(-1)
	for mix.Iterations = 1; ; mix.Iterations++ {
		if W = mix.expect(X, minWeight); W == nil {
			return nil, fmt.Errorf("spheroid: log-likelihood is not finite after %d iterations", mix.Iterations)
		}

		log.Debugf("%s mixture iteration %d: %d components, loglik=%f", model, mix.Iterations, len(mix.Components), mix.LogLik)

		if math.Abs(mix.LogLik-prev) < emTolerance*float64(n) || mix.Iterations == maxEMIterations {
			break
		}
		prev = mix.LogLik

		if err := mix.maximize(X, W, false); err != nil {
			return nil, err
		}
	}

	return mix, nil
}

// seedPosteriors returns the n x k starting posteriors.
func seedPosteriors(X mat.Matrix, k int, src rand.Source) *mat.Dense {
	n, _ := X.Dims()
	W := mat.NewDense(n, k, nil)
	if k == 1 {
		for i := 0; i < n; i++ {
			W.Set(i, 0, 1)
		}
		return W
	}

	// closeness[i] is the highest cosine between row i and any seed
	closeness := make([]float64, n)
	nearest := make([]int, n)
	dist := make([]float64, n)
	for j := 0; j < k; j++ {
		for i := range dist {
			if j == 0 {
				dist[i] = 1
			} else {
				dist[i] = (1 - closeness[i]) * (1 - closeness[i])
			}
		}
		if floats.Sum(dist) <= 0 {
			floats.AddConst(1, dist)
		}
		seed := mat.Row(nil, int(distuv.NewCategorical(dist, src).Rand()), X)

		for i := 0; i < n; i++ {
			if c := floats.Dot(seed, mat.Row(nil, i, X)); j == 0 || c > closeness[i] {
				closeness[i] = c
				nearest[i] = j
			}
		}
	}

	other := (1 - seedPosterior) / float64(k-1)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			if j == nearest[i] {
				W.Set(i, j, seedPosterior)
			} else {
				W.Set(i, j, other)
			}
		}
	}
	return W
}

// maximize runs one M-step per component with the columns of W as
// observation weights, and mixing weights from the column means.
func (m *Mixture) maximize(X mat.Matrix, W *mat.Dense, fromScratch bool) error {
	n, _ := X.Dims()
	for j := range m.Components {
		c := &m.Components[j]
		col := W.ColView(j)
		if mat.Sum(col) <= 0 {
			continue
		}

		var est *Estimate
		var err error
		if fromScratch {
			est, err = MStep(m.Model, X, col, nil, 0)
		} else {
			est, err = MStep(m.Model, X, col, c.Mu, c.Rho)
		}
		if err != nil {
			return fmt.Errorf("component %d: %w", j, err)
		}

		c.Mu, c.Rho = est.Mu, est.Rho
		if fromScratch {
			c.Weight = mat.Sum(col) / float64(n)
		}
	}
	return nil
}

// expect runs the E-step: it updates mixing weights and LogLik, prunes
// light components and returns the posteriors of the survivors, or nil
// if the log-likelihood is not finite.
func (m *Mixture) expect(X mat.Matrix, minWeight float64) *mat.Dense {
	joint := m.jointLogLik(X)
	W, total := posteriors(joint)
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return nil
	}

	n, k := W.Dims()
	weights := make([]float64, k)
	for j := range weights {
		weights[j] = mat.Sum(W.ColView(j)) / float64(n)
	}

	keep := make([]int, 0, k)
	for j, w := range weights {
		if w >= minWeight {
			keep = append(keep, j)
		}
	}
	if len(keep) == 0 {
		keep = append(keep, floats.MaxIdx(weights))
	}

	if len(keep) < k {
		log.Infof("%s mixture: dropping %d of %d components below weight %v", m.Model, k-len(keep), k, minWeight)

		survivors := make([]Component, len(keep))
		kept := mat.NewDense(n, len(keep), nil)
		for jj, j := range keep {
			survivors[jj] = m.Components[j]
			kept.SetCol(jj, mat.Col(nil, j, joint))
		}
		m.Components = survivors

		if W, total = posteriors(kept); math.IsNaN(total) || math.IsInf(total, 0) {
			return nil
		}
		for j := range m.Components {
			weights[j] = mat.Sum(W.ColView(j)) / float64(n)
		}
	}

	for j := range m.Components {
		m.Components[j].Weight = weights[j]
	}
	m.LogLik = total
	return W
}

// jointLogLik returns the n x k matrix of log π_j + log f_j(x_i).
func (m *Mixture) jointLogLik(X mat.Matrix) *mat.Dense {
	n, d := X.Dims()
	joint := mat.NewDense(n, len(m.Components), nil)
	ll := make([]float64, n)
	gamma := make([]float64, d)
	for j, c := range m.Components {
		floats.ScaleTo(gamma, c.Rho, c.Mu.RawVector().Data)
		logLikInto(ll, m.Model, X, gamma)
		floats.AddConst(math.Log(c.Weight), ll)
		joint.SetCol(j, ll)
	}
	return joint
}

// posteriors normalizes every row of joint with a softmax and returns
// them along with the sum of the row log-normalizers.
func posteriors(joint *mat.Dense) (*mat.Dense, float64) {
	n, k := joint.Dims()
	W := mat.NewDense(n, k, nil)
	total := 0.0
	for i := 0; i < n; i++ {
		row := joint.RawRowView(i)
		lse := floats.LogSumExp(row)
		total += lse

		w := W.RawRowView(i)
		for j, v := range row {
			w[j] = math.Exp(v - lse)
		}
	}
	return W, total
}

// Predict returns the n x k posterior probabilities of the components
// for every row of X, together with the most likely component of each
// row.
func (m *Mixture) Predict(X mat.Matrix) (*mat.Dense, []int, error) {
	n, d := X.Dims()
	if len(m.Components) == 0 {
		return nil, nil, ErrComponents
	} else if l := m.Components[0].Mu.Len(); l != d {
		return nil, nil, fmt.Errorf("%w: mixture has dimension %d, got %d columns", ErrDimension, l, d)
	} else if n == 0 {
		return &mat.Dense{}, nil, nil
	}

	W, _ := posteriors(m.jointLogLik(X))
	labels := make([]int, n)
	for i := range labels {
		labels[i] = floats.MaxIdx(W.RawRowView(i))
	}
	return W, labels, nil
}
