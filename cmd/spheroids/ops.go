package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"sort"
	"strconv"

	"github.com/spheroids/spheroids/buffer"
	"github.com/spheroids/spheroids/moebius"
	"github.com/spheroids/spheroids/spheroid"
	"github.com/spheroids/spheroids/wrapper"

	"github.com/dustin/go-humanize"
	"github.com/evilsocket/islazy/log"
	"github.com/evilsocket/islazy/str"
	"github.com/evilsocket/islazy/tui"
	"gonum.org/v1/gonum/mat"
)

type config struct {
	mu      *mat.VecDense
	rho     float64
	checked bool
	weights *buffer.Buffer
	samples   int
	k         int
	minWeight float64
	src       rand.Source
}

type opCb func(cfg *config, in *buffer.Buffer) (*buffer.Buffer, error)

type op struct {
	Name        string
	Description string
	NeedsInput  bool
	Callback    opCb
}

var ops = map[string]op{}

func register(o op) {
	ops[o.Name] = o
}

func opNames() []string {
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	register(op{
		Name:        "info",
		Description: "Print shape and size of the input buffers.",
		NeedsInput:  true,
		Callback:    doInfo,
	})
	register(op{
		Name:        "moebius",
		Description: "Apply the Möbius transform with -mu and -rho to every row of the input.",
		NeedsInput:  true,
		Callback:    doMoebius,
	})
	for _, model := range []spheroid.Model{spheroid.PKBD, spheroid.SCauchy} {
		model := model
		register(op{
			Name:        "loglik-" + model.String(),
			Description: fmt.Sprintf("Per row %s log-likelihood with -mu and -rho.", model),
			NeedsInput:  true,
			Callback: func(cfg *config, in *buffer.Buffer) (*buffer.Buffer, error) {
				return doLogLik(model, cfg, in)
			},
		})
		register(op{
			Name:        "fit-" + model.String(),
			Description: fmt.Sprintf("Weighted %s maximum likelihood, outputs mu followed by rho.", model),
			NeedsInput:  true,
			Callback: func(cfg *config, in *buffer.Buffer) (*buffer.Buffer, error) {
				return doFit(model, cfg, in)
			},
		})
		register(op{
			Name:        "cluster-" + model.String(),
			Description: fmt.Sprintf("Fit a -k components %s mixture, outputs one weight, rho, mu row per component.", model),
			NeedsInput:  true,
			Callback: func(cfg *config, in *buffer.Buffer) (*buffer.Buffer, error) {
				return doCluster(model, cfg, in)
			},
		})
		register(op{
			Name:        "sample-" + model.String(),
			Description: fmt.Sprintf("Draw -n %s samples with -mu and -rho.", model),
			Callback: func(cfg *config, _ *buffer.Buffer) (*buffer.Buffer, error) {
				return doSample(model, cfg)
			},
		})
	}
}

func printOps() {
	rows := make([][]string, 0, len(ops))
	for _, name := range opNames() {
		rows = append(rows, []string{name, ops[name].Description})
	}
	tui.Table(os.Stdout, []string{"operation", "description"}, rows)
}

func parseVector(s string) (*mat.VecDense, error) {
	parts := str.SplitBy(s, ",")
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty vector '%s'", s)
	}

	data := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("element %d of '%s': %v", i, s, err)
		}
		data[i] = v
	}
	return mat.NewVecDense(len(data), data), nil
}

func (cfg *config) direction() (*mat.VecDense, error) {
	if cfg.mu == nil {
		return nil, fmt.Errorf("this operation requires -mu")
	}
	return cfg.mu, nil
}

func doInfo(cfg *config, in *buffer.Buffer) (*buffer.Buffer, error) {
	rows := [][]string{
		{"rank", fmt.Sprintf("%d", in.Rank())},
		{"shape", fmt.Sprintf("%v", in.Shape)},
		{"elements", humanize.Comma(int64(in.Len()))},
		{"size", humanize.Bytes(in.Bytes())},
	}
	if v, err := wrapper.ToVector(in); err == nil && v.Len() > 0 {
		rows = append(rows,
			[]string{"min", fmt.Sprintf("%g", mat.Min(v))},
			[]string{"max", fmt.Sprintf("%g", mat.Max(v))},
			[]string{"sum", fmt.Sprintf("%g", mat.Sum(v))},
		)
	}
	tui.Table(os.Stdout, []string{"name", "value"}, rows)
	return nil, nil
}

func doMoebius(cfg *config, in *buffer.Buffer) (*buffer.Buffer, error) {
	X, err := wrapper.ToMatrix(in)
	if err != nil {
		return nil, err
	}

	mu, err := cfg.direction()
	if err != nil {
		return nil, err
	} else if _, d := X.Dims(); d != mu.Len() {
		return nil, fmt.Errorf("mu has %d elements, the input has %d columns", mu.Len(), d)
	}

	var Y *mat.Dense
	if cfg.checked {
		if Y, err = moebius.TransformChecked(X, mu, cfg.rho); err != nil {
			return nil, err
		}
	} else {
		Y = moebius.Transform(X, mu, cfg.rho)
	}

	if Y.IsEmpty() {
		return buffer.New(in.Shape...)
	}
	return wrapper.MatrixToBuffer(Y)
}

func doLogLik(model spheroid.Model, cfg *config, in *buffer.Buffer) (*buffer.Buffer, error) {
	X, err := wrapper.ToMatrix(in)
	if err != nil {
		return nil, err
	}

	mu, err := cfg.direction()
	if err != nil {
		return nil, err
	}

	ll, err := spheroid.LogLik(model, X, mu, cfg.rho)
	if err != nil {
		return nil, err
	}

	log.Debug("%s total log-likelihood: %f", model, mat.Sum(ll))

	return wrapper.VectorToBuffer(ll)
}

func doFit(model spheroid.Model, cfg *config, in *buffer.Buffer) (*buffer.Buffer, error) {
	X, err := wrapper.ToMatrix(in)
	if err != nil {
		return nil, err
	}

	n, _ := X.Dims()
	var w mat.Vector
	if cfg.weights != nil {
		if w, err = wrapper.ToVector(cfg.weights); err != nil {
			return nil, err
		}
	} else {
		ones := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			ones.SetVec(i, 1)
		}
		w = ones
	}

	var est *spheroid.Estimate
	if model == spheroid.PKBD && cfg.mu != nil {
		est, err = spheroid.MStepPKBD(X, w, cfg.mu, cfg.rho)
	} else {
		est, err = spheroid.MStep(model, X, w, nil, 0)
	}
	if err != nil {
		return nil, err
	}

	log.Info("%s estimate: mu=%v rho=%f loglik=%f", model, mat.Formatted(est.Mu.T(), mat.Squeeze()), est.Rho, est.LogLik)

	out, err := wrapper.VectorToBuffer(est.Mu)
	if err != nil {
		return nil, err
	}
	out.Data = append(out.Data, est.Rho)
	out.Shape[0]++
	return out, nil
}

func doCluster(model spheroid.Model, cfg *config, in *buffer.Buffer) (*buffer.Buffer, error) {
	X, err := wrapper.ToMatrix(in)
	if err != nil {
		return nil, err
	}

	mix, err := spheroid.FitMixture(model, X, cfg.k, cfg.minWeight, cfg.src)
	if err != nil {
		return nil, err
	}

	_, labels, err := mix.Predict(X)
	if err != nil {
		return nil, err
	}

	sizes := make([]int, len(mix.Components))
	for _, label := range labels {
		sizes[label]++
	}

	_, d := X.Dims()
	out, err := buffer.New(len(mix.Components), d+2)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, len(mix.Components))
	for j, c := range mix.Components {
		row := out.Data[j*(d+2) : (j+1)*(d+2)]
		row[0], row[1] = c.Weight, c.Rho
		copy(row[2:], c.Mu.RawVector().Data)

		rows[j] = []string{
			fmt.Sprintf("%d", j),
			fmt.Sprintf("%.4f", c.Weight),
			fmt.Sprintf("%.4f", c.Rho),
			fmt.Sprintf("%v", mat.Formatted(c.Mu.T(), mat.Squeeze())),
			humanize.Comma(int64(sizes[j])),
		}
	}

	log.Info("%s mixture: %d components after %d iterations, loglik=%f", model, len(mix.Components), mix.Iterations, mix.LogLik)
	if *logDebug {
		tui.Table(os.Stderr, []string{"component", "weight", "rho", "mu", "size"}, rows)
	}

	return out, nil
}

func doSample(model spheroid.Model, cfg *config) (*buffer.Buffer, error) {
	mu, err := cfg.direction()
	if err != nil {
		return nil, err
	}

	Y, err := spheroid.Sample(model, cfg.samples, cfg.rho, mu, cfg.src)
	if err != nil {
		return nil, err
	}
	return wrapper.MatrixToBuffer(Y)
}
