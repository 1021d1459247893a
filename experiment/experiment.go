package experiment

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/hupe1980/fvapprox/algebra"
	"github.com/hupe1980/fvapprox/model"
)

// Config is an experiment grid.
type Config struct {
	Ns       []int
	Ds       []int
	Repeats  int
	Sampling Sampling
	Seed     uint64
	// Workers bounds the number of grid cells run concurrently.
	Workers int
}

// Validate checks the grid.
func (c Config) Validate() error {
	if len(c.Ns) == 0 || len(c.Ds) == 0 {
		return fmt.Errorf("%w: empty experiment grid", model.ErrInvalidArgument)
	}
	for _, n := range c.Ns {
		if n < 1 {
			return fmt.Errorf("%w: sample count %d", model.ErrInvalidArgument, n)
		}
	}
	for _, d := range c.Ds {
		if d < 1 {
			return fmt.Errorf("%w: dimension %d", model.ErrInvalidArgument, d)
		}
	}
	if c.Repeats < 1 {
		return fmt.Errorf("%w: repeats %d", model.ErrInvalidArgument, c.Repeats)
	}
	return nil
}

// Trial is one repetition.
type Trial struct {
	True   float64
	Approx float64
}

// AbsError returns |approx − true|.
func (t Trial) AbsError() float64 { return math.Abs(t.Approx - t.True) }

// RelError returns the absolute error in percent of the true value.
func (t Trial) RelError() float64 { return algebra.GuardedDiv(t.AbsError(), t.True) * 100 }

// Result summarizes one grid cell.
type Result struct {
	N, D   int
	Trials []Trial

	MeanAbs, StdErrAbs float64
	MeanRel, StdErrRel float64
}

// SquaredNorms returns the true squared L2 norm of the mean row of data and
// its approximation Σ‖x_i‖²/N².
func SquaredNorms(data *mat.Dense) (exact, approx float64, err error) {
	n, _ := data.Dims()
	ones := make([]float64, n)
	floats.AddConst(1, ones)

	mean, err := algebra.WeightedMean(data, ones, nil)
	if err != nil {
		return 0, 0, err
	}
	m := mean.RawRowView(0)
	exact = floats.Dot(m, m)

	sq := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		row := data.RawRowView(i)
		sq.Set(i, 0, floats.Dot(row, row))
	}
	meanSq, err := algebra.WeightedMeanSq(sq, ones, nil)
	if err != nil {
		return 0, 0, err
	}
	return exact, meanSq.At(0, 0), nil
}

// Cell runs cfg.Repeats trials for one (n, d) pair with its own seed.
func Cell(s Sampling, n, d, repeats int, seed uint64) (Result, error) {
	rng := rand.New(rand.NewPCG(seed, uint64(n)<<32|uint64(d)))
	res := Result{N: n, D: d, Trials: make([]Trial, repeats)}
	for i := range res.Trials {
		exact, approx, err := SquaredNorms(s.Generate(rng, n, d))
		if err != nil {
			return Result{}, err
		}
		res.Trials[i] = Trial{True: exact, Approx: approx}
	}
	res.summarize()
	return res, nil
}

func (r *Result) summarize() {
	abs := make([]float64, len(r.Trials))
	rel := make([]float64, len(r.Trials))
	for i, t := range r.Trials {
		abs[i], rel[i] = t.AbsError(), t.RelError()
	}
	r.MeanAbs, r.StdErrAbs = meanStdErr(abs)
	r.MeanRel, r.StdErrRel = meanStdErr(rel)
}

// meanStdErr returns the sample mean and the standard error of the mean,
// std/√N with the unbiased std. Error bars that divide std by N instead
// are smaller by a factor of √N and not comparable with these.
func meanStdErr(xs []float64) (mean, stderr float64) {
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 {
		return mean, 0
	}
	return mean, stat.StdErr(std, float64(len(xs)))
}

// Run evaluates every (N, D) cell of the grid. Results are ordered by D,
// then N, as given in cfg. Each cell uses a seed derived from cfg.Seed and
// its own shape, so results do not depend on scheduling.
func Run(ctx context.Context, cfg Config) ([]Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	results := make([]Result, len(cfg.Ds)*len(cfg.Ns))
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Workers > 0 {
		g.SetLimit(cfg.Workers)
	}
	for i, d := range cfg.Ds {
		for j, n := range cfg.Ns {
			idx := i*len(cfg.Ns) + j
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := Cell(cfg.Sampling, n, d, cfg.Repeats, cfg.Seed)
				if err != nil {
					return fmt.Errorf("cell N=%d D=%d: %w", n, d, err)
				}
				results[idx] = res
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
