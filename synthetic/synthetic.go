// Package synthetic generates blob-clustered slice data and matching
// linear classifiers for smoke tests and demos.
package synthetic

import (
	"fmt"
	"math/rand/v2"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/fvapprox/classifier"
	"github.com/hupe1980/fvapprox/model"
)

// Config controls the generated dataset.
type Config struct {
	Layout  model.Layout
	Videos  int
	Classes int
	// Slices per video are drawn uniformly from [MinSlices, MaxSlices].
	MinSlices int
	MaxSlices int
	// Spread is the standard deviation of slices around their class center.
	Spread float64
	Seed   uint64
}

// DefaultConfig mirrors a small debugging dataset: 100 videos in 5 classes
// with 20-dimensional Fisher vectors.
func DefaultConfig() Config {
	return Config{
		Layout:    model.Layout{D: 5, K: 2},
		Videos:    100,
		Classes:   5,
		MinSlices: 1,
		MaxSlices: 8,
		Spread:    1,
		Seed:      0,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Layout.Validate(); err != nil {
		return err
	}
	switch {
	case c.Videos < 1:
		return fmt.Errorf("%w: videos %d", model.ErrInvalidArgument, c.Videos)
	case c.Classes < 1:
		return fmt.Errorf("%w: classes %d", model.ErrInvalidArgument, c.Classes)
	case c.MinSlices < 1 || c.MaxSlices < c.MinSlices:
		return fmt.Errorf("%w: slices per video [%d, %d]", model.ErrInvalidArgument, c.MinSlices, c.MaxSlices)
	case c.Spread < 0:
		return fmt.Errorf("%w: spread %v", model.ErrInvalidArgument, c.Spread)
	}
	return nil
}

// Dataset is a generated test split with its classifiers.
type Dataset struct {
	Slices   model.SliceData
	NrSlices []int
	// Centers holds one class center per row.
	Centers     *mat.Dense
	Classifiers classifier.Set

	cfg Config
}

// Generate builds a dataset. Equal configurations yield equal datasets.
func Generate(cfg Config) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, 0x5eed))
	dim := cfg.Layout.Dim()

	centers := mat.NewDense(cfg.Classes, dim, nil)
	for c := 0; c < cfg.Classes; c++ {
		row := centers.RawRowView(c)
		for j := range row {
			row[j] = 10 * (2*rng.Float64() - 1)
		}
	}

	s, nrSlices := sample(rng, cfg, centers)

	classifiers, err := centerClassifiers(centers)
	if err != nil {
		return nil, err
	}
	return &Dataset{Slices: s, NrSlices: nrSlices, Centers: centers, Classifiers: classifiers, cfg: cfg}, nil
}

// Split draws another set of videos around the same class centers, such as
// a training split. Slices carry their class in Labels.
func (d *Dataset) Split(videos int, seed uint64) (model.SliceData, []int, error) {
	cfg := d.cfg
	cfg.Videos = videos
	if err := cfg.Validate(); err != nil {
		return model.SliceData{}, nil, err
	}
	rng := rand.New(rand.NewPCG(seed, 0x5911))
	s, nrSlices := sample(rng, cfg, d.Centers)
	return s, nrSlices, nil
}

func sample(rng *rand.Rand, cfg Config, centers *mat.Dense) (model.SliceData, []int) {
	dim, k := cfg.Layout.Dim(), cfg.Layout.K
	nrSlices := make([]int, cfg.Videos)
	var n int
	for v := range nrSlices {
		nrSlices[v] = cfg.MinSlices + rng.IntN(cfg.MaxSlices-cfg.MinSlices+1)
		n += nrSlices[v]
	}

	s := model.SliceData{
		FisherVectors: mat.NewDense(n, dim, nil),
		Counts:        mat.NewDense(n, k, nil),
		NrDescriptors: make([]float64, n),
		GroupIDs:      make([]string, n),
		Labels:        make([]int, n),
	}
	i := 0
	for v, ns := range nrSlices {
		label := rng.IntN(cfg.Classes)
		center := centers.RawRowView(label)
		id := "video-" + strconv.Itoa(v)
		for range ns {
			fv := s.FisherVectors.RawRowView(i)
			for j := range fv {
				fv[j] = center[j] + cfg.Spread*rng.NormFloat64()
			}
			counts := s.Counts.RawRowView(i)
			var total float64
			for j := range counts {
				counts[j] = rng.ExpFloat64()
				total += counts[j]
			}
			for j := range counts {
				counts[j] /= total
			}
			s.NrDescriptors[i] = float64(1 + rng.IntN(200))
			s.GroupIDs[i] = id
			s.Labels[i] = label
			i++
		}
	}
	return s, nrSlices
}

// centerClassifiers builds one model per class whose weight is the negated
// class center, expressed as a dual solution over the centers, so that
// −⟨x, w⟩ grows with the alignment of x and the center.
func centerClassifiers(centers *mat.Dense) (classifier.Set, error) {
	classes, _ := centers.Dims()
	set := make(classifier.Set, classes)
	for c := range set {
		alpha := make([]float64, classes)
		alpha[c] = -1
		m, err := classifier.FromDual(c, alpha, centers, 0, nil)
		if err != nil {
			return nil, err
		}
		set[c] = m
	}
	return set, nil
}
