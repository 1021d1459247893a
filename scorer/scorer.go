package scorer

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/fvapprox/algebra"
	"github.com/hupe1980/fvapprox/classifier"
	"github.com/hupe1980/fvapprox/mask"
	"github.com/hupe1980/fvapprox/model"
	"github.com/hupe1980/fvapprox/normalize"
)

type options struct {
	mode   normalize.PredictionMode
	sqrt   normalize.SqrtMode
	scaler *normalize.Scaler
}

// Option configures a Scorer.
type Option func(*options)

// WithMode selects exact or approximate prediction. Defaults to exact.
func WithMode(m normalize.PredictionMode) Option {
	return func(o *options) { o.mode = m }
}

// WithSqrt selects the square-root applied by exact prediction.
// Defaults to normalize.SqrtExact.
func WithSqrt(m normalize.SqrtMode) Option {
	return func(o *options) { o.sqrt = m }
}

// WithScaler applies a standardization fit on training data. Exact mode
// scales video vectors after square-rooting; approximate mode scales slice
// vectors up front.
func WithScaler(s *normalize.Scaler) Option {
	return func(o *options) { o.scaler = s }
}

// Scorer scores videos for any number of classes. It is safe for
// concurrent use.
type Scorer struct {
	opts   options
	videos *mask.Mask
	vw     *mask.Mask

	// exact mode
	normalized *mat.Dense

	// approximate mode
	fv     *mat.Dense
	nd     []float64
	counts *mat.Dense
	sq     *mat.Dense
}

// New validates the configuration and precomputes everything that does not
// depend on the class. slices may be raw or aggregated slices; videos maps
// their rows to videos and vw maps Fisher vector dimensions to visual words.
func New(slices model.SliceData, videos, vw *mask.Mask, optFns ...Option) (*Scorer, error) {
	opts := options{mode: normalize.PredictExact, sqrt: normalize.SqrtExact}
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.mode.Validate(); err != nil {
		return nil, err
	}
	if err := opts.sqrt.Validate(); err != nil {
		return nil, err
	}
	if vw == nil || videos == nil {
		return nil, fmt.Errorf("%w: video and visual word masks are required", model.ErrInvalidArgument)
	}
	if slices.Len() == 0 {
		return nil, fmt.Errorf("%w: no slices to score", model.ErrInvalidArgument)
	}
	if err := videos.CheckItems("slice rows", slices.Len()); err != nil {
		return nil, err
	}

	s := &Scorer{opts: opts, videos: videos, vw: vw}
	var err error
	switch opts.mode {
	case normalize.PredictExact:
		err = s.prepareExact(slices)
	case normalize.PredictApprox:
		err = s.prepareApprox(slices)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scorer) prepareExact(slices model.SliceData) error {
	data, err := algebra.WeightedMean(slices.FisherVectors, slices.NrDescriptors, s.videos)
	if err != nil {
		return fmt.Errorf("average video vectors: %w", err)
	}
	switch s.opts.sqrt {
	case normalize.SqrtExact:
		data = normalize.SignedSqrt(data)
	case normalize.SqrtApprox:
		counts, err := algebra.WeightedMean(slices.Counts, slices.NrDescriptors, s.videos)
		if err != nil {
			return fmt.Errorf("average video counts: %w", err)
		}
		if data, err = normalize.ApproxSignedSqrt(data, counts, s.vw); err != nil {
			return err
		}
	}
	if s.opts.scaler != nil {
		if data, err = s.opts.scaler.Transform(data); err != nil {
			return err
		}
	}
	s.normalized = normalize.L2Normalize(data)
	return nil
}

func (s *Scorer) prepareApprox(slices model.SliceData) error {
	fv := slices.FisherVectors
	var err error
	if s.opts.scaler != nil {
		if fv, err = s.opts.scaler.Transform(fv); err != nil {
			return err
		}
	}
	if s.sq, err = normalize.VisualWordSqContribution(fv, s.vw); err != nil {
		return fmt.Errorf("squared contributions: %w", err)
	}
	if r, c := slices.Counts.Dims(); c != s.vw.Groups() {
		return &model.ShapeError{What: "counts", Expected: [2]int{r, s.vw.Groups()}, Actual: [2]int{r, c}}
	}
	s.fv = fv
	s.nd = slices.NrDescriptors
	s.counts = slices.Counts
	return nil
}

// Mode returns the prediction mode.
func (s *Scorer) Mode() normalize.PredictionMode { return s.opts.mode }

// Videos returns the number of videos scored per class.
func (s *Scorer) Videos() int { return s.videos.Groups() }

// Score returns one decision value per video for the given class model.
func (s *Scorer) Score(m classifier.Model) ([]float64, error) {
	if s.opts.mode == normalize.PredictExact {
		return m.Predict(s.normalized)
	}

	neg := make([]float64, len(m.Weight))
	floats.ScaleTo(neg, -1, m.Weight)
	partial, err := normalize.VisualWordLinearScore(s.fv, neg, s.vw)
	if err != nil {
		return nil, err
	}
	scores, err := normalize.ApproximateVideoScore(partial, s.counts, s.sq, s.nd, s.videos)
	if err != nil {
		return nil, err
	}
	floats.AddConst(m.Bias, scores)
	return scores, nil
}
