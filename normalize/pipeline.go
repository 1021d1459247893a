package normalize

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/fvapprox/algebra"
	"github.com/hupe1980/fvapprox/mask"
	"github.com/hupe1980/fvapprox/model"
)

// Pipeline normalizes video-level vectors built from slices: signed
// square-rooting, optional standardization, then L2 normalization. It is
// used on training data, where vectors are materialized.
type Pipeline struct {
	Sqrt        SqrtMode
	L2          L2Mode
	Standardize bool
}

// Validate rejects unknown modes.
func (p Pipeline) Validate() error {
	if err := p.Sqrt.Validate(); err != nil {
		return err
	}
	return p.L2.Validate()
}

// Normalized is the output of Pipeline.Normalize.
type Normalized struct {
	// Videos is V × 2DK, one normalized vector per video.
	Videos *mat.Dense
	// Counts is V × K, the descriptor-weighted mean counts.
	Counts *mat.Dense
	// Scaler is set when the pipeline standardizes.
	Scaler *Scaler
}

// Normalize averages slices into videos (weighted by descriptor count)
// and normalizes the result.
func (p Pipeline) Normalize(slices model.SliceData, videos, vw *mask.Mask) (*Normalized, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	data, err := algebra.WeightedMean(slices.FisherVectors, slices.NrDescriptors, videos)
	if err != nil {
		return nil, fmt.Errorf("average fisher vectors: %w", err)
	}
	counts, err := algebra.WeightedMean(slices.Counts, slices.NrDescriptors, videos)
	if err != nil {
		return nil, fmt.Errorf("average counts: %w", err)
	}

	switch p.Sqrt {
	case SqrtExact:
		data = SignedSqrt(data)
	case SqrtApprox:
		if data, err = ApproxSignedSqrt(data, counts, vw); err != nil {
			return nil, err
		}
	}

	out := &Normalized{Counts: counts}
	sliceFV := slices.FisherVectors
	if p.Standardize {
		out.Scaler = FitScaler(data)
		if data, err = out.Scaler.Transform(data); err != nil {
			return nil, err
		}
		if p.L2 == L2Approx {
			if sliceFV, err = out.Scaler.Transform(sliceFV); err != nil {
				return nil, err
			}
		}
	}

	switch p.L2 {
	case L2Exact:
		data = L2Normalize(data)
	case L2Approx:
		sliceSq, err := VisualWordSqContribution(sliceFV, vw)
		if err != nil {
			return nil, err
		}
		sq, err := algebra.WeightedMeanSq(sliceSq, slices.NrDescriptors, videos)
		if err != nil {
			return nil, err
		}
		normCounts := counts
		if p.Sqrt == SqrtNone {
			r, c := counts.Dims()
			normCounts = mat.NewDense(r, c, nil)
			normCounts.Apply(func(_, _ int, _ float64) float64 { return 1 }, normCounts)
		}
		if data, err = ApproxL2Normalize(data, sq, normCounts); err != nil {
			return nil, err
		}
	}
	out.Videos = data
	return out, nil
}
