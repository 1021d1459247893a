package main

import (
	"fmt"

	"github.com/hupe1980/fvapprox"
	"github.com/hupe1980/fvapprox/aggregate"
	"github.com/hupe1980/fvapprox/classifier"
	"github.com/hupe1980/fvapprox/mask"
	"github.com/hupe1980/fvapprox/model"
	"github.com/hupe1980/fvapprox/normalize"
)

// trained holds what a training split contributes to an evaluation.
type trained struct {
	scaler *normalize.Scaler
	models classifier.Set
	videos int
}

// train normalizes the training split the way cfg normalizes test videos,
// with the given L2 mode, and fits one centroid classifier per class in
// that space. The scaler is set when cfg standardizes.
func train(cfg fvapprox.Config, l2 normalize.L2Mode, slices model.SliceData, classes int) (*trained, error) {
	if slices.Labels == nil {
		return nil, fmt.Errorf("%w: training slices need labels", fvapprox.ErrInvalidArgument)
	}
	sqrt, err := normalize.ParseSqrtMode(cfg.Sqrt)
	if err != nil {
		return nil, err
	}
	vw, err := mask.VisualWord(cfg.Layout())
	if err != nil {
		return nil, err
	}
	videos, _ := aggregate.Videos(slices.GroupIDs)
	p := normalize.Pipeline{Sqrt: sqrt, L2: l2, Standardize: cfg.Standardize}
	norm, err := p.Normalize(slices, videos, vw)
	if err != nil {
		return nil, err
	}

	labels := make([]int, videos.Groups())
	sizes := make([]int, classes)
	for v := range labels {
		l := slices.Labels[videos.First(v)]
		if l < 0 || l >= classes {
			return nil, fmt.Errorf("%w: label %d out of range [0, %d)", fvapprox.ErrInvalidArgument, l, classes)
		}
		labels[v] = l
		sizes[l]++
	}

	models := make(classifier.Set, classes)
	alpha := make([]float64, len(labels))
	for c := range models {
		for v, l := range labels {
			alpha[v] = 0
			if l == c {
				alpha[v] = -1 / float64(sizes[c])
			}
		}
		if models[c], err = classifier.FromDual(c, alpha, norm.Videos, 0, nil); err != nil {
			return nil, err
		}
	}
	return &trained{scaler: norm.Scaler, models: models, videos: len(labels)}, nil
}
