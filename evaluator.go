package fvapprox

import (
	"context"
	"fmt"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/fvapprox/aggregate"
	"github.com/hupe1980/fvapprox/cache"
	"github.com/hupe1980/fvapprox/classifier"
	"github.com/hupe1980/fvapprox/mask"
	"github.com/hupe1980/fvapprox/model"
	"github.com/hupe1980/fvapprox/resource"
	"github.com/hupe1980/fvapprox/scorer"
)

// Evaluator scores test videos for every class of a classifier source.
// It is safe for concurrent use.
type Evaluator struct {
	cfg  Config
	set  settings
	opts options

	vw      *mask.Mask
	rc      *resource.Controller
	cache   cache.Cache
	decoded *lru.Cache[string, model.SliceData]
}

// NewEvaluator validates cfg and builds the evaluator.
func NewEvaluator(cfg Config, optFns ...Option) (*Evaluator, error) {
	set, err := cfg.resolve()
	if err != nil {
		return nil, err
	}

	opts := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if cfg.Standardize && opts.scaler == nil {
		return nil, fmt.Errorf("%w: standardize requires a scaler", ErrInvalidArgument)
	}
	if !cfg.Standardize {
		opts.scaler = nil
	}

	vw, err := mask.VisualWord(set.layout)
	if err != nil {
		return nil, err
	}

	e := &Evaluator{
		cfg:  cfg,
		set:  set,
		opts: opts,
		vw:   vw,
		rc:   opts.controller,
	}
	if e.rc == nil {
		e.rc = resource.NewController(resource.Config{MaxWorkers: int64(cfg.Workers)})
	}
	e.opts.logger = opts.logger.WithMode(set.mode)

	if cfg.Dataset != "" {
		e.cache = opts.cache
		if e.cache == nil {
			if e.cache, err = e.configuredCache(context.Background()); err != nil {
				return nil, err
			}
		}
		if e.cache != nil && cfg.Cache.DecodedEntries > 0 {
			if e.decoded, err = lru.New[string, model.SliceData](cfg.Cache.DecodedEntries); err != nil {
				return nil, err
			}
		}
	}
	return e, nil
}

func (e *Evaluator) configuredCache(ctx context.Context) (cache.Cache, error) {
	var layers []cache.Cache
	if e.cfg.Cache.MemoryBytes > 0 {
		layers = append(layers, cache.NewLRU(e.cfg.Cache.MemoryBytes, e.rc))
	}
	store, err := e.cfg.Cache.openStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", e.cfg.Cache.Backend, err)
	}
	if store != nil {
		layers = append(layers, cache.NewBlobCache(
			store,
			cache.WithCompression(e.set.compression),
			cache.WithController(e.rc),
		))
	}
	switch len(layers) {
	case 0:
		return nil, nil
	case 1:
		return layers[0], nil
	default:
		return cache.Chain(layers...), nil
	}
}

// Config returns the configuration the evaluator was built with.
func (e *Evaluator) Config() Config { return e.cfg }

// Evaluate scores the videos of slices for every class of src.
//
// slices holds the raw slices of all videos in video order and nrSlices
// the number of slices of each video. The result maps every class to one
// score per video, in the order of nrSlices.
func (e *Evaluator) Evaluate(ctx context.Context, slices model.SliceData, nrSlices []int, src classifier.Source) (scorer.Results, error) {
	if err := slices.Validate(e.set.layout); err != nil {
		return nil, err
	}
	if len(nrSlices) == 0 {
		return nil, fmt.Errorf("%w: no videos", ErrInvalidArgument)
	}
	total := 0
	for v, n := range nrSlices {
		if n < 1 {
			return nil, fmt.Errorf("%w: video %d has %d slices", ErrInvalidArgument, v, n)
		}
		total += n
	}
	if total != slices.Len() {
		return nil, &ShapeError{What: "slice rows", Expected: [2]int{total, 1}, Actual: [2]int{slices.Len(), 1}}
	}
	if err := aggregate.CheckRuns(slices.GroupIDs, nrSlices); err != nil {
		return nil, err
	}

	results := make(scorer.Results, src.NumClasses())
	row := 0
	for chunk, lo := 0, 0; lo < len(nrSlices); chunk, lo = chunk+1, lo+e.cfg.ChunkSize {
		counts := nrSlices[lo:min(lo+e.cfg.ChunkSize, len(nrSlices))]
		n := 0
		for _, c := range counts {
			n += c
		}
		res, err := e.scoreChunk(ctx, chunk, rows(slices, row, row+n), counts, src)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", chunk, err)
		}
		results.Append(res)
		row += n
	}
	return results, nil
}

func (e *Evaluator) scoreChunk(ctx context.Context, chunk int, part model.SliceData, nrSlices []int, src classifier.Source) (res scorer.Results, err error) {
	start := time.Now()
	var cached bool
	defer func() {
		elapsed := time.Since(start)
		e.opts.metricsCollector.RecordBatch(len(nrSlices), src.NumClasses(), elapsed, err)
		e.opts.logger.LogBatch(ctx, chunk, len(nrSlices), part.Len(), src.NumClasses(), cached, elapsed, err)
	}()

	agg, cached, err := e.aggregate(ctx, chunk, part)
	if err != nil {
		return nil, err
	}
	videos, err := aggregate.VideoMask(nrSlices, e.cfg.NAgg)
	if err != nil {
		return nil, err
	}
	sc, err := scorer.New(agg, videos, e.vw,
		scorer.WithMode(e.set.mode),
		scorer.WithSqrt(e.set.sqrt),
		scorer.WithScaler(e.opts.scaler),
	)
	if err != nil {
		return nil, err
	}
	return sc.ScoreAll(ctx, src,
		scorer.WithController(e.rc),
		scorer.WithHook(func(cls int, elapsed time.Duration, err error) {
			e.opts.metricsCollector.RecordClass(cls, elapsed, err)
			e.opts.logger.LogClassScored(ctx, cls, elapsed, err)
		}),
	)
}

// aggregate averages every NAgg slices of part, consulting the cache when
// one is configured.
func (e *Evaluator) aggregate(ctx context.Context, chunk int, part model.SliceData) (model.SliceData, bool, error) {
	if e.cache == nil {
		agg, err := aggregate.Slices(part, e.cfg.NAgg)
		return agg, false, err
	}

	key := e.cacheKey(chunk)
	if e.decoded != nil {
		if agg, ok := e.decoded.Get(key); ok {
			e.opts.metricsCollector.RecordCache(true)
			return agg, true, nil
		}
	}

	agg, ok, err := cache.LookupSlices(ctx, e.cache, key)
	if err != nil {
		return model.SliceData{}, false, fmt.Errorf("cache lookup %q: %w", key, err)
	}
	e.opts.metricsCollector.RecordCache(ok)
	if !ok {
		if agg, err = aggregate.Slices(part, e.cfg.NAgg); err != nil {
			return model.SliceData{}, false, err
		}
		if err := cache.StoreSlices(ctx, e.cache, key, agg); err != nil {
			return model.SliceData{}, false, fmt.Errorf("cache store %q: %w", key, err)
		}
	}
	if e.decoded != nil {
		e.decoded.Add(key, agg)
	}
	return agg, ok, nil
}

// cacheKey identifies an aggregated chunk. Together with the dataset name
// it fixes the rows of the chunk and how they were aggregated.
func (e *Evaluator) cacheKey(chunk int) string {
	return e.cfg.Dataset +
		"/agg-" + strconv.Itoa(e.cfg.NAgg) +
		"/chunk-" + strconv.Itoa(e.cfg.ChunkSize) +
		"-" + strconv.Itoa(chunk)
}

// rows returns a view of rows [lo, hi) of s.
func rows(s model.SliceData, lo, hi int) model.SliceData {
	_, fvCols := s.FisherVectors.Dims()
	_, countCols := s.Counts.Dims()
	out := model.SliceData{
		FisherVectors: s.FisherVectors.Slice(lo, hi, 0, fvCols).(*mat.Dense),
		Counts:        s.Counts.Slice(lo, hi, 0, countCols).(*mat.Dense),
		NrDescriptors: s.NrDescriptors[lo:hi],
		GroupIDs:      s.GroupIDs[lo:hi],
	}
	if s.Labels != nil {
		out.Labels = s.Labels[lo:hi]
	}
	return out
}
