// Package fvapprox scores videos with linear classifiers over Fisher vector
// encodings, either exactly or with a per-visual-word approximation that
// avoids materializing normalized video vectors.
//
// # Quick Start
//
//	cfg := fvapprox.DefaultConfig()
//	cfg.Mode = "approx"
//	ev, _ := fvapprox.NewEvaluator(cfg, fvapprox.WithLogger(fvapprox.NewTextLogger(slog.LevelInfo)))
//	results, _ := ev.Evaluate(ctx, slices, nrSlices, classifiers)
//	scores := results[0] // one score per video for class 0
//
// # Pipeline
//
// The Evaluator splits test slices into chunks of whole videos, aggregates
// every NAgg consecutive slices of a video, builds the video mask over the
// aggregated rows and hands them to a scorer.Scorer, which scores all
// classes concurrently. Per-class scores are concatenated in chunk order.
//
// Aggregated chunks are memoized through a cache.Cache when the config
// names a dataset. Any combination of the in-memory LRU and a blob-backed
// cache (local directory, MinIO, S3) can be plugged in:
//
//	store, _ := s3.New(ctx, "my-bucket", func(o *s3.Options) { o.Prefix = "fv/" })
//	ev, _ := fvapprox.NewEvaluator(cfg, fvapprox.WithCache(cache.NewBlobCache(store)))
//
// # Errors
//
// Shape and argument problems surface as ErrShapeMismatch and
// ErrInvalidArgument (match with errors.Is). A failing class aborts the
// whole batch with a *WorkerError naming the class.
package fvapprox
