package scorer

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/fvapprox/classifier"
	"github.com/hupe1980/fvapprox/resource"
)

// WorkerError reports the class whose scoring aborted a batch.
type WorkerError struct {
	Class int
	Cause error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("score class %d: %v", e.Class, e.Cause)
}

func (e *WorkerError) Unwrap() error { return e.Cause }

// Results maps class id to per-video scores.
type Results map[int][]float64

// Classes returns the class ids in ascending order.
func (r Results) Classes() []int {
	return slices.Sorted(maps.Keys(r))
}

// Append concatenates the scores of other after those of r, class by
// class. It is used to join results computed over consecutive chunks of
// videos.
func (r Results) Append(other Results) {
	for cls, scores := range other {
		r[cls] = append(r[cls], scores...)
	}
}

// Hook observes every finished class.
type Hook func(cls int, elapsed time.Duration, err error)

type batchOptions struct {
	rc   *resource.Controller
	hook Hook
}

// BatchOption configures ScoreAll.
type BatchOption func(*batchOptions)

// WithController bounds the number of concurrently scored classes by the
// controller's worker slots.
func WithController(rc *resource.Controller) BatchOption {
	return func(o *batchOptions) { o.rc = rc }
}

// WithHook installs a per-class observer. It may be called concurrently.
func WithHook(h Hook) BatchOption {
	return func(o *batchOptions) { o.hook = h }
}

// ScoreAll scores every class of src concurrently.
//
// Classes are independent; results are keyed by class id. The first
// failure cancels the remaining classes and is returned as a *WorkerError;
// no partial results are returned in that case.
func (s *Scorer) ScoreAll(ctx context.Context, src classifier.Source, optFns ...BatchOption) (Results, error) {
	var opts batchOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	rc := opts.rc
	if rc == nil {
		rc = resource.NewController(resource.Config{})
	}

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	results := make(Results, src.NumClasses())

	for cls := 0; cls < src.NumClasses(); cls++ {
		if err := rc.AcquireWorker(gctx); err != nil {
			break
		}
		g.Go(func() error {
			defer rc.ReleaseWorker()
			start := time.Now()
			scores, err := s.scoreClass(src, cls)
			if opts.hook != nil {
				opts.hook(cls, time.Since(start), err)
			}
			if err != nil {
				return &WorkerError{Class: cls, Cause: err}
			}
			mu.Lock()
			results[cls] = scores
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Scorer) scoreClass(src classifier.Source, cls int) (scores []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	m, err := src.Model(cls)
	if err != nil {
		return nil, err
	}
	return s.Score(m)
}
