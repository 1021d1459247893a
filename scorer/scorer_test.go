package scorer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/fvapprox/aggregate"
	"github.com/hupe1980/fvapprox/classifier"
	"github.com/hupe1980/fvapprox/mask"
	"github.com/hupe1980/fvapprox/model"
	"github.com/hupe1980/fvapprox/normalize"
	"github.com/hupe1980/fvapprox/resource"
	"github.com/hupe1980/fvapprox/testutil"
)

// scenario is one video of three identical slices, D=2 and K=1.
func scenario(t *testing.T) (model.SliceData, *mask.Mask) {
	t.Helper()
	row := []float64{0.5, -1, 2, 0.25}
	fv := mat.NewDense(3, 4, nil)
	for i := 0; i < 3; i++ {
		fv.SetRow(i, row)
	}
	data := model.SliceData{
		FisherVectors: fv,
		Counts:        mat.NewDense(3, 1, []float64{0.4, 0.4, 0.4}),
		NrDescriptors: []float64{10, 20, 30},
		GroupIDs:      []string{"v", "v", "v"},
		Labels:        []int{1, 1, 1},
	}
	vw, err := mask.VisualWord(model.Layout{D: 2, K: 1})
	require.NoError(t, err)
	return data, vw
}

func TestEndToEnd_SingleAggregatedSlice(t *testing.T) {
	data, vw := scenario(t)
	agg, err := aggregate.Slices(data, 3)
	require.NoError(t, err)
	require.Equal(t, 1, agg.Len())
	assert.InDeltaSlice(t, mat.Row(nil, 0, data.FisherVectors), mat.Row(nil, 0, agg.FisherVectors), 1e-12)
	assert.Equal(t, []float64{60}, agg.NrDescriptors)

	videos, _ := aggregate.Videos(agg.GroupIDs)
	m := classifier.Model{Weight: []float64{1, -2, 0.5, 3}, Bias: 0.25}

	approx, err := New(agg, videos, vw, WithMode(normalize.PredictApprox))
	require.NoError(t, err)
	exact, err := New(agg, videos, vw, WithMode(normalize.PredictExact), WithSqrt(normalize.SqrtApprox))
	require.NoError(t, err)

	a, err := approx.Score(m)
	require.NoError(t, err)
	e, err := exact.Score(m)
	require.NoError(t, err)
	assert.InDeltaSlice(t, e, a, 1e-12)

	// The common row, square-rooted by count and L2-normalized, scored directly.
	row := mat.Row(nil, 0, data.FisherVectors)
	floats.Scale(1/floats.Norm(row, 2), row)
	assert.InDelta(t, -floats.Dot(row, m.Weight)+m.Bias, a[0], 1e-12)
}

func TestExactMode_SignedSqrt(t *testing.T) {
	data, vw := scenario(t)
	videos, _ := aggregate.Videos(data.GroupIDs)
	s, err := New(data, videos, vw)
	require.NoError(t, err)
	assert.Equal(t, normalize.PredictExact, s.Mode())
	assert.Equal(t, 1, s.Videos())

	m := classifier.Model{Weight: []float64{1, 0, 0, 0}}
	got, err := s.Score(m)
	require.NoError(t, err)

	v := normalize.L2Normalize(normalize.SignedSqrt(mat.NewDense(1, 4, mat.Row(nil, 0, data.FisherVectors))))
	assert.InDelta(t, -v.At(0, 0), got[0], 1e-12)
}

func TestZeroWeightScoresBias(t *testing.T) {
	data, vw := scenario(t)
	videos, _ := aggregate.Videos(data.GroupIDs)
	m := classifier.Model{Weight: make([]float64, 4), Bias: -0.75}

	for _, mode := range []normalize.PredictionMode{normalize.PredictExact, normalize.PredictApprox} {
		t.Run(mode.String(), func(t *testing.T) {
			s, err := New(data, videos, vw, WithMode(mode))
			require.NoError(t, err)
			got, err := s.Score(m)
			require.NoError(t, err)
			assert.Equal(t, []float64{-0.75}, got)
		})
	}
}

func TestApproxMode_ZeroDescriptorVideo(t *testing.T) {
	data, vw := scenario(t)
	data.NrDescriptors = []float64{0, 0, 0}
	videos, _ := aggregate.Videos(data.GroupIDs)
	s, err := New(data, videos, vw, WithMode(normalize.PredictApprox))
	require.NoError(t, err)

	got, err := s.Score(classifier.Model{Weight: []float64{1, 1, 1, 1}, Bias: 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, got)
}

func TestNew_Validation(t *testing.T) {
	data, vw := scenario(t)
	videos, _ := aggregate.Videos(data.GroupIDs)

	_, err := New(data, videos, vw, WithMode(normalize.PredictionMode(9)))
	assert.ErrorIs(t, err, model.ErrUnknownMode)

	_, err = New(data, videos, vw, WithSqrt(normalize.SqrtMode(9)))
	assert.ErrorIs(t, err, model.ErrUnknownMode)

	other, _ := mask.Aggregation([]string{"a", "b"})
	_, err = New(data, other, vw)
	assert.ErrorIs(t, err, model.ErrShapeMismatch)

	_, err = New(data, videos, nil)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	wrongVW, err := mask.VisualWord(model.Layout{D: 1, K: 2})
	require.NoError(t, err)
	_, err = New(data, videos, wrongVW, WithMode(normalize.PredictApprox))
	assert.ErrorIs(t, err, model.ErrShapeMismatch)
}

func TestNew_NoSlices(t *testing.T) {
	_, vw := scenario(t)
	videos, _ := aggregate.Videos(nil)
	data := model.SliceData{FisherVectors: &mat.Dense{}, Counts: &mat.Dense{}}

	for _, m := range []normalize.PredictionMode{normalize.PredictExact, normalize.PredictApprox} {
		t.Run(m.String(), func(t *testing.T) {
			var err error
			require.NotPanics(t, func() { _, err = New(data, videos, vw, WithMode(m)) })
			assert.ErrorIs(t, err, model.ErrInvalidArgument)
		})
	}
}

func TestWithScaler(t *testing.T) {
	data, vw := scenario(t)
	videos, _ := aggregate.Videos(data.GroupIDs)
	scaler := normalize.NewScaler([]float64{2, 2, 2, 2})
	m := classifier.Model{Weight: []float64{1, -2, 0.5, 3}}

	// A uniform scale cancels under L2 normalization.
	plain, err := New(data, videos, vw, WithMode(normalize.PredictApprox))
	require.NoError(t, err)
	scaled, err := New(data, videos, vw, WithMode(normalize.PredictApprox), WithScaler(scaler))
	require.NoError(t, err)

	a, err := plain.Score(m)
	require.NoError(t, err)
	b, err := scaled.Score(m)
	require.NoError(t, err)
	assert.InDeltaSlice(t, a, b, 1e-12)

	_, err = New(data, videos, vw, WithScaler(normalize.NewScaler([]float64{1})))
	assert.ErrorIs(t, err, model.ErrShapeMismatch)
}

func multiVideo(t *testing.T) (model.SliceData, *mask.Mask, *mask.Mask) {
	t.Helper()
	data := model.SliceData{
		FisherVectors: mat.NewDense(4, 4, []float64{
			1, 2, 3, 4,
			-1, 0.5, 0, 2,
			0.1, 0.2, 0.3, 0.4,
			2, -2, 1, -1,
		}),
		Counts:        mat.NewDense(4, 2, []float64{0.5, 0.5, 0.2, 0.8, 1, 0, 0.3, 0.7}),
		NrDescriptors: []float64{5, 10, 3, 8},
		GroupIDs:      []string{"a", "a", "b", "c"},
	}
	vw, err := mask.VisualWord(model.Layout{D: 1, K: 2})
	require.NoError(t, err)
	videos, _ := aggregate.Videos(data.GroupIDs)
	return data, videos, vw
}

func TestScoreAll(t *testing.T) {
	data, videos, vw := multiVideo(t)
	src := classifier.Set{
		{Weight: []float64{1, 0, 0, 0}, Bias: 0},
		{Weight: []float64{0, 1, 0, 0}, Bias: 1},
		{Weight: []float64{0, 0, 0, 0}, Bias: -1},
	}

	for _, mode := range []normalize.PredictionMode{normalize.PredictExact, normalize.PredictApprox} {
		t.Run(mode.String(), func(t *testing.T) {
			s, err := New(data, videos, vw, WithMode(mode))
			require.NoError(t, err)

			var calls atomic.Int32
			results, err := s.ScoreAll(context.Background(), src,
				WithController(resource.NewController(resource.Config{MaxWorkers: 2})),
				WithHook(func(int, time.Duration, error) { calls.Add(1) }),
			)
			require.NoError(t, err)
			assert.Equal(t, []int{0, 1, 2}, results.Classes())
			assert.Equal(t, int32(3), calls.Load())

			for cls := range src {
				m, err := src.Model(cls)
				require.NoError(t, err)
				want, err := s.Score(m)
				require.NoError(t, err)
				assert.Equal(t, want, results[cls])
				assert.Len(t, results[cls], 3)
			}
			assert.Equal(t, []float64{-1, -1, -1}, results[2])
		})
	}
}

type failingSource struct {
	classifier.Set
	fail  int
	panic bool
}

func (f failingSource) Model(cls int) (classifier.Model, error) {
	if cls == f.fail {
		if f.panic {
			panic("boom")
		}
		return classifier.Model{}, errors.New("no model")
	}
	return f.Set.Model(cls)
}

func TestScoreAll_WorkerFailureAbortsBatch(t *testing.T) {
	data, videos, vw := multiVideo(t)
	set := classifier.Set{
		{Weight: []float64{1, 0, 0, 0}},
		{Weight: []float64{1, 0, 0, 0}},
		{Weight: []float64{1, 0, 0, 0}},
	}
	s, err := New(data, videos, vw)
	require.NoError(t, err)

	for _, panics := range []bool{false, true} {
		results, err := s.ScoreAll(context.Background(), failingSource{Set: set, fail: 1, panic: panics})
		require.Error(t, err)
		assert.Nil(t, results)

		var we *WorkerError
		require.ErrorAs(t, err, &we)
		assert.Equal(t, 1, we.Class)
		assert.Contains(t, err.Error(), "class 1")
	}
}

func TestScoreAll_WrongWeightSize(t *testing.T) {
	data, videos, vw := multiVideo(t)
	s, err := New(data, videos, vw, WithMode(normalize.PredictApprox))
	require.NoError(t, err)

	_, err = s.ScoreAll(context.Background(), classifier.Set{{Weight: []float64{1}}})
	var we *WorkerError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, 0, we.Class)
	assert.ErrorIs(t, err, model.ErrShapeMismatch)
}

func TestScoreAll_Canceled(t *testing.T) {
	data, videos, vw := multiVideo(t)
	s, err := New(data, videos, vw)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.ScoreAll(ctx, classifier.Set{{Weight: []float64{1, 0, 0, 0}}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScoreAll_ConcurrencyBound(t *testing.T) {
	data, videos, vw := multiVideo(t)
	s, err := New(data, videos, vw)
	require.NoError(t, err)

	set := make(classifier.Set, 16)
	for i := range set {
		set[i] = classifier.Model{Weight: []float64{1, 1, 1, 1}}
	}

	var (
		mu       sync.Mutex
		inFlight int
		peak     int
	)
	src := observingSource{Set: set, enter: func() {
		mu.Lock()
		inFlight++
		peak = max(peak, inFlight)
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
	}}

	_, err = s.ScoreAll(context.Background(), src,
		WithController(resource.NewController(resource.Config{MaxWorkers: 3})))
	require.NoError(t, err)
	assert.LessOrEqual(t, peak, 3)
}

type observingSource struct {
	classifier.Set
	enter func()
}

func (o observingSource) Model(cls int) (classifier.Model, error) {
	o.enter()
	return o.Set.Model(cls)
}

func TestResults_Append(t *testing.T) {
	r := Results{0: {1, 2}}
	r.Append(Results{0: {3}, 1: {4}})
	assert.Equal(t, Results{0: {1, 2, 3}, 1: {4}}, r)
	assert.Equal(t, []int{0, 1}, r.Classes())
}

func TestScoreAll_RandomMatchesScore(t *testing.T) {
	rng := testutil.NewRNG(5)
	layout := model.Layout{D: 4, K: 3}
	nrSlices := []int{3, 7, 1, 4, 4}
	data := rng.SliceData(layout, nrSlices, 2)
	agg, err := aggregate.Slices(data, 2)
	require.NoError(t, err)
	videos, err := aggregate.VideoMask(nrSlices, 2)
	require.NoError(t, err)
	vw, err := mask.VisualWord(layout)
	require.NoError(t, err)

	set := make(classifier.Set, 6)
	for i := range set {
		set[i] = classifier.Model{Weight: rng.Weights(layout.Dim()), Bias: rng.Float64()}
	}

	for _, mode := range []normalize.PredictionMode{normalize.PredictExact, normalize.PredictApprox} {
		s, err := New(agg, videos, vw, WithMode(mode))
		require.NoError(t, err)
		res, err := s.ScoreAll(context.Background(), set, WithController(resource.NewController(resource.Config{MaxWorkers: 2})))
		require.NoError(t, err)
		require.Equal(t, []int{0, 1, 2, 3, 4, 5}, res.Classes())
		for cls, m := range set {
			want, err := s.Score(m)
			require.NoError(t, err)
			assert.Equal(t, want, res[cls], "%s class %d", mode, cls)
			testutil.AllFinite(t, res[cls])
		}
	}
}
