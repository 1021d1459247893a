package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/fvapprox/mask"
	"github.com/hupe1980/fvapprox/model"
	"github.com/hupe1980/fvapprox/testutil"
)

func mustVW(t *testing.T, d, k int) *mask.Mask {
	t.Helper()
	vw, err := mask.VisualWord(model.Layout{D: d, K: k})
	require.NoError(t, err)
	return vw
}

func identity(n int) *mask.Mask {
	m, _ := mask.Chunk(n, 1)
	return m
}

// exactScore computes -<normalize(fv), w> for a single video row.
func exactScore(t *testing.T, fv, counts *mat.Dense, w []float64, vw *mask.Mask, sqrt SqrtMode) []float64 {
	t.Helper()
	data := fv
	var err error
	switch sqrt {
	case SqrtExact:
		data = SignedSqrt(fv)
	case SqrtApprox:
		data, err = ApproxSignedSqrt(fv, counts, vw)
		require.NoError(t, err)
	}
	data = L2Normalize(data)
	r, _ := data.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = -floats.Dot(data.RawRowView(i), w)
	}
	return out
}

func negate(w []float64) []float64 {
	out := make([]float64, len(w))
	floats.ScaleTo(out, -1, w)
	return out
}

func TestSignedSqrt(t *testing.T) {
	got := SignedSqrt(mat.NewDense(1, 4, []float64{4, -9, 0, 0.25}))
	assert.Equal(t, []float64{2, -3, 0, 0.5}, mat.Row(nil, 0, got))
}

func TestL2Normalize(t *testing.T) {
	got := L2Normalize(mat.NewDense(2, 2, []float64{3, 4, 0, 0}))
	assert.InDeltaSlice(t, []float64{0.6, 0.8}, mat.Row(nil, 0, got), 1e-12)
	assert.Equal(t, []float64{0, 0}, mat.Row(nil, 1, got))
}

func TestVisualWordSqContribution(t *testing.T) {
	vw := mustVW(t, 1, 2)
	fv := mat.NewDense(1, 4, []float64{1, 2, 3, 4})
	got, err := VisualWordSqContribution(fv, vw)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20}, mat.Row(nil, 0, got))
	assert.Equal(t, []float64{1, 2, 3, 4}, mat.Row(nil, 0, fv))
}

func TestVisualWordLinearScore(t *testing.T) {
	vw := mustVW(t, 1, 2)
	fv := mat.NewDense(1, 4, []float64{1, 2, 3, 4})
	got, err := VisualWordLinearScore(fv, []float64{1, 1, 2, -1}, vw)
	require.NoError(t, err)
	assert.Equal(t, []float64{7, -2}, mat.Row(nil, 0, got))

	_, err = VisualWordLinearScore(fv, []float64{1}, vw)
	assert.ErrorIs(t, err, model.ErrShapeMismatch)
}

func TestApproxSignedSqrt(t *testing.T) {
	vw := mustVW(t, 1, 2)
	fv := mat.NewDense(1, 4, []float64{2, 3, 4, 6})
	counts := mat.NewDense(1, 2, []float64{4, 0})
	got, err := ApproxSignedSqrt(fv, counts, vw)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 2, 0}, mat.Row(nil, 0, got))

	_, err = ApproxSignedSqrt(fv, mat.NewDense(1, 3, nil), vw)
	assert.ErrorIs(t, err, model.ErrShapeMismatch)
}

func TestApproxL2Norm(t *testing.T) {
	sq := mat.NewDense(3, 2, []float64{
		4, 9,
		4, 9,
		4, 9,
	})
	counts := mat.NewDense(3, 2, []float64{
		2, 3,
		2, 0,
		0, 0,
	})
	got, err := ApproxL2Norm(sq, counts)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 2, 0}, got)

	_, err = ApproxL2Norm(sq, mat.NewDense(2, 2, nil))
	assert.ErrorIs(t, err, model.ErrShapeMismatch)
}

func TestApproxL2Normalize(t *testing.T) {
	data := mat.NewDense(2, 2, []float64{2, 4, 1, 1})
	sq := mat.NewDense(2, 1, []float64{16, 5})
	counts := mat.NewDense(2, 1, []float64{4, 0})
	got, err := ApproxL2Normalize(data, sq, counts)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2}, mat.Row(nil, 0, got), 1e-12)
	assert.Equal(t, []float64{0, 0}, mat.Row(nil, 1, got))
}

func TestApproximateVideoScore_ZeroCountsAreSafe(t *testing.T) {
	scores := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	counts := mat.NewDense(3, 2, nil)
	sq := mat.NewDense(3, 2, []float64{1, 1, 1, 1, 1, 1})
	videos, _ := mask.Aggregation([]string{"a", "a", "b"})

	got, err := ApproximateVideoScore(scores, counts, sq, []float64{1, 2, 3}, videos)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, got)

	// Zero descriptor totals are also safe.
	got, err = ApproximateVideoScore(scores, counts, sq, []float64{0, 0, 0}, videos)
	require.NoError(t, err)
	testutil.AllFinite(t, got)
}

func TestApproximateVideoScore_SkipsZeroCountWords(t *testing.T) {
	scores := mat.NewDense(1, 2, []float64{2, 100})
	counts := mat.NewDense(1, 2, []float64{4, 0})
	sq := mat.NewDense(1, 2, []float64{16, 100})

	got, err := ApproximateVideoScore(scores, counts, sq, []float64{7}, nil)
	require.NoError(t, err)
	// (2/2) / sqrt(16/4)
	assert.InDeltaSlice(t, []float64{0.5}, got, 1e-12)
}

func TestApproximateVideoScore_ShapeMismatch(t *testing.T) {
	a := mat.NewDense(2, 2, nil)
	_, err := ApproximateVideoScore(a, mat.NewDense(2, 3, nil), a, []float64{1, 1}, nil)
	assert.ErrorIs(t, err, model.ErrShapeMismatch)

	videos, _ := mask.Aggregation([]int{0, 0, 1})
	_, err = ApproximateVideoScore(a, a, a, []float64{1, 1}, videos)
	assert.ErrorIs(t, err, model.ErrShapeMismatch)
}

func TestDegenerateExactness(t *testing.T) {
	// Each video is a single (aggregated) row; the decoupled norm is then
	// exact and both pipelines must agree when square-rooting by counts.
	tests := []struct {
		name   string
		d, k   int
		fv     []float64
		counts []float64
		w      []float64
	}{
		{"K1", 2, 1, []float64{0.5, -1, 2, 0.25}, []float64{0.3}, []float64{1, 2, -1, 0.5}},
		{"K2", 1, 2, []float64{1, -2, 0.5, 3}, []float64{0.25, 0.75}, []float64{-1, 0.5, 2, 1}},
		{"K2ZeroWord", 1, 2, []float64{1, 0, 0.5, 0}, []float64{0.5, 0}, []float64{-1, 0.5, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vw := mustVW(t, tt.d, tt.k)
			fv := mat.NewDense(1, len(tt.fv), tt.fv)
			counts := mat.NewDense(1, tt.k, tt.counts)

			scores, err := VisualWordLinearScore(fv, negate(tt.w), vw)
			require.NoError(t, err)
			sq, err := VisualWordSqContribution(fv, vw)
			require.NoError(t, err)

			approx, err := ApproximateVideoScore(scores, counts, sq, []float64{42}, identity(1))
			require.NoError(t, err)
			exact := exactScore(t, fv, counts, tt.w, vw, SqrtApprox)
			assert.InDeltaSlice(t, exact, approx, 1e-12)
		})
	}
}

func TestApproximateVideoScore_RepeatedRowsInflateScore(t *testing.T) {
	// One video of three identical rows weighted by descriptor counts.
	// The squared contributions are averaged with squared weights, so the
	// approximate norm shrinks by Σnd²/(Σnd)² and the score grows by its
	// inverse square root relative to the exact pipeline.
	vw := mustVW(t, 2, 1)
	row := []float64{0.5, -1, 2, 0.25}
	w := []float64{1, 2, -1, 0.5}
	nd := []float64{10, 20, 30}

	fv := mat.NewDense(3, 4, nil)
	counts := mat.NewDense(3, 1, []float64{0.4, 0.4, 0.4})
	for i := range nd {
		fv.SetRow(i, row)
	}
	videos, _ := mask.Aggregation([]string{"v", "v", "v"})

	scores, err := VisualWordLinearScore(fv, negate(w), vw)
	require.NoError(t, err)
	sq, err := VisualWordSqContribution(fv, vw)
	require.NoError(t, err)
	approx, err := ApproximateVideoScore(scores, counts, sq, nd, videos)
	require.NoError(t, err)

	exact := exactScore(t, mat.NewDense(1, 4, row), mat.NewDense(1, 1, []float64{0.4}), w, vw, SqrtApprox)
	factor := floats.Sum(nd) / math.Sqrt(floats.Dot(nd, nd))
	assert.InDelta(t, 60/math.Sqrt(1400), factor, 1e-12)
	assert.InDeltaSlice(t, []float64{exact[0] * factor}, approx, 1e-12)

	// A single pre-aggregated row removes the gap.
	single, err := ApproximateVideoScore(
		mat.NewDense(1, 1, []float64{scores.At(0, 0)}),
		mat.NewDense(1, 1, []float64{0.4}),
		mat.NewDense(1, 1, []float64{sq.At(0, 0)}),
		[]float64{floats.Sum(nd)}, identity(1))
	require.NoError(t, err)
	assert.InDeltaSlice(t, exact, single, 1e-12)
}

func TestEmptyInputs(t *testing.T) {
	vw := mustVW(t, 2, 1)
	none := &mat.Dense{}

	require.NotPanics(t, func() {
		assert.True(t, SignedSqrt(none).IsEmpty())
		assert.True(t, L2Normalize(none).IsEmpty())
	})

	sq, err := VisualWordSqContribution(none, vw)
	require.NoError(t, err)
	assert.True(t, sq.IsEmpty())

	scores, err := VisualWordLinearScore(none, make([]float64, 4), vw)
	require.NoError(t, err)
	assert.True(t, scores.IsEmpty())
	_, err = VisualWordLinearScore(none, make([]float64, 3), vw)
	assert.ErrorIs(t, err, model.ErrShapeMismatch)

	out, err := ApproxSignedSqrt(none, none, vw)
	require.NoError(t, err)
	assert.True(t, out.IsEmpty())

	out, err = ApproxL2Normalize(none, none, none)
	require.NoError(t, err)
	assert.True(t, out.IsEmpty())
}

func TestApproximateVideoScore_ManyVideos(t *testing.T) {
	// Three single-row videos with K=1 and identical counts.
	vw := mustVW(t, 2, 1)
	fv := mat.NewDense(3, 4, []float64{
		1, 2, 3, 4,
		-1, 0.5, 0, 2,
		0.1, 0.1, 0.1, 0.1,
	})
	counts := mat.NewDense(3, 1, []float64{0.5, 0.5, 0.5})
	w := []float64{0.2, -0.4, 1, 0.3}

	scores, err := VisualWordLinearScore(fv, negate(w), vw)
	require.NoError(t, err)
	sq, err := VisualWordSqContribution(fv, vw)
	require.NoError(t, err)

	approx, err := ApproximateVideoScore(scores, counts, sq, []float64{10, 20, 30}, identity(3))
	require.NoError(t, err)
	assert.InDeltaSlice(t, exactScore(t, fv, counts, w, vw, SqrtApprox), approx, 1e-12)
}

func TestScaler(t *testing.T) {
	data := mat.NewDense(4, 2, []float64{
		1, 5,
		-1, 5,
		1, 5,
		-1, 5,
	})
	s := FitScaler(data)
	assert.InDeltaSlice(t, []float64{1, 1}, s.Scale(), 1e-12)

	s = NewScaler([]float64{2, 4})
	got, err := s.Transform(mat.NewDense(1, 2, []float64{2, 2}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0.5}, mat.Row(nil, 0, got))

	w, err := s.InverseScaleWeights([]float64{4, 4})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 1}, w)

	_, err = s.Transform(mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, model.ErrShapeMismatch)
}

func TestFitScaler_Spread(t *testing.T) {
	data := mat.NewDense(2, 1, []float64{0, 4})
	assert.InDeltaSlice(t, []float64{2}, FitScaler(data).Scale(), 1e-12)
}

func TestPipeline(t *testing.T) {
	vw := mustVW(t, 1, 2)
	slices := model.SliceData{
		FisherVectors: mat.NewDense(3, 4, []float64{
			1, 2, 3, 4,
			3, 2, 1, 0,
			-1, 1, -1, 1,
		}),
		Counts:        mat.NewDense(3, 2, []float64{0.5, 0.5, 0.25, 0.75, 1, 0}),
		NrDescriptors: []float64{1, 1, 2},
		GroupIDs:      []string{"a", "a", "b"},
	}
	videos, _ := mask.Aggregation(slices.GroupIDs)

	t.Run("ExactExact", func(t *testing.T) {
		out, err := Pipeline{Sqrt: SqrtExact, L2: L2Exact}.Normalize(slices, videos, vw)
		require.NoError(t, err)
		assert.Nil(t, out.Scaler)
		for i := 0; i < 2; i++ {
			assert.InDelta(t, 1.0, floats.Norm(out.Videos.RawRowView(i), 2), 1e-12)
		}
		// Video a averages rows 0 and 1: (2, 2, 2, 2) → sqrt → unit norm.
		assert.InDeltaSlice(t, []float64{0.5, 0.5, 0.5, 0.5}, mat.Row(nil, 0, out.Videos), 1e-12)
		assert.InDeltaSlice(t, []float64{0.375, 0.625}, mat.Row(nil, 0, out.Counts), 1e-12)
	})

	t.Run("NoneNone", func(t *testing.T) {
		out, err := Pipeline{}.Normalize(slices, videos, vw)
		require.NoError(t, err)
		assert.Equal(t, []float64{-1, 1, -1, 1}, mat.Row(nil, 1, out.Videos))
	})

	t.Run("ApproxOnSingleRowVideoMatchesExactL2", func(t *testing.T) {
		approx, err := Pipeline{Sqrt: SqrtApprox, L2: L2Approx}.Normalize(slices, videos, vw)
		require.NoError(t, err)
		exact, err := Pipeline{Sqrt: SqrtApprox, L2: L2Exact}.Normalize(slices, videos, vw)
		require.NoError(t, err)
		// Video b has one slice; the approximation is exact there.
		assert.InDeltaSlice(t, mat.Row(nil, 1, exact.Videos), mat.Row(nil, 1, approx.Videos), 1e-12)
	})

	t.Run("Standardize", func(t *testing.T) {
		out, err := Pipeline{Sqrt: SqrtExact, L2: L2Approx, Standardize: true}.Normalize(slices, videos, vw)
		require.NoError(t, err)
		require.NotNil(t, out.Scaler)
		assert.Len(t, out.Scaler.Scale(), 4)
		for _, x := range out.Videos.RawMatrix().Data {
			assert.False(t, math.IsNaN(x) || math.IsInf(x, 0))
		}
	})

	t.Run("UnknownMode", func(t *testing.T) {
		_, err := Pipeline{Sqrt: SqrtMode(5)}.Normalize(slices, videos, vw)
		assert.ErrorIs(t, err, model.ErrUnknownMode)
	})
}

func TestDegenerateExactness_Random(t *testing.T) {
	rng := testutil.NewRNG(7)
	layout := model.Layout{D: 3, K: 4}
	vw := mustVW(t, layout.D, layout.K)

	nrSlices := make([]int, 25)
	for i := range nrSlices {
		nrSlices[i] = 1
	}
	data := rng.SliceData(layout, nrSlices, 1)
	w := rng.Weights(layout.Dim())

	scores, err := VisualWordLinearScore(data.FisherVectors, negate(w), vw)
	require.NoError(t, err)
	sq, err := VisualWordSqContribution(data.FisherVectors, vw)
	require.NoError(t, err)
	approx, err := ApproximateVideoScore(scores, data.Counts, sq, data.NrDescriptors, identity(len(nrSlices)))
	require.NoError(t, err)

	testutil.AllFinite(t, approx)
	assert.InDeltaSlice(t, exactScore(t, data.FisherVectors, data.Counts, w, vw, SqrtApprox), approx, 1e-9)
}
