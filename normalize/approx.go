package normalize

import (
	"math"

	"github.com/viterin/vek"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/fvapprox/algebra"
	"github.com/hupe1980/fvapprox/mask"
	"github.com/hupe1980/fvapprox/model"
)

// VisualWordSqContribution squares fv elementwise and sums the squares per
// visual word, giving an N × K matrix.
func VisualWordSqContribution(fv *mat.Dense, vw *mask.Mask) (*mat.Dense, error) {
	if empty(fv) {
		return &mat.Dense{}, nil
	}
	sq := mat.DenseCopyOf(fv)
	sq.MulElem(sq, sq)
	return algebra.ReduceColumns(sq, vw)
}

// VisualWordLinearScore multiplies every row of fv by weight elementwise and
// sums the products per visual word, giving N × K partial scores. The bias
// is not included.
func VisualWordLinearScore(fv *mat.Dense, weight []float64, vw *mask.Mask) (*mat.Dense, error) {
	if empty(fv) {
		if err := vw.CheckItems("weight", len(weight)); err != nil {
			return nil, err
		}
		return &mat.Dense{}, nil
	}
	r, c := fv.Dims()
	if len(weight) != c {
		return nil, &model.ShapeError{What: "weight", Expected: [2]int{1, c}, Actual: [2]int{1, len(weight)}}
	}
	prod := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		vek.Mul_Into(prod.RawRowView(i), fv.RawRowView(i), weight)
	}
	return algebra.ReduceColumns(prod, vw)
}

// empty reports whether m has no elements. gonum rejects zero-sized
// shapes, so such inputs map to an empty Dense instead.
func empty(m *mat.Dense) bool { return m == nil || m.IsEmpty() }

func checkSameShape(what string, a, b *mat.Dense) error {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return &model.ShapeError{What: what, Expected: [2]int{ar, ac}, Actual: [2]int{br, bc}}
	}
	return nil
}

// ApproxL2Norm returns, per row, the sum over visual words with a nonzero
// count of sq/count. It approximates the squared L2 norm of an average by
// treating visual words as independent groups.
func ApproxL2Norm(sq, counts *mat.Dense) ([]float64, error) {
	if err := checkSameShape("counts", sq, counts); err != nil {
		return nil, err
	}
	r, _ := sq.Dims()
	out := make([]float64, r)
	for i := range out {
		c := counts.RawRowView(i)
		for k, s := range sq.RawRowView(i) {
			out[i] += algebra.GuardedDiv(s, c[k])
		}
	}
	return out, nil
}

// ApproxL2Normalize divides each row of data by the square root of its
// approximate norm. Rows whose norm is zero become zero.
func ApproxL2Normalize(data, sq, counts *mat.Dense) (*mat.Dense, error) {
	if empty(data) && empty(sq) && empty(counts) {
		return &mat.Dense{}, nil
	}
	norms, err := ApproxL2Norm(sq, counts)
	if err != nil {
		return nil, err
	}
	r, c := data.Dims()
	if r != len(norms) {
		return nil, &model.ShapeError{What: "data rows", Expected: [2]int{len(norms), c}, Actual: [2]int{r, c}}
	}
	out := mat.NewDense(r, c, nil)
	for i, n := range norms {
		inv := algebra.GuardedDiv(1, math.Sqrt(n))
		dst, src := out.RawRowView(i), data.RawRowView(i)
		for j, x := range src {
			dst[j] = x * inv
		}
	}
	return out, nil
}

// ApproximateVideoScore returns one score per video (bias excluded)
// approximating the linear score of the square-rooted, L2-normalized
// video vector.
//
// sliceScores, sliceCounts and sliceSq are N × K partial statistics per
// slice; nrDescriptors weights the slices within each video of videoMask.
// Scores and counts are averaged linearly, squared contributions with
// squared weights. For each video, over words with a nonzero count:
//
//	score = Σ s/√c / √(Σ q/c)
func ApproximateVideoScore(sliceScores, sliceCounts, sliceSq *mat.Dense, nrDescriptors []float64, videoMask *mask.Mask) ([]float64, error) {
	if err := checkSameShape("slice counts", sliceScores, sliceCounts); err != nil {
		return nil, err
	}
	if err := checkSameShape("slice squared norms", sliceScores, sliceSq); err != nil {
		return nil, err
	}
	scores, err := algebra.WeightedMean(sliceScores, nrDescriptors, videoMask)
	if err != nil {
		return nil, err
	}
	counts, err := algebra.WeightedMean(sliceCounts, nrDescriptors, videoMask)
	if err != nil {
		return nil, err
	}
	sq, err := algebra.WeightedMeanSq(sliceSq, nrDescriptors, videoMask)
	if err != nil {
		return nil, err
	}

	videos := 1
	if videoMask != nil {
		videos = videoMask.Groups()
	}
	out := make([]float64, videos)
	if scores.IsEmpty() {
		return out, nil
	}
	for v := range out {
		s, c, q := scores.RawRowView(v), counts.RawRowView(v), sq.RawRowView(v)
		var sqrtScore, norm float64
		for k := range c {
			if c[k] == 0 {
				continue
			}
			sqrtScore += s[k] / math.Sqrt(c[k])
			norm += q[k] / c[k]
		}
		out[v] = algebra.GuardedDiv(sqrtScore, math.Sqrt(norm))
	}
	return out, nil
}
