package normalize

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/fvapprox/algebra"
	"github.com/hupe1980/fvapprox/mask"
	"github.com/hupe1980/fvapprox/model"
)

// SignedSqrt returns sign(x)·sqrt(|x|) for every element.
func SignedSqrt(data *mat.Dense) *mat.Dense {
	if empty(data) {
		return &mat.Dense{}
	}
	out := mat.DenseCopyOf(data)
	out.Apply(func(_, _ int, x float64) float64 {
		if x < 0 {
			return -math.Sqrt(-x)
		}
		return math.Sqrt(x)
	}, out)
	return out
}

// ApproxSignedSqrt divides every visual word block of data by the square
// root of that word's count. Blocks with a zero count become zero.
func ApproxSignedSqrt(data, counts *mat.Dense, vw *mask.Mask) (*mat.Dense, error) {
	if empty(data) && empty(counts) {
		return &mat.Dense{}, nil
	}
	r, c := data.Dims()
	if err := vw.CheckItems("data columns", c); err != nil {
		return nil, err
	}
	if cr, cc := counts.Dims(); cr != r || cc != vw.Groups() {
		return nil, &model.ShapeError{What: "counts", Expected: [2]int{r, vw.Groups()}, Actual: [2]int{cr, cc}}
	}
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		cnt := counts.RawRowView(i)
		dst, src := out.RawRowView(i), data.RawRowView(i)
		for j, x := range src {
			dst[j] = algebra.GuardedDiv(x, math.Sqrt(cnt[vw.GroupOf(j)]))
		}
	}
	return out, nil
}

// L2Normalize divides every row by its Euclidean norm. Zero rows stay zero.
func L2Normalize(data *mat.Dense) *mat.Dense {
	if empty(data) {
		return &mat.Dense{}
	}
	out := mat.DenseCopyOf(data)
	r, _ := out.Dims()
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		if n := floats.Norm(row, 2); n > 0 {
			floats.Scale(1/n, row)
		}
	}
	return out
}
