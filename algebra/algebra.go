package algebra

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/fvapprox/mask"
	"github.com/hupe1980/fvapprox/model"
)

// GuardedDiv returns num/den, or 0 when den is 0.
func GuardedDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// newDense allocates an r × c matrix; zero-sized shapes yield an empty Dense.
func newDense(r, c int) *mat.Dense {
	if r == 0 || c == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(r, c, nil)
}

func dims(data *mat.Dense) (int, int) {
	if data == nil || data.IsEmpty() {
		return 0, 0
	}
	return data.Dims()
}

func groups(m *mask.Mask) int {
	if m == nil {
		return 1
	}
	return m.Groups()
}

func groupOf(m *mask.Mask, i int) int {
	if m == nil {
		return 0
	}
	return m.GroupOf(i)
}

func checkRows(what string, m *mask.Mask, n int) error {
	if m == nil {
		return nil
	}
	return m.CheckItems(what, n)
}

func checkCoef(coef []float64, n int) error {
	if len(coef) != n {
		return &model.ShapeError{What: "coefficients", Expected: [2]int{n, 1}, Actual: [2]int{len(coef), 1}}
	}
	return nil
}

// ReduceVec returns the group sums of v.
func ReduceVec(v []float64, m *mask.Mask) ([]float64, error) {
	if err := checkRows("vector", m, len(v)); err != nil {
		return nil, err
	}
	out := make([]float64, groups(m))
	for i, x := range v {
		out[groupOf(m, i)] += x
	}
	return out, nil
}

// Reduce sums the rows of data within each group (mask × data).
// With a nil mask it returns the column sums as a single row.
func Reduce(data *mat.Dense, m *mask.Mask) (*mat.Dense, error) {
	n, c := dims(data)
	if err := checkRows("data rows", m, n); err != nil {
		return nil, err
	}
	out := newDense(groups(m), c)
	for i := 0; i < n; i++ {
		floats.Add(out.RawRowView(groupOf(m, i)), data.RawRowView(i))
	}
	return out, nil
}

// Broadcast expands grouped rows back to items (maskᵀ × data).
// With a nil mask it returns a copy of data.
func Broadcast(data *mat.Dense, m *mask.Mask) (*mat.Dense, error) {
	g, c := dims(data)
	if m == nil {
		if g == 0 {
			return &mat.Dense{}, nil
		}
		return mat.DenseCopyOf(data), nil
	}
	if g != m.Groups() {
		return nil, &model.ShapeError{What: "grouped rows", Expected: [2]int{m.Groups(), c}, Actual: [2]int{g, c}}
	}
	out := newDense(m.Items(), c)
	for i := 0; i < m.Items(); i++ {
		copy(out.RawRowView(i), data.RawRowView(m.GroupOf(i)))
	}
	return out, nil
}

// Reweight multiplies row i of data by coef[i] divided by the total of coef
// over the group of row i.
func Reweight(data *mat.Dense, coef []float64, m *mask.Mask) (*mat.Dense, error) {
	n, c := dims(data)
	if err := checkCoef(coef, n); err != nil {
		return nil, err
	}
	totals, err := ReduceVec(coef, m)
	if err != nil {
		return nil, err
	}
	out := newDense(n, c)
	for i := 0; i < n; i++ {
		share := GuardedDiv(coef[i], totals[groupOf(m, i)])
		floats.ScaleTo(out.RawRowView(i), share, data.RawRowView(i))
	}
	return out, nil
}

// ReweightReduce reweights data by coef under coefMask and then sums the
// result under dataMask. The two masks may describe different
// granularities over the same rows.
func ReweightReduce(data *mat.Dense, coef []float64, dataMask, coefMask *mask.Mask) (*mat.Dense, error) {
	scaled, err := Reweight(data, coef, coefMask)
	if err != nil {
		return nil, err
	}
	return Reduce(scaled, dataMask)
}

// WeightedMean returns group-sum(data·coef) / group-sum(coef).
func WeightedMean(data *mat.Dense, coef []float64, m *mask.Mask) (*mat.Dense, error) {
	return weightedMean(data, coef, m, 1)
}

// WeightedMeanSq returns group-sum(data·coef²) / group-sum(coef)².
//
// Use it for quantities that are themselves squared magnitudes.
func WeightedMeanSq(data *mat.Dense, coef []float64, m *mask.Mask) (*mat.Dense, error) {
	return weightedMean(data, coef, m, 2)
}

func weightedMean(data *mat.Dense, coef []float64, m *mask.Mask, power int) (*mat.Dense, error) {
	n, c := dims(data)
	if err := checkCoef(coef, n); err != nil {
		return nil, err
	}
	if err := checkRows("data rows", m, n); err != nil {
		return nil, err
	}
	totals, err := ReduceVec(coef, m)
	if err != nil {
		return nil, err
	}
	out := newDense(groups(m), c)
	for i := 0; i < n; i++ {
		w := coef[i]
		if power == 2 {
			w *= w
		}
		floats.AddScaled(out.RawRowView(groupOf(m, i)), w, data.RawRowView(i))
	}
	for g, total := range totals {
		den := total
		if power == 2 {
			den *= den
		}
		if c == 0 {
			continue
		}
		row := out.RawRowView(g)
		if den == 0 {
			floats.Scale(0, row)
			continue
		}
		floats.Scale(1/den, row)
	}
	return out, nil
}

// ReduceColumns sums the columns of data within each group of m, mapping
// an N × Items() matrix onto N × Groups() (data × maskᵀ). The mask is
// required.
func ReduceColumns(data *mat.Dense, m *mask.Mask) (*mat.Dense, error) {
	n, c := dims(data)
	if err := m.CheckItems("data columns", c); err != nil {
		return nil, err
	}
	out := newDense(n, m.Groups())
	for i := 0; i < n; i++ {
		src := data.RawRowView(i)
		dst := out.RawRowView(i)
		for j, x := range src {
			dst[m.GroupOf(j)] += x
		}
	}
	return out, nil
}
