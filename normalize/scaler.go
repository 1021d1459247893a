package normalize

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/hupe1980/fvapprox/model"
)

// Scaler rescales every column to unit variance without centering it.
//
// It is fit on training video vectors and applied unchanged to test data.
// Because it is linear per column, it can be applied to slice vectors
// before aggregation with the same effect as after.
type Scaler struct {
	scale []float64
}

// FitScaler computes the population standard deviation of every column.
// Constant columns get a scale of 1.
func FitScaler(data *mat.Dense) *Scaler {
	_, c := data.Dims()
	scale := make([]float64, c)
	col := make([]float64, 0)
	for j := range scale {
		col = mat.Col(col[:0], j, data)
		sd := stat.PopStdDev(col, nil)
		if sd == 0 {
			sd = 1
		}
		scale[j] = sd
	}
	return &Scaler{scale: scale}
}

// NewScaler returns a scaler with the given per-column scale.
func NewScaler(scale []float64) *Scaler {
	s := make([]float64, len(scale))
	copy(s, scale)
	return &Scaler{scale: s}
}

// Scale returns a copy of the per-column scale.
func (s *Scaler) Scale() []float64 {
	out := make([]float64, len(s.scale))
	copy(out, s.scale)
	return out
}

// Transform divides every column of data by its scale.
func (s *Scaler) Transform(data *mat.Dense) (*mat.Dense, error) {
	r, c := data.Dims()
	if c != len(s.scale) {
		return nil, &model.ShapeError{What: "scaler columns", Expected: [2]int{r, len(s.scale)}, Actual: [2]int{r, c}}
	}
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, j int, x float64) float64 {
		return x / s.scale[j]
	}, data)
	return out, nil
}

// InverseScaleWeights divides a weight vector by the scale, mapping a
// classifier trained on standardized data back onto unscaled inputs.
func (s *Scaler) InverseScaleWeights(weight []float64) ([]float64, error) {
	if len(weight) != len(s.scale) {
		return nil, &model.ShapeError{What: "weight", Expected: [2]int{1, len(s.scale)}, Actual: [2]int{1, len(weight)}}
	}
	out := make([]float64, len(weight))
	for j, w := range weight {
		out[j] = w / s.scale[j]
	}
	return out, nil
}
