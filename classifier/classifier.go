// Package classifier holds per-class linear models and their decision rule.
//
// Models are produced by an external trainer. The decision value of a
// normalized vector x is −⟨x, w⟩ + b, matching the sign convention of the
// dual kernel classifiers the weights are recovered from.
package classifier

import (
	"fmt"

	"github.com/viterin/vek"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/fvapprox/model"
)

// Model is the linear classifier of one class.
type Model struct {
	Class  int
	Weight []float64
	Bias   float64
}

// IsZero reports whether the weight vector is identically zero. Such a
// model scores every input with its bias.
func (m Model) IsZero() bool {
	for _, w := range m.Weight {
		if w != 0 {
			return false
		}
	}
	return true
}

// Predict returns −⟨x_i, w⟩ + b for every row of data.
func (m Model) Predict(data *mat.Dense) ([]float64, error) {
	r, c := data.Dims()
	if c != len(m.Weight) {
		return nil, &model.ShapeError{What: "weight", Expected: [2]int{1, c}, Actual: [2]int{1, len(m.Weight)}}
	}
	out := make([]float64, r)
	for i := range out {
		out[i] = -vek.Dot(data.RawRowView(i), m.Weight) + m.Bias
	}
	return out, nil
}

// Source supplies one model per class.
type Source interface {
	// NumClasses returns the number of classes; class ids are 0..NumClasses()-1.
	NumClasses() int
	// Model returns the model of class cls.
	Model(cls int) (Model, error)
}

// Set is an in-memory Source.
type Set []Model

// NumClasses implements Source.
func (s Set) NumClasses() int { return len(s) }

// Model implements Source.
func (s Set) Model(cls int) (Model, error) {
	if cls < 0 || cls >= len(s) {
		return Model{}, fmt.Errorf("%w: class %d out of range [0, %d)", model.ErrInvalidArgument, cls, len(s))
	}
	m := s[cls]
	m.Class = cls
	return m, nil
}

// FromDual recovers primal weights from a kernel classifier's dual
// coefficients: w = Σ_i α_i x_i over the support vectors. If std is not
// nil, w is divided elementwise by it so the model applies to unscaled
// inputs.
func FromDual(cls int, dualCoef []float64, support *mat.Dense, intercept float64, std []float64) (Model, error) {
	r, c := support.Dims()
	if len(dualCoef) != r {
		return Model{}, &model.ShapeError{What: "dual coefficients", Expected: [2]int{1, r}, Actual: [2]int{1, len(dualCoef)}}
	}
	if std != nil && len(std) != c {
		return Model{}, &model.ShapeError{What: "std", Expected: [2]int{1, c}, Actual: [2]int{1, len(std)}}
	}
	w := mat.NewVecDense(c, nil)
	w.MulVec(support.T(), mat.NewVecDense(r, dualCoef))
	weight := mat.Col(nil, 0, w)
	if std != nil {
		floats.Div(weight, std)
	}
	return Model{Class: cls, Weight: weight, Bias: intercept}, nil
}
